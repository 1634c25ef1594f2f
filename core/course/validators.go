package course

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/academictoken/registry/core"
)

var (
	degreeLevelTag  = "degreelevel"
	degreeLevelText = "{0} must be one of: " + strings.Join(DegreeLevels, ", ")
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(degreeLevelTag, func(fl validator.FieldLevel) bool {
		return core.ContainsString(DegreeLevels, fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, degreeLevelTag, degreeLevelText)
}
