package equivalence

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/equivalence/similarity"
)

var (
	methodTag  = "analysismethod"
	methodText = "{0} must be one of: " + strings.Join(similarity.Methods, ", ")

	differentTag  = "nefield"
	differentText = "source and target subjects must be different"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(methodTag, func(fl validator.FieldLevel) bool {
		return core.ContainsString(similarity.Methods, fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, methodTag, methodText)
	core.RegisterCustomTranslation(validate, translator, differentTag, differentText, true)
}
