package student

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/academictoken/registry/core"
)

var (
	enrollStatusTag  = "enrollstatus"
	enrollStatusText = "{0} must be one of: " + strings.Join(EnrollmentStatuses, ", ")
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(enrollStatusTag, func(fl validator.FieldLevel) bool {
		return core.ContainsString(EnrollmentStatuses, fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, enrollStatusTag, enrollStatusText)
}
