package tokendef

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/academictoken/registry/core"
)

var (
	tokenTypeTag  = "tokentype"
	tokenTypeText = "{0} must be one of: " + strings.Join(TokenTypes, ", ")

	tokenSymbolTag  = "tokensymbol"
	tokenSymbolText = "{0} must have 1 to 12 uppercase letters or digits"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(tokenTypeTag, func(fl validator.FieldLevel) bool {
		return core.ContainsString(TokenTypes, fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, tokenTypeTag, tokenTypeText)

	_ = validate.RegisterValidation(tokenSymbolTag, func(fl validator.FieldLevel) bool {
		return symbolRegex.MatchString(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, tokenSymbolTag, tokenSymbolText)
}
