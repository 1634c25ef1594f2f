package subject

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/academictoken/registry/core"
)

var (
	subjectTypeTag  = "subjecttype"
	subjectTypeText = "{0} must be one of: " + strings.Join(SubjectTypes, ", ")

	prereqTypeTag  = "prereqtype"
	prereqTypeText = "{0} must be one of: " + strings.Join(GroupTypes, ", ")

	prereqLogicTag  = "prereqlogic"
	prereqLogicText = "{0} must be one of: " + strings.Join(Logics, ", ")

	minimumGroupTag  = "prereqmin"
	minimumGroupText = "a MINIMUM group needs a minimum of credits or completed subjects"

	emptyGroupTag  = "prereqempty"
	emptyGroupText = "subject_ids is required for this group type"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	registerOneOf(validate, translator, subjectTypeTag, subjectTypeText, SubjectTypes)
	registerOneOf(validate, translator, prereqTypeTag, prereqTypeText, GroupTypes)
	registerOneOf(validate, translator, prereqLogicTag, prereqLogicText, Logics)

	validate.RegisterStructValidation(prerequisiteGroupValidation, NewPrerequisiteGroup{})
	core.RegisterCustomTranslation(validate, translator, minimumGroupTag, minimumGroupText)
	core.RegisterCustomTranslation(validate, translator, emptyGroupTag, emptyGroupText)
}

func registerOneOf(validate *validator.Validate, translator ut.Translator, tag, text string, values []string) {
	_ = validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return core.ContainsString(values, fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, tag, text)
}

func prerequisiteGroupValidation(sl validator.StructLevel) {
	g := sl.Current().Interface().(NewPrerequisiteGroup)
	if g.GroupType == GroupNone {
		return
	}
	if len(g.SubjectIDs) == 0 {
		sl.ReportError(g.SubjectIDs, "subject_ids", "SubjectIDs", emptyGroupTag, "")
	}
	if g.GroupType == GroupMinimum && g.MinimumCredits == 0 && g.MinimumCompletedSubjects == 0 {
		sl.ReportError(g.MinimumCredits, "minimum_credits", "MinimumCredits", minimumGroupTag, "")
	}
}
