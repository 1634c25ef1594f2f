package subject

import (
	"strings"
	"time"

	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/equivalence/similarity"
)

// Subject types
const (
	TypeRequired        = "required"
	TypeElective        = "elective"
	TypeOptional        = "optional"
	TypeExtracurricular = "extracurricular"
)

var SubjectTypes = []string{TypeRequired, TypeElective, TypeOptional, TypeExtracurricular}

type Workload = similarity.Workload

type TopicUnit struct {
	Title  string   `json:"title"`
	Topics []string `json:"topics"`
	Hours  uint64   `json:"hours,omitempty"`
}

// Content is the detailed syllabus of a subject.
type Content struct {
	Objectives                []string    `json:"objectives"`
	TopicUnits                []TopicUnit `json:"topic_units"`
	Methodologies             []string    `json:"methodologies"`
	EvaluationMethods         []string    `json:"evaluation_methods"`
	BibliographyBasic         []string    `json:"bibliography_basic"`
	BibliographyComplementary []string    `json:"bibliography_complementary"`
	Keywords                  []string    `json:"keywords"`
	Language                  string      `json:"language"`
	Workload                  Workload    `json:"workload"`
	Level                     string      `json:"level"`
	Department                string      `json:"department"`
}

func (c *Content) Clean() {
	c.Objectives = core.CleanStrings(c.Objectives)
	c.Methodologies = core.CleanStrings(c.Methodologies)
	c.EvaluationMethods = core.CleanStrings(c.EvaluationMethods)
	c.BibliographyBasic = core.CleanStrings(c.BibliographyBasic)
	c.BibliographyComplementary = core.CleanStrings(c.BibliographyComplementary)
	c.Keywords = core.CleanStrings(c.Keywords)
	c.Language = core.CleanString(c.Language, true /* lower */)
	c.Level = core.CleanString(c.Level, true /* lower */)
	c.Department = core.CleanString(c.Department)
	units := c.TopicUnits[:0:0]
	for _, u := range c.TopicUnits {
		u.Title = core.CleanString(u.Title)
		u.Topics = core.CleanStrings(u.Topics)
		if u.Title != "" || len(u.Topics) > 0 {
			units = append(units, u)
		}
	}
	c.TopicUnits = units
}

// Topics flattens the topic units.
func (c Content) Topics() []string {
	var topics []string
	for _, u := range c.TopicUnits {
		if u.Title != "" {
			topics = append(topics, u.Title)
		}
		topics = append(topics, u.Topics...)
	}
	return topics
}

type Subject struct {
	Index              string              `json:"index"`
	Institution        string              `json:"institution"`
	CourseID           string              `json:"course_id"`
	Title              string              `json:"title"`
	Code               string              `json:"code"`
	WorkloadHours      uint64              `json:"workload_hours"`
	Credits            uint64              `json:"credits"`
	Description        string              `json:"description"`
	SubjectType        string              `json:"subject_type"`
	KnowledgeArea      string              `json:"knowledge_area"`
	Content            *Content            `json:"content,omitempty"`
	ContentHash        string              `json:"content_hash"`
	PrerequisiteGroups []PrerequisiteGroup `json:"prerequisite_groups"`
	Creator            string              `json:"creator"`
	CreatedAt          time.Time           `json:"created_at"` // UTC
	UpdatedAt          time.Time           `json:"updated_at"` // UTC
}

// PrerequisiteIDs lists the subjects referenced by the prerequisite groups, without duplicates.
func (s Subject) PrerequisiteIDs() []string {
	var ids []string
	for _, g := range s.PrerequisiteGroups {
		ids = append(ids, g.SubjectIDs...)
	}
	return core.CleanStrings(ids)
}

// Similarity returns the subject as compared by the similarity package.
func (s Subject) Similarity() similarity.Subject {
	sub := similarity.Subject{Metadata: similarity.Metadata{
		Credits:       s.Credits,
		WorkloadHours: s.WorkloadHours,
	}}
	if s.Content == nil {
		return sub
	}
	sub.Level = s.Content.Level
	sub.Department = s.Content.Department
	sub.Content = &similarity.Content{
		Language:     s.Content.Language,
		Title:        s.Title,
		Description:  s.Description,
		Objectives:   s.Content.Objectives,
		Topics:       s.Content.Topics(),
		Bibliography: append(append([]string{}, s.Content.BibliographyBasic...), s.Content.BibliographyComplementary...),
		Methodology:  strings.Join(s.Content.Methodologies, ". "),
		Keywords:     s.Content.Keywords,
		Workload:     s.Content.Workload,
	}
	return sub
}

// SubjectWithPrerequisites resolves the prerequisite subjects of a subject.
type SubjectWithPrerequisites struct {
	Subject       Subject   `json:"subject"`
	Prerequisites []Subject `json:"prerequisites"`
}

type NewSubject struct {
	Institution        string                 `json:"institution" validate:"required"`
	CourseID           string                 `json:"course_id" validate:"required"`
	Title              string                 `json:"title" validate:"required,max=200"`
	Code               string                 `json:"code" validate:"required,max=30"`
	WorkloadHours      uint64                 `json:"workload_hours" validate:"required,gt=0"`
	Credits            uint64                 `json:"credits" validate:"required,gt=0"`
	Description        string                 `json:"description" validate:"max=5000"`
	SubjectType        string                 `json:"subject_type" validate:"required,subjecttype"`
	KnowledgeArea      string                 `json:"knowledge_area" validate:"max=200"`
	Content            *Content               `json:"content"`
	PrerequisiteGroups []NewPrerequisiteGroup `json:"prerequisite_groups" validate:"dive"`
}

func (ns *NewSubject) Clean() {
	ns.Institution = core.CleanString(ns.Institution)
	ns.CourseID = core.CleanString(ns.CourseID)
	ns.Title = core.CleanString(ns.Title)
	ns.Code = core.CleanString(ns.Code)
	ns.Description = core.CleanString(ns.Description)
	ns.SubjectType = core.CleanString(ns.SubjectType, true /* lower */)
	ns.KnowledgeArea = core.CleanString(ns.KnowledgeArea)
	if ns.Content != nil {
		ns.Content.Clean()
	}
	for i := range ns.PrerequisiteGroups {
		ns.PrerequisiteGroups[i].Clean()
	}
}

type NewPrerequisiteGroup struct {
	GroupType                string   `json:"group_type" validate:"required,prereqtype"`
	Logic                    string   `json:"logic" validate:"omitempty,prereqlogic"`
	MinimumCredits           uint64   `json:"minimum_credits"`
	MinimumCompletedSubjects uint64   `json:"minimum_completed_subjects"`
	SubjectIDs               []string `json:"subject_ids"`
}

func (npg *NewPrerequisiteGroup) Clean() {
	npg.GroupType = strings.ToUpper(core.CleanString(npg.GroupType))
	npg.Logic = strings.ToUpper(core.CleanString(npg.Logic))
	if npg.Logic == "" {
		npg.Logic = LogicAnd
	}
	npg.SubjectIDs = core.CleanStrings(npg.SubjectIDs)
}

type QueryFilter struct {
	Institution string `query:"institution"`
	CourseID    string `query:"course"`
	SubjectType string `query:"subject_type"`
	Search      string `query:"search"`
}

func (qf *QueryFilter) Clean() {
	qf.Institution = core.CleanString(qf.Institution)
	qf.CourseID = core.CleanString(qf.CourseID)
	qf.SubjectType = core.CleanString(qf.SubjectType, true /* lower */)
	qf.Search = core.CleanString(qf.Search, true /* lower */)
}

func (qf QueryFilter) Match(s Subject) bool {
	switch {
	case qf.Institution != "" && s.Institution != qf.Institution,
		qf.CourseID != "" && s.CourseID != qf.CourseID,
		qf.SubjectType != "" && s.SubjectType != qf.SubjectType:
		return false
	}
	if qf.Search != "" {
		return strings.Contains(strings.ToLower(s.Title), qf.Search) ||
			strings.Contains(strings.ToLower(s.Code), qf.Search)
	}
	return true
}
