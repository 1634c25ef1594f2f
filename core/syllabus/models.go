package syllabus

import (
	"github.com/academictoken/registry/core/subject"
)

// Subject natures
const (
	NatureTheoretical = "THEORETICAL"
	NaturePractical   = "PRACTICAL"
	NatureProject     = "PROJECT"
	NatureLab         = "LAB"
)

const AreaGeneral = "GENERAL"

type WeeklyEntry struct {
	Week  int    `json:"week" yaml:"week"`
	Topic string `json:"topic" yaml:"topic"`
}

// Document is the structure extracted from a plain text syllabus.
type Document struct {
	Title                     string                         `json:"title" yaml:"title"`
	Code                      string                         `json:"code" yaml:"code"`
	WorkloadHours             uint64                         `json:"workload_hours" yaml:"workload_hours"`
	Workload                  subject.Workload               `json:"workload" yaml:"workload"`
	Credits                   uint64                         `json:"credits" yaml:"credits"`
	Description               string                         `json:"description" yaml:"description"`
	Objectives                []string                       `json:"objectives" yaml:"objectives"`
	Methodologies             []string                       `json:"methodologies" yaml:"methodologies"`
	EvaluationMethods         []string                       `json:"evaluation_methods" yaml:"evaluation_methods"`
	BibliographyBasic         []string                       `json:"bibliography_basic" yaml:"bibliography_basic"`
	BibliographyComplementary []string                       `json:"bibliography_complementary" yaml:"bibliography_complementary"`
	TopicUnits                []subject.TopicUnit            `json:"topic_units" yaml:"topic_units"`
	Keywords                  []string                       `json:"keywords" yaml:"keywords"`
	SubjectType               string                         `json:"subject_type" yaml:"subject_type"`
	KnowledgeArea             string                         `json:"knowledge_area" yaml:"knowledge_area"`
	PrerequisiteTexts         []string                       `json:"prerequisite_texts" yaml:"prerequisite_texts"`
	PrerequisiteGroups        []subject.NewPrerequisiteGroup `json:"prerequisite_groups" yaml:"prerequisite_groups"`
	WeeklyProgram             []WeeklyEntry                  `json:"weekly_program" yaml:"weekly_program"`
	Language                  string                         `json:"language" yaml:"language"`
	QualityScore              int                            `json:"quality_score" yaml:"quality_score"`
	ExtractionConfidence      float64                        `json:"extraction_confidence" yaml:"extraction_confidence"`
	ContentHash               string                         `json:"content_hash" yaml:"content_hash"`
}

// Content returns the part of the document stored on a subject.
func (d Document) Content() subject.Content {
	c := subject.Content{
		Objectives:                d.Objectives,
		TopicUnits:                d.TopicUnits,
		Methodologies:             d.Methodologies,
		EvaluationMethods:         d.EvaluationMethods,
		BibliographyBasic:         d.BibliographyBasic,
		BibliographyComplementary: d.BibliographyComplementary,
		Keywords:                  d.Keywords,
		Language:                  d.Language,
		Workload:                  d.Workload,
	}
	c.Clean()
	return c
}

// Result is the outcome of processing one syllabus source.
type Result struct {
	Source   string    `json:"source" yaml:"source"`
	Document *Document `json:"document,omitempty" yaml:"document,omitempty"`
	Cached   bool      `json:"cached" yaml:"cached"`
	Error    string    `json:"error,omitempty" yaml:"error,omitempty"`
}
