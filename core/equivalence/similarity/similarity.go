// Package similarity scores how equivalent two academic subjects are, from 0 to 100.
package similarity

import (
	"fmt"
	"strings"
)

// Equivalence types
const (
	TypeFull        = "full"
	TypePartial     = "partial"
	TypeConditional = "conditional"
	TypeNone        = "none"
)

// Analysis methods
const (
	MethodAutomatic     = "automatic"
	MethodManual        = "manual"
	MethodHybrid        = "hybrid"
	MethodInstitutional = "institutional"
)

var Methods = []string{MethodAutomatic, MethodManual, MethodHybrid, MethodInstitutional}

// content field weights, out of 100
const (
	weightTitle        = 10
	weightDescription  = 15
	weightObjectives   = 25
	weightTopics       = 30
	weightBibliography = 5
	weightMethodology  = 5
	weightWorkload     = 5
	weightKeywords     = 5
)

type Workload struct {
	Theoretical uint64 `json:"theoretical"`
	Practical   uint64 `json:"practical"`
	Lab         uint64 `json:"lab"`
	Field       uint64 `json:"field"`
	Seminar     uint64 `json:"seminar"`
	Study       uint64 `json:"study"`
}

func (w Workload) Total() uint64 {
	return w.Theoretical + w.Practical + w.Lab + w.Field + w.Seminar + w.Study
}

type Metadata struct {
	Credits       uint64
	Level         string
	Department    string
	WorkloadHours uint64
}

type Content struct {
	Language     string
	Title        string
	Description  string
	Objectives   []string
	Topics       []string
	Bibliography []string
	Methodology  string
	Keywords     []string
	Workload     Workload
}

func (c Content) IsEmpty() bool {
	return c.Description == "" && len(c.Objectives) == 0 && len(c.Topics) == 0 &&
		len(c.Bibliography) == 0 && len(c.Keywords) == 0 && c.Workload.Total() == 0
}

// Subject is what gets compared. Content is optional; metadata alone gives a coarser score.
type Subject struct {
	Metadata
	Content *Content
}

func (s Subject) hasContent() bool {
	return s.Content != nil && !s.Content.IsEmpty()
}

type ContentScores struct {
	Overall      int `json:"overall"`
	Title        int `json:"title"`
	Description  int `json:"description"`
	Objectives   int `json:"objectives"`
	Topics       int `json:"topics"`
	Bibliography int `json:"bibliography"`
	Methodology  int `json:"methodology"`
	Workload     int `json:"workload"`
	Keywords     int `json:"keywords"`
}

type Result struct {
	Score               int            `json:"score"`
	MetadataScore       int            `json:"metadata_score"`
	Content             *ContentScores `json:"content,omitempty"`
	CreditCompatibility int            `json:"credit_compatibility"`
	LevelCompatibility  int            `json:"level_compatibility"`
	UsedContent         bool           `json:"used_content"`
	Type                string         `json:"type"`
	Details             string         `json:"details"`
}

// Compare scores a against b. With content on both sides the score is 80% content and 20% metadata.
func Compare(a, b Subject) Result {
	res := Result{
		MetadataScore:       MetadataScore(a.Metadata, b.Metadata),
		CreditCompatibility: Credits(a.Credits, b.Credits),
		LevelCompatibility:  Level(a.Level, b.Level),
	}
	res.Score = res.MetadataScore

	if a.hasContent() && b.hasContent() {
		cs := CompareContent(*a.Content, *b.Content)
		res.Content = &cs
		res.UsedContent = true
		res.Score = (cs.Overall*80 + res.MetadataScore*20) / 100
		res.Details = fmt.Sprintf(
			"Title: %d%%, Desc: %d%%, Obj: %d%%, Topics: %d%%, Workload: %d%%",
			cs.Title, cs.Description, cs.Objectives, cs.Topics, cs.Workload,
		)
	} else {
		res.Details = fmt.Sprintf(
			"Metadata only: %d%% (credits %d%%, level %d%%)",
			res.MetadataScore, res.CreditCompatibility, res.LevelCompatibility,
		)
	}
	res.Type = Type(res.Score)
	return res
}

// MetadataScore weighs credits 40%, level 30%, department 20% and total workload 10%.
func MetadataScore(a, b Metadata) int {
	var credits int
	switch diff := absDiff(a.Credits, b.Credits); {
	case diff == 0:
		credits = 100
	case diff <= 2:
		credits = 80
	case diff <= 4:
		credits = 60
	default:
		credits = 40
	}

	level := 50
	if strings.EqualFold(a.Level, b.Level) {
		level = 100
	}

	deptA, deptB := strings.ToLower(strings.TrimSpace(a.Department)), strings.ToLower(strings.TrimSpace(b.Department))
	var dept int
	switch {
	case deptA == deptB:
		dept = 100
	case strings.Contains(deptA, deptB) || strings.Contains(deptB, deptA):
		dept = 70
	default:
		dept = 30
	}

	var workload int
	switch diff := absDiff(a.WorkloadHours, b.WorkloadHours); {
	case diff <= 10:
		workload = 100
	case diff <= 30:
		workload = 80
	default:
		workload = 60
	}

	return (credits*40 + level*30 + dept*20 + workload*10) / 100
}

func CompareContent(a, b Content) ContentScores {
	la, lb := a.Language, b.Language
	cs := ContentScores{
		Title:        Text(a.Title, la, b.Title, lb),
		Description:  Text(a.Description, la, b.Description, lb),
		Objectives:   List(a.Objectives, la, b.Objectives, lb),
		Topics:       List(a.Topics, la, b.Topics, lb),
		Bibliography: List(a.Bibliography, la, b.Bibliography, lb),
		Methodology:  Text(a.Methodology, la, b.Methodology, lb),
		Workload:     WorkloadScore(a.Workload, b.Workload),
		Keywords:     List(a.Keywords, la, b.Keywords, lb),
	}
	cs.Overall = (cs.Title*weightTitle +
		cs.Description*weightDescription +
		cs.Objectives*weightObjectives +
		cs.Topics*weightTopics +
		cs.Bibliography*weightBibliography +
		cs.Methodology*weightMethodology +
		cs.Workload*weightWorkload +
		cs.Keywords*weightKeywords) / 100
	return cs
}

// Hours compares two hour counts by their relative difference; differences up to 20% cost twice as much.
func Hours(a, b uint64) int {
	if a == b {
		return 100
	}
	larger := a
	if b > larger {
		larger = b
	}
	pct := int(absDiff(a, b) * 100 / larger)
	if pct <= 20 {
		return clamp(100 - 2*pct)
	}
	return clamp(100 - pct)
}

// WorkloadScore weighs theoretical 30%, practical 25%, lab 15%, field, seminar and study 10% each.
func WorkloadScore(a, b Workload) int {
	ta, tb := a.Total(), b.Total()
	if ta == 0 && tb == 0 {
		return 100
	}
	if ta == 0 || tb == 0 {
		return 0
	}
	return (Hours(a.Theoretical, b.Theoretical)*30 +
		Hours(a.Practical, b.Practical)*25 +
		Hours(a.Lab, b.Lab)*15 +
		Hours(a.Field, b.Field)*10 +
		Hours(a.Seminar, b.Seminar)*10 +
		Hours(a.Study, b.Study)*10) / 100
}

// Credits is the credit compatibility reported with content analyses.
func Credits(a, b uint64) int {
	switch diff := absDiff(a, b); {
	case diff == 0:
		return 100
	case diff <= 2:
		return 90
	case diff <= 4:
		return 70
	case diff <= 8:
		return 50
	}
	return 20
}

// Level compares academic levels; neighbouring levels keep part of the score.
func Level(a, b string) int {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == b {
		return 100
	}
	pair := func(x, y string) bool { return (a == x && b == y) || (a == y && b == x) }
	switch {
	case pair("undergraduate", "graduate"):
		return 60
	case pair("graduate", "postgraduate"):
		return 70
	}
	return 30
}

// Type maps a score to an equivalence type.
func Type(score int) string {
	switch {
	case score >= 90:
		return TypeFull
	case score >= 70:
		return TypePartial
	case score >= 50:
		return TypeConditional
	}
	return TypeNone
}

// Confidence derives the confidence of a score from the data and the method used to get it.
func Confidence(score int, usedContent bool, method string) int {
	base := score
	if usedContent {
		base = clamp(base * 110 / 100)
	}
	switch method {
	case MethodInstitutional:
		return 100
	case MethodManual:
		if base < 80 {
			return 80
		}
		return base
	case MethodHybrid:
		return clamp(base * 105 / 100)
	}
	return base
}

func absDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
