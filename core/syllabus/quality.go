package syllabus

// Section weights of the quality score; they add up to 100.
const (
	weightTitle         = 10
	weightCode          = 5
	weightWorkload      = 5
	weightCredits       = 5
	weightDescription   = 15
	weightObjectives    = 15
	weightTopics        = 15
	weightMethodology   = 5
	weightEvaluation    = 10
	weightBibliography  = 10
	weightComplementary = 5
)

func qualityScore(doc Document) int {
	checks := []struct {
		present bool
		weight  int
	}{
		{doc.Title != "", weightTitle},
		{doc.Code != "", weightCode},
		{doc.WorkloadHours > 0, weightWorkload},
		{doc.Credits > 0, weightCredits},
		{doc.Description != "", weightDescription},
		{len(doc.Objectives) > 0, weightObjectives},
		{len(doc.TopicUnits) > 0, weightTopics},
		{len(doc.Methodologies) > 0, weightMethodology},
		{len(doc.EvaluationMethods) > 0, weightEvaluation},
		{len(doc.BibliographyBasic) > 0, weightBibliography},
		{len(doc.BibliographyComplementary) > 0, weightComplementary},
	}
	score := 0
	for _, c := range checks {
		if c.present {
			score += c.weight
		}
	}
	return score
}
