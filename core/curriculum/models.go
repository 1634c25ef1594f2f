package curriculum

import (
	"fmt"
	"time"

	"github.com/academictoken/registry/core"
)

type Semester struct {
	Number     uint64   `json:"number"`
	SubjectIDs []string `json:"subject_ids"`
}

type ElectiveGroup struct {
	GroupID             string   `json:"group_id"`
	Name                string   `json:"name"`
	Description         string   `json:"description"`
	SubjectIDs          []string `json:"subject_ids"`
	MinSubjectsRequired uint64   `json:"min_subjects_required"`
	CreditsRequired     uint64   `json:"credits_required"`
	KnowledgeArea       string   `json:"knowledge_area"`
}

type GraduationRequirements struct {
	TotalCreditsRequired    uint64   `json:"total_credits_required" validate:"required,gt=0"`
	MinGPA                  float64  `json:"min_gpa" validate:"gte=0,lte=10"`
	RequiredElectiveCredits uint64   `json:"required_elective_credits"`
	RequiredActivities      []string `json:"required_activities"`
	MinimumTimeYears        float64  `json:"minimum_time_years" validate:"gte=0"`
	MaximumTimeYears        float64  `json:"maximum_time_years" validate:"gtefield=MinimumTimeYears"`
}

type Tree struct {
	Index                  string                  `json:"index"`
	CourseID               string                  `json:"course_id"`
	Version                string                  `json:"version"`
	ElectiveMin            uint64                  `json:"elective_min"`
	TotalWorkloadHours     uint64                  `json:"total_workload_hours"`
	RequiredSubjects       []string                `json:"required_subjects"`
	ElectiveSubjects       []string                `json:"elective_subjects"`
	SemesterStructure      []Semester              `json:"semester_structure"`
	ElectiveGroups         []ElectiveGroup         `json:"elective_groups"`
	GraduationRequirements *GraduationRequirements `json:"graduation_requirements,omitempty"`
	Creator                string                  `json:"creator"`
	CreatedAt              time.Time               `json:"created_at"` // UTC
	UpdatedAt              time.Time               `json:"updated_at"` // UTC
}

// SemesterOf returns the number of the semester offering the subject, or 0.
func (t Tree) SemesterOf(subjectID string) uint64 {
	for _, sem := range t.SemesterStructure {
		if core.ContainsString(sem.SubjectIDs, subjectID) {
			return sem.Number
		}
	}
	return 0
}

// Subjects lists every subject of the tree: required first, then electives and semester-only ones.
func (t Tree) Subjects() []string {
	ids := append([]string{}, t.RequiredSubjects...)
	ids = append(ids, t.ElectiveSubjects...)
	for _, sem := range t.SemesterStructure {
		ids = append(ids, sem.SubjectIDs...)
	}
	for _, g := range t.ElectiveGroups {
		ids = append(ids, g.SubjectIDs...)
	}
	return core.CleanStrings(ids)
}

func (t Tree) IsRequired(subjectID string) bool {
	return core.ContainsString(t.RequiredSubjects, subjectID)
}

type NewTree struct {
	CourseID           string   `json:"course_id" validate:"required"`
	Version            string   `json:"version" validate:"required,max=50"`
	ElectiveMin        uint64   `json:"elective_min" validate:"required,gt=0"`
	TotalWorkloadHours uint64   `json:"total_workload_hours" validate:"required,gt=0"`
	RequiredSubjects   []string `json:"required_subjects"`
	ElectiveSubjects   []string `json:"elective_subjects"`
}

func (nt *NewTree) Clean() {
	nt.CourseID = core.CleanString(nt.CourseID)
	nt.Version = core.CleanString(nt.Version)
	nt.RequiredSubjects = core.CleanStrings(nt.RequiredSubjects)
	nt.ElectiveSubjects = core.CleanStrings(nt.ElectiveSubjects)
}

type NewSemester struct {
	Number     uint64   `json:"number" validate:"required,gt=0"`
	SubjectIDs []string `json:"subject_ids"`
}

type NewElectiveGroup struct {
	Name                string   `json:"name" validate:"required,max=100"`
	Description         string   `json:"description" validate:"max=1000"`
	SubjectIDs          []string `json:"subject_ids"`
	MinSubjectsRequired uint64   `json:"min_subjects_required" validate:"required,gt=0"`
	CreditsRequired     uint64   `json:"credits_required" validate:"required,gt=0"`
	KnowledgeArea       string   `json:"knowledge_area" validate:"required"`
}

func (neg *NewElectiveGroup) Clean() {
	neg.Name = core.CleanString(neg.Name)
	neg.Description = core.CleanString(neg.Description)
	neg.SubjectIDs = core.CleanStrings(neg.SubjectIDs)
	neg.KnowledgeArea = core.CleanString(neg.KnowledgeArea)
}

func electiveGroupID(treeIndex, name string) string {
	return fmt.Sprintf("%s-%s", treeIndex, name)
}
