package schedule

import (
	"time"

	"github.com/academictoken/registry/core"
)

// Recommendation priorities
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Study plan statuses
const (
	PlanDraft     = "draft"
	PlanActive    = "active"
	PlanCompleted = "completed"
	PlanAbandoned = "abandoned"
)

var PlanStatuses = []string{PlanDraft, PlanActive, PlanCompleted, PlanAbandoned}

// planTransitions lists the statuses a plan may move to from each status.
var planTransitions = map[string][]string{
	PlanDraft:  {PlanActive, PlanAbandoned},
	PlanActive: {PlanCompleted, PlanAbandoned},
}

type RecommendedSubject struct {
	SubjectID     string `json:"subject_id"`
	Title         string `json:"title"`
	Credits       uint64 `json:"credits"`
	WorkloadHours uint64 `json:"workload_hours"`
	Semester      uint64 `json:"semester"`
	Required      bool   `json:"required"`
	Priority      string `json:"priority"`
	Reason        string `json:"reason"`
}

type SubjectRecommendation struct {
	Index                string               `json:"index"`
	StudentID            string               `json:"student_id"`
	CurriculumID         string               `json:"curriculum_id"`
	TargetSemester       uint64               `json:"target_semester"`
	Recommended          []RecommendedSubject `json:"recommended"`
	Alternatives         []RecommendedSubject `json:"alternatives"`
	TotalCredits         uint64               `json:"total_credits"`
	EstimatedWorkload    uint64               `json:"estimated_workload"`
	CompletionPercentage float64              `json:"completion_percentage"`
	Notes                []string             `json:"notes"`
	ConfidenceScore      float64              `json:"confidence_score"`
	Creator              string               `json:"creator"`
	CreatedAt            time.Time            `json:"created_at"` // UTC
}

type NewRecommendation struct {
	StudentID        string   `json:"student_id" validate:"required"`
	CourseID         string   `json:"course_id"`
	TargetSemester   uint64   `json:"target_semester" validate:"required,gt=0,lte=16"`
	MaxSubjects      int      `json:"max_subjects" validate:"gte=0,lte=15"`
	PrioritySubjects []string `json:"priority_subjects"`
}

func (nr *NewRecommendation) Clean() {
	nr.StudentID = core.CleanString(nr.StudentID)
	nr.CourseID = core.CleanString(nr.CourseID)
	nr.PrioritySubjects = core.CleanStrings(nr.PrioritySubjects)
	if nr.MaxSubjects == 0 {
		nr.MaxSubjects = defaultMaxSubjects
	}
}

type PlannedSemester struct {
	Number       uint64   `json:"number"`
	SubjectIDs   []string `json:"subject_ids"`
	TotalCredits uint64   `json:"total_credits"`
	TotalHours   uint64   `json:"total_hours"`
}

type StudyPlan struct {
	Index            string            `json:"index"`
	StudentID        string            `json:"student_id"`
	CurriculumID     string            `json:"curriculum_id"`
	CompletionTarget string            `json:"completion_target"`
	Notes            string            `json:"notes"`
	Status           string            `json:"status"`
	Semesters        []PlannedSemester `json:"semesters"`
	Creator          string            `json:"creator"`
	CreatedAt        time.Time         `json:"created_at"` // UTC
	UpdatedAt        time.Time         `json:"updated_at"` // UTC
}

// Planned reports whether a subject is planned in any semester of the plan.
func (p StudyPlan) Planned(subjectID string) bool {
	for _, sem := range p.Semesters {
		if core.ContainsString(sem.SubjectIDs, subjectID) {
			return true
		}
	}
	return false
}

type NewStudyPlan struct {
	StudentID        string `json:"student_id" validate:"required"`
	CurriculumID     string `json:"curriculum_id" validate:"required"`
	CompletionTarget string `json:"completion_target" validate:"omitempty,isodate"`
	Notes            string `json:"notes" validate:"max=1000"`
}

func (np *NewStudyPlan) Clean() {
	np.StudentID = core.CleanString(np.StudentID)
	np.CurriculumID = core.CleanString(np.CurriculumID)
	np.CompletionTarget = core.CleanString(np.CompletionTarget)
	np.Notes = core.CleanString(np.Notes)
}

type NewPlannedSemester struct {
	Number     uint64   `json:"number" validate:"required,gt=0"`
	SubjectIDs []string `json:"subject_ids" validate:"required,min=1"`
}

func (ns *NewPlannedSemester) Clean() {
	ns.SubjectIDs = core.CleanStrings(ns.SubjectIDs)
}
