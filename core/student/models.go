package student

import (
	"time"

	"github.com/academictoken/registry/core"
)

// Enrollment statuses
const (
	EnrollmentPending   = "pending"
	EnrollmentActive    = "active"
	EnrollmentCompleted = "completed"
	EnrollmentCancelled = "cancelled"
	EnrollmentSuspended = "suspended"
)

// Graduation statuses
const (
	GraduationInProgress = "in_progress"
	GraduationEligible   = "eligible"
	GraduationGraduated  = "graduated"
)

// Subject progress statuses
const (
	SubjectAvailable  = "available"
	SubjectInProgress = "in_progress"
	SubjectCompleted  = "completed"
	SubjectLocked     = "locked"
)

var EnrollmentStatuses = []string{
	EnrollmentPending, EnrollmentActive, EnrollmentCompleted, EnrollmentCancelled, EnrollmentSuspended,
}

type Student struct {
	Index     string    `json:"index"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Email     string    `json:"email"`
	Creator   string    `json:"creator"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type NewStudent struct {
	Name    string `json:"name" validate:"required,max=200"`
	Address string `json:"address" validate:"required,acaddr"`
	Email   string `json:"email" validate:"omitempty,email"`
}

func (ns *NewStudent) Clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.Address = core.CleanString(ns.Address, true /* lower */)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
}

type Enrollment struct {
	Index          string    `json:"index"`
	StudentID      string    `json:"student_id"`
	InstitutionID  string    `json:"institution_id"`
	CourseID       string    `json:"course_id"`
	Status         string    `json:"status"`
	EnrollmentDate string    `json:"enrollment_date"`
	Creator        string    `json:"creator"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
}

// IsOpen reports whether the enrollment blocks a new enrollment in the same course.
func (e Enrollment) IsOpen() bool {
	return e.Status == EnrollmentActive || e.Status == EnrollmentPending
}

func (e Enrollment) IsTerminal() bool {
	return e.Status == EnrollmentCompleted || e.Status == EnrollmentCancelled
}

type NewEnrollment struct {
	StudentID      string `json:"student_id" validate:"required"`
	InstitutionID  string `json:"institution_id" validate:"required"`
	CourseID       string `json:"course_id" validate:"required"`
	Status         string `json:"status" validate:"omitempty,enrollstatus"`
	EnrollmentDate string `json:"enrollment_date" validate:"omitempty,isodate"`
}

func (ne *NewEnrollment) Clean() {
	ne.StudentID = core.CleanString(ne.StudentID)
	ne.InstitutionID = core.CleanString(ne.InstitutionID)
	ne.CourseID = core.CleanString(ne.CourseID)
	ne.Status = core.CleanString(ne.Status, true /* lower */)
	ne.EnrollmentDate = core.CleanString(ne.EnrollmentDate)
	if ne.Status == "" {
		ne.Status = EnrollmentActive
	}
}

// Completion is a passed subject with the data needed for credit, hour and GPA totals.
type Completion struct {
	SubjectID       string  `json:"subject_id"`
	TokenInstanceID string  `json:"token_instance_id"`
	Grade           float64 `json:"grade"`
	Credits         uint64  `json:"credits"`
	WorkloadHours   uint64  `json:"workload_hours"`
	CompletionDate  string  `json:"completion_date"`
	Semester        string  `json:"semester"`
}

type Progress struct {
	RequiredSubjectsCompleted  int     `json:"required_subjects_completed"`
	RequiredSubjectsTotal      int     `json:"required_subjects_total"`
	RequiredSubjectsPercentage float64 `json:"required_subjects_percentage"`
	CreditsCompleted           uint64  `json:"credits_completed"`
	CreditsRequired            uint64  `json:"credits_required"`
	OverallPercentage          float64 `json:"overall_percentage"`
}

type AcademicTree struct {
	Index               string       `json:"index"`
	StudentID           string       `json:"student_id"`
	InstitutionID       string       `json:"institution_id"`
	CourseID            string       `json:"course_id"`
	CurriculumID        string       `json:"curriculum_id"`
	CompletedTokens     []string     `json:"completed_tokens"`
	InProgressTokens    []string     `json:"in_progress_tokens"`
	AvailableTokens     []string     `json:"available_tokens"`
	Completions         []Completion `json:"completions"`
	TotalCredits        uint64       `json:"total_credits"`
	TotalCompletedHours uint64       `json:"total_completed_hours"`
	CoefficientGPA      float64      `json:"coefficient_gpa"`
	AcademicProgress    Progress     `json:"academic_progress"`
	GraduationStatus    string       `json:"graduation_status"`
	CreatedAt           time.Time    `json:"created_at"` // UTC
	UpdatedAt           time.Time    `json:"updated_at"` // UTC
}

func (t AcademicTree) HasCompleted(subjectID string) bool {
	return core.ContainsString(t.CompletedTokens, subjectID)
}

func (t AcademicTree) IsInProgress(subjectID string) bool {
	return core.ContainsString(t.InProgressTokens, subjectID)
}

// recompute refreshes the credit, hour and GPA totals from the completions. GPA is credit weighted, on a 0-10 scale.
func (t *AcademicTree) recompute() {
	var credits, hours uint64
	var weighted float64
	for _, c := range t.Completions {
		credits += c.Credits
		hours += c.WorkloadHours
		weighted += c.Grade / 10 * float64(c.Credits)
	}
	t.TotalCredits = credits
	t.TotalCompletedHours = hours
	t.CoefficientGPA = 0
	if credits > 0 {
		t.CoefficientGPA = roundTo2(weighted / float64(credits))
	}
}

type UpdateAcademicTree struct {
	CompletedTokens  []string `json:"completed_tokens"`
	InProgressTokens []string `json:"in_progress_tokens"`
	AvailableTokens  []string `json:"available_tokens"`
}

type CompleteSubject struct {
	Grade              float64 `json:"grade" validate:"gte=0,lte=100"`
	CompletionDate     string  `json:"completion_date" validate:"required,isodate"`
	Semester           string  `json:"semester" validate:"required,max=20"`
	ProfessorSignature string  `json:"professor_signature" validate:"required,max=500"`
}

func (cs *CompleteSubject) Clean() {
	cs.CompletionDate = core.CleanString(cs.CompletionDate)
	cs.Semester = core.CleanString(cs.Semester)
	cs.ProfessorSignature = core.CleanString(cs.ProfessorSignature)
}

type CompletionResult struct {
	NftTokenID              string  `json:"nft_token_id"`
	ProgressPercentage      float64 `json:"progress_percentage"`
	CreditsCompleted        uint64  `json:"credits_completed"`
	IsEligibleForGraduation bool    `json:"is_eligible_for_graduation"`
}

type SubjectProgress struct {
	SubjectID            string   `json:"subject_id"`
	Title                string   `json:"title"`
	Credits              uint64   `json:"credits"`
	Semester             uint64   `json:"semester"`
	Required             bool     `json:"required"`
	Status               string   `json:"status"`
	MissingPrerequisites []string `json:"missing_prerequisites,omitempty"`
}

type StudentProgress struct {
	StudentID    string            `json:"student_id"`
	CurriculumID string            `json:"curriculum_id"`
	Progress     Progress          `json:"progress"`
	Subjects     []SubjectProgress `json:"subjects"`
}

type Stats struct {
	StudentID          string  `json:"student_id"`
	Enrollments        int     `json:"enrollments"`
	CompletedSubjects  int     `json:"completed_subjects"`
	InProgressSubjects int     `json:"in_progress_subjects"`
	TotalCredits       uint64  `json:"total_credits"`
	TotalHours         uint64  `json:"total_hours"`
	GPA                float64 `json:"gpa"`
	Tokens             int     `json:"tokens"`
	GraduationStatus   string  `json:"graduation_status"`
}

func roundTo2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}
