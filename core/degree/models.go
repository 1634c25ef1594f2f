package degree

import (
	"time"

	"github.com/academictoken/registry/core"
)

// Degree request statuses
const (
	RequestPending          = "pending"
	RequestValidated        = "validated"
	RequestValidationFailed = "validation_failed"
	RequestApproved         = "approved"
	RequestCancelled        = "cancelled"
)

// Degree statuses
const (
	StatusIssued    = "issued"
	StatusRevoked   = "revoked"
	StatusSuspended = "suspended"
)

var RequestStatuses = []string{RequestPending, RequestValidated, RequestValidationFailed, RequestApproved, RequestCancelled}

type Validation struct {
	Passed              bool      `json:"passed"`
	Score               string    `json:"score"`
	Details             string    `json:"details"`
	RequirementsMet     []string  `json:"requirements_met"`
	MissingRequirements []string  `json:"missing_requirements"`
	ValidationHash      string    `json:"validation_hash"`
	ValidatedAt         time.Time `json:"validated_at"` // UTC
}

type DegreeRequest struct {
	Index                  string      `json:"index"`
	StudentID              string      `json:"student_id"`
	InstitutionID          string      `json:"institution_id"`
	CurriculumID           string      `json:"curriculum_id"`
	ExpectedGraduationDate string      `json:"expected_graduation_date"`
	Status                 string      `json:"status"`
	RequestDate            time.Time   `json:"request_date"` // UTC
	Validation             *Validation `json:"validation,omitempty"`
	Creator                string      `json:"creator"`
	UpdatedAt              time.Time   `json:"updated_at"` // UTC
}

// IsOpen reports whether the request blocks a new request for the same student and curriculum.
func (r DegreeRequest) IsOpen() bool {
	return r.Status != RequestCancelled && r.Status != RequestValidationFailed
}

type NewDegreeRequest struct {
	StudentID              string `json:"student_id" validate:"required"`
	InstitutionID          string `json:"institution_id" validate:"required"`
	CurriculumID           string `json:"curriculum_id" validate:"required"`
	ExpectedGraduationDate string `json:"expected_graduation_date" validate:"required,datetime=2006-01-02"`
}

func (nr *NewDegreeRequest) Clean() {
	nr.StudentID = core.CleanString(nr.StudentID)
	nr.InstitutionID = core.CleanString(nr.InstitutionID)
	nr.CurriculumID = core.CleanString(nr.CurriculumID)
	nr.ExpectedGraduationDate = core.CleanString(nr.ExpectedGraduationDate)
}

type Degree struct {
	Index           string    `json:"index"`
	DegreeRequestID string    `json:"degree_request_id"`
	StudentID       string    `json:"student_id"`
	InstitutionID   string    `json:"institution_id"`
	CurriculumID    string    `json:"curriculum_id"`
	CourseID        string    `json:"course_id"`
	DegreeType      string    `json:"degree_type"`
	IssueDate       string    `json:"issue_date"`
	Status          string    `json:"status"`
	NftTokenID      string    `json:"nft_token_id"`
	ContentHash     string    `json:"content_hash"`
	FinalGPA        float64   `json:"final_gpa"`
	TotalCredits    uint64    `json:"total_credits"`
	Signatures      []string  `json:"signatures"`
	StatusReason    string    `json:"status_reason,omitempty"`
	Creator         string    `json:"creator"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

// content is the part of a degree covered by its content hash.
type content struct {
	Index           string   `json:"index"`
	DegreeRequestID string   `json:"degree_request_id"`
	StudentID       string   `json:"student_id"`
	InstitutionID   string   `json:"institution_id"`
	CurriculumID    string   `json:"curriculum_id"`
	DegreeType      string   `json:"degree_type"`
	IssueDate       string   `json:"issue_date"`
	FinalGPA        float64  `json:"final_gpa"`
	TotalCredits    uint64   `json:"total_credits"`
	Signatures      []string `json:"signatures"`
}

func (d Degree) computeHash() (string, error) {
	return core.ContentHash(content{
		Index:           d.Index,
		DegreeRequestID: d.DegreeRequestID,
		StudentID:       d.StudentID,
		InstitutionID:   d.InstitutionID,
		CurriculumID:    d.CurriculumID,
		DegreeType:      d.DegreeType,
		IssueDate:       d.IssueDate,
		FinalGPA:        d.FinalGPA,
		TotalCredits:    d.TotalCredits,
		Signatures:      d.Signatures,
	})
}

type IssueDegree struct {
	FinalGPA     float64  `json:"final_gpa" validate:"gte=0,lte=10"`
	TotalCredits uint64   `json:"total_credits" validate:"required,gt=0"`
	Signatures   []string `json:"signatures" validate:"required,min=1,dive,required,max=500"`
	DegreeType   string   `json:"degree_type" validate:"max=100"`
}

func (id *IssueDegree) Clean() {
	id.Signatures = core.CleanStrings(id.Signatures)
	id.DegreeType = core.CleanString(id.DegreeType)
}

type StatusChange struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type VerifyResult struct {
	Index   string `json:"index"`
	IsValid bool   `json:"is_valid"`
	Reason  string `json:"reason,omitempty"`
}
