package academicnft

import (
	"time"

	"github.com/academictoken/registry/core"
)

type SubjectTokenInstance struct {
	TokenInstanceID    string    `json:"token_instance_id"`
	TokenDefID         string    `json:"token_def_id"`
	Student            string    `json:"student"` // address
	StudentID          string    `json:"student_id"`
	CompletionDate     string    `json:"completion_date"`
	Grade              string    `json:"grade"`
	IssuerInstitution  string    `json:"issuer_institution"`
	Semester           string    `json:"semester"`
	ProfessorSignature string    `json:"professor_signature"`
	IsValid            bool      `json:"is_valid"`
	Creator            string    `json:"creator"`
	MintedAt           time.Time `json:"minted_at"` // UTC
}

type NewToken struct {
	TokenDefID         string `json:"token_def_id" validate:"required"`
	StudentID          string `json:"student_id" validate:"required"`
	CompletionDate     string `json:"completion_date" validate:"required,isodate"`
	Grade              string `json:"grade" validate:"required,numeric"`
	IssuerInstitution  string `json:"issuer_institution" validate:"required"`
	Semester           string `json:"semester" validate:"required,max=20"`
	ProfessorSignature string `json:"professor_signature" validate:"required,max=500"`
}

func (nt *NewToken) Clean() {
	nt.TokenDefID = core.CleanString(nt.TokenDefID)
	nt.StudentID = core.CleanString(nt.StudentID)
	nt.CompletionDate = core.CleanString(nt.CompletionDate)
	nt.Grade = core.CleanString(nt.Grade)
	nt.IssuerInstitution = core.CleanString(nt.IssuerInstitution)
	nt.Semester = core.CleanString(nt.Semester)
	nt.ProfessorSignature = core.CleanString(nt.ProfessorSignature)
}

type VerifyResult struct {
	TokenInstanceID string `json:"token_instance_id"`
	IsValid         bool   `json:"is_valid"`
	Reason          string `json:"reason,omitempty"`
}
