package equivalence

import (
	"time"

	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/equivalence/similarity"
)

// Statuses
const (
	StatusPending     = "pending"
	StatusAnalyzing   = "analyzing"
	StatusApproved    = "approved"
	StatusUnderReview = "under_review"
	StatusRejected    = "rejected"
)

var Statuses = []string{StatusPending, StatusAnalyzing, StatusApproved, StatusUnderReview, StatusRejected}

type SubjectEquivalence struct {
	Index             string             `json:"index"`
	SourceSubjectID   string             `json:"source_subject_id"`
	TargetInstitution string             `json:"target_institution"`
	TargetSubjectID   string             `json:"target_subject_id"`
	StudentID         string             `json:"student_id"`
	Reason            string             `json:"reason"`
	Status            string             `json:"status"`
	EquivalenceType   string             `json:"equivalence_type"`
	SimilarityScore   int                `json:"similarity_score"`
	Confidence        int                `json:"confidence"`
	AnalysisMethod    string             `json:"analysis_method"`
	AnalysisDetails   *similarity.Result `json:"analysis_details,omitempty"`
	SourceContentHash string             `json:"source_content_hash"`
	TargetContentHash string             `json:"target_content_hash"`
	AnalysisHash      string             `json:"analysis_hash"`
	AnalysisCount     uint64             `json:"analysis_count"`
	ReviewedBy        string             `json:"reviewed_by,omitempty"`
	ReviewNotes       string             `json:"review_notes,omitempty"`
	Creator           string             `json:"creator"`
	RequestedAt       time.Time          `json:"requested_at"`          // UTC
	AnalyzedAt        *time.Time         `json:"analyzed_at,omitempty"` // UTC
	UpdatedAt         time.Time          `json:"updated_at"`            // UTC
}

// IsOpen reports whether the request still blocks a new request for the same pair.
func (e SubjectEquivalence) IsOpen() bool {
	return e.Status != StatusRejected
}

// analysis is the part of a request covered by the analysis hash.
type analysis struct {
	Index             string             `json:"index"`
	SourceSubjectID   string             `json:"source_subject_id"`
	TargetSubjectID   string             `json:"target_subject_id"`
	SourceContentHash string             `json:"source_content_hash"`
	TargetContentHash string             `json:"target_content_hash"`
	SimilarityScore   int                `json:"similarity_score"`
	Confidence        int                `json:"confidence"`
	AnalysisMethod    string             `json:"analysis_method"`
	AnalysisDetails   *similarity.Result `json:"analysis_details"`
	AnalysisCount     uint64             `json:"analysis_count"`
}

func (e SubjectEquivalence) computeHash() (string, error) {
	return core.ContentHash(analysis{
		Index:             e.Index,
		SourceSubjectID:   e.SourceSubjectID,
		TargetSubjectID:   e.TargetSubjectID,
		SourceContentHash: e.SourceContentHash,
		TargetContentHash: e.TargetContentHash,
		SimilarityScore:   e.SimilarityScore,
		Confidence:        e.Confidence,
		AnalysisMethod:    e.AnalysisMethod,
		AnalysisDetails:   e.AnalysisDetails,
		AnalysisCount:     e.AnalysisCount,
	})
}

type NewEquivalence struct {
	SourceSubjectID   string `json:"source_subject_id" validate:"required"`
	TargetInstitution string `json:"target_institution" validate:"required"`
	TargetSubjectID   string `json:"target_subject_id" validate:"required,nefield=SourceSubjectID"`
	StudentID         string `json:"student_id"`
	Reason            string `json:"reason" validate:"max=1000"`
}

func (ne *NewEquivalence) Clean() {
	ne.SourceSubjectID = core.CleanString(ne.SourceSubjectID)
	ne.TargetInstitution = core.CleanString(ne.TargetInstitution)
	ne.TargetSubjectID = core.CleanString(ne.TargetSubjectID)
	ne.StudentID = core.CleanString(ne.StudentID)
	ne.Reason = core.CleanString(ne.Reason)
}

type Analyze struct {
	Method string `json:"method" validate:"omitempty,analysismethod"`
	Force  bool   `json:"force"`
}

func (a *Analyze) Clean() {
	a.Method = core.CleanString(a.Method, true /* lower */)
	if a.Method == "" {
		a.Method = similarity.MethodAutomatic
	}
}

type NewBatch struct {
	Requests []NewEquivalence `json:"requests" validate:"required,min=1,max=50,dive"`
	Analyze  bool             `json:"analyze"`
	Method   string           `json:"method" validate:"omitempty,analysismethod"`
}

type BatchResult struct {
	SourceSubjectID string `json:"source_subject_id"`
	TargetSubjectID string `json:"target_subject_id"`
	EquivalenceID   string `json:"equivalence_id,omitempty"`
	Status          string `json:"status"`
	Error           string `json:"error,omitempty"`
}

type BatchResponse struct {
	Results    []BatchResult `json:"results"`
	Successful int           `json:"successful_requests"`
	Failed     int           `json:"failed_requests"`
}

type Review struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
	Notes  string `json:"notes" validate:"max=1000"`
}

func (r *Review) Clean() {
	r.Status = core.CleanString(r.Status, true /* lower */)
	r.Notes = core.CleanString(r.Notes)
}

type Stats struct {
	Total        int            `json:"total"`
	ByStatus     map[string]int `json:"by_status"`
	ByType       map[string]int `json:"by_type"`
	AverageScore float64        `json:"average_score"`
}

type IntegrityResult struct {
	Index          string `json:"index"`
	Valid          bool   `json:"valid"`
	StoredHash     string `json:"stored_hash"`
	CalculatedHash string `json:"calculated_hash"`
}
