package degree

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/course"
	"github.com/academictoken/registry/core/curriculum"
	"github.com/academictoken/registry/core/institution"
	"github.com/academictoken/registry/core/ledger"
	"github.com/academictoken/registry/core/student"
)

// Ledger event types
const (
	EventRequested = "degree.requested"
	EventValidated = "degree.validated"
	EventIssued    = "degree.issued"
	EventCancelled = "degree.request_cancelled"
	EventRevoked   = "degree.revoked"
	EventSuspended = "degree.suspended"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("degree not found")
	ErrRequestNotFound = core.NewNotFoundError("degree request not found")
	ErrRequestExists   = core.NewFieldError("curriculum_id", "the student already has an open degree request for this curriculum")
	ErrAlreadyIssued   = core.NewFieldError("curriculum_id", "a degree was already issued to the student for this curriculum")

	errWrongInstitution = core.NewFieldError("curriculum_id", "curriculum course does not belong to the institution")
	errNotValidated     = core.NewFieldError("status", "the degree request must be validated first")
	errNotCancellable   = core.NewFieldError("status", "the degree request can no longer be cancelled")
	errNotValidatable   = core.NewFieldError("status", "the degree request can no longer be validated")
	errNoLongerEligible = core.NewFieldError("status", "graduation requirements are no longer met")
	errNotIssued        = core.NewFieldError("status", "only issued degrees can be suspended")
	errAlreadyRevoked   = core.NewFieldError("status", "the degree is already revoked")
)

type (
	Repository interface {
		NextRequestIndex(ctx context.Context) (string, error)
		CreateRequest(ctx context.Context, r DegreeRequest) (DegreeRequest, error)
		GetRequest(ctx context.Context, index string) (DegreeRequest, error)
		// QueryRequests returns the requests of a student, or every request when empty.
		QueryRequests(ctx context.Context, studentID string) ([]DegreeRequest, error)
		UpdateRequest(ctx context.Context, r DegreeRequest) (DegreeRequest, error)

		NextDegreeIndex(ctx context.Context) (string, error)
		CreateDegree(ctx context.Context, d Degree) (Degree, error)
		GetDegree(ctx context.Context, index string) (Degree, error)
		// QueryDegrees returns the degrees of a student, or every degree when empty.
		QueryDegrees(ctx context.Context, studentID string) ([]Degree, error)
		UpdateDegree(ctx context.Context, d Degree) (Degree, error)
	}

	StudentService interface {
		Get(ctx context.Context, index string) (student.Student, error)
		GetAcademicTree(ctx context.Context, studentID, courseID string) (student.AcademicTree, error)
		MarkGraduated(ctx context.Context, actor core.Actor, treeIndex string) (student.AcademicTree, error)
	}

	InstitutionGetter interface {
		Get(ctx context.Context, index string) (institution.Institution, error)
	}

	CourseGetter interface {
		Get(ctx context.Context, index string) (course.Course, error)
	}

	CurriculumGetter interface {
		Get(ctx context.Context, index string) (curriculum.Tree, error)
	}

	Service struct {
		repo         Repository
		students     StudentService
		institutions InstitutionGetter
		courses      CourseGetter
		curricula    CurriculumGetter
		mailSvc      core.EmailService
		ledger       ledger.Recorder
		validate     *validator.Validate
		mu           sync.Mutex
	}
)

func NewService(
	repo Repository,
	students StudentService,
	institutions InstitutionGetter,
	courses CourseGetter,
	curricula CurriculumGetter,
	mailSvc core.EmailService,
	recorder ledger.Recorder,
	validate *validator.Validate,
) *Service {
	return &Service{
		repo:         repo,
		students:     students,
		institutions: institutions,
		courses:      courses,
		curricula:    curricula,
		mailSvc:      mailSvc,
		ledger:       recorder,
		validate:     validate,
	}
}

func (svc *Service) record(ctx context.Context, typ string, actor core.Actor, ref string, payload interface{}) error {
	_, err := svc.ledger.Record(ctx, ledger.Event{Type: typ, Creator: actor.Address, Ref: ref, Payload: payload})
	return errors.Wrapf(err, "recording %s", typ)
}

func (svc *Service) RequestDegree(ctx context.Context, actor core.Actor, nr NewDegreeRequest) (DegreeRequest, error) {
	if err := actor.Check(); err != nil {
		return DegreeRequest{}, err
	}
	nr.Clean()
	if err := svc.validate.Struct(nr); err != nil {
		return DegreeRequest{}, err
	}
	if _, err := svc.students.Get(ctx, nr.StudentID); err != nil {
		return DegreeRequest{}, err
	}
	inst, err := svc.institutions.Get(ctx, nr.InstitutionID)
	if err != nil {
		return DegreeRequest{}, err
	}
	cur, err := svc.curricula.Get(ctx, nr.CurriculumID)
	if err != nil {
		return DegreeRequest{}, err
	}
	crs, err := svc.courses.Get(ctx, cur.CourseID)
	if err != nil {
		return DegreeRequest{}, err
	}
	if crs.Institution != inst.Index {
		return DegreeRequest{}, errWrongInstitution
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	existing, err := svc.repo.QueryRequests(ctx, nr.StudentID)
	if err != nil {
		return DegreeRequest{}, errors.Wrap(err, "querying degree requests")
	}
	for _, r := range existing {
		if r.CurriculumID == cur.Index && r.IsOpen() {
			return DegreeRequest{}, ErrRequestExists
		}
	}

	index, err := svc.repo.NextRequestIndex(ctx)
	if err != nil {
		return DegreeRequest{}, err
	}
	now := core.Now()
	r := DegreeRequest{
		Index:                  index,
		StudentID:              nr.StudentID,
		InstitutionID:          inst.Index,
		CurriculumID:           cur.Index,
		ExpectedGraduationDate: nr.ExpectedGraduationDate,
		Status:                 RequestPending,
		RequestDate:            now,
		Creator:                actor.Address,
		UpdatedAt:              now,
	}
	if r, err = svc.repo.CreateRequest(ctx, r); err != nil {
		return DegreeRequest{}, errors.Wrap(err, "creating degree request")
	}
	if err = svc.record(ctx, EventRequested, actor, r.Index, map[string]string{
		"student_id": r.StudentID, "curriculum_id": r.CurriculumID,
	}); err != nil {
		return DegreeRequest{}, err
	}
	return r, nil
}

// ValidateRequirements checks the student's academic tree against the curriculum graduation requirements.
func (svc *Service) ValidateRequirements(ctx context.Context, actor core.Actor, index string) (Validation, error) {
	if err := actor.Check(); err != nil {
		return Validation{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	r, err := svc.repo.GetRequest(ctx, core.CleanString(index))
	if err != nil {
		return Validation{}, err
	}
	if r.Status != RequestPending && r.Status != RequestValidated && r.Status != RequestValidationFailed {
		return Validation{}, errNotValidatable
	}

	v, err := svc.check(ctx, r)
	if err != nil {
		return Validation{}, err
	}
	if err = svc.storeValidation(ctx, actor, r, v); err != nil {
		return Validation{}, err
	}
	return v, nil
}

func (svc *Service) storeValidation(ctx context.Context, actor core.Actor, r DegreeRequest, v Validation) error {
	r.Validation = &v
	r.Status = RequestValidationFailed
	if v.Passed {
		r.Status = RequestValidated
	}
	r.UpdatedAt = core.Now()
	if _, err := svc.repo.UpdateRequest(ctx, r); err != nil {
		return errors.Wrap(err, "updating degree request")
	}
	return svc.record(ctx, EventValidated, actor, r.Index, map[string]interface{}{
		"passed": v.Passed, "score": v.Score, "validation_hash": v.ValidationHash,
	})
}

func (svc *Service) check(ctx context.Context, r DegreeRequest) (Validation, error) {
	cur, err := svc.curricula.Get(ctx, r.CurriculumID)
	if err != nil {
		return Validation{}, err
	}
	v := Validation{RequirementsMet: []string{}, MissingRequirements: []string{}, ValidatedAt: core.Now()}
	met := func(ok bool, format string, args ...interface{}) {
		msg := fmt.Sprintf(format, args...)
		if ok {
			v.RequirementsMet = append(v.RequirementsMet, msg)
		} else {
			v.MissingRequirements = append(v.MissingRequirements, msg)
		}
	}

	tree, err := svc.students.GetAcademicTree(ctx, r.StudentID, cur.CourseID)
	switch {
	case core.IsNotFound(err):
		met(false, "academic record for course %s", cur.CourseID)
	case err != nil:
		return Validation{}, err
	default:
		creditsRequired := uint64(0)
		if req := cur.GraduationRequirements; req != nil {
			creditsRequired = req.TotalCreditsRequired
			met(tree.CoefficientGPA >= req.MinGPA, "GPA %.2f of minimum %.2f", tree.CoefficientGPA, req.MinGPA)
			if req.RequiredElectiveCredits > 0 {
				var electives uint64
				for _, c := range tree.Completions {
					if !cur.IsRequired(c.SubjectID) {
						electives += c.Credits
					}
				}
				met(electives >= req.RequiredElectiveCredits, "elective credits %d of %d", electives, req.RequiredElectiveCredits)
			}
		} else {
			crs, err := svc.courses.Get(ctx, cur.CourseID)
			if err != nil {
				return Validation{}, err
			}
			creditsRequired = crs.TotalCredits
		}
		met(tree.TotalCredits >= creditsRequired, "credits %d of %d", tree.TotalCredits, creditsRequired)
		for _, id := range cur.RequiredSubjects {
			met(tree.HasCompleted(id), "required subject %s", id)
		}
	}

	total := len(v.RequirementsMet) + len(v.MissingRequirements)
	v.Passed = len(v.MissingRequirements) == 0
	switch {
	case v.Passed:
		v.Score = "100"
	case len(v.RequirementsMet) == 0:
		v.Score = "0"
	default:
		v.Score = fmt.Sprintf("%d", len(v.RequirementsMet)*100/total)
	}
	if v.Passed {
		v.Details = "All graduation requirements met"
	} else {
		v.Details = "Missing: " + strings.Join(v.MissingRequirements, "; ")
	}
	v.ValidationHash, err = core.ContentHash(v)
	return v, errors.Wrap(err, "hashing validation")
}

// Issue turns a validated request into an issued degree. Institution operators and the authority issue degrees.
// The requirements are checked again, and a request that no longer meets them goes back to validation failed.
func (svc *Service) Issue(ctx context.Context, actor core.Actor, index string, id IssueDegree) (Degree, error) {
	if err := actor.RequireOperator(); err != nil {
		return Degree{}, err
	}
	id.Clean()
	if err := svc.validate.Struct(id); err != nil {
		return Degree{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	r, err := svc.repo.GetRequest(ctx, core.CleanString(index))
	if err != nil {
		return Degree{}, err
	}
	if r.Status != RequestValidated {
		return Degree{}, errNotValidated
	}
	// the tree or the curriculum may have changed since the validation
	v, err := svc.check(ctx, r)
	if err != nil {
		return Degree{}, err
	}
	if !v.Passed {
		if err = svc.storeValidation(ctx, actor, r, v); err != nil {
			return Degree{}, err
		}
		return Degree{}, errNoLongerEligible
	}
	degrees, err := svc.repo.QueryDegrees(ctx, r.StudentID)
	if err != nil {
		return Degree{}, errors.Wrap(err, "querying degrees")
	}
	for _, d := range degrees {
		if d.CurriculumID == r.CurriculumID && d.Status != StatusRevoked {
			return Degree{}, ErrAlreadyIssued
		}
	}
	cur, err := svc.curricula.Get(ctx, r.CurriculumID)
	if err != nil {
		return Degree{}, err
	}
	crs, err := svc.courses.Get(ctx, cur.CourseID)
	if err != nil {
		return Degree{}, err
	}

	degreeIndex, err := svc.repo.NextDegreeIndex(ctx)
	if err != nil {
		return Degree{}, err
	}
	now := core.Now()
	d := Degree{
		Index:           degreeIndex,
		DegreeRequestID: r.Index,
		StudentID:       r.StudentID,
		InstitutionID:   r.InstitutionID,
		CurriculumID:    r.CurriculumID,
		CourseID:        crs.Index,
		DegreeType:      id.DegreeType,
		IssueDate:       now.Format(core.DateFormat),
		Status:          StatusIssued,
		FinalGPA:        id.FinalGPA,
		TotalCredits:    id.TotalCredits,
		Signatures:      id.Signatures,
		Creator:         actor.Address,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if d.DegreeType == "" {
		d.DegreeType = crs.DegreeLevel
	}
	if d.ContentHash, err = d.computeHash(); err != nil {
		return Degree{}, errors.Wrap(err, "hashing degree")
	}
	d.NftTokenID = "degree-nft-" + d.ContentHash[:16]
	if d, err = svc.repo.CreateDegree(ctx, d); err != nil {
		return Degree{}, errors.Wrap(err, "creating degree")
	}

	r.Status = RequestApproved
	r.UpdatedAt = now
	if _, err = svc.repo.UpdateRequest(ctx, r); err != nil {
		return Degree{}, errors.Wrap(err, "updating degree request")
	}
	if err = svc.record(ctx, EventIssued, actor, d.Index, map[string]string{
		"degree_request_id": r.Index, "nft_token_id": d.NftTokenID, "content_hash": d.ContentHash,
	}); err != nil {
		return Degree{}, err
	}

	if tree, err := svc.students.GetAcademicTree(ctx, r.StudentID, crs.Index); err == nil {
		if _, err = svc.students.MarkGraduated(ctx, actor, tree.Index); err != nil {
			return Degree{}, errors.Wrap(err, "marking student graduated")
		}
	} else if !core.IsNotFound(err) {
		return Degree{}, err
	}
	svc.notify(ctx, d)
	return d, nil
}

func (svc *Service) notify(ctx context.Context, d Degree) {
	if svc.mailSvc == nil {
		return
	}
	st, err := svc.students.Get(ctx, d.StudentID)
	if err != nil || st.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: st.Name, Address: st.Email}},
		Subject:      "Your degree was issued",
		TemplateName: core.TmplDegreeIssued,
		TemplateData: map[string]interface{}{
			"StudentName": st.Name,
			"DegreeIndex": d.Index,
			"IssueDate":   d.IssueDate,
			"NftTokenId":  d.NftTokenID,
		},
	})
}

// CancelRequest cancels a request that was not approved yet.
func (svc *Service) CancelRequest(ctx context.Context, actor core.Actor, index string) (DegreeRequest, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	r, err := svc.repo.GetRequest(ctx, core.CleanString(index))
	if err != nil {
		return DegreeRequest{}, err
	}
	if err = actor.RequireModify(r.Creator); err != nil {
		return DegreeRequest{}, err
	}
	if r.Status == RequestApproved || r.Status == RequestCancelled {
		return DegreeRequest{}, errNotCancellable
	}
	r.Status = RequestCancelled
	r.UpdatedAt = core.Now()
	if r, err = svc.repo.UpdateRequest(ctx, r); err != nil {
		return DegreeRequest{}, errors.Wrap(err, "updating degree request")
	}
	if err = svc.record(ctx, EventCancelled, actor, r.Index, nil); err != nil {
		return DegreeRequest{}, err
	}
	return r, nil
}

func (svc *Service) setStatus(ctx context.Context, actor core.Actor, index, status, event string, sc StatusChange) (Degree, error) {
	if err := actor.RequireAuthority(); err != nil {
		return Degree{}, err
	}
	sc.Reason = core.CleanString(sc.Reason)
	if err := svc.validate.Struct(sc); err != nil {
		return Degree{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	d, err := svc.repo.GetDegree(ctx, core.CleanString(index))
	if err != nil {
		return Degree{}, err
	}
	switch {
	case d.Status == StatusRevoked:
		return Degree{}, errAlreadyRevoked
	case status == StatusSuspended && d.Status != StatusIssued:
		return Degree{}, errNotIssued
	}
	d.Status = status
	d.StatusReason = sc.Reason
	d.UpdatedAt = core.Now()
	if d, err = svc.repo.UpdateDegree(ctx, d); err != nil {
		return Degree{}, errors.Wrap(err, "updating degree")
	}
	if err = svc.record(ctx, event, actor, d.Index, sc); err != nil {
		return Degree{}, err
	}
	return d, nil
}

// Revoke permanently invalidates a degree. Authority only.
func (svc *Service) Revoke(ctx context.Context, actor core.Actor, index string, sc StatusChange) (Degree, error) {
	return svc.setStatus(ctx, actor, index, StatusRevoked, EventRevoked, sc)
}

// Suspend invalidates an issued degree until further notice. Authority only.
func (svc *Service) Suspend(ctx context.Context, actor core.Actor, index string, sc StatusChange) (Degree, error) {
	return svc.setStatus(ctx, actor, index, StatusSuspended, EventSuspended, sc)
}

// Verify tells whether a degree exists, is issued and still matches its content hash.
func (svc *Service) Verify(ctx context.Context, index string) (VerifyResult, error) {
	res := VerifyResult{Index: core.CleanString(index)}
	d, err := svc.repo.GetDegree(ctx, res.Index)
	if err != nil {
		if core.IsNotFound(err) {
			res.Reason = "degree not found"
			return res, nil
		}
		return VerifyResult{}, err
	}
	if d.Status != StatusIssued {
		res.Reason = "degree " + d.Status
		return res, nil
	}
	hash, err := d.computeHash()
	if err != nil {
		return VerifyResult{}, errors.Wrap(err, "hashing degree")
	}
	if hash != d.ContentHash {
		res.Reason = "content hash mismatch"
		return res, nil
	}
	res.IsValid = true
	return res, nil
}

func (svc *Service) Get(ctx context.Context, index string) (Degree, error) {
	return svc.repo.GetDegree(ctx, core.CleanString(index))
}

func (svc *Service) GetRequest(ctx context.Context, index string) (DegreeRequest, error) {
	return svc.repo.GetRequest(ctx, core.CleanString(index))
}

func (svc *Service) ListByStudent(ctx context.Context, studentID string) ([]Degree, error) {
	return svc.repo.QueryDegrees(ctx, core.CleanString(studentID))
}

func (svc *Service) ListByInstitution(ctx context.Context, institutionID string) ([]Degree, error) {
	all, err := svc.repo.QueryDegrees(ctx, "")
	if err != nil {
		return nil, err
	}
	institutionID = core.CleanString(institutionID)
	list := make([]Degree, 0)
	for _, d := range all {
		if d.InstitutionID == institutionID {
			list = append(list, d)
		}
	}
	return list, nil
}

// ListRequests lists requests with a status, or every request when status is empty.
func (svc *Service) ListRequests(ctx context.Context, status string) ([]DegreeRequest, error) {
	all, err := svc.repo.QueryRequests(ctx, "")
	if err != nil {
		return nil, err
	}
	status = core.CleanString(status, true /* lower */)
	list := make([]DegreeRequest, 0, len(all))
	for _, r := range all {
		if status == "" || r.Status == status {
			list = append(list, r)
		}
	}
	return list, nil
}
