package equivalence

import (
	"context"
	"fmt"
	"net/mail"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/equivalence/similarity"
	"github.com/academictoken/registry/core/ledger"
	"github.com/academictoken/registry/core/student"
	"github.com/academictoken/registry/core/subject"
)

// Ledger event types
const (
	EventRequested = "equivalence.requested"
	EventAnalyzed  = "equivalence.analyzed"
	EventReviewed  = "equivalence.reviewed"
	EventBatch     = "equivalence.batch_requested"
)

const (
	reviewThreshold = 50
	batchWorkers    = 4
	resultTTL       = 24 * time.Hour
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("equivalence not found")
	ErrDuplicate        = core.NewFieldError("target_subject_id", "an equivalence request for these subjects is already open")
	errWrongTarget      = core.NewFieldError("target_subject_id", "target subject does not belong to the target institution")
	errAlreadyAnalyzed  = core.NewFieldError("force", "the equivalence was already analyzed; use force to analyze it again")
	errAnalysisRunning  = core.NewFieldError("status", "an analysis is already running")
	errNotReviewable    = core.NewFieldError("status", "only analyzed equivalences can be reviewed")
	errInvalidStatusArg = core.NewFieldError("status", "unknown equivalence status")
)

type (
	Repository interface {
		NextIndex(ctx context.Context) (string, error)
		CreateEquivalence(ctx context.Context, e SubjectEquivalence) (SubjectEquivalence, error)
		GetEquivalence(ctx context.Context, index string) (SubjectEquivalence, error)
		// QueryEquivalences returns the requests about a source subject, or every request when empty.
		QueryEquivalences(ctx context.Context, sourceSubjectID string) ([]SubjectEquivalence, error)
		UpdateEquivalence(ctx context.Context, e SubjectEquivalence) (SubjectEquivalence, error)
	}

	SubjectGetter interface {
		Get(ctx context.Context, index string) (subject.Subject, error)
	}

	StudentGetter interface {
		Get(ctx context.Context, index string) (student.Student, error)
	}

	Service struct {
		repo     Repository
		subjects SubjectGetter
		students StudentGetter
		cache    core.Cache
		mailSvc  core.EmailService
		ledger   ledger.Recorder
		conf     *core.Config
		validate *validator.Validate
		mu       sync.Mutex
	}
)

func NewService(
	repo Repository,
	subjects SubjectGetter,
	students StudentGetter,
	cache core.Cache,
	mailSvc core.EmailService,
	recorder ledger.Recorder,
	conf *core.Config,
	validate *validator.Validate,
) *Service {
	if cache == nil {
		cache = core.NopCache{}
	}
	return &Service{
		repo:     repo,
		subjects: subjects,
		students: students,
		cache:    cache,
		mailSvc:  mailSvc,
		ledger:   recorder,
		conf:     conf,
		validate: validate,
	}
}

func (svc *Service) record(ctx context.Context, typ string, actor core.Actor, ref string, payload interface{}) error {
	_, err := svc.ledger.Record(ctx, ledger.Event{Type: typ, Creator: actor.Address, Ref: ref, Payload: payload})
	return errors.Wrapf(err, "recording %s", typ)
}

// Request opens an equivalence request between a subject and a subject of another institution.
func (svc *Service) Request(ctx context.Context, actor core.Actor, ne NewEquivalence) (SubjectEquivalence, error) {
	if err := actor.Check(); err != nil {
		return SubjectEquivalence{}, err
	}
	ne.Clean()
	if err := svc.validate.Struct(ne); err != nil {
		return SubjectEquivalence{}, err
	}
	source, err := svc.subjects.Get(ctx, ne.SourceSubjectID)
	if err != nil {
		return SubjectEquivalence{}, err
	}
	target, err := svc.subjects.Get(ctx, ne.TargetSubjectID)
	if err != nil {
		return SubjectEquivalence{}, err
	}
	if target.Institution != ne.TargetInstitution {
		return SubjectEquivalence{}, errWrongTarget
	}
	if ne.StudentID != "" {
		if _, err = svc.students.Get(ctx, ne.StudentID); err != nil {
			return SubjectEquivalence{}, err
		}
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	existing, err := svc.repo.QueryEquivalences(ctx, source.Index)
	if err != nil {
		return SubjectEquivalence{}, errors.Wrap(err, "querying equivalences")
	}
	for _, e := range existing {
		if e.TargetSubjectID == target.Index && e.IsOpen() {
			return SubjectEquivalence{}, ErrDuplicate
		}
	}

	index, err := svc.repo.NextIndex(ctx)
	if err != nil {
		return SubjectEquivalence{}, err
	}
	now := core.Now()
	e := SubjectEquivalence{
		Index:             index,
		SourceSubjectID:   source.Index,
		TargetInstitution: ne.TargetInstitution,
		TargetSubjectID:   target.Index,
		StudentID:         ne.StudentID,
		Reason:            ne.Reason,
		Status:            StatusPending,
		SourceContentHash: source.ContentHash,
		TargetContentHash: target.ContentHash,
		Creator:           actor.Address,
		RequestedAt:       now,
		UpdatedAt:         now,
	}
	if e, err = svc.repo.CreateEquivalence(ctx, e); err != nil {
		return SubjectEquivalence{}, errors.Wrap(err, "creating equivalence")
	}
	if err = svc.record(ctx, EventRequested, actor, e.Index, map[string]string{
		"source_subject_id": e.SourceSubjectID, "target_subject_id": e.TargetSubjectID,
	}); err != nil {
		return SubjectEquivalence{}, err
	}
	return e, nil
}

// Analyze scores a request and decides it: approved above the auto approval threshold, under review
// above 50, rejected below. Analyzing again needs `force`.
func (svc *Service) Analyze(ctx context.Context, actor core.Actor, index string, a Analyze) (SubjectEquivalence, error) {
	if err := actor.Check(); err != nil {
		return SubjectEquivalence{}, err
	}
	a.Clean()
	if err := svc.validate.Struct(a); err != nil {
		return SubjectEquivalence{}, err
	}
	if a.Method == similarity.MethodManual || a.Method == similarity.MethodInstitutional {
		if err := actor.RequireOperator(); err != nil {
			return SubjectEquivalence{}, err
		}
	}

	orig, err := svc.start(ctx, core.CleanString(index), a.Force)
	if err != nil {
		return SubjectEquivalence{}, err
	}
	res, err := svc.compare(ctx, orig.SourceSubjectID, orig.TargetSubjectID)
	if err != nil {
		return SubjectEquivalence{}, svc.restore(ctx, orig, err)
	}
	return svc.finish(ctx, actor, orig, a.Method, res)
}

// restore puts back a request whose analysis failed and returns cause.
func (svc *Service) restore(ctx context.Context, orig SubjectEquivalence, cause error) error {
	if _, err := svc.repo.UpdateEquivalence(ctx, orig); err != nil {
		return errors.Wrapf(err, "restoring equivalence after: %v", cause)
	}
	return cause
}

// start moves a request to "analyzing" and returns it as it was before.
func (svc *Service) start(ctx context.Context, index string, force bool) (SubjectEquivalence, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	e, err := svc.repo.GetEquivalence(ctx, index)
	if err != nil {
		return SubjectEquivalence{}, err
	}
	switch {
	case e.Status == StatusAnalyzing:
		return SubjectEquivalence{}, errAnalysisRunning
	case e.AnalysisCount > 0 && !force:
		return SubjectEquivalence{}, errAlreadyAnalyzed
	}
	running := e
	running.Status = StatusAnalyzing
	running.UpdatedAt = core.Now()
	if _, err = svc.repo.UpdateEquivalence(ctx, running); err != nil {
		return SubjectEquivalence{}, errors.Wrap(err, "updating equivalence")
	}
	return e, nil
}

// finish stores the analysis result; orig is restored when it cannot be stored.
func (svc *Service) finish(
	ctx context.Context, actor core.Actor, orig SubjectEquivalence, method string, res similarity.Result,
) (_ SubjectEquivalence, err error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	var saved bool
	defer func() {
		if err != nil && !saved {
			err = svc.restore(ctx, orig, err)
		}
	}()

	e, err := svc.repo.GetEquivalence(ctx, orig.Index)
	if err != nil {
		return SubjectEquivalence{}, err
	}
	source, err := svc.subjects.Get(ctx, e.SourceSubjectID)
	if err != nil {
		return SubjectEquivalence{}, err
	}
	target, err := svc.subjects.Get(ctx, e.TargetSubjectID)
	if err != nil {
		return SubjectEquivalence{}, err
	}

	now := core.Now()
	e.SimilarityScore = res.Score
	e.Confidence = similarity.Confidence(res.Score, res.UsedContent, method)
	e.EquivalenceType = res.Type
	e.AnalysisMethod = method
	e.AnalysisDetails = &res
	e.SourceContentHash = source.ContentHash
	e.TargetContentHash = target.ContentHash
	e.Status = svc.decide(res.Score)
	e.AnalysisCount++
	e.AnalyzedAt = &now
	e.ReviewedBy, e.ReviewNotes = "", ""
	e.UpdatedAt = now
	if e.AnalysisHash, err = e.computeHash(); err != nil {
		return SubjectEquivalence{}, errors.Wrap(err, "hashing analysis")
	}
	if e, err = svc.repo.UpdateEquivalence(ctx, e); err != nil {
		return SubjectEquivalence{}, errors.Wrap(err, "updating equivalence")
	}
	saved = true
	if err = svc.record(ctx, EventAnalyzed, actor, e.Index, map[string]interface{}{
		"status": e.Status, "score": e.SimilarityScore, "type": e.EquivalenceType, "analysis_hash": e.AnalysisHash,
	}); err != nil {
		return SubjectEquivalence{}, err
	}
	svc.notify(ctx, e)
	return e, nil
}

func (svc *Service) decide(score int) string {
	switch {
	case score >= svc.conf.Registry.AutoApprovalThreshold:
		return StatusApproved
	case score >= reviewThreshold:
		return StatusUnderReview
	}
	return StatusRejected
}

// compare scores two subjects. Results are cached by subject content, so edited subjects are scored again.
func (svc *Service) compare(ctx context.Context, sourceID, targetID string) (similarity.Result, error) {
	source, err := svc.subjects.Get(ctx, sourceID)
	if err != nil {
		return similarity.Result{}, err
	}
	target, err := svc.subjects.Get(ctx, targetID)
	if err != nil {
		return similarity.Result{}, err
	}

	key := fmt.Sprintf("similarity:%s:%s:%s:%s", source.Index, source.ContentHash, target.Index, target.ContentHash)
	var res similarity.Result
	err = svc.cache.Get(ctx, key, &res)
	switch {
	case err == nil:
		return res, nil
	case errors.Cause(err) != core.ErrCacheMiss:
		return similarity.Result{}, errors.Wrap(err, "reading similarity cache")
	}

	res = similarity.Compare(source.Similarity(), target.Similarity())
	if err = svc.cache.Set(ctx, key, res, resultTTL); err != nil {
		return similarity.Result{}, errors.Wrap(err, "writing similarity cache")
	}
	return res, nil
}

// notify emails the decision to the student the request was made for, when an email is on file.
func (svc *Service) notify(ctx context.Context, e SubjectEquivalence) {
	if e.StudentID == "" || svc.mailSvc == nil {
		return
	}
	st, err := svc.students.Get(ctx, e.StudentID)
	if err != nil || st.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: st.Name, Address: st.Email}},
		Subject:      "Equivalence request " + e.Status,
		TemplateName: core.TmplEquivalenceDecided,
		TemplateData: map[string]interface{}{
			"StudentName": st.Name,
			"Index":       e.Index,
			"Status":      e.Status,
			"Score":       e.SimilarityScore,
			"Type":        e.EquivalenceType,
		},
	})
}

// Reanalyze forces a new analysis of a request.
func (svc *Service) Reanalyze(ctx context.Context, actor core.Actor, index, method string) (SubjectEquivalence, error) {
	return svc.Analyze(ctx, actor, index, Analyze{Method: method, Force: true})
}

// Batch opens several requests concurrently, and analyzes the opened ones when asked to.
// A failed item does not stop the others.
func (svc *Service) Batch(ctx context.Context, actor core.Actor, nb NewBatch) (BatchResponse, error) {
	if err := actor.Check(); err != nil {
		return BatchResponse{}, err
	}
	if err := svc.validate.Struct(nb); err != nil {
		return BatchResponse{}, err
	}

	results := make([]BatchResult, len(nb.Requests))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchWorkers)
	for i, ne := range nb.Requests {
		i, ne := i, ne
		g.Go(func() error {
			res := BatchResult{SourceSubjectID: ne.SourceSubjectID, TargetSubjectID: ne.TargetSubjectID}
			e, err := svc.Request(gctx, actor, ne)
			if err == nil && nb.Analyze {
				e, err = svc.Analyze(gctx, actor, e.Index, Analyze{Method: nb.Method})
			}
			if err != nil {
				res.Status, res.Error = "failed", err.Error()
			} else {
				res.EquivalenceID, res.Status = e.Index, e.Status
			}
			results[i] = res
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return BatchResponse{}, err
	}

	resp := BatchResponse{Results: results}
	for _, res := range results {
		if res.Error != "" {
			resp.Failed++
		} else {
			resp.Successful++
		}
	}
	if err := svc.record(ctx, EventBatch, actor, "", map[string]int{
		"total": len(results), "successful": resp.Successful, "failed": resp.Failed,
	}); err != nil {
		return BatchResponse{}, err
	}
	return resp, nil
}

// Review settles an analyzed request. Only the authority reviews.
func (svc *Service) Review(ctx context.Context, actor core.Actor, index string, r Review) (SubjectEquivalence, error) {
	if err := actor.RequireAuthority(); err != nil {
		return SubjectEquivalence{}, err
	}
	r.Clean()
	if err := svc.validate.Struct(r); err != nil {
		return SubjectEquivalence{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	e, err := svc.repo.GetEquivalence(ctx, core.CleanString(index))
	if err != nil {
		return SubjectEquivalence{}, err
	}
	if e.AnalysisCount == 0 || e.Status == StatusAnalyzing {
		return SubjectEquivalence{}, errNotReviewable
	}
	e.Status = r.Status
	e.ReviewedBy = actor.Address
	e.ReviewNotes = r.Notes
	e.UpdatedAt = core.Now()
	if e, err = svc.repo.UpdateEquivalence(ctx, e); err != nil {
		return SubjectEquivalence{}, errors.Wrap(err, "updating equivalence")
	}
	if err = svc.record(ctx, EventReviewed, actor, e.Index, r); err != nil {
		return SubjectEquivalence{}, err
	}
	svc.notify(ctx, e)
	return e, nil
}

func (svc *Service) Get(ctx context.Context, index string) (SubjectEquivalence, error) {
	return svc.repo.GetEquivalence(ctx, core.CleanString(index))
}

func (svc *Service) filter(ctx context.Context, keep func(SubjectEquivalence) bool) ([]SubjectEquivalence, error) {
	all, err := svc.repo.QueryEquivalences(ctx, "")
	if err != nil {
		return nil, err
	}
	list := make([]SubjectEquivalence, 0)
	for _, e := range all {
		if keep(e) {
			list = append(list, e)
		}
	}
	return list, nil
}

func (svc *Service) ListByStudent(ctx context.Context, studentID string) ([]SubjectEquivalence, error) {
	studentID = core.CleanString(studentID)
	return svc.filter(ctx, func(e SubjectEquivalence) bool { return e.StudentID == studentID })
}

// ListByStatus lists requests with a status, or every request when status is empty.
func (svc *Service) ListByStatus(ctx context.Context, status string) ([]SubjectEquivalence, error) {
	status = core.CleanString(status, true /* lower */)
	if status != "" && !core.ContainsString(Statuses, status) {
		return nil, errInvalidStatusArg
	}
	return svc.filter(ctx, func(e SubjectEquivalence) bool { return status == "" || e.Status == status })
}

// ListBySubject lists the requests where the subject is the source or the target.
func (svc *Service) ListBySubject(ctx context.Context, subjectID string) ([]SubjectEquivalence, error) {
	subjectID = core.CleanString(subjectID)
	return svc.filter(ctx, func(e SubjectEquivalence) bool {
		return e.SourceSubjectID == subjectID || e.TargetSubjectID == subjectID
	})
}

func (svc *Service) Stats(ctx context.Context) (Stats, error) {
	all, err := svc.repo.QueryEquivalences(ctx, "")
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Total: len(all), ByStatus: map[string]int{}, ByType: map[string]int{}}
	var scored, sum int
	for _, e := range all {
		stats.ByStatus[e.Status]++
		if e.AnalysisCount > 0 {
			stats.ByType[e.EquivalenceType]++
			sum += e.SimilarityScore
			scored++
		}
	}
	if scored > 0 {
		stats.AverageScore = float64(sum*100/scored) / 100
	}
	return stats, nil
}

// VerifyIntegrity recomputes the analysis hash of a request.
func (svc *Service) VerifyIntegrity(ctx context.Context, index string) (IntegrityResult, error) {
	e, err := svc.repo.GetEquivalence(ctx, core.CleanString(index))
	if err != nil {
		return IntegrityResult{}, err
	}
	res := IntegrityResult{Index: e.Index, StoredHash: e.AnalysisHash}
	if e.AnalysisCount == 0 {
		res.Valid = true // nothing analyzed yet
		return res, nil
	}
	if res.CalculatedHash, err = e.computeHash(); err != nil {
		return IntegrityResult{}, errors.Wrap(err, "hashing analysis")
	}
	res.Valid = res.CalculatedHash == res.StoredHash
	return res, nil
}
