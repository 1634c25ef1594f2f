package schedule

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/curriculum"
	"github.com/academictoken/registry/core/ledger"
	"github.com/academictoken/registry/core/student"
	"github.com/academictoken/registry/core/subject"
)

// Ledger event types
const (
	EventRecommended     = "schedule.recommendation_created"
	EventPlanCreated     = "schedule.study_plan_created"
	EventSemesterPlanned = "schedule.semester_planned"
	EventPlanStatus      = "schedule.study_plan_status_updated"
)

const (
	defaultMaxSubjects  = 6
	heavyLoadCredits    = 24
	maxPlannedSemesters = 16
	maxPlansPerStudent  = 5
)

var (
	// errors
	ErrNotFound              = core.NewNotFoundError("recommendation not found")
	ErrPlanNotFound          = core.NewNotFoundError("study plan not found")
	errNoCurriculum          = core.NewFieldError("student_id", "the student's academic record has no curriculum")
	errTooManyPlans          = core.NewFieldError("student_id", fmt.Sprintf("a student may have at most %d open study plans", maxPlansPerStudent))
	errWrongCurriculum       = core.NewFieldError("curriculum_id", "the curriculum is not the one of the student's course")
	errSemesterPlanned       = core.NewFieldError("number", "this semester is already planned")
	errTooManySemesters      = core.NewFieldError("number", fmt.Sprintf("at most %d semesters can be planned", maxPlannedSemesters))
	errPlanClosed            = core.NewFieldError("status", "the study plan is completed or abandoned")
	errInvalidPlanStatus     = core.NewFieldError("status", "invalid study plan status")
	errInvalidPlanTransition = core.NewFieldError("status", "the study plan cannot move to this status")
)

type (
	Repository interface {
		NextRecommendationIndex(ctx context.Context) (string, error)
		CreateRecommendation(ctx context.Context, r SubjectRecommendation) (SubjectRecommendation, error)
		GetRecommendation(ctx context.Context, index string) (SubjectRecommendation, error)
		// QueryRecommendations returns the recommendations of a student, or every one when empty.
		QueryRecommendations(ctx context.Context, studentID string) ([]SubjectRecommendation, error)

		NextPlanIndex(ctx context.Context) (string, error)
		CreatePlan(ctx context.Context, p StudyPlan) (StudyPlan, error)
		GetPlan(ctx context.Context, index string) (StudyPlan, error)
		// QueryPlans returns the study plans of a student, or every plan when empty.
		QueryPlans(ctx context.Context, studentID string) ([]StudyPlan, error)
		UpdatePlan(ctx context.Context, p StudyPlan) (StudyPlan, error)
	}

	StudentGetter interface {
		Get(ctx context.Context, index string) (student.Student, error)
		GetAcademicTree(ctx context.Context, studentID, courseID string) (student.AcademicTree, error)
	}

	CurriculumGetter interface {
		Get(ctx context.Context, index string) (curriculum.Tree, error)
	}

	SubjectService interface {
		Get(ctx context.Context, index string) (subject.Subject, error)
		CheckPrerequisites(ctx context.Context, index string, completed []subject.CompletedSubject) (subject.CheckResult, error)
	}

	Service struct {
		repo      Repository
		students  StudentGetter
		curricula CurriculumGetter
		subjects  SubjectService
		ledger    ledger.Recorder
		conf      *core.Config
		validate  *validator.Validate
		mu        sync.Mutex
	}
)

func NewService(
	repo Repository,
	students StudentGetter,
	curricula CurriculumGetter,
	subjects SubjectService,
	recorder ledger.Recorder,
	conf *core.Config,
	validate *validator.Validate,
) *Service {
	return &Service{
		repo:      repo,
		students:  students,
		curricula: curricula,
		subjects:  subjects,
		ledger:    recorder,
		conf:      conf,
		validate:  validate,
	}
}

func (svc *Service) record(ctx context.Context, typ string, actor core.Actor, ref string, payload interface{}) error {
	_, err := svc.ledger.Record(ctx, ledger.Event{Type: typ, Creator: actor.Address, Ref: ref, Payload: payload})
	return errors.Wrapf(err, "recording %s", typ)
}

func completed(t student.AcademicTree) []subject.CompletedSubject {
	credits := make(map[string]uint64, len(t.Completions))
	for _, c := range t.Completions {
		credits[c.SubjectID] = c.Credits
	}
	done := make([]subject.CompletedSubject, 0, len(t.CompletedTokens))
	for _, id := range t.CompletedTokens {
		done = append(done, subject.CompletedSubject{SubjectID: id, Credits: credits[id]})
	}
	return done
}

var priorityRank = map[string]int{PriorityHigh: 0, PriorityMedium: 1, PriorityLow: 2}

// Recommend picks the subjects a student should take in a semester. Subjects the student can take are
// ranked by priority (requested, then required, then electives) and curriculum semester, and taken until
// the subject count or the semester credit limit is reached; the rest become alternatives. The confidence
// is the share of recommended subjects the student asked for.
func (svc *Service) Recommend(ctx context.Context, actor core.Actor, nr NewRecommendation) (SubjectRecommendation, error) {
	if err := actor.Check(); err != nil {
		return SubjectRecommendation{}, err
	}
	nr.Clean()
	if err := svc.validate.Struct(nr); err != nil {
		return SubjectRecommendation{}, err
	}
	tree, err := svc.students.GetAcademicTree(ctx, nr.StudentID, nr.CourseID)
	if err != nil {
		return SubjectRecommendation{}, err
	}
	if tree.CurriculumID == "" {
		return SubjectRecommendation{}, errNoCurriculum
	}
	cur, err := svc.curricula.Get(ctx, tree.CurriculumID)
	if err != nil {
		return SubjectRecommendation{}, err
	}

	done := completed(tree)
	var candidates, later []RecommendedSubject
	for _, id := range cur.Subjects() {
		if tree.HasCompleted(id) || tree.IsInProgress(id) {
			continue
		}
		check, err := svc.subjects.CheckPrerequisites(ctx, id, done)
		if err != nil {
			if core.IsNotFound(err) {
				continue
			}
			return SubjectRecommendation{}, err
		}
		if !check.CanEnroll {
			continue
		}
		subj, err := svc.subjects.Get(ctx, id)
		if err != nil {
			return SubjectRecommendation{}, err
		}
		rs := RecommendedSubject{
			SubjectID:     subj.Index,
			Title:         subj.Title,
			Credits:       subj.Credits,
			WorkloadHours: subj.WorkloadHours,
			Semester:      cur.SemesterOf(id),
			Required:      cur.IsRequired(id),
		}
		switch {
		case core.ContainsString(nr.PrioritySubjects, id):
			rs.Priority, rs.Reason = PriorityHigh, "requested by the student"
		case rs.Required:
			rs.Priority, rs.Reason = PriorityMedium, "required subject"
		default:
			rs.Priority, rs.Reason = PriorityLow, "elective subject"
		}
		if rs.Semester > nr.TargetSemester && rs.Priority != PriorityHigh {
			rs.Reason = fmt.Sprintf("offered in semester %d", rs.Semester)
			later = append(later, rs)
			continue
		}
		candidates = append(candidates, rs)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if priorityRank[a.Priority] != priorityRank[b.Priority] {
			return priorityRank[a.Priority] < priorityRank[b.Priority]
		}
		return semesterKey(a.Semester) < semesterKey(b.Semester)
	})

	maxCredits := uint64(svc.conf.Registry.MaxCreditsPerSemester)
	rec := SubjectRecommendation{
		StudentID:            tree.StudentID,
		CurriculumID:         cur.Index,
		TargetSemester:       nr.TargetSemester,
		Recommended:          []RecommendedSubject{},
		Alternatives:         []RecommendedSubject{},
		CompletionPercentage: tree.AcademicProgress.OverallPercentage,
		Notes:                []string{},
		Creator:              actor.Address,
		CreatedAt:            core.Now(),
	}
	var high int
	for _, rs := range candidates {
		if len(rec.Recommended) >= nr.MaxSubjects || (maxCredits > 0 && rec.TotalCredits+rs.Credits > maxCredits) {
			rec.Alternatives = append(rec.Alternatives, rs)
			continue
		}
		rec.Recommended = append(rec.Recommended, rs)
		rec.TotalCredits += rs.Credits
		rec.EstimatedWorkload += rs.WorkloadHours
		if rs.Priority == PriorityHigh {
			high++
		}
	}
	rec.Alternatives = append(rec.Alternatives, later...)

	for _, id := range nr.PrioritySubjects {
		if !containsSubject(rec.Recommended, id) {
			rec.Notes = append(rec.Notes, fmt.Sprintf("priority subject %s cannot be taken this semester", id))
		}
	}
	switch {
	case len(rec.Recommended) == 0:
		rec.Notes = append(rec.Notes, "no subject is available for this semester")
	case rec.TotalCredits > heavyLoadCredits:
		rec.Notes = append(rec.Notes, fmt.Sprintf("heavy load: %d credits", rec.TotalCredits))
	}
	if len(rec.Recommended) > 0 {
		rec.ConfidenceScore = float64(high*10000/len(rec.Recommended)) / 100
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	if rec.Index, err = svc.repo.NextRecommendationIndex(ctx); err != nil {
		return SubjectRecommendation{}, err
	}
	if rec, err = svc.repo.CreateRecommendation(ctx, rec); err != nil {
		return SubjectRecommendation{}, errors.Wrap(err, "creating recommendation")
	}
	if err = svc.record(ctx, EventRecommended, actor, rec.Index, map[string]interface{}{
		"student_id": rec.StudentID, "subjects": len(rec.Recommended), "total_credits": rec.TotalCredits,
	}); err != nil {
		return SubjectRecommendation{}, err
	}
	return rec, nil
}

// semesterKey sorts subjects without a curriculum semester last.
func semesterKey(sem uint64) uint64 {
	if sem == 0 {
		return ^uint64(0)
	}
	return sem
}

func containsSubject(list []RecommendedSubject, id string) bool {
	for _, rs := range list {
		if rs.SubjectID == id {
			return true
		}
	}
	return false
}

func (svc *Service) GetRecommendation(ctx context.Context, index string) (SubjectRecommendation, error) {
	return svc.repo.GetRecommendation(ctx, core.CleanString(index))
}

func (svc *Service) ListRecommendations(ctx context.Context, studentID string) ([]SubjectRecommendation, error) {
	return svc.repo.QueryRecommendations(ctx, core.CleanString(studentID))
}
