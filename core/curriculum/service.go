package curriculum

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/course"
	"github.com/academictoken/registry/core/ledger"
	"github.com/academictoken/registry/core/subject"
)

// Ledger event types
const (
	EventCreated                = "curriculum.created"
	EventSemesterAdded          = "curriculum.semester_added"
	EventElectiveGroupAdded     = "curriculum.elective_group_added"
	EventRequirementsConfigured = "curriculum.requirements_set"
)

var (
	// errors
	ErrNotFound      = core.NewNotFoundError("curriculum not found")
	errVersionExists = core.NewFieldError("version", "this version already exists for the course")
	errSemesterTaken = core.NewFieldError("number", "semester already exists in the curriculum")
	errGroupExists   = core.NewFieldError("name", "an elective group with this name already exists in the curriculum")
)

type (
	Repository interface {
		NextIndex(ctx context.Context) (string, error)
		CreateTree(ctx context.Context, t Tree) (Tree, error)
		GetTree(ctx context.Context, index string) (Tree, error)
		// QueryTrees returns the trees of a course, or every tree when empty.
		QueryTrees(ctx context.Context, courseID string) ([]Tree, error)
		UpdateTree(ctx context.Context, t Tree) (Tree, error)
	}

	CourseGetter interface {
		Get(ctx context.Context, index string) (course.Course, error)
	}

	SubjectGetter interface {
		Get(ctx context.Context, index string) (subject.Subject, error)
	}

	Service struct {
		repo     Repository
		courses  CourseGetter
		subjects SubjectGetter
		ledger   ledger.Recorder
		validate *validator.Validate
		mu       sync.Mutex
	}
)

func NewService(
	repo Repository,
	courses CourseGetter,
	subjects SubjectGetter,
	recorder ledger.Recorder,
	validate *validator.Validate,
) *Service {
	return &Service{repo: repo, courses: courses, subjects: subjects, ledger: recorder, validate: validate}
}

func (svc *Service) checkSubjects(ctx context.Context, field string, ids []string) error {
	for _, id := range ids {
		if _, err := svc.subjects.Get(ctx, id); err != nil {
			if core.IsNotFound(err) {
				return core.NewFieldError(field, fmt.Sprintf("subject %s not found", id))
			}
			return err
		}
	}
	return nil
}

func (svc *Service) save(ctx context.Context, typ string, actor core.Actor, t Tree) (Tree, error) {
	t.UpdatedAt = core.Now()
	t, err := svc.repo.UpdateTree(ctx, t)
	if err != nil {
		return Tree{}, errors.Wrap(err, "updating curriculum")
	}
	if _, err = svc.ledger.Record(ctx, ledger.Event{Type: typ, Creator: actor.Address, Ref: t.Index, Payload: t}); err != nil {
		return Tree{}, errors.Wrapf(err, "recording %s", typ)
	}
	return t, nil
}

func (svc *Service) Create(ctx context.Context, actor core.Actor, nt NewTree) (Tree, error) {
	if err := actor.Check(); err != nil {
		return Tree{}, err
	}
	nt.Clean()
	if err := svc.validate.Struct(nt); err != nil {
		return Tree{}, err
	}
	if _, err := svc.courses.Get(ctx, nt.CourseID); err != nil {
		return Tree{}, err
	}
	if err := svc.checkSubjects(ctx, "required_subjects", nt.RequiredSubjects); err != nil {
		return Tree{}, err
	}
	if err := svc.checkSubjects(ctx, "elective_subjects", nt.ElectiveSubjects); err != nil {
		return Tree{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	existing, err := svc.repo.QueryTrees(ctx, nt.CourseID)
	if err != nil {
		return Tree{}, errors.Wrap(err, "querying curricula")
	}
	for _, t := range existing {
		if t.Version == nt.Version {
			return Tree{}, errVersionExists
		}
	}

	index, err := svc.repo.NextIndex(ctx)
	if err != nil {
		return Tree{}, err
	}
	now := core.Now()
	t := Tree{
		Index:              index,
		CourseID:           nt.CourseID,
		Version:            nt.Version,
		ElectiveMin:        nt.ElectiveMin,
		TotalWorkloadHours: nt.TotalWorkloadHours,
		RequiredSubjects:   nonNil(nt.RequiredSubjects),
		ElectiveSubjects:   nonNil(nt.ElectiveSubjects),
		SemesterStructure:  []Semester{},
		ElectiveGroups:     []ElectiveGroup{},
		Creator:            actor.Address,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if t, err = svc.repo.CreateTree(ctx, t); err != nil {
		return Tree{}, errors.Wrap(err, "creating curriculum")
	}
	if _, err = svc.ledger.Record(ctx, ledger.Event{Type: EventCreated, Creator: actor.Address, Ref: t.Index, Payload: t}); err != nil {
		return Tree{}, errors.Wrap(err, "recording curriculum creation")
	}
	return t, nil
}

func (svc *Service) AddSemester(ctx context.Context, actor core.Actor, index string, ns NewSemester) (Tree, error) {
	ns.SubjectIDs = core.CleanStrings(ns.SubjectIDs)
	if err := svc.validate.Struct(ns); err != nil {
		return Tree{}, err
	}
	if err := svc.checkSubjects(ctx, "subject_ids", ns.SubjectIDs); err != nil {
		return Tree{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	t, err := svc.repo.GetTree(ctx, index)
	if err != nil {
		return Tree{}, err
	}
	if err = actor.RequireModify(t.Creator); err != nil {
		return Tree{}, err
	}
	for _, sem := range t.SemesterStructure {
		if sem.Number == ns.Number {
			return Tree{}, errSemesterTaken
		}
	}
	t.SemesterStructure = append(t.SemesterStructure, Semester{Number: ns.Number, SubjectIDs: nonNil(ns.SubjectIDs)})
	return svc.save(ctx, EventSemesterAdded, actor, t)
}

func (svc *Service) AddElectiveGroup(ctx context.Context, actor core.Actor, index string, neg NewElectiveGroup) (Tree, error) {
	neg.Clean()
	if err := svc.validate.Struct(neg); err != nil {
		return Tree{}, err
	}
	if err := svc.checkSubjects(ctx, "subject_ids", neg.SubjectIDs); err != nil {
		return Tree{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	t, err := svc.repo.GetTree(ctx, index)
	if err != nil {
		return Tree{}, err
	}
	if err = actor.RequireModify(t.Creator); err != nil {
		return Tree{}, err
	}
	for _, g := range t.ElectiveGroups {
		if g.Name == neg.Name {
			return Tree{}, errGroupExists
		}
	}
	t.ElectiveGroups = append(t.ElectiveGroups, ElectiveGroup{
		GroupID:             electiveGroupID(t.Index, neg.Name),
		Name:                neg.Name,
		Description:         neg.Description,
		SubjectIDs:          nonNil(neg.SubjectIDs),
		MinSubjectsRequired: neg.MinSubjectsRequired,
		CreditsRequired:     neg.CreditsRequired,
		KnowledgeArea:       neg.KnowledgeArea,
	})
	return svc.save(ctx, EventElectiveGroupAdded, actor, t)
}

func (svc *Service) SetGraduationRequirements(ctx context.Context, actor core.Actor, index string, req GraduationRequirements) (Tree, error) {
	req.RequiredActivities = nonNil(core.CleanStrings(req.RequiredActivities))
	if err := svc.validate.Struct(req); err != nil {
		return Tree{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	t, err := svc.repo.GetTree(ctx, index)
	if err != nil {
		return Tree{}, err
	}
	if err = actor.RequireModify(t.Creator); err != nil {
		return Tree{}, err
	}
	t.GraduationRequirements = &req
	return svc.save(ctx, EventRequirementsConfigured, actor, t)
}

func (svc *Service) Get(ctx context.Context, index string) (Tree, error) {
	return svc.repo.GetTree(ctx, index)
}

func (svc *Service) Query(ctx context.Context, courseID string) ([]Tree, error) {
	return svc.repo.QueryTrees(ctx, core.CleanString(courseID))
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
