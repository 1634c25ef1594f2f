package subject

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/course"
	"github.com/academictoken/registry/core/equivalence/similarity"
	"github.com/academictoken/registry/core/ledger"
)

// Ledger event types
const (
	EventCreated             = "subject.created"
	EventContentUpdated      = "subject.content_updated"
	EventPrerequisiteAdded   = "subject.prerequisite_added"
	EventPrerequisiteRemoved = "subject.prerequisite_removed"
)

var (
	// errors
	ErrNotFound      = core.NewNotFoundError("subject not found")
	ErrGroupNotFound = core.NewNotFoundError("prerequisite group not found")
	ErrCodeExists    = errors.New("a subject with this code already exists in the institution")
	errSelfPrereq    = core.NewFieldError("subject_ids", "a subject cannot be its own prerequisite")
	errPrereqCycle   = core.NewFieldError("subject_ids", "prerequisites would create a cycle")
	errWrongCourse   = core.NewFieldError("course_id", "course does not belong to the institution")
)

type (
	Repository interface {
		NextIndex(ctx context.Context) (string, error)
		NextGroupID(ctx context.Context) (string, error)
		CreateSubject(ctx context.Context, s Subject) (Subject, error)
		GetSubject(ctx context.Context, index string) (Subject, error)
		// QuerySubjects returns the subjects of a course, or every subject when empty.
		QuerySubjects(ctx context.Context, courseID string) ([]Subject, error)
		UpdateSubject(ctx context.Context, s Subject) (Subject, error)
	}

	CourseGetter interface {
		Get(ctx context.Context, index string) (course.Course, error)
	}

	Service struct {
		repo     Repository
		courses  CourseGetter
		ledger   ledger.Recorder
		validate *validator.Validate
		mu       sync.Mutex
	}
)

func NewService(repo Repository, courses CourseGetter, recorder ledger.Recorder, validate *validator.Validate) *Service {
	return &Service{repo: repo, courses: courses, ledger: recorder, validate: validate}
}

func (svc *Service) record(ctx context.Context, typ string, actor core.Actor, s Subject) error {
	_, err := svc.ledger.Record(ctx, ledger.Event{Type: typ, Creator: actor.Address, Ref: s.Index, Payload: s})
	return errors.Wrapf(err, "recording %s", typ)
}

func (svc *Service) Create(ctx context.Context, actor core.Actor, ns NewSubject) (Subject, error) {
	if err := actor.Check(); err != nil {
		return Subject{}, err
	}
	ns.Clean()
	if err := svc.validate.Struct(ns); err != nil {
		return Subject{}, err
	}
	c, err := svc.courses.Get(ctx, ns.CourseID)
	if err != nil {
		return Subject{}, err
	}
	if c.Institution != ns.Institution {
		return Subject{}, errWrongCourse
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	all, err := svc.repo.QuerySubjects(ctx, "")
	if err != nil {
		return Subject{}, errors.Wrap(err, "querying subjects")
	}
	for _, s := range all {
		if s.Institution == ns.Institution && strings.EqualFold(s.Code, ns.Code) {
			return Subject{}, core.NewValidationError(ErrCodeExists, core.FieldError{Field: "code", Error: ErrCodeExists.Error()})
		}
	}

	index, err := svc.repo.NextIndex(ctx)
	if err != nil {
		return Subject{}, err
	}
	now := core.Now()
	s := Subject{
		Index:              index,
		Institution:        ns.Institution,
		CourseID:           ns.CourseID,
		Title:              ns.Title,
		Code:               ns.Code,
		WorkloadHours:      ns.WorkloadHours,
		Credits:            ns.Credits,
		Description:        ns.Description,
		SubjectType:        ns.SubjectType,
		KnowledgeArea:      ns.KnowledgeArea,
		Content:            ns.Content,
		PrerequisiteGroups: []PrerequisiteGroup{},
		Creator:            actor.Address,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if s.ContentHash, err = contentHash(s.Content); err != nil {
		return Subject{}, err
	}
	for _, npg := range ns.PrerequisiteGroups {
		g, err := svc.newGroup(ctx, s.Index, npg)
		if err != nil {
			return Subject{}, err
		}
		s.PrerequisiteGroups = append(s.PrerequisiteGroups, g)
	}

	if s, err = svc.repo.CreateSubject(ctx, s); err != nil {
		return Subject{}, errors.Wrap(err, "creating subject")
	}
	if err = svc.record(ctx, EventCreated, actor, s); err != nil {
		return Subject{}, err
	}
	return s, nil
}

func contentHash(c *Content) (string, error) {
	if c == nil {
		return "", nil
	}
	hash, err := core.ContentHash(c)
	return hash, errors.Wrap(err, "hashing subject content")
}

// newGroup checks that every referenced subject exists and is not the subject itself.
func (svc *Service) newGroup(ctx context.Context, subjectID string, npg NewPrerequisiteGroup) (PrerequisiteGroup, error) {
	for _, id := range npg.SubjectIDs {
		if id == subjectID {
			return PrerequisiteGroup{}, errSelfPrereq
		}
		if _, err := svc.repo.GetSubject(ctx, id); err != nil {
			if core.IsNotFound(err) {
				return PrerequisiteGroup{}, core.NewFieldError("subject_ids", fmt.Sprintf("prerequisite subject %s not found", id))
			}
			return PrerequisiteGroup{}, err
		}
	}
	id, err := svc.repo.NextGroupID(ctx)
	if err != nil {
		return PrerequisiteGroup{}, err
	}
	return PrerequisiteGroup{
		ID:                       id,
		SubjectID:                subjectID,
		GroupType:                npg.GroupType,
		Logic:                    npg.Logic,
		MinimumCredits:           npg.MinimumCredits,
		MinimumCompletedSubjects: npg.MinimumCompletedSubjects,
		SubjectIDs:               npg.SubjectIDs,
	}, nil
}

func (svc *Service) AddPrerequisiteGroup(ctx context.Context, actor core.Actor, index string, npg NewPrerequisiteGroup) (Subject, error) {
	npg.Clean()
	if err := svc.validate.Struct(npg); err != nil {
		return Subject{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	s, err := svc.repo.GetSubject(ctx, index)
	if err != nil {
		return Subject{}, err
	}
	if err = actor.RequireModify(s.Creator); err != nil {
		return Subject{}, err
	}
	g, err := svc.newGroup(ctx, s.Index, npg)
	if err != nil {
		return Subject{}, err
	}
	s.PrerequisiteGroups = append(s.PrerequisiteGroups, g)

	// prerequisites of the other subjects are read from the store, those of `s` from memory
	cycle := hasCycle(s.Index, func(id string) []string {
		if id == s.Index {
			return s.PrerequisiteIDs()
		}
		other, err := svc.repo.GetSubject(ctx, id)
		if err != nil {
			return nil
		}
		return other.PrerequisiteIDs()
	})
	if cycle {
		return Subject{}, errPrereqCycle
	}

	s.UpdatedAt = core.Now()
	if s, err = svc.repo.UpdateSubject(ctx, s); err != nil {
		return Subject{}, errors.Wrap(err, "updating subject")
	}
	if err = svc.record(ctx, EventPrerequisiteAdded, actor, s); err != nil {
		return Subject{}, err
	}
	return s, nil
}

func (svc *Service) RemovePrerequisiteGroup(ctx context.Context, actor core.Actor, index, groupID string) (Subject, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	s, err := svc.repo.GetSubject(ctx, index)
	if err != nil {
		return Subject{}, err
	}
	if err = actor.RequireModify(s.Creator); err != nil {
		return Subject{}, err
	}
	groups := s.PrerequisiteGroups[:0:0]
	for _, g := range s.PrerequisiteGroups {
		if g.ID != groupID {
			groups = append(groups, g)
		}
	}
	if len(groups) == len(s.PrerequisiteGroups) {
		return Subject{}, errors.WithStack(ErrGroupNotFound)
	}
	s.PrerequisiteGroups = groups
	s.UpdatedAt = core.Now()
	if s, err = svc.repo.UpdateSubject(ctx, s); err != nil {
		return Subject{}, errors.Wrap(err, "updating subject")
	}
	if err = svc.record(ctx, EventPrerequisiteRemoved, actor, s); err != nil {
		return Subject{}, err
	}
	return s, nil
}

// UpdateContent replaces the syllabus content and its hash.
func (svc *Service) UpdateContent(ctx context.Context, actor core.Actor, index string, content Content) (Subject, error) {
	content.Clean()

	svc.mu.Lock()
	defer svc.mu.Unlock()

	s, err := svc.repo.GetSubject(ctx, index)
	if err != nil {
		return Subject{}, err
	}
	if err = actor.RequireModify(s.Creator); err != nil {
		return Subject{}, err
	}
	hash, err := contentHash(&content)
	if err != nil {
		return Subject{}, err
	}
	if hash == s.ContentHash {
		return Subject{}, core.NewValidationError(errors.New("content is unchanged"))
	}
	s.Content = &content
	s.ContentHash = hash
	s.UpdatedAt = core.Now()
	if s, err = svc.repo.UpdateSubject(ctx, s); err != nil {
		return Subject{}, errors.Wrap(err, "updating subject")
	}
	if err = svc.record(ctx, EventContentUpdated, actor, s); err != nil {
		return Subject{}, err
	}
	return s, nil
}

func (svc *Service) Get(ctx context.Context, index string) (Subject, error) {
	return svc.repo.GetSubject(ctx, index)
}

func (svc *Service) GetWithPrerequisites(ctx context.Context, index string) (SubjectWithPrerequisites, error) {
	s, err := svc.repo.GetSubject(ctx, index)
	if err != nil {
		return SubjectWithPrerequisites{}, err
	}
	res := SubjectWithPrerequisites{Subject: s, Prerequisites: []Subject{}}
	for _, id := range s.PrerequisiteIDs() {
		prereq, err := svc.repo.GetSubject(ctx, id)
		if err != nil {
			if core.IsNotFound(err) {
				continue
			}
			return SubjectWithPrerequisites{}, err
		}
		res.Prerequisites = append(res.Prerequisites, prereq)
	}
	return res, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, orderings []core.DBOrdering) ([]Subject, error) {
	filter.Clean()
	all, err := svc.repo.QuerySubjects(ctx, filter.CourseID)
	if err != nil {
		return nil, err
	}
	list := make([]Subject, 0, len(all))
	for _, s := range all {
		if filter.Match(s) {
			list = append(list, s)
		}
	}
	core.SortByOrderings(
		len(list),
		func(i, j int) { list[i], list[j] = list[j], list[i] },
		func(i int, name string) (string, bool) {
			switch name {
			case "title":
				return strings.ToLower(list[i].Title), true
			case "code":
				return list[i].Code, true
			case "credits":
				return fmt.Sprintf("%010d", list[i].Credits), true
			case "created_at":
				return core.SortableTime(list[i].CreatedAt), true
			}
			return "", false
		},
		orderings,
	)
	return list, nil
}

func (svc *Service) ListByCourse(ctx context.Context, courseID string) ([]Subject, error) {
	return svc.Query(ctx, QueryFilter{CourseID: courseID}, nil)
}

func (svc *Service) Count(ctx context.Context) (int, error) {
	all, err := svc.repo.QuerySubjects(ctx, "")
	return len(all), err
}

// CheckPrerequisites evaluates the prerequisites of a subject against completed subjects.
func (svc *Service) CheckPrerequisites(ctx context.Context, index string, completed []CompletedSubject) (CheckResult, error) {
	s, err := svc.repo.GetSubject(ctx, index)
	if err != nil {
		return CheckResult{}, err
	}
	return Evaluate(s.PrerequisiteGroups, completed), nil
}

// CheckEquivalence gives a quick similarity between two subjects.
func (svc *Service) CheckEquivalence(ctx context.Context, sourceID, targetID string) (similarity.Result, error) {
	source, err := svc.repo.GetSubject(ctx, sourceID)
	if err != nil {
		return similarity.Result{}, err
	}
	target, err := svc.repo.GetSubject(ctx, targetID)
	if err != nil {
		return similarity.Result{}, err
	}
	return similarity.Compare(source.Similarity(), target.Similarity()), nil
}
