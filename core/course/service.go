package course

import (
	"context"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/institution"
	"github.com/academictoken/registry/core/ledger"
)

// Ledger event types
const (
	EventCreated = "course.created"
	EventUpdated = "course.updated"
)

var (
	// errors
	ErrNotFound   = core.NewNotFoundError("course not found")
	ErrCodeExists = errors.New("a course with this code already exists in the institution")
	ErrNoUpdates  = core.NewValidationError(errors.New("no valid updates provided"))
)

type (
	Repository interface {
		NextIndex(ctx context.Context) (string, error)
		CreateCourse(ctx context.Context, c Course) (Course, error)
		GetCourse(ctx context.Context, index string) (Course, error)
		// QueryCourses returns the courses of an institution, or every course when empty.
		QueryCourses(ctx context.Context, institution string) ([]Course, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)
	}

	InstitutionGetter interface {
		Get(ctx context.Context, index string) (institution.Institution, error)
	}

	Service struct {
		repo         Repository
		institutions InstitutionGetter
		ledger       ledger.Recorder
		validate     *validator.Validate
		mu           sync.Mutex
	}
)

func NewService(repo Repository, institutions InstitutionGetter, recorder ledger.Recorder, validate *validator.Validate) *Service {
	return &Service{repo: repo, institutions: institutions, ledger: recorder, validate: validate}
}

func (svc *Service) checkCode(ctx context.Context, inst, code, exclude string) error {
	list, err := svc.repo.QueryCourses(ctx, inst)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	for _, c := range list {
		if c.Index != exclude && strings.EqualFold(c.Code, code) {
			return core.NewValidationError(ErrCodeExists, core.FieldError{Field: "code", Error: ErrCodeExists.Error()})
		}
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, actor core.Actor, nc NewCourse) (Course, error) {
	if err := actor.Check(); err != nil {
		return Course{}, err
	}
	nc.Clean()
	if err := svc.validate.Struct(nc); err != nil {
		return Course{}, err
	}
	if _, err := svc.institutions.Get(ctx, nc.Institution); err != nil {
		return Course{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	if err := svc.checkCode(ctx, nc.Institution, nc.Code, ""); err != nil {
		return Course{}, err
	}
	index, err := svc.repo.NextIndex(ctx)
	if err != nil {
		return Course{}, err
	}
	now := core.Now()
	c, err := svc.repo.CreateCourse(ctx, Course{
		Index:        index,
		Institution:  nc.Institution,
		Name:         nc.Name,
		Code:         nc.Code,
		Description:  nc.Description,
		TotalCredits: nc.TotalCredits,
		DegreeLevel:  nc.DegreeLevel,
		Creator:      actor.Address,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return Course{}, errors.Wrap(err, "creating course")
	}
	if _, err = svc.ledger.Record(ctx, ledger.Event{Type: EventCreated, Creator: actor.Address, Ref: c.Index, Payload: c}); err != nil {
		return Course{}, errors.Wrap(err, "recording course creation")
	}
	return c, nil
}

func (svc *Service) Update(ctx context.Context, actor core.Actor, index string, uc UpdateCourse) (Course, error) {
	if err := actor.Check(); err != nil {
		return Course{}, err
	}
	uc.Clean()
	if err := svc.validate.Struct(uc); err != nil {
		return Course{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	c, err := svc.repo.GetCourse(ctx, index)
	if err != nil {
		return Course{}, err
	}
	if err = actor.RequireModify(c.Creator); err != nil {
		return Course{}, err
	}

	var changed bool
	set := func(dst *string, v string) {
		if v != "" && v != *dst {
			*dst = v
			changed = true
		}
	}
	set(&c.Name, uc.Name)
	set(&c.Code, uc.Code)
	set(&c.Description, uc.Description)
	set(&c.DegreeLevel, uc.DegreeLevel)
	if uc.TotalCredits > 0 && uc.TotalCredits != c.TotalCredits {
		c.TotalCredits = uc.TotalCredits
		changed = true
	}
	if !changed {
		return Course{}, ErrNoUpdates
	}
	if uc.Code != "" {
		if err = svc.checkCode(ctx, c.Institution, uc.Code, c.Index); err != nil {
			return Course{}, err
		}
	}

	c.UpdatedAt = core.Now()
	if c, err = svc.repo.UpdateCourse(ctx, c); err != nil {
		return Course{}, errors.Wrap(err, "updating course")
	}
	if _, err = svc.ledger.Record(ctx, ledger.Event{Type: EventUpdated, Creator: actor.Address, Ref: c.Index, Payload: c}); err != nil {
		return Course{}, errors.Wrap(err, "recording course update")
	}
	return c, nil
}

func (svc *Service) Get(ctx context.Context, index string) (Course, error) {
	return svc.repo.GetCourse(ctx, index)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, orderings []core.DBOrdering) ([]Course, error) {
	filter.Clean()
	all, err := svc.repo.QueryCourses(ctx, filter.Institution)
	if err != nil {
		return nil, err
	}
	list := make([]Course, 0, len(all))
	for _, c := range all {
		if filter.Match(c) {
			list = append(list, c)
		}
	}
	core.SortByOrderings(
		len(list),
		func(i, j int) { list[i], list[j] = list[j], list[i] },
		func(i int, name string) (string, bool) {
			switch name {
			case "name":
				return strings.ToLower(list[i].Name), true
			case "code":
				return list[i].Code, true
			case "created_at":
				return core.SortableTime(list[i].CreatedAt), true
			}
			return "", false
		},
		orderings,
	)
	return list, nil
}

func (svc *Service) ListByInstitution(ctx context.Context, inst string) ([]Course, error) {
	return svc.Query(ctx, QueryFilter{Institution: inst}, nil)
}

func (svc *Service) Count(ctx context.Context) (int, error) {
	all, err := svc.repo.QueryCourses(ctx, "")
	return len(all), err
}
