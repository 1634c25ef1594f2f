package tokendef

import (
	"context"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/ledger"
	"github.com/academictoken/registry/core/subject"
)

// Ledger event types
const (
	EventCreated = "tokendef.created"
	EventUpdated = "tokendef.updated"
)

var (
	// errors
	ErrNotFound      = core.NewNotFoundError("token definition not found")
	ErrSubjectHasDef = core.NewFieldError("subject_id", "a token definition already exists for this subject")
	ErrNoUpdates     = core.NewValidationError(errors.New("no valid updates provided"))
)

type (
	Repository interface {
		NextIndex(ctx context.Context) (string, error)
		CreateDefinition(ctx context.Context, td TokenDefinition) (TokenDefinition, error)
		GetDefinition(ctx context.Context, index string) (TokenDefinition, error)
		QueryDefinitions(ctx context.Context) ([]TokenDefinition, error)
		UpdateDefinition(ctx context.Context, td TokenDefinition) (TokenDefinition, error)
	}

	SubjectGetter interface {
		Get(ctx context.Context, index string) (subject.Subject, error)
	}

	Service struct {
		repo     Repository
		subjects SubjectGetter
		ledger   ledger.Recorder
		validate *validator.Validate
		mu       sync.Mutex
	}
)

func NewService(repo Repository, subjects SubjectGetter, recorder ledger.Recorder, validate *validator.Validate) *Service {
	return &Service{repo: repo, subjects: subjects, ledger: recorder, validate: validate}
}

// Create defines the token issued on completion of a subject. A subject has at most one definition.
func (svc *Service) Create(ctx context.Context, actor core.Actor, ntd NewTokenDefinition) (TokenDefinition, error) {
	if err := actor.Check(); err != nil {
		return TokenDefinition{}, err
	}
	ntd.Clean()
	if err := svc.validate.Struct(ntd); err != nil {
		return TokenDefinition{}, err
	}
	sub, err := svc.subjects.Get(ctx, ntd.SubjectID)
	if err != nil {
		return TokenDefinition{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	if _, err = svc.getBySubject(ctx, sub.Index); err == nil {
		return TokenDefinition{}, ErrSubjectHasDef
	} else if !core.IsNotFound(err) {
		return TokenDefinition{}, err
	}

	index, err := svc.repo.NextIndex(ctx)
	if err != nil {
		return TokenDefinition{}, err
	}
	now := core.Now()
	if ntd.Metadata.Attributes == nil {
		ntd.Metadata.Attributes = []Attribute{}
	}
	td := TokenDefinition{
		Index:          index,
		SubjectID:      sub.Index,
		InstitutionID:  sub.Institution,
		CourseID:       sub.CourseID,
		TokenName:      ntd.TokenName,
		TokenSymbol:    ntd.TokenSymbol,
		TokenType:      ntd.TokenType,
		IsTransferable: ntd.IsTransferable,
		IsBurnable:     ntd.IsBurnable,
		MaxSupply:      ntd.MaxSupply,
		Metadata:       ntd.Metadata,
		ContentHash:    sub.ContentHash,
		Creator:        actor.Address,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if td, err = svc.repo.CreateDefinition(ctx, td); err != nil {
		return TokenDefinition{}, errors.Wrap(err, "creating token definition")
	}
	if _, err = svc.ledger.Record(ctx, ledger.Event{Type: EventCreated, Creator: actor.Address, Ref: td.Index, Payload: td}); err != nil {
		return TokenDefinition{}, errors.Wrap(err, "recording token definition")
	}
	return td, nil
}

func (svc *Service) Update(ctx context.Context, actor core.Actor, index string, utd UpdateTokenDefinition) (TokenDefinition, error) {
	utd.Clean()
	if err := svc.validate.Struct(utd); err != nil {
		return TokenDefinition{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	td, err := svc.repo.GetDefinition(ctx, index)
	if err != nil {
		return TokenDefinition{}, err
	}
	if err = actor.RequireModify(td.Creator); err != nil {
		return TokenDefinition{}, err
	}

	var changed bool
	setString := func(dst *string, v string) {
		if v != "" && v != *dst {
			*dst = v
			changed = true
		}
	}
	setBool := func(dst *bool, v *bool) {
		if v != nil && *v != *dst {
			*dst = *v
			changed = true
		}
	}
	setString(&td.TokenName, utd.TokenName)
	setString(&td.TokenSymbol, utd.TokenSymbol)
	setString(&td.Metadata.Description, utd.Description)
	setString(&td.Metadata.ImageURI, utd.ImageURI)
	setBool(&td.IsTransferable, utd.IsTransferable)
	setBool(&td.IsBurnable, utd.IsBurnable)
	if utd.MaxSupply != nil && *utd.MaxSupply != td.MaxSupply {
		td.MaxSupply = *utd.MaxSupply
		changed = true
	}
	if len(utd.Attributes) > 0 {
		td.Metadata.Attributes = utd.Attributes
		changed = true
	}
	if !changed {
		return TokenDefinition{}, ErrNoUpdates
	}

	td.UpdatedAt = core.Now()
	if td, err = svc.repo.UpdateDefinition(ctx, td); err != nil {
		return TokenDefinition{}, errors.Wrap(err, "updating token definition")
	}
	if _, err = svc.ledger.Record(ctx, ledger.Event{Type: EventUpdated, Creator: actor.Address, Ref: td.Index, Payload: td}); err != nil {
		return TokenDefinition{}, errors.Wrap(err, "recording token definition update")
	}
	return td, nil
}

func (svc *Service) Get(ctx context.Context, index string) (TokenDefinition, error) {
	return svc.repo.GetDefinition(ctx, index)
}

func (svc *Service) GetBySubject(ctx context.Context, subjectID string) (TokenDefinition, error) {
	return svc.getBySubject(ctx, core.CleanString(subjectID))
}

func (svc *Service) getBySubject(ctx context.Context, subjectID string) (TokenDefinition, error) {
	all, err := svc.repo.QueryDefinitions(ctx)
	if err != nil {
		return TokenDefinition{}, err
	}
	for _, td := range all {
		if td.SubjectID == subjectID {
			return td, nil
		}
	}
	return TokenDefinition{}, errors.WithStack(ErrNotFound)
}

// Query lists definitions, optionally those of one institution.
func (svc *Service) Query(ctx context.Context, institutionID string) ([]TokenDefinition, error) {
	all, err := svc.repo.QueryDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	institutionID = core.CleanString(institutionID)
	if institutionID == "" {
		return all, nil
	}
	list := make([]TokenDefinition, 0, len(all))
	for _, td := range all {
		if td.InstitutionID == institutionID {
			list = append(list, td)
		}
	}
	return list, nil
}
