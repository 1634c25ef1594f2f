package institution

import (
	"context"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/ledger"
)

// Ledger event types
const (
	EventRegistered = "institution.registered"
	EventUpdated    = "institution.updated"
)

var (
	// errors
	ErrNotFound      = core.NewNotFoundError("institution not found")
	ErrNameExists    = errors.New("an institution with this name already exists")
	ErrAddressExists = errors.New("an institution with this address already exists")
	ErrNoUpdates     = core.NewValidationError(errors.New("no valid updates provided"))
	errAuthorization = core.NewPermissionError("authorization status can only be changed by the authority")
)

type (
	Repository interface {
		NextIndex(ctx context.Context) (string, error)
		CreateInstitution(ctx context.Context, inst Institution) (Institution, error)
		GetInstitution(ctx context.Context, index string) (Institution, error)
		QueryInstitutions(ctx context.Context) ([]Institution, error)
		UpdateInstitution(ctx context.Context, inst Institution) (Institution, error)
	}

	Service struct {
		repo     Repository
		ledger   ledger.Recorder
		validate *validator.Validate
		mu       sync.Mutex
	}
)

func NewService(repo Repository, recorder ledger.Recorder, validate *validator.Validate) *Service {
	return &Service{repo: repo, ledger: recorder, validate: validate}
}

// checkUniqueness compares names and addresses case-insensitively, ignoring `exclude`.
func (svc *Service) checkUniqueness(ctx context.Context, name, address, exclude string) error {
	all, err := svc.repo.QueryInstitutions(ctx)
	if err != nil {
		return errors.Wrap(err, "querying institutions")
	}
	for _, inst := range all {
		if inst.Index == exclude {
			continue
		}
		if name != "" && strings.EqualFold(inst.Name, name) {
			return core.NewValidationError(ErrNameExists, core.FieldError{Field: "name", Error: ErrNameExists.Error()})
		}
		if address != "" && strings.EqualFold(inst.Address, address) {
			return core.NewValidationError(ErrAddressExists, core.FieldError{Field: "address", Error: ErrAddressExists.Error()})
		}
	}
	return nil
}

// Register creates an institution; new institutions are not authorized.
func (svc *Service) Register(ctx context.Context, actor core.Actor, ni NewInstitution) (Institution, error) {
	if err := actor.Check(); err != nil {
		return Institution{}, err
	}
	ni.Clean()
	if err := svc.validate.Struct(ni); err != nil {
		return Institution{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	if err := svc.checkUniqueness(ctx, ni.Name, ni.Address, ""); err != nil {
		return Institution{}, err
	}
	index, err := svc.repo.NextIndex(ctx)
	if err != nil {
		return Institution{}, err
	}
	now := core.Now()
	inst, err := svc.repo.CreateInstitution(ctx, Institution{
		Index:        index,
		Name:         ni.Name,
		Address:      ni.Address,
		IsAuthorized: Unauthorized,
		Creator:      actor.Address,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return Institution{}, errors.Wrap(err, "creating institution")
	}
	if _, err = svc.ledger.Record(ctx, ledger.Event{
		Type: EventRegistered, Creator: actor.Address, Ref: inst.Index, Payload: inst,
	}); err != nil {
		return Institution{}, errors.Wrap(err, "recording institution registration")
	}
	return inst, nil
}

// Update changes name, address or authorization. Only the creator or the authority may update,
// and only the authority may change the authorization status.
func (svc *Service) Update(ctx context.Context, actor core.Actor, index string, ui UpdateInstitution) (Institution, error) {
	if err := actor.Check(); err != nil {
		return Institution{}, err
	}
	ui.Clean()
	if err := svc.validate.Struct(ui); err != nil {
		return Institution{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	inst, err := svc.repo.GetInstitution(ctx, index)
	if err != nil {
		return Institution{}, err
	}
	if err = actor.RequireModify(inst.Creator); err != nil {
		return Institution{}, err
	}

	var changed bool
	if ui.Name != "" && ui.Name != inst.Name {
		inst.Name = ui.Name
		changed = true
	}
	if ui.Address != "" && ui.Address != inst.Address {
		inst.Address = ui.Address
		changed = true
	}
	if ui.IsAuthorized != "" && ui.IsAuthorized != inst.IsAuthorized {
		if !actor.IsAuthority {
			return Institution{}, errors.WithStack(errAuthorization)
		}
		inst.IsAuthorized = ui.IsAuthorized
		changed = true
	}
	if !changed {
		return Institution{}, ErrNoUpdates
	}
	if err = svc.checkUniqueness(ctx, ui.Name, ui.Address, inst.Index); err != nil {
		return Institution{}, err
	}

	inst.UpdatedAt = core.Now()
	if inst, err = svc.repo.UpdateInstitution(ctx, inst); err != nil {
		return Institution{}, errors.Wrap(err, "updating institution")
	}
	if _, err = svc.ledger.Record(ctx, ledger.Event{
		Type: EventUpdated, Creator: actor.Address, Ref: inst.Index, Payload: inst,
	}); err != nil {
		return Institution{}, errors.Wrap(err, "recording institution update")
	}
	return inst, nil
}

func (svc *Service) Get(ctx context.Context, index string) (Institution, error) {
	return svc.repo.GetInstitution(ctx, index)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, orderings []core.DBOrdering) ([]Institution, error) {
	all, err := svc.repo.QueryInstitutions(ctx)
	if err != nil {
		return nil, err
	}
	list := make([]Institution, 0, len(all))
	for _, inst := range all {
		if filter.Search != "" && !strings.Contains(strings.ToLower(inst.Name), filter.Search) {
			continue
		}
		if filter.Authorized != nil && inst.Authorized() != *filter.Authorized {
			continue
		}
		if filter.Creator != "" && inst.Creator != filter.Creator {
			continue
		}
		list = append(list, inst)
	}
	core.SortByOrderings(
		len(list),
		func(i, j int) { list[i], list[j] = list[j], list[i] },
		func(i int, name string) (string, bool) {
			switch name {
			case "name":
				return strings.ToLower(list[i].Name), true
			case "created_at":
				return core.SortableTime(list[i].CreatedAt), true
			}
			return "", false
		},
		orderings,
	)
	return list, nil
}

func (svc *Service) ListAuthorized(ctx context.Context) ([]Institution, error) {
	authorized := true
	return svc.Query(ctx, QueryFilter{Authorized: &authorized}, nil)
}

func (svc *Service) Count(ctx context.Context) (int, error) {
	all, err := svc.repo.QueryInstitutions(ctx)
	return len(all), err
}

// RequireAuthorized returns the institution if it exists and is authorized.
func (svc *Service) RequireAuthorized(ctx context.Context, index string) (Institution, error) {
	inst, err := svc.repo.GetInstitution(ctx, index)
	if err != nil {
		return Institution{}, err
	}
	if !inst.Authorized() {
		return Institution{}, core.NewFieldError("institution", "institution is not authorized")
	}
	return inst, nil
}
