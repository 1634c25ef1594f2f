package account

import (
	"context"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/ledger"
)

// Ledger event types
const (
	EventCreated = "account.created"
	EventUpdated = "account.updated"
	EventDeleted = "account.deleted"
)

var (
	// errors
	ErrNotFound    = core.NewNotFoundError("account not found")
	ErrEmailExists = errors.New("an account with this email already exists")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excluded ...Account) error
		CreateAccount(ctx context.Context, acc Account) (Account, error)
		GetAccountByID(ctx context.Context, id string) (Account, error)
		GetAccountByAddress(ctx context.Context, address string) (Account, error)
		GetAccountByEmail(ctx context.Context, email string) (Account, error)
		// FilterAccounts applies AND operation on available QueryFilter fields.
		FilterAccounts(ctx context.Context, filter QueryFilter, orderings []core.DBOrdering) ([]Account, error)
		UpdateAccount(ctx context.Context, acc Account) (Account, error)
		DeleteAccountsByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo     Repository
		ledger   ledger.Recorder
		mailSvc  core.EmailService
		conf     *core.Config
		validate *validator.Validate
		tokens   tokenGenerator
	}
)

func NewService(
	repo Repository,
	recorder ledger.Recorder,
	mailSvc core.EmailService,
	conf *core.Config,
	validate *validator.Validate,
) *Service {
	return &Service{
		repo:     repo,
		ledger:   recorder,
		mailSvc:  mailSvc,
		conf:     conf,
		validate: validate,
		tokens:   tokenGenerator{secretKey: []byte(conf.SecretKey), timeout: conf.PasswordResetTimeoutDelta},
	}
}

func (svc *Service) checkUniqueness(email string, excluded ...Account) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, excluded...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, na NewAccount) (Account, error) {
	if err := na.Validate(svc.validate, svc); err != nil {
		return Account{}, err
	}

	now := core.Now()
	id := uuid.New().String()
	acc := Account{
		ID:        id,
		Address:   NewAddress(id),
		Name:      na.Name,
		Email:     na.Email,
		IsActive:  true,
		Roles:     na.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if acc.Roles == nil {
		acc.Roles = []string{}
	}
	if err := acc.SetPassword(na.Password); err != nil {
		return Account{}, errors.Wrap(err, "hashing password")
	}
	acc, err := svc.repo.CreateAccount(ctx, acc)
	if err != nil {
		return Account{}, errors.Wrap(err, "creating account")
	}
	if _, err = svc.ledger.Record(ctx, ledger.Event{
		Type: EventCreated, Creator: acc.Address, Ref: acc.Address, Payload: map[string]interface{}{"roles": acc.Roles},
	}); err != nil {
		return Account{}, errors.Wrap(err, "recording account creation")
	}
	return acc, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, orderings []core.DBOrdering) ([]Account, error) {
	return svc.repo.FilterAccounts(ctx, filter, orderings)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Account, error) {
	return svc.repo.GetAccountByID(ctx, id)
}

func (svc *Service) GetByAddress(ctx context.Context, address string) (Account, error) {
	return svc.repo.GetAccountByAddress(ctx, core.CleanString(address, true /* lower */))
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Account, error) {
	return svc.repo.GetAccountByEmail(ctx, core.CleanString(email, true /* lower */))
}

// Authenticate returns the account matching the email and password.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (Account, error) {
	acc, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return Account{}, err
	}
	if err = acc.CheckPassword(pwd); err != nil {
		return Account{}, errors.WithStack(ErrNotFound)
	}
	return acc, nil
}

func (svc *Service) Update(ctx context.Context, orig Account, ua UpdateAccount) (Account, error) {
	if err := ua.Validate(orig, svc.validate, svc); err != nil {
		return Account{}, err
	}

	acc := orig
	acc.Name = ua.Name
	acc.Email = ua.Email
	if ua.Roles != nil {
		acc.Roles = ua.Roles
	}
	if ua.IsActive != nil {
		acc.IsActive = *ua.IsActive
	}
	if ua.Password != "" {
		if err := acc.SetPassword(ua.Password); err != nil {
			return Account{}, errors.Wrap(err, "hashing password")
		}
	}
	acc.UpdatedAt = core.Now()

	acc, err := svc.repo.UpdateAccount(ctx, acc)
	if err != nil {
		return Account{}, errors.Wrap(err, "updating account")
	}
	if _, err = svc.ledger.Record(ctx, ledger.Event{
		Type: EventUpdated, Creator: acc.Address, Ref: acc.Address,
		Payload: map[string]interface{}{"roles": acc.Roles, "is_active": acc.IsActive},
	}); err != nil {
		return Account{}, errors.Wrap(err, "recording account update")
	}
	return acc, nil
}

func (svc *Service) SetLastLogin(ctx context.Context, acc Account) (Account, error) {
	acc.LastLogin = core.Now()
	return svc.repo.UpdateAccount(ctx, acc)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	if err := svc.repo.DeleteAccountsByID(ctx, ids...); err != nil {
		return errors.Wrap(err, "deleting accounts")
	}
	for _, id := range ids {
		if _, err := svc.ledger.Record(ctx, ledger.Event{Type: EventDeleted, Ref: NewAddress(id)}); err != nil {
			return errors.Wrap(err, "recording account deletion")
		}
	}
	return nil
}

// RequestPasswordReset emails a reset link to the account owner. Unknown emails return ErrNotFound.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	acc, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	svc.mailSvc.SendMessages(svc.passwordResetMessage(acc))
	return nil
}

func (svc *Service) passwordResetMessage(acc Account) *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: acc.Name, Address: acc.Email}},
		Subject:      "Password Reset",
		TemplateName: core.TmplPasswordReset,
		TemplateData: map[string]interface{}{
			"Name":  acc.Name,
			"UID":   EncodeUID(acc),
			"Token": svc.tokens.makeToken(acc),
		},
	}
}

func (svc *Service) ResetPassword(ctx context.Context, rp ResetPassword) (Account, error) {
	if err := rp.Validate(svc.validate); err != nil {
		return Account{}, err
	}
	errInvalid := core.NewValidationError(errors.New("invalid token"))

	id, err := decodeUID(rp.UID)
	if err != nil {
		return Account{}, errInvalid
	}
	acc, err := svc.GetByID(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return Account{}, errInvalid
		}
		return Account{}, err
	}
	if err = svc.tokens.verifyToken(acc, rp.Token); err != nil {
		return Account{}, core.NewValidationError(err)
	}

	if err = acc.SetPassword(rp.Password); err != nil {
		return Account{}, errors.Wrap(err, "hashing password")
	}
	acc.UpdatedAt = core.Now()
	return svc.repo.UpdateAccount(ctx, acc)
}
