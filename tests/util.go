package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/academictoken/registry/apps/api/di"
	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/account"
	cachesvc "github.com/academictoken/registry/services/cache"
	emailsvc "github.com/academictoken/registry/services/email"
	"github.com/academictoken/registry/storage/inmem"
	"github.com/academictoken/registry/storage/records"
)

type MailMock interface {
	core.EmailService
	Wait()
	SentMessages() []core.EmailMessage
}

// Env is a registry running on the in-memory storage.
type Env struct {
	*di.Container
	Store      *inmem.Store
	LedgerRepo *inmem.LedgerRepository
	Accounts   account.Repository
	Mail       MailMock
}

func NewEnv(t *testing.T) *Env {
	t.Helper()
	conf := core.NewTestConfig()
	validate, translator := core.NewValidator()
	di.InitValidators(validate, translator)

	store := inmem.NewStore()
	ledgerRepo := inmem.NewLedgerRepository()
	mail := emailsvc.NewConsoleServiceMock(conf)
	c := di.New(di.Deps{
		Conf:       conf,
		Store:      store,
		LedgerRepo: ledgerRepo,
		Cache:      cachesvc.NewMemoryCache(),
		MailSvc:    mail,
		Validate:   validate,
		Translator: translator,
	})
	return &Env{
		Container:  c,
		Store:      store,
		LedgerRepo: ledgerRepo,
		Accounts:   records.NewAccountRepository(store),
		Mail:       mail,
	}
}

// CreateAccount stores an account straight in the repository; pwd may be empty.
func CreateAccount(
	t *testing.T,
	repo account.Repository,
	name, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) account.Account {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	id := email // stable IDs keep tests readable
	acc := account.Account{
		ID:        id,
		Address:   account.NewAddress(id),
		Name:      name,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if acc.Roles == nil {
		acc.Roles = []string{}
	}
	if pwd != "" {
		if err := acc.SetPassword(pwd); err != nil {
			t.Fatalf("CreateAccount() failed: %v", err)
		}
	}
	acc, err := repo.CreateAccount(context.Background(), acc)
	if err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	return acc
}

// Authority, Operator and StudentAccount return ready to use accounts of each role.
func Authority(t *testing.T, env *Env) account.Account {
	return CreateAccount(t, env.Accounts, "Authority", "authority@registry.test", "", []string{account.RoleAuthority}, true)
}

func Operator(t *testing.T, env *Env, email string) account.Account {
	return CreateAccount(t, env.Accounts, "Operator", email, "", []string{account.RoleInstitution}, true)
}

func StudentAccount(t *testing.T, env *Env, email string) account.Account {
	return CreateAccount(t, env.Accounts, "Student", email, "", []string{account.RoleStudent}, true)
}
