package records

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/account"
)

// accountDoc carries the password hash, which Account hides from JSON.
type accountDoc struct {
	account.Account
	PasswordHash []byte `json:"password_hash"`
}

type accountRepository struct {
	store Store
}

var _ account.Repository = (*accountRepository)(nil)

func NewAccountRepository(store Store) account.Repository {
	return &accountRepository{store: store}
}

func (repo *accountRepository) all(ctx context.Context) ([]account.Account, error) {
	var list []account.Account
	err := repo.store.List(ctx, kindAccount, "", func(raw []byte) error {
		var doc accountDoc
		if err := unmarshal(raw, &doc); err != nil {
			return err
		}
		acc := doc.Account
		acc.PasswordHash = doc.PasswordHash
		list = append(list, acc)
		return nil
	})
	return list, err
}

func (repo *accountRepository) findOne(ctx context.Context, match func(account.Account) bool) (account.Account, error) {
	list, err := repo.all(ctx)
	if err != nil {
		return account.Account{}, err
	}
	for _, acc := range list {
		if match(acc) {
			return acc, nil
		}
	}
	return account.Account{}, errors.WithStack(account.ErrNotFound)
}

func (repo *accountRepository) CheckEmailUniqueness(ctx context.Context, email string, excluded ...account.Account) error {
	_, err := repo.findOne(ctx, func(acc account.Account) bool {
		if acc.Email != email {
			return false
		}
		for _, ex := range excluded {
			if ex.ID == acc.ID {
				return false
			}
		}
		return true
	})
	switch {
	case err == nil:
		return account.ErrEmailExists
	case core.IsNotFound(err):
		return nil
	default:
		return err
	}
}

func (repo *accountRepository) CreateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	doc := accountDoc{Account: acc, PasswordHash: acc.PasswordHash}
	if err := repo.store.Insert(ctx, kindAccount, acc.ID, "", doc); err != nil {
		return account.Account{}, err
	}
	return acc, nil
}

func (repo *accountRepository) GetAccountByID(ctx context.Context, id string) (account.Account, error) {
	var doc accountDoc
	if err := repo.store.Get(ctx, kindAccount, id, &doc); err != nil {
		return account.Account{}, trapNoRecord(err, account.ErrNotFound)
	}
	acc := doc.Account
	acc.PasswordHash = doc.PasswordHash
	return acc, nil
}

func (repo *accountRepository) GetAccountByAddress(ctx context.Context, address string) (account.Account, error) {
	return repo.findOne(ctx, func(acc account.Account) bool { return acc.Address == address })
}

func (repo *accountRepository) GetAccountByEmail(ctx context.Context, email string) (account.Account, error) {
	return repo.findOne(ctx, func(acc account.Account) bool { return acc.Email == email })
}

func (repo *accountRepository) FilterAccounts(
	ctx context.Context,
	filter account.QueryFilter,
	orderings []core.DBOrdering,
) ([]account.Account, error) {
	list, err := repo.all(ctx)
	if err != nil {
		return nil, err
	}
	accs := make([]account.Account, 0, len(list))
	for _, acc := range list {
		if filter.Match(acc) {
			accs = append(accs, acc)
		}
	}
	if len(orderings) == 0 {
		orderings = []core.DBOrdering{{Field: "created_at", Ascending: false}}
	}
	core.SortByOrderings(
		len(accs),
		func(i, j int) { accs[i], accs[j] = accs[j], accs[i] },
		func(i int, name string) (string, bool) {
			switch name {
			case "name":
				return strings.ToLower(accs[i].Name), true
			case "email":
				return accs[i].Email, true
			case "created_at":
				return core.SortableTime(accs[i].CreatedAt), true
			case "last_login":
				return core.SortableTime(accs[i].LastLogin), true
			}
			return "", false
		},
		orderings,
	)
	return accs, nil
}

func (repo *accountRepository) UpdateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	if _, err := repo.GetAccountByID(ctx, acc.ID); err != nil {
		return account.Account{}, err
	}
	doc := accountDoc{Account: acc, PasswordHash: acc.PasswordHash}
	if err := repo.store.Put(ctx, kindAccount, acc.ID, "", doc); err != nil {
		return account.Account{}, err
	}
	return acc, nil
}

func (repo *accountRepository) DeleteAccountsByID(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		if err := repo.store.Delete(ctx, kindAccount, id); err != nil {
			return trapNoRecord(err, account.ErrNotFound)
		}
	}
	return nil
}
