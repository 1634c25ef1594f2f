package records

import (
	"context"

	"github.com/academictoken/registry/core/tokendef"
)

type tokenDefRepository struct {
	col collection[tokendef.TokenDefinition]
}

var _ tokendef.Repository = (*tokenDefRepository)(nil)

func NewTokenDefRepository(store Store) tokendef.Repository {
	return &tokenDefRepository{col: newCollection[tokendef.TokenDefinition](store, kindTokenDef, "tokendef", tokendef.ErrNotFound)}
}

func (repo *tokenDefRepository) NextIndex(ctx context.Context) (string, error) {
	return repo.col.nextIndex(ctx)
}

func (repo *tokenDefRepository) CreateDefinition(ctx context.Context, td tokendef.TokenDefinition) (tokendef.TokenDefinition, error) {
	return repo.col.insert(ctx, td.Index, td.SubjectID, td)
}

func (repo *tokenDefRepository) GetDefinition(ctx context.Context, index string) (tokendef.TokenDefinition, error) {
	return repo.col.get(ctx, index)
}

func (repo *tokenDefRepository) QueryDefinitions(ctx context.Context) ([]tokendef.TokenDefinition, error) {
	return repo.col.list(ctx, "")
}

func (repo *tokenDefRepository) UpdateDefinition(ctx context.Context, td tokendef.TokenDefinition) (tokendef.TokenDefinition, error) {
	return repo.col.put(ctx, td.Index, td.SubjectID, td)
}
