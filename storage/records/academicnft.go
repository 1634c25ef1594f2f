package records

import (
	"context"

	"github.com/academictoken/registry/core/academicnft"
)

type tokenRepository struct {
	col collection[academicnft.SubjectTokenInstance]
}

var _ academicnft.Repository = (*tokenRepository)(nil)

func NewTokenRepository(store Store) academicnft.Repository {
	return &tokenRepository{col: newCollection[academicnft.SubjectTokenInstance](store, kindTokenInstance, "token", academicnft.ErrNotFound)}
}

func (repo *tokenRepository) NextIndex(ctx context.Context) (string, error) {
	return repo.col.nextIndex(ctx)
}

func (repo *tokenRepository) CreateToken(ctx context.Context, tok academicnft.SubjectTokenInstance) (academicnft.SubjectTokenInstance, error) {
	return repo.col.insert(ctx, tok.TokenInstanceID, tok.TokenDefID, tok)
}

func (repo *tokenRepository) GetToken(ctx context.Context, id string) (academicnft.SubjectTokenInstance, error) {
	return repo.col.get(ctx, id)
}

func (repo *tokenRepository) QueryTokens(ctx context.Context, tokenDefID string) ([]academicnft.SubjectTokenInstance, error) {
	return repo.col.list(ctx, tokenDefID)
}

