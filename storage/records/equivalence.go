package records

import (
	"context"

	"github.com/academictoken/registry/core/equivalence"
)

type equivalenceRepository struct {
	col collection[equivalence.SubjectEquivalence]
}

var _ equivalence.Repository = (*equivalenceRepository)(nil)

func NewEquivalenceRepository(store Store) equivalence.Repository {
	return &equivalenceRepository{
		col: newCollection[equivalence.SubjectEquivalence](store, kindEquivalence, "equivalence", equivalence.ErrNotFound),
	}
}

func (repo *equivalenceRepository) NextIndex(ctx context.Context) (string, error) {
	return repo.col.nextIndex(ctx)
}

func (repo *equivalenceRepository) CreateEquivalence(ctx context.Context, e equivalence.SubjectEquivalence) (equivalence.SubjectEquivalence, error) {
	return repo.col.insert(ctx, e.Index, e.SourceSubjectID, e)
}

func (repo *equivalenceRepository) GetEquivalence(ctx context.Context, index string) (equivalence.SubjectEquivalence, error) {
	return repo.col.get(ctx, index)
}

func (repo *equivalenceRepository) QueryEquivalences(ctx context.Context, sourceSubjectID string) ([]equivalence.SubjectEquivalence, error) {
	return repo.col.list(ctx, sourceSubjectID)
}

func (repo *equivalenceRepository) UpdateEquivalence(ctx context.Context, e equivalence.SubjectEquivalence) (equivalence.SubjectEquivalence, error) {
	return repo.col.put(ctx, e.Index, e.SourceSubjectID, e)
}
