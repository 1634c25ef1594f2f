package records

import (
	"context"

	"github.com/academictoken/registry/core/institution"
)

type institutionRepository struct {
	col collection[institution.Institution]
}

var _ institution.Repository = (*institutionRepository)(nil)

func NewInstitutionRepository(store Store) institution.Repository {
	return &institutionRepository{col: newCollection[institution.Institution](store, kindInstitution, "institution", institution.ErrNotFound)}
}

func (repo *institutionRepository) NextIndex(ctx context.Context) (string, error) {
	return repo.col.nextIndex(ctx)
}

func (repo *institutionRepository) CreateInstitution(ctx context.Context, inst institution.Institution) (institution.Institution, error) {
	return repo.col.insert(ctx, inst.Index, "", inst)
}

func (repo *institutionRepository) GetInstitution(ctx context.Context, index string) (institution.Institution, error) {
	return repo.col.get(ctx, index)
}

func (repo *institutionRepository) QueryInstitutions(ctx context.Context) ([]institution.Institution, error) {
	return repo.col.list(ctx, "")
}

func (repo *institutionRepository) UpdateInstitution(ctx context.Context, inst institution.Institution) (institution.Institution, error) {
	return repo.col.put(ctx, inst.Index, "", inst)
}
