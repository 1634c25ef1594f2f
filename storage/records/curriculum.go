package records

import (
	"context"

	"github.com/academictoken/registry/core/curriculum"
)

type curriculumRepository struct {
	col collection[curriculum.Tree]
}

var _ curriculum.Repository = (*curriculumRepository)(nil)

func NewCurriculumRepository(store Store) curriculum.Repository {
	return &curriculumRepository{col: newCollection[curriculum.Tree](store, kindCurriculum, "curriculum", curriculum.ErrNotFound)}
}

func (repo *curriculumRepository) NextIndex(ctx context.Context) (string, error) {
	return repo.col.nextIndex(ctx)
}

func (repo *curriculumRepository) CreateTree(ctx context.Context, t curriculum.Tree) (curriculum.Tree, error) {
	return repo.col.insert(ctx, t.Index, t.CourseID, t)
}

func (repo *curriculumRepository) GetTree(ctx context.Context, index string) (curriculum.Tree, error) {
	return repo.col.get(ctx, index)
}

func (repo *curriculumRepository) QueryTrees(ctx context.Context, courseID string) ([]curriculum.Tree, error) {
	return repo.col.list(ctx, courseID)
}

func (repo *curriculumRepository) UpdateTree(ctx context.Context, t curriculum.Tree) (curriculum.Tree, error) {
	return repo.col.put(ctx, t.Index, t.CourseID, t)
}
