package records

import (
	"context"

	"github.com/academictoken/registry/core/subject"
)

type subjectRepository struct {
	col   collection[subject.Subject]
	store Store
}

var _ subject.Repository = (*subjectRepository)(nil)

func NewSubjectRepository(store Store) subject.Repository {
	return &subjectRepository{
		col:   newCollection[subject.Subject](store, kindSubject, "subject", subject.ErrNotFound),
		store: store,
	}
}

func (repo *subjectRepository) NextIndex(ctx context.Context) (string, error) {
	return repo.col.nextIndex(ctx)
}

func (repo *subjectRepository) NextGroupID(ctx context.Context) (string, error) {
	id, _, err := nextIndex(ctx, repo.store, "prereq-group")
	return id, err
}

func (repo *subjectRepository) CreateSubject(ctx context.Context, s subject.Subject) (subject.Subject, error) {
	return repo.col.insert(ctx, s.Index, s.CourseID, s)
}

func (repo *subjectRepository) GetSubject(ctx context.Context, index string) (subject.Subject, error) {
	return repo.col.get(ctx, index)
}

func (repo *subjectRepository) QuerySubjects(ctx context.Context, courseID string) ([]subject.Subject, error) {
	return repo.col.list(ctx, courseID)
}

func (repo *subjectRepository) UpdateSubject(ctx context.Context, s subject.Subject) (subject.Subject, error) {
	return repo.col.put(ctx, s.Index, s.CourseID, s)
}
