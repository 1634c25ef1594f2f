package records

import (
	"context"

	"github.com/academictoken/registry/core/course"
)

type courseRepository struct {
	col collection[course.Course]
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(store Store) course.Repository {
	return &courseRepository{col: newCollection[course.Course](store, kindCourse, "course", course.ErrNotFound)}
}

func (repo *courseRepository) NextIndex(ctx context.Context) (string, error) {
	return repo.col.nextIndex(ctx)
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	return repo.col.insert(ctx, c.Index, c.Institution, c)
}

func (repo *courseRepository) GetCourse(ctx context.Context, index string) (course.Course, error) {
	return repo.col.get(ctx, index)
}

func (repo *courseRepository) QueryCourses(ctx context.Context, institution string) ([]course.Course, error) {
	return repo.col.list(ctx, institution)
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	return repo.col.put(ctx, c.Index, c.Institution, c)
}
