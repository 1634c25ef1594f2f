package records

import (
	"context"

	"github.com/academictoken/registry/core/degree"
)

type degreeRepository struct {
	requests collection[degree.DegreeRequest]
	degrees  collection[degree.Degree]
}

var _ degree.Repository = (*degreeRepository)(nil)

func NewDegreeRepository(store Store) degree.Repository {
	return &degreeRepository{
		requests: newCollection[degree.DegreeRequest](store, kindDegreeRequest, "degree-request", degree.ErrRequestNotFound),
		degrees:  newCollection[degree.Degree](store, kindDegree, "degree", degree.ErrNotFound),
	}
}

func (repo *degreeRepository) NextRequestIndex(ctx context.Context) (string, error) {
	return repo.requests.nextIndex(ctx)
}

func (repo *degreeRepository) CreateRequest(ctx context.Context, r degree.DegreeRequest) (degree.DegreeRequest, error) {
	return repo.requests.insert(ctx, r.Index, r.StudentID, r)
}

func (repo *degreeRepository) GetRequest(ctx context.Context, index string) (degree.DegreeRequest, error) {
	return repo.requests.get(ctx, index)
}

func (repo *degreeRepository) QueryRequests(ctx context.Context, studentID string) ([]degree.DegreeRequest, error) {
	return repo.requests.list(ctx, studentID)
}

func (repo *degreeRepository) UpdateRequest(ctx context.Context, r degree.DegreeRequest) (degree.DegreeRequest, error) {
	return repo.requests.put(ctx, r.Index, r.StudentID, r)
}

func (repo *degreeRepository) NextDegreeIndex(ctx context.Context) (string, error) {
	return repo.degrees.nextIndex(ctx)
}

func (repo *degreeRepository) CreateDegree(ctx context.Context, d degree.Degree) (degree.Degree, error) {
	return repo.degrees.insert(ctx, d.Index, d.StudentID, d)
}

func (repo *degreeRepository) GetDegree(ctx context.Context, index string) (degree.Degree, error) {
	return repo.degrees.get(ctx, index)
}

func (repo *degreeRepository) QueryDegrees(ctx context.Context, studentID string) ([]degree.Degree, error) {
	return repo.degrees.list(ctx, studentID)
}

func (repo *degreeRepository) UpdateDegree(ctx context.Context, d degree.Degree) (degree.Degree, error) {
	return repo.degrees.put(ctx, d.Index, d.StudentID, d)
}
