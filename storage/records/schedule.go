package records

import (
	"context"

	"github.com/academictoken/registry/core/schedule"
)

type scheduleRepository struct {
	recommendations collection[schedule.SubjectRecommendation]
	plans           collection[schedule.StudyPlan]
}

var _ schedule.Repository = (*scheduleRepository)(nil)

func NewScheduleRepository(store Store) schedule.Repository {
	return &scheduleRepository{
		recommendations: newCollection[schedule.SubjectRecommendation](store, kindRecommendation, "recommendation", schedule.ErrNotFound),
		plans:           newCollection[schedule.StudyPlan](store, kindStudyPlan, "study-plan", schedule.ErrPlanNotFound),
	}
}

func (repo *scheduleRepository) NextRecommendationIndex(ctx context.Context) (string, error) {
	return repo.recommendations.nextIndex(ctx)
}

func (repo *scheduleRepository) CreateRecommendation(ctx context.Context, r schedule.SubjectRecommendation) (schedule.SubjectRecommendation, error) {
	return repo.recommendations.insert(ctx, r.Index, r.StudentID, r)
}

func (repo *scheduleRepository) GetRecommendation(ctx context.Context, index string) (schedule.SubjectRecommendation, error) {
	return repo.recommendations.get(ctx, index)
}

func (repo *scheduleRepository) QueryRecommendations(ctx context.Context, studentID string) ([]schedule.SubjectRecommendation, error) {
	return repo.recommendations.list(ctx, studentID)
}

func (repo *scheduleRepository) NextPlanIndex(ctx context.Context) (string, error) {
	return repo.plans.nextIndex(ctx)
}

func (repo *scheduleRepository) CreatePlan(ctx context.Context, p schedule.StudyPlan) (schedule.StudyPlan, error) {
	return repo.plans.insert(ctx, p.Index, p.StudentID, p)
}

func (repo *scheduleRepository) GetPlan(ctx context.Context, index string) (schedule.StudyPlan, error) {
	return repo.plans.get(ctx, index)
}

func (repo *scheduleRepository) QueryPlans(ctx context.Context, studentID string) ([]schedule.StudyPlan, error) {
	return repo.plans.list(ctx, studentID)
}

func (repo *scheduleRepository) UpdatePlan(ctx context.Context, p schedule.StudyPlan) (schedule.StudyPlan, error) {
	return repo.plans.put(ctx, p.Index, p.StudentID, p)
}
