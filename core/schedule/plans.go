package schedule

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/academictoken/registry/core"
)

// CreatePlan starts a draft study plan on the curriculum of the student's course.
func (svc *Service) CreatePlan(ctx context.Context, actor core.Actor, np NewStudyPlan) (StudyPlan, error) {
	if err := actor.Check(); err != nil {
		return StudyPlan{}, err
	}
	np.Clean()
	if err := svc.validate.Struct(np); err != nil {
		return StudyPlan{}, err
	}
	st, err := svc.students.Get(ctx, np.StudentID)
	if err != nil {
		return StudyPlan{}, err
	}
	if !actor.IsAuthority && actor.Address != st.Address && actor.Address != st.Creator {
		return StudyPlan{}, errors.WithStack(core.ErrPermissionDenied)
	}
	cur, err := svc.curricula.Get(ctx, np.CurriculumID)
	if err != nil {
		return StudyPlan{}, err
	}
	if tree, err := svc.students.GetAcademicTree(ctx, st.Index, cur.CourseID); err == nil {
		if tree.CurriculumID != "" && tree.CurriculumID != cur.Index {
			return StudyPlan{}, errWrongCurriculum
		}
	} else if !core.IsNotFound(err) {
		return StudyPlan{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	plans, err := svc.repo.QueryPlans(ctx, st.Index)
	if err != nil {
		return StudyPlan{}, errors.Wrap(err, "querying study plans")
	}
	var open int
	for _, p := range plans {
		if p.Status == PlanDraft || p.Status == PlanActive {
			open++
		}
	}
	if open >= maxPlansPerStudent {
		return StudyPlan{}, errTooManyPlans
	}

	index, err := svc.repo.NextPlanIndex(ctx)
	if err != nil {
		return StudyPlan{}, err
	}
	now := core.Now()
	p := StudyPlan{
		Index:            index,
		StudentID:        st.Index,
		CurriculumID:     cur.Index,
		CompletionTarget: np.CompletionTarget,
		Notes:            np.Notes,
		Status:           PlanDraft,
		Semesters:        []PlannedSemester{},
		Creator:          actor.Address,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if p, err = svc.repo.CreatePlan(ctx, p); err != nil {
		return StudyPlan{}, errors.Wrap(err, "creating study plan")
	}
	if err = svc.record(ctx, EventPlanCreated, actor, p.Index, map[string]string{
		"student_id": p.StudentID, "curriculum_id": p.CurriculumID,
	}); err != nil {
		return StudyPlan{}, err
	}
	return p, nil
}

// AddSemester plans the subjects of a semester. A subject is planned once per plan and a semester
// stays under the credit limit.
func (svc *Service) AddSemester(ctx context.Context, actor core.Actor, index string, ns NewPlannedSemester) (StudyPlan, error) {
	ns.Clean()
	if err := svc.validate.Struct(ns); err != nil {
		return StudyPlan{}, err
	}
	if ns.Number > maxPlannedSemesters {
		return StudyPlan{}, errTooManySemesters
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	p, err := svc.repo.GetPlan(ctx, core.CleanString(index))
	if err != nil {
		return StudyPlan{}, err
	}
	if err = actor.RequireModify(p.Creator); err != nil {
		return StudyPlan{}, err
	}
	if p.Status != PlanDraft && p.Status != PlanActive {
		return StudyPlan{}, errPlanClosed
	}
	for _, sem := range p.Semesters {
		if sem.Number == ns.Number {
			return StudyPlan{}, errSemesterPlanned
		}
	}

	sem := PlannedSemester{Number: ns.Number, SubjectIDs: ns.SubjectIDs}
	for _, id := range ns.SubjectIDs {
		if p.Planned(id) {
			return StudyPlan{}, core.NewFieldError("subject_ids", fmt.Sprintf("subject %s is already planned", id))
		}
		subj, err := svc.subjects.Get(ctx, id)
		if err != nil {
			if core.IsNotFound(err) {
				return StudyPlan{}, core.NewFieldError("subject_ids", fmt.Sprintf("subject %s not found", id))
			}
			return StudyPlan{}, err
		}
		sem.TotalCredits += subj.Credits
		sem.TotalHours += subj.WorkloadHours
	}
	if limit := uint64(svc.conf.Registry.MaxCreditsPerSemester); limit > 0 && sem.TotalCredits > limit {
		return StudyPlan{}, core.NewFieldError(
			"subject_ids", fmt.Sprintf("%d credits exceed the limit of %d per semester", sem.TotalCredits, limit),
		)
	}

	p.Semesters = append(p.Semesters, sem)
	p.UpdatedAt = core.Now()
	if p, err = svc.repo.UpdatePlan(ctx, p); err != nil {
		return StudyPlan{}, errors.Wrap(err, "updating study plan")
	}
	if err = svc.record(ctx, EventSemesterPlanned, actor, p.Index, sem); err != nil {
		return StudyPlan{}, err
	}
	return p, nil
}

// UpdateStatus moves a plan along draft -> active -> completed; draft and active plans may be abandoned.
func (svc *Service) UpdateStatus(ctx context.Context, actor core.Actor, index, status string) (StudyPlan, error) {
	status = core.CleanString(status, true /* lower */)
	if !core.ContainsString(PlanStatuses, status) {
		return StudyPlan{}, errInvalidPlanStatus
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	p, err := svc.repo.GetPlan(ctx, core.CleanString(index))
	if err != nil {
		return StudyPlan{}, err
	}
	if err = actor.RequireModify(p.Creator); err != nil {
		return StudyPlan{}, err
	}
	if !core.ContainsString(planTransitions[p.Status], status) {
		return StudyPlan{}, errInvalidPlanTransition
	}

	prev := p.Status
	p.Status = status
	p.UpdatedAt = core.Now()
	if p, err = svc.repo.UpdatePlan(ctx, p); err != nil {
		return StudyPlan{}, errors.Wrap(err, "updating study plan")
	}
	if err = svc.record(ctx, EventPlanStatus, actor, p.Index, map[string]string{"from": prev, "to": status}); err != nil {
		return StudyPlan{}, err
	}
	return p, nil
}

func (svc *Service) GetPlan(ctx context.Context, index string) (StudyPlan, error) {
	return svc.repo.GetPlan(ctx, core.CleanString(index))
}

func (svc *Service) ListPlans(ctx context.Context, studentID string) ([]StudyPlan, error) {
	return svc.repo.QueryPlans(ctx, core.CleanString(studentID))
}
