package student

import (
	"context"

	"github.com/pkg/errors"

	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/curriculum"
	"github.com/academictoken/registry/core/subject"
)

// curriculumOf returns the curriculum of the tree; ok is false when the tree has none.
func (svc *Service) curriculumOf(ctx context.Context, t AcademicTree) (cur curriculum.Tree, ok bool, err error) {
	if t.CurriculumID == "" {
		return curriculum.Tree{}, false, nil
	}
	cur, err = svc.deps.Curricula.Get(ctx, t.CurriculumID)
	switch {
	case err == nil:
		return cur, true, nil
	case core.IsNotFound(err):
		return curriculum.Tree{}, false, nil
	}
	return curriculum.Tree{}, false, errors.Wrap(err, "getting curriculum")
}

// refresh recomputes the totals, the progress, the available subjects and the graduation status of t.
func (svc *Service) refresh(ctx context.Context, t *AcademicTree) error {
	t.recompute()

	cur, ok, err := svc.curriculumOf(ctx, *t)
	if err != nil {
		return err
	}
	var (
		required        []string
		creditsRequired uint64
		minGPA          float64
	)
	if ok {
		required = cur.RequiredSubjects
		if req := cur.GraduationRequirements; req != nil {
			creditsRequired = req.TotalCreditsRequired
			minGPA = req.MinGPA
		}
		if t.AvailableTokens, err = svc.available(ctx, *t, cur); err != nil {
			return err
		}
	}
	if creditsRequired == 0 {
		crs, err := svc.deps.Courses.Get(ctx, t.CourseID)
		switch {
		case err == nil:
			creditsRequired = crs.TotalCredits
		case !core.IsNotFound(err):
			return errors.Wrap(err, "getting course")
		}
	}

	p := Progress{
		RequiredSubjectsTotal: len(required),
		CreditsCompleted:      t.TotalCredits,
		CreditsRequired:       creditsRequired,
	}
	for _, id := range required {
		if t.HasCompleted(id) {
			p.RequiredSubjectsCompleted++
		}
	}
	var parts []float64
	if p.RequiredSubjectsTotal > 0 {
		p.RequiredSubjectsPercentage = percent(uint64(p.RequiredSubjectsCompleted), uint64(p.RequiredSubjectsTotal))
		parts = append(parts, p.RequiredSubjectsPercentage)
	}
	if creditsRequired > 0 {
		parts = append(parts, percent(t.TotalCredits, creditsRequired))
	}
	for _, part := range parts {
		p.OverallPercentage += part / float64(len(parts))
	}
	p.OverallPercentage = roundTo2(p.OverallPercentage)
	t.AcademicProgress = p

	eligible := len(parts) > 0 &&
		p.RequiredSubjectsCompleted == p.RequiredSubjectsTotal &&
		t.TotalCredits >= creditsRequired &&
		t.CoefficientGPA >= minGPA
	switch {
	case t.GraduationStatus == GraduationGraduated:
	case eligible:
		t.GraduationStatus = GraduationEligible
	default:
		t.GraduationStatus = GraduationInProgress
	}
	return nil
}

func percent(done, total uint64) float64 {
	switch {
	case total == 0:
		return 0
	case done >= total:
		return 100
	}
	return roundTo2(float64(done) * 100 / float64(total))
}

// available lists the curriculum subjects the student has not taken yet and whose prerequisites are met.
func (svc *Service) available(ctx context.Context, t AcademicTree, cur curriculum.Tree) ([]string, error) {
	done := completedSubjects(t)
	list := make([]string, 0)
	for _, id := range cur.Subjects() {
		if t.HasCompleted(id) || t.IsInProgress(id) {
			continue
		}
		subj, err := svc.deps.Subjects.Get(ctx, id)
		if err != nil {
			if core.IsNotFound(err) {
				continue
			}
			return nil, errors.Wrapf(err, "getting subject %s", id)
		}
		if subject.Evaluate(subj.PrerequisiteGroups, done).CanEnroll {
			list = append(list, id)
		}
	}
	return list, nil
}

// subjectProgress reports the status of every curriculum subject, plus subjects taken outside of it.
func (svc *Service) subjectProgress(ctx context.Context, t AcademicTree) ([]SubjectProgress, error) {
	cur, ok, err := svc.curriculumOf(ctx, t)
	if err != nil {
		return nil, err
	}
	ids := append([]string{}, cur.Subjects()...)
	for _, id := range append(append([]string{}, t.CompletedTokens...), t.InProgressTokens...) {
		if !core.ContainsString(ids, id) {
			ids = append(ids, id)
		}
	}

	done := completedSubjects(t)
	list := make([]SubjectProgress, 0, len(ids))
	for _, id := range ids {
		sp := SubjectProgress{SubjectID: id}
		if ok {
			sp.Semester = cur.SemesterOf(id)
			sp.Required = cur.IsRequired(id)
		}
		subj, err := svc.deps.Subjects.Get(ctx, id)
		switch {
		case err == nil:
			sp.Title = subj.Title
			sp.Credits = subj.Credits
		case !core.IsNotFound(err):
			return nil, errors.Wrapf(err, "getting subject %s", id)
		}

		switch {
		case t.HasCompleted(id):
			sp.Status = SubjectCompleted
		case t.IsInProgress(id):
			sp.Status = SubjectInProgress
		default:
			res := subject.Evaluate(subj.PrerequisiteGroups, done)
			if res.CanEnroll {
				sp.Status = SubjectAvailable
			} else {
				sp.Status = SubjectLocked
				sp.MissingPrerequisites = res.MissingPrerequisites
			}
		}
		list = append(list, sp)
	}
	return list, nil
}
