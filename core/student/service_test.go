package student_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/curriculum"
	"github.com/academictoken/registry/core/institution"
	"github.com/academictoken/registry/core/student"
	"github.com/academictoken/registry/core/tokendef"
	"github.com/academictoken/registry/storage/records"
	"github.com/academictoken/registry/tests"
)

func TestService_Register(t *testing.T) {
	env := testutil.NewEnv(t)
	c := testutil.NewCatalog(t, env)
	ctx := context.Background()
	acc := testutil.StudentAccount(t, env, "hero@test.cd")

	_, err := env.Students.Register(ctx, core.Actor{}, student.NewStudent{Name: "Hero", Address: acc.Address})
	assert.EqualError(t, err, "creator is required")
	_, err = env.Students.Register(ctx, c.Operator.Actor(), student.NewStudent{Name: "Hero", Address: "lol"})
	assert.Error(t, err)
	_, err = env.Students.Register(ctx, c.Operator.Actor(), student.NewStudent{Name: "Hero", Address: acc.Address, Email: "lol"})
	assert.Error(t, err)

	st, err := env.Students.Register(ctx, c.Operator.Actor(), student.NewStudent{
		Name: "  Hero ", Address: strings.ToUpper(acc.Address), Email: "HERO@test.cd",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hero", st.Name)
	assert.Equal(t, acc.Address, st.Address)
	assert.Equal(t, "hero@test.cd", st.Email)
	assert.Equal(t, c.Operator.Address, st.Creator)

	_, err = env.Students.Register(ctx, c.Operator.Actor(), student.NewStudent{Name: "Clone", Address: acc.Address})
	assert.Equal(t, student.ErrAddressExists, err)

	got, err := env.Students.GetByAddress(ctx, strings.ToUpper(acc.Address))
	require.NoError(t, err)
	assert.Equal(t, st, got)
	_, err = env.Students.GetByAddress(ctx, c.Operator.Address)
	assert.True(t, core.IsNotFound(err))

	n, err := env.Students.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestService_enrollments(t *testing.T) {
	env := testutil.NewEnv(t)
	c := testutil.NewCatalog(t, env)
	ctx := context.Background()
	operator := c.Operator.Actor()

	acc := testutil.StudentAccount(t, env, "hero@test.cd")
	st, err := env.Students.Register(ctx, operator, student.NewStudent{Name: "Hero", Address: acc.Address})
	require.NoError(t, err)

	pending, err := env.Institutions.Register(ctx, operator, institution.NewInstitution{Name: "State College", Address: "2 Campus Road"})
	require.NoError(t, err)
	other, err := env.Institutions.Register(ctx, operator, institution.NewInstitution{Name: "City College", Address: "3 Campus Road"})
	require.NoError(t, err)
	other, err = env.Institutions.Update(ctx, c.Authority.Actor(), other.Index, institution.UpdateInstitution{
		IsAuthorized: institution.Authorized,
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		ne      student.NewEnrollment
		wantErr string
	}{
		{name: "unknown status", ne: student.NewEnrollment{StudentID: st.Index, InstitutionID: c.Inst.Index, CourseID: c.Course.Index, Status: "lol"}, wantErr: "Status"},
		{name: "bad date", ne: student.NewEnrollment{StudentID: st.Index, InstitutionID: c.Inst.Index, CourseID: c.Course.Index, EnrollmentDate: "2024-13-01"}, wantErr: "EnrollmentDate"},
		{name: "unknown student", ne: student.NewEnrollment{StudentID: "lol", InstitutionID: c.Inst.Index, CourseID: c.Course.Index}, wantErr: "student not found"},
		{name: "unauthorized institution", ne: student.NewEnrollment{StudentID: st.Index, InstitutionID: pending.Index, CourseID: c.Course.Index}, wantErr: "institution is not authorized"},
		{name: "course of another institution", ne: student.NewEnrollment{StudentID: st.Index, InstitutionID: other.Index, CourseID: c.Course.Index}, wantErr: "course does not belong to the institution"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Students.CreateEnrollment(ctx, operator, tt.ne)
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}

	now := time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC)
	core.NowFunc = func() time.Time { return now }
	defer func() { core.NowFunc = time.Now }()

	e, err := env.Students.CreateEnrollment(ctx, operator, student.NewEnrollment{
		StudentID: st.Index, InstitutionID: c.Inst.Index, CourseID: c.Course.Index, Status: "PENDING",
	})
	require.NoError(t, err)
	assert.Equal(t, student.EnrollmentPending, e.Status)
	assert.Equal(t, "2024-02-01", e.EnrollmentDate)

	_, err = env.Students.CreateEnrollment(ctx, operator, student.NewEnrollment{
		StudentID: st.Index, InstitutionID: c.Inst.Index, CourseID: c.Course.Index,
	})
	assert.Equal(t, student.ErrAlreadyEnrolled, err, "a pending enrollment blocks a new one")

	t.Run("status updates", func(t *testing.T) {
		tests := []struct {
			name    string
			actor   core.Actor
			status  string
			wantErr string
		}{
			{name: "unknown status", actor: operator, status: "lol", wantErr: "status must be one of: pending, active, completed, cancelled, suspended"},
			{name: "same status", actor: operator, status: student.EnrollmentPending, wantErr: "the enrollment already has this status"},
			{name: "not the creator", actor: acc.Actor(), status: student.EnrollmentActive, wantErr: "permission denied"},
			{name: "activate", actor: operator, status: " Active "},
			{name: "suspend", actor: c.Authority.Actor(), status: student.EnrollmentSuspended},
			{name: "complete", actor: operator, status: student.EnrollmentCompleted},
			{name: "completed is final", actor: c.Authority.Actor(), status: student.EnrollmentActive, wantErr: "the enrollment is already completed or cancelled"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := env.Students.UpdateEnrollmentStatus(ctx, tt.actor, e.Index, tt.status)
				if tt.wantErr != "" {
					assert.EqualError(t, err, tt.wantErr)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, core.CleanString(tt.status, true), got.Status)
			})
		}
	})

	// a completed enrollment no longer blocks the course
	again, err := env.Students.CreateEnrollment(ctx, operator, student.NewEnrollment{
		StudentID: st.Index, InstitutionID: c.Inst.Index, CourseID: c.Course.Index,
	})
	require.NoError(t, err)
	assert.Equal(t, student.EnrollmentActive, again.Status)

	list, err := env.Students.ListEnrollments(ctx, st.Index)
	require.NoError(t, err)
	if assert.Len(t, list, 2) {
		assert.Equal(t, []string{e.Index, again.Index}, []string{list[0].Index, list[1].Index})
		assert.Equal(t, student.EnrollmentCompleted, list[0].Status)
	}
}

// newCurriculum gives the catalog course a curriculum requiring both subjects, 8 credits and a 7.0 GPA.
func newCurriculum(t *testing.T, env *testutil.Env, c testutil.Catalog) curriculum.Tree {
	ctx := context.Background()
	cur, err := env.Curricula.Create(ctx, c.Operator.Actor(), curriculum.NewTree{
		CourseID:           c.Course.Index,
		Version:            "2024",
		ElectiveMin:        1,
		TotalWorkloadHours: 120,
		RequiredSubjects:   []string{c.Intro.Index, c.Advanced.Index},
	})
	require.NoError(t, err)
	cur, err = env.Curricula.SetGraduationRequirements(ctx, c.Operator.Actor(), cur.Index, curriculum.GraduationRequirements{
		TotalCreditsRequired: 8,
		MinGPA:               7,
	})
	require.NoError(t, err)
	return cur
}

func TestService_subjects(t *testing.T) {
	env := testutil.NewEnv(t)
	c := testutil.NewCatalog(t, env)
	cur := newCurriculum(t, env, c)
	ctx := context.Background()
	operator := c.Operator.Actor()

	_, err := env.TokenDefs.Create(ctx, operator, tokendef.NewTokenDefinition{
		SubjectID: c.Intro.Index, TokenName: "Intro to Programming", TokenSymbol: "cs101", TokenType: tokendef.TypeNFT,
	})
	require.NoError(t, err)

	acc := testutil.StudentAccount(t, env, "hero@test.cd")
	st, err := env.Students.Register(ctx, operator, student.NewStudent{Name: "Hero", Address: acc.Address})
	require.NoError(t, err)
	me := acc.Actor()
	stranger := testutil.StudentAccount(t, env, "lol@test.cd").Actor()

	_, err = env.Students.RequestSubjectEnrollment(ctx, me, st.Index, c.Intro.Index)
	assert.EqualError(t, err, "the student has no active enrollment in the subject's course")

	_, err = env.Students.CreateEnrollment(ctx, operator, student.NewEnrollment{
		StudentID: st.Index, InstitutionID: c.Inst.Index, CourseID: c.Course.Index,
	})
	require.NoError(t, err)

	_, err = env.Students.RequestSubjectEnrollment(ctx, stranger, st.Index, c.Intro.Index)
	assert.True(t, core.IsPermissionDenied(err))
	_, err = env.Students.RequestSubjectEnrollment(ctx, me, st.Index, c.Advanced.Index)
	assert.EqualError(t, err, "missing prerequisites: "+c.Intro.Index)
	_, err = env.Students.GetAcademicTree(ctx, st.Index, "")
	assert.True(t, core.IsNotFound(err), "failed requests leave no tree behind")

	tree, err := env.Students.RequestSubjectEnrollment(ctx, me, st.Index, c.Intro.Index)
	require.NoError(t, err)
	assert.Equal(t, cur.Index, tree.CurriculumID)
	assert.Equal(t, []string{c.Intro.Index}, tree.InProgressTokens)
	assert.Empty(t, tree.AvailableTokens)
	assert.Equal(t, student.GraduationInProgress, tree.GraduationStatus)

	_, err = env.Students.RequestSubjectEnrollment(ctx, me, st.Index, c.Intro.Index)
	assert.EqualError(t, err, "subject already in progress")

	completion := student.CompleteSubject{
		Grade: 90, CompletionDate: "2024-06-30", Semester: "2024.1", ProfessorSignature: "prof-signature",
	}
	t.Run("completion checks", func(t *testing.T) {
		_, err := env.Students.CompleteSubject(ctx, me, st.Index, c.Intro.Index, completion)
		assert.True(t, core.IsPermissionDenied(err), "students cannot grade themselves")

		low := completion
		low.Grade = 59.5
		_, err = env.Students.CompleteSubject(ctx, operator, st.Index, c.Intro.Index, low)
		assert.EqualError(t, err, "grade must be between 60 and 100")

		undated := completion
		undated.CompletionDate = ""
		_, err = env.Students.CompleteSubject(ctx, operator, st.Index, c.Intro.Index, undated)
		assert.Error(t, err)

		_, err = env.Students.CompleteSubject(ctx, operator, st.Index, c.Advanced.Index, completion)
		assert.EqualError(t, err, "subject is not in progress")
	})

	res, err := env.Students.CompleteSubject(ctx, operator, st.Index, c.Intro.Index, completion)
	require.NoError(t, err)
	assert.NotEmpty(t, res.NftTokenID, "the subject has a mintable definition")
	assert.Equal(t, student.CompletionResult{
		NftTokenID:         res.NftTokenID,
		ProgressPercentage: 50,
		CreditsCompleted:   4,
	}, res)

	tokens, err := env.Tokens.ListByStudent(ctx, st.Index)
	require.NoError(t, err)
	if assert.Len(t, tokens, 1) {
		assert.Equal(t, res.NftTokenID, tokens[0].TokenInstanceID)
		assert.Equal(t, "90", tokens[0].Grade)
	}

	_, err = env.Students.RequestSubjectEnrollment(ctx, me, st.Index, c.Intro.Index)
	assert.EqualError(t, err, "subject already completed")

	progress, err := env.Students.GetStudentProgress(ctx, st.Index, c.Course.Index)
	require.NoError(t, err)
	assert.Equal(t, student.Progress{
		RequiredSubjectsCompleted:  1,
		RequiredSubjectsTotal:      2,
		RequiredSubjectsPercentage: 50,
		CreditsCompleted:           4,
		CreditsRequired:            8,
		OverallPercentage:          50,
	}, progress.Progress)
	assert.Equal(t, []student.SubjectProgress{
		{SubjectID: c.Intro.Index, Title: "Intro to Programming", Credits: 4, Required: true, Status: student.SubjectCompleted},
		{SubjectID: c.Advanced.Index, Title: "Data Structures", Credits: 4, Required: true, Status: student.SubjectAvailable},
	}, progress.Subjects)

	// the second subject has no token definition: it completes without a token
	res = c.Pass(t, env, st.Index, c.Advanced.Index, 80)
	assert.Empty(t, res.NftTokenID)
	assert.Equal(t, float64(100), res.ProgressPercentage)
	assert.True(t, res.IsEligibleForGraduation)

	stats, err := env.Students.GetStudentStats(ctx, st.Index)
	require.NoError(t, err)
	assert.Equal(t, student.Stats{
		StudentID:         st.Index,
		Enrollments:       1,
		CompletedSubjects: 2,
		TotalCredits:      8,
		TotalHours:        120,
		GPA:               8.5,
		Tokens:            1,
		GraduationStatus:  student.GraduationEligible,
	}, stats)
}

func TestService_UpdateAcademicTree(t *testing.T) {
	env := testutil.NewEnv(t)
	c := testutil.NewCatalog(t, env)
	newCurriculum(t, env, c)
	ctx := context.Background()

	st, acc := c.Enroll(t, env, "hero@test.cd")
	c.Pass(t, env, st.Index, c.Intro.Index, 75)
	tree, err := env.Students.GetAcademicTree(ctx, st.Index, c.Course.Index)
	require.NoError(t, err)
	assert.Equal(t, []string{c.Advanced.Index}, tree.AvailableTokens)

	_, err = env.Students.UpdateAcademicTree(ctx, c.Operator.Actor(), tree.Index, student.UpdateAcademicTree{CompletedTokens: []string{}})
	assert.True(t, core.IsPermissionDenied(err), "operators do not edit trees")
	_, err = env.Students.UpdateAcademicTree(ctx, acc.Actor(), tree.Index, student.UpdateAcademicTree{
		CompletedTokens: []string{" " + c.Intro.Index},
	})
	assert.Equal(t, student.ErrNoUpdates, err)
	_, err = env.Students.UpdateAcademicTree(ctx, acc.Actor(), "lol", student.UpdateAcademicTree{})
	assert.True(t, core.IsNotFound(err))

	tree, err = env.Students.UpdateAcademicTree(ctx, c.Authority.Actor(), tree.Index, student.UpdateAcademicTree{
		CompletedTokens: []string{},
	})
	require.NoError(t, err)
	assert.Empty(t, tree.CompletedTokens)
	assert.Empty(t, tree.Completions)
	assert.Zero(t, tree.TotalCredits)
	assert.Zero(t, tree.CoefficientGPA)
	assert.Equal(t, []string{c.Intro.Index}, tree.AvailableTokens)

	trees, err := env.Students.ListTrees(ctx, st.Index)
	require.NoError(t, err)
	assert.Equal(t, []student.AcademicTree{tree}, trees)
}

// failingTrees fails academic tree updates while fail is set.
type failingTrees struct {
	student.Repository
	fail bool
}

func (r *failingTrees) UpdateTree(ctx context.Context, t student.AcademicTree) (student.AcademicTree, error) {
	if r.fail {
		return student.AcademicTree{}, errors.New("disk full")
	}
	return r.Repository.UpdateTree(ctx, t)
}

func TestService_CompleteSubject_retry(t *testing.T) {
	env := testutil.NewEnv(t)
	c := testutil.NewCatalog(t, env)
	ctx := context.Background()
	operator := c.Operator.Actor()

	_, err := env.TokenDefs.Create(ctx, operator, tokendef.NewTokenDefinition{
		SubjectID: c.Intro.Index, TokenName: "Intro to Programming", TokenSymbol: "CS101", TokenType: tokendef.TypeNFT,
	})
	require.NoError(t, err)
	st, _ := c.Enroll(t, env, "hero@test.cd")
	_, err = env.Students.RequestSubjectEnrollment(ctx, operator, st.Index, c.Intro.Index)
	require.NoError(t, err)

	repo := &failingTrees{Repository: records.NewStudentRepository(env.Store), fail: true}
	svc := student.NewService(repo, student.Dependencies{
		Institutions: env.Institutions,
		Courses:      env.Courses,
		Subjects:     env.Subjects,
		Curricula:    env.Curricula,
		Definitions:  env.TokenDefs,
		Tokens:       env.Tokens,
	}, env.Ledger, env.Conf, env.Validate)

	cs := student.CompleteSubject{Grade: 90, CompletionDate: "2024-06-30", Semester: "2024.1", ProfessorSignature: "prof-signature"}
	_, err = svc.CompleteSubject(ctx, operator, st.Index, c.Intro.Index, cs)
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "saving academic tree")
	}
	tree, err := env.Students.GetAcademicTree(ctx, st.Index, "")
	require.NoError(t, err)
	assert.True(t, tree.IsInProgress(c.Intro.Index), "the tree is left untouched")
	minted, err := env.Tokens.ListByStudent(ctx, st.Index)
	require.NoError(t, err)
	require.Len(t, minted, 1)

	repo.fail = false
	res, err := svc.CompleteSubject(ctx, operator, st.Index, c.Intro.Index, cs)
	require.NoError(t, err)
	assert.Equal(t, minted[0].TokenInstanceID, res.NftTokenID, "the token of the failed attempt is reused")
	assert.Equal(t, uint64(4), res.CreditsCompleted)

	tree, err = env.Students.GetAcademicTree(ctx, st.Index, "")
	require.NoError(t, err)
	assert.True(t, tree.HasCompleted(c.Intro.Index))
	minted, err = env.Tokens.ListByStudent(ctx, st.Index)
	require.NoError(t, err)
	assert.Len(t, minted, 1)
}
