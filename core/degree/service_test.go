package degree_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/course"
	"github.com/academictoken/registry/core/curriculum"
	"github.com/academictoken/registry/core/degree"
	"github.com/academictoken/registry/core/institution"
	"github.com/academictoken/registry/core/student"
	"github.com/academictoken/registry/tests"
)

type fixture struct {
	env *testutil.Env
	c   testutil.Catalog
	cur curriculum.Tree
}

// newFixture returns a catalog whose curriculum requires both subjects, 8 credits and a 7.0 GPA.
func newFixture(t *testing.T) fixture {
	env := testutil.NewEnv(t)
	c := testutil.NewCatalog(t, env)
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
	return fixture{env: env, c: c, cur: cur}
}

func (f fixture) request(t *testing.T, studentID string) degree.DegreeRequest {
	r, err := f.env.Degrees.RequestDegree(context.Background(), f.c.Operator.Actor(), degree.NewDegreeRequest{
		StudentID:              studentID,
		InstitutionID:          f.c.Inst.Index,
		CurriculumID:           f.cur.Index,
		ExpectedGraduationDate: "2025-12-15",
	})
	require.NoError(t, err)
	return r
}

func TestService_RequestDegree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st, _ := f.c.Enroll(t, f.env, "hero@test.cd")

	other, err := f.env.Institutions.Register(ctx, f.c.Operator.Actor(), institution.NewInstitution{
		Name: "State College", Address: "2 Campus Road",
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		actor   core.Actor
		nr      degree.NewDegreeRequest
		wantErr string
	}{
		{
			name:    "no creator",
			nr:      degree.NewDegreeRequest{StudentID: st.Index, InstitutionID: f.c.Inst.Index, CurriculumID: f.cur.Index, ExpectedGraduationDate: "2025-12-15"},
			wantErr: "creator is required",
		},
		{
			name:    "bad date",
			actor:   f.c.Operator.Actor(),
			nr:      degree.NewDegreeRequest{StudentID: st.Index, InstitutionID: f.c.Inst.Index, CurriculumID: f.cur.Index, ExpectedGraduationDate: "15/12/2025"},
			wantErr: "ExpectedGraduationDate",
		},
		{
			name:    "unknown student",
			actor:   f.c.Operator.Actor(),
			nr:      degree.NewDegreeRequest{StudentID: "lol", InstitutionID: f.c.Inst.Index, CurriculumID: f.cur.Index, ExpectedGraduationDate: "2025-12-15"},
			wantErr: "student not found",
		},
		{
			name:    "curriculum of another institution",
			actor:   f.c.Operator.Actor(),
			nr:      degree.NewDegreeRequest{StudentID: st.Index, InstitutionID: other.Index, CurriculumID: f.cur.Index, ExpectedGraduationDate: "2025-12-15"},
			wantErr: "curriculum course does not belong to the institution",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.env.Degrees.RequestDegree(ctx, tt.actor, tt.nr)
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}

	r := f.request(t, st.Index)
	assert.Equal(t, degree.RequestPending, r.Status)
	assert.Equal(t, f.c.Operator.Address, r.Creator)
	assert.Nil(t, r.Validation)

	_, err = f.env.Degrees.RequestDegree(ctx, f.c.Operator.Actor(), degree.NewDegreeRequest{
		StudentID: st.Index, InstitutionID: f.c.Inst.Index, CurriculumID: f.cur.Index, ExpectedGraduationDate: "2026-06-30",
	})
	assert.Equal(t, degree.ErrRequestExists, err)

	pending, err := f.env.Degrees.ListRequests(ctx, "PENDING")
	require.NoError(t, err)
	assert.Equal(t, []degree.DegreeRequest{r}, pending)
}

func TestService_lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	operator, authority := f.c.Operator.Actor(), f.c.Authority.Actor()
	st, acc := f.c.Enroll(t, f.env, "hero@test.cd")

	f.c.Pass(t, f.env, st.Index, f.c.Intro.Index, 90)
	r := f.request(t, st.Index)

	// half of the requirements are met
	v, err := f.env.Degrees.ValidateRequirements(ctx, operator, r.Index)
	require.NoError(t, err)
	assert.False(t, v.Passed)
	assert.Equal(t, "50", v.Score)
	assert.Equal(t, []string{"GPA 9.00 of minimum 7.00", "required subject " + f.c.Intro.Index}, v.RequirementsMet)
	assert.Equal(t, []string{"credits 4 of 8", "required subject " + f.c.Advanced.Index}, v.MissingRequirements)
	assert.True(t, strings.HasPrefix(v.Details, "Missing: credits 4 of 8"))
	assert.Len(t, v.ValidationHash, 64)

	r, err = f.env.Degrees.GetRequest(ctx, r.Index)
	require.NoError(t, err)
	assert.Equal(t, degree.RequestValidationFailed, r.Status)

	_, err = f.env.Degrees.Issue(ctx, operator, r.Index, degree.IssueDegree{FinalGPA: 8.5, TotalCredits: 8, Signatures: []string{"rector"}})
	assert.EqualError(t, err, "the degree request must be validated first")

	// a failed validation may be run again once the student catches up
	f.c.Pass(t, f.env, st.Index, f.c.Advanced.Index, 80)
	v, err = f.env.Degrees.ValidateRequirements(ctx, operator, r.Index)
	require.NoError(t, err)
	assert.True(t, v.Passed)
	assert.Equal(t, "100", v.Score)
	assert.Equal(t, "All graduation requirements met", v.Details)
	assert.Empty(t, v.MissingRequirements)

	tree, err := f.env.Students.GetAcademicTree(ctx, st.Index, f.c.Course.Index)
	require.NoError(t, err)
	assert.Equal(t, student.GraduationEligible, tree.GraduationStatus)

	t.Run("issue", func(t *testing.T) {
		_, err := f.env.Degrees.Issue(ctx, acc.Actor(), r.Index, degree.IssueDegree{FinalGPA: 8.5, TotalCredits: 8, Signatures: []string{"rector"}})
		assert.True(t, core.IsPermissionDenied(err))

		invalid := []degree.IssueDegree{
			{FinalGPA: 11, TotalCredits: 8, Signatures: []string{"rector"}},
			{FinalGPA: 8.5, Signatures: []string{"rector"}},
			{FinalGPA: 8.5, TotalCredits: 8},
		}
		for _, id := range invalid {
			_, err = f.env.Degrees.Issue(ctx, operator, r.Index, id)
			assert.Error(t, err, "%+v", id)
		}

		d, err := f.env.Degrees.Issue(ctx, operator, r.Index, degree.IssueDegree{
			FinalGPA: 8.5, TotalCredits: 8, Signatures: []string{" rector ", "dean"},
		})
		require.NoError(t, err)
		assert.Equal(t, degree.StatusIssued, d.Status)
		assert.Equal(t, course.LevelUndergraduate, d.DegreeType)
		assert.Equal(t, []string{"rector", "dean"}, d.Signatures)
		assert.Equal(t, f.c.Course.Index, d.CourseID)
		assert.Equal(t, "degree-nft-"+d.ContentHash[:16], d.NftTokenID)

		r, err := f.env.Degrees.GetRequest(ctx, r.Index)
		require.NoError(t, err)
		assert.Equal(t, degree.RequestApproved, r.Status)

		tree, err := f.env.Students.GetAcademicTree(ctx, st.Index, f.c.Course.Index)
		require.NoError(t, err)
		assert.Equal(t, student.GraduationGraduated, tree.GraduationStatus)

		f.env.Mail.Wait()
		sent := f.env.Mail.SentMessages()
		if assert.Len(t, sent, 1) {
			assert.Equal(t, core.TmplDegreeIssued, sent[0].TemplateName)
			assert.Equal(t, "hero@test.cd", sent[0].To[0].Address)
		}

		_, err = f.env.Degrees.Issue(ctx, operator, r.Index, degree.IssueDegree{FinalGPA: 8.5, TotalCredits: 8, Signatures: []string{"rector"}})
		assert.EqualError(t, err, "the degree request must be validated first")
		_, err = f.env.Degrees.RequestDegree(ctx, operator, degree.NewDegreeRequest{
			StudentID: st.Index, InstitutionID: f.c.Inst.Index, CurriculumID: f.cur.Index, ExpectedGraduationDate: "2026-06-30",
		})
		assert.Equal(t, degree.ErrRequestExists, err, "an approved request stays open")

		byStudent, err := f.env.Degrees.ListByStudent(ctx, st.Index)
		require.NoError(t, err)
		byInstitution, err := f.env.Degrees.ListByInstitution(ctx, f.c.Inst.Index)
		require.NoError(t, err)
		assert.Equal(t, []degree.Degree{d}, byStudent)
		assert.Equal(t, byStudent, byInstitution)
	})

	degrees, err := f.env.Degrees.ListByStudent(ctx, st.Index)
	require.NoError(t, err)
	require.Len(t, degrees, 1)
	index := degrees[0].Index

	t.Run("verify and status changes", func(t *testing.T) {
		verify := func(wantReason string) {
			t.Helper()
			res, err := f.env.Degrees.Verify(ctx, index)
			require.NoError(t, err)
			assert.Equal(t, wantReason == "", res.IsValid)
			assert.Equal(t, wantReason, res.Reason)
		}
		verify("")

		res, err := f.env.Degrees.Verify(ctx, "lol")
		require.NoError(t, err)
		assert.Equal(t, degree.VerifyResult{Index: "lol", Reason: "degree not found"}, res)

		_, err = f.env.Degrees.Suspend(ctx, operator, index, degree.StatusChange{Reason: "audit"})
		assert.True(t, core.IsPermissionDenied(err))
		_, err = f.env.Degrees.Suspend(ctx, authority, index, degree.StatusChange{Reason: "  "})
		assert.Error(t, err, "a reason is required")

		d, err := f.env.Degrees.Suspend(ctx, authority, index, degree.StatusChange{Reason: "audit"})
		require.NoError(t, err)
		assert.Equal(t, degree.StatusSuspended, d.Status)
		assert.Equal(t, "audit", d.StatusReason)
		verify("degree suspended")

		_, err = f.env.Degrees.Suspend(ctx, authority, index, degree.StatusChange{Reason: "audit"})
		assert.EqualError(t, err, "only issued degrees can be suspended")

		d, err = f.env.Degrees.Revoke(ctx, authority, index, degree.StatusChange{Reason: "fraud"})
		require.NoError(t, err)
		assert.Equal(t, degree.StatusRevoked, d.Status)
		verify("degree revoked")

		_, err = f.env.Degrees.Revoke(ctx, authority, index, degree.StatusChange{Reason: "fraud"})
		assert.EqualError(t, err, "the degree is already revoked")
		_, err = f.env.Degrees.Revoke(ctx, authority, "lol", degree.StatusChange{Reason: "fraud"})
		assert.True(t, core.IsNotFound(err))
	})
}

func TestService_Issue_requirementsChanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	operator := f.c.Operator.Actor()
	st, _ := f.c.Enroll(t, f.env, "hero@test.cd")
	f.c.Pass(t, f.env, st.Index, f.c.Intro.Index, 90)
	f.c.Pass(t, f.env, st.Index, f.c.Advanced.Index, 80)

	r := f.request(t, st.Index)
	v, err := f.env.Degrees.ValidateRequirements(ctx, operator, r.Index)
	require.NoError(t, err)
	require.True(t, v.Passed)

	setMinGPA := func(gpa float64) {
		_, err := f.env.Curricula.SetGraduationRequirements(ctx, operator, f.cur.Index, curriculum.GraduationRequirements{
			TotalCreditsRequired: 8,
			MinGPA:               gpa,
		})
		require.NoError(t, err)
	}
	setMinGPA(9.5)

	issue := degree.IssueDegree{FinalGPA: 8.5, TotalCredits: 8, Signatures: []string{"rector"}}
	_, err = f.env.Degrees.Issue(ctx, operator, r.Index, issue)
	assert.EqualError(t, err, "graduation requirements are no longer met")

	r, err = f.env.Degrees.GetRequest(ctx, r.Index)
	require.NoError(t, err)
	assert.Equal(t, degree.RequestValidationFailed, r.Status)
	if assert.NotNil(t, r.Validation) {
		assert.Equal(t, []string{"GPA 8.50 of minimum 9.50"}, r.Validation.MissingRequirements)
	}
	degrees, err := f.env.Degrees.ListByStudent(ctx, st.Index)
	require.NoError(t, err)
	assert.Empty(t, degrees)

	setMinGPA(7)
	_, err = f.env.Degrees.ValidateRequirements(ctx, operator, r.Index)
	require.NoError(t, err)
	d, err := f.env.Degrees.Issue(ctx, operator, r.Index, issue)
	require.NoError(t, err)
	assert.Equal(t, degree.StatusIssued, d.Status)
}

func TestService_CancelRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st, acc := f.c.Enroll(t, f.env, "hero@test.cd")
	r := f.request(t, st.Index)

	_, err := f.env.Degrees.CancelRequest(ctx, acc.Actor(), r.Index)
	assert.True(t, core.IsPermissionDenied(err), "only the creator or the authority may cancel")

	r, err = f.env.Degrees.CancelRequest(ctx, f.c.Operator.Actor(), r.Index)
	require.NoError(t, err)
	assert.Equal(t, degree.RequestCancelled, r.Status)

	_, err = f.env.Degrees.CancelRequest(ctx, f.c.Authority.Actor(), r.Index)
	assert.EqualError(t, err, "the degree request can no longer be cancelled")
	_, err = f.env.Degrees.ValidateRequirements(ctx, f.c.Operator.Actor(), r.Index)
	assert.EqualError(t, err, "the degree request can no longer be validated")

	// a cancelled request does not block a new one
	again := f.request(t, st.Index)
	assert.NotEqual(t, r.Index, again.Index)

	// no academic tree yet: the only requirement reported is the missing record
	v, err := f.env.Degrees.ValidateRequirements(ctx, f.c.Operator.Actor(), again.Index)
	require.NoError(t, err)
	assert.Equal(t, "0", v.Score)
	assert.Equal(t, []string{"academic record for course " + f.c.Course.Index}, v.MissingRequirements)

	_, err = f.env.Degrees.CancelRequest(ctx, f.c.Operator.Actor(), "lol")
	assert.True(t, core.IsNotFound(err))
}
