package equivalence_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/course"
	"github.com/academictoken/registry/core/equivalence"
	"github.com/academictoken/registry/core/equivalence/similarity"
	"github.com/academictoken/registry/core/institution"
	"github.com/academictoken/registry/core/subject"
	"github.com/academictoken/registry/storage/records"
	"github.com/academictoken/registry/tests"
)

type fixture struct {
	env     *testutil.Env
	c       testutil.Catalog
	other   institution.Institution
	source  subject.Subject
	twin    subject.Subject // same metadata as source
	heavy   subject.Subject // more credits and hours
	distant subject.Subject // heavier, another level and department
}

func newFixture(t *testing.T) fixture {
	env := testutil.NewEnv(t)
	c := testutil.NewCatalog(t, env)
	ctx := context.Background()
	operator := c.Operator.Actor()

	other, err := env.Institutions.Register(ctx, operator, institution.NewInstitution{Name: "State College", Address: "2 Campus Road"})
	require.NoError(t, err)
	other, err = env.Institutions.Update(ctx, c.Authority.Actor(), other.Index, institution.UpdateInstitution{
		IsAuthorized: institution.Authorized,
	})
	require.NoError(t, err)
	crs, err := env.Courses.Create(ctx, operator, course.NewCourse{
		Institution: other.Index, Name: "Informatics", Code: "INF", TotalCredits: 200, DegreeLevel: course.LevelUndergraduate,
	})
	require.NoError(t, err)

	newSubject := func(institutionID, courseID, code string, credits, hours uint64, level, dept string) subject.Subject {
		s, err := env.Subjects.Create(ctx, operator, subject.NewSubject{
			Institution:   institutionID,
			CourseID:      courseID,
			Title:         "Algorithms " + code,
			Code:          code,
			WorkloadHours: hours,
			Credits:       credits,
			SubjectType:   subject.TypeRequired,
			Content:       &subject.Content{Level: level, Department: dept},
		})
		require.NoError(t, err)
		return s
	}
	return fixture{
		env:     env,
		c:       c,
		other:   other,
		source:  newSubject(c.Inst.Index, c.Course.Index, "CS301", 4, 60, "undergraduate", "Computing"),
		twin:    newSubject(other.Index, crs.Index, "INF301", 4, 60, "Undergraduate", "computing"),
		heavy:   newSubject(other.Index, crs.Index, "INF302", 10, 200, "undergraduate", "Computing"),
		distant: newSubject(other.Index, crs.Index, "ART101", 10, 200, "graduate", "Arts"),
	}
}

func (f fixture) pair(target subject.Subject) equivalence.NewEquivalence {
	return equivalence.NewEquivalence{
		SourceSubjectID: f.source.Index, TargetInstitution: f.other.Index, TargetSubjectID: target.Index,
	}
}

func TestService_Request(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	operator := f.c.Operator.Actor()

	tests := []struct {
		name    string
		actor   core.Actor
		ne      equivalence.NewEquivalence
		wantErr string
	}{
		{name: "no creator", ne: f.pair(f.twin), wantErr: "creator is required"},
		{
			name:    "same subject",
			actor:   operator,
			ne:      equivalence.NewEquivalence{SourceSubjectID: f.source.Index, TargetInstitution: f.c.Inst.Index, TargetSubjectID: f.source.Index},
			wantErr: "TargetSubjectID",
		},
		{
			name:    "target of another institution",
			actor:   operator,
			ne:      equivalence.NewEquivalence{SourceSubjectID: f.source.Index, TargetInstitution: f.c.Inst.Index, TargetSubjectID: f.twin.Index},
			wantErr: "target subject does not belong to the target institution",
		},
		{
			name:    "unknown student",
			actor:   operator,
			ne:      equivalence.NewEquivalence{SourceSubjectID: f.source.Index, TargetInstitution: f.other.Index, TargetSubjectID: f.twin.Index, StudentID: "lol"},
			wantErr: "student not found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.env.Equivalences.Request(ctx, tt.actor, tt.ne)
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}

	ne := f.pair(f.twin)
	ne.Reason = "  transfer "
	e, err := f.env.Equivalences.Request(ctx, operator, ne)
	require.NoError(t, err)
	assert.Equal(t, equivalence.StatusPending, e.Status)
	assert.Equal(t, "transfer", e.Reason)
	assert.Equal(t, f.source.ContentHash, e.SourceContentHash)
	assert.Equal(t, f.twin.ContentHash, e.TargetContentHash)
	assert.Zero(t, e.AnalysisCount)

	_, err = f.env.Equivalences.Request(ctx, operator, f.pair(f.twin))
	assert.Equal(t, equivalence.ErrDuplicate, err)

	res, err := f.env.Equivalences.VerifyIntegrity(ctx, e.Index)
	require.NoError(t, err)
	assert.True(t, res.Valid, "nothing analyzed yet")
}

func TestService_Analyze(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st, acc := f.c.Enroll(t, f.env, "hero@test.cd")

	ne := f.pair(f.twin)
	ne.StudentID = st.Index
	e, err := f.env.Equivalences.Request(ctx, acc.Actor(), ne)
	require.NoError(t, err)

	_, err = f.env.Equivalences.Analyze(ctx, acc.Actor(), e.Index, equivalence.Analyze{Method: similarity.MethodManual})
	assert.True(t, core.IsPermissionDenied(err), "manual analysis is for operators")
	_, err = f.env.Equivalences.Analyze(ctx, acc.Actor(), e.Index, equivalence.Analyze{Method: "lol"})
	assert.Error(t, err)
	_, err = f.env.Equivalences.Analyze(ctx, acc.Actor(), "lol", equivalence.Analyze{})
	assert.True(t, core.IsNotFound(err))

	e, err = f.env.Equivalences.Analyze(ctx, acc.Actor(), e.Index, equivalence.Analyze{})
	require.NoError(t, err)
	assert.Equal(t, equivalence.StatusApproved, e.Status)
	assert.Equal(t, similarity.TypeFull, e.EquivalenceType)
	assert.Equal(t, 100, e.SimilarityScore)
	assert.Equal(t, 100, e.Confidence)
	assert.Equal(t, similarity.MethodAutomatic, e.AnalysisMethod)
	assert.Equal(t, uint64(1), e.AnalysisCount)
	assert.NotNil(t, e.AnalyzedAt)
	if assert.NotNil(t, e.AnalysisDetails) {
		assert.False(t, e.AnalysisDetails.UsedContent)
	}

	f.env.Mail.Wait()
	sent := f.env.Mail.SentMessages()
	if assert.Len(t, sent, 1) {
		assert.Equal(t, core.TmplEquivalenceDecided, sent[0].TemplateName)
		assert.Equal(t, "hero@test.cd", sent[0].To[0].Address)
	}

	_, err = f.env.Equivalences.Analyze(ctx, acc.Actor(), e.Index, equivalence.Analyze{})
	assert.EqualError(t, err, "the equivalence was already analyzed; use force to analyze it again")

	again, err := f.env.Equivalences.Reanalyze(ctx, f.c.Operator.Actor(), e.Index, "HYBRID")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), again.AnalysisCount)
	assert.Equal(t, similarity.MethodHybrid, again.AnalysisMethod)
	assert.Equal(t, e.SimilarityScore, again.SimilarityScore)
	assert.NotEqual(t, e.AnalysisHash, again.AnalysisHash)

	t.Run("integrity", func(t *testing.T) {
		res, err := f.env.Equivalences.VerifyIntegrity(ctx, e.Index)
		require.NoError(t, err)
		assert.True(t, res.Valid)
		assert.Equal(t, res.StoredHash, res.CalculatedHash)

		// an edit that bypasses the service no longer matches the analysis hash
		forged := again
		forged.SimilarityScore = 42
		_, err = records.NewEquivalenceRepository(f.env.Store).UpdateEquivalence(ctx, forged)
		require.NoError(t, err)

		res, err = f.env.Equivalences.VerifyIntegrity(ctx, e.Index)
		require.NoError(t, err)
		assert.False(t, res.Valid)
		assert.Equal(t, again.AnalysisHash, res.StoredHash)
		assert.NotEqual(t, res.StoredHash, res.CalculatedHash)
	})
}

func TestService_BatchAndReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	operator, authority := f.c.Operator.Actor(), f.c.Authority.Actor()

	first, err := f.env.Equivalences.Request(ctx, operator, f.pair(f.twin))
	require.NoError(t, err)
	first, err = f.env.Equivalences.Analyze(ctx, operator, first.Index, equivalence.Analyze{})
	require.NoError(t, err)

	_, err = f.env.Equivalences.Batch(ctx, operator, equivalence.NewBatch{})
	assert.Error(t, err, "a batch needs requests")

	resp, err := f.env.Equivalences.Batch(ctx, operator, equivalence.NewBatch{
		Requests: []equivalence.NewEquivalence{f.pair(f.heavy), f.pair(f.distant), f.pair(f.twin)},
		Analyze:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Successful)
	assert.Equal(t, 1, resp.Failed)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, equivalence.StatusUnderReview, resp.Results[0].Status)
	assert.Equal(t, equivalence.StatusRejected, resp.Results[1].Status)
	assert.Equal(t, equivalence.BatchResult{
		SourceSubjectID: f.source.Index,
		TargetSubjectID: f.twin.Index,
		Status:          "failed",
		Error:           "an equivalence request for these subjects is already open",
	}, resp.Results[2])
	heavyID, distantID := resp.Results[0].EquivalenceID, resp.Results[1].EquivalenceID

	heavy, err := f.env.Equivalences.Get(ctx, heavyID)
	require.NoError(t, err)
	assert.Equal(t, 72, heavy.SimilarityScore)
	assert.Equal(t, similarity.TypePartial, heavy.EquivalenceType)
	distant, err := f.env.Equivalences.Get(ctx, distantID)
	require.NoError(t, err)
	assert.Equal(t, 43, distant.SimilarityScore)
	assert.Equal(t, similarity.TypeNone, distant.EquivalenceType)

	// a rejected pair may be requested again
	retry, err := f.env.Equivalences.Request(ctx, operator, f.pair(f.distant))
	require.NoError(t, err)

	t.Run("review", func(t *testing.T) {
		_, err := f.env.Equivalences.Review(ctx, operator, heavyID, equivalence.Review{Status: equivalence.StatusApproved})
		assert.True(t, core.IsPermissionDenied(err))
		_, err = f.env.Equivalences.Review(ctx, authority, heavyID, equivalence.Review{Status: equivalence.StatusUnderReview})
		assert.Error(t, err, "reviews approve or reject")
		_, err = f.env.Equivalences.Review(ctx, authority, retry.Index, equivalence.Review{Status: equivalence.StatusApproved})
		assert.EqualError(t, err, "only analyzed equivalences can be reviewed")

		e, err := f.env.Equivalences.Review(ctx, authority, heavyID, equivalence.Review{Status: " Approved ", Notes: "same syllabus"})
		require.NoError(t, err)
		assert.Equal(t, equivalence.StatusApproved, e.Status)
		assert.Equal(t, authority.Address, e.ReviewedBy)
		assert.Equal(t, "same syllabus", e.ReviewNotes)
	})

	t.Run("lists", func(t *testing.T) {
		ids := func(list []equivalence.SubjectEquivalence, err error) []string {
			require.NoError(t, err)
			out := make([]string, 0, len(list))
			for _, e := range list {
				out = append(out, e.Index)
			}
			return out
		}
		assert.Equal(t, []string{first.Index, heavyID}, ids(f.env.Equivalences.ListByStatus(ctx, "APPROVED")))
		assert.Equal(t, []string{retry.Index}, ids(f.env.Equivalences.ListByStatus(ctx, equivalence.StatusPending)))
		assert.ElementsMatch(t, []string{first.Index, heavyID, distantID, retry.Index}, ids(f.env.Equivalences.ListByStatus(ctx, "")))
		assert.Equal(t, []string{first.Index}, ids(f.env.Equivalences.ListBySubject(ctx, f.twin.Index)))
		assert.Equal(t, []string{distantID, retry.Index}, ids(f.env.Equivalences.ListBySubject(ctx, f.distant.Index)))
		assert.Empty(t, ids(f.env.Equivalences.ListByStudent(ctx, "lol")))

		_, err := f.env.Equivalences.ListByStatus(ctx, "lol")
		assert.EqualError(t, err, "unknown equivalence status")
	})

	stats, err := f.env.Equivalences.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, equivalence.Stats{
		Total:        4,
		ByStatus:     map[string]int{equivalence.StatusApproved: 2, equivalence.StatusRejected: 1, equivalence.StatusPending: 1},
		ByType:       map[string]int{similarity.TypeFull: 1, similarity.TypePartial: 1, similarity.TypeNone: 1},
		AverageScore: 71.66,
	}, stats)
}

// failingResults fails the storing of analysis results while fail is set.
type failingResults struct {
	equivalence.Repository
	fail bool
}

func (r *failingResults) UpdateEquivalence(ctx context.Context, e equivalence.SubjectEquivalence) (equivalence.SubjectEquivalence, error) {
	if r.fail && e.AnalysisCount > 0 {
		return equivalence.SubjectEquivalence{}, errors.New("connection reset")
	}
	return r.Repository.UpdateEquivalence(ctx, e)
}

func TestService_Analyze_restoresOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	operator := f.c.Operator.Actor()

	repo := &failingResults{Repository: records.NewEquivalenceRepository(f.env.Store), fail: true}
	svc := equivalence.NewService(
		repo, f.env.Subjects, f.env.Students, nil, nil, f.env.Ledger, f.env.Conf, f.env.Validate,
	)
	e, err := svc.Request(ctx, operator, f.pair(f.twin))
	require.NoError(t, err)

	_, err = svc.Analyze(ctx, operator, e.Index, equivalence.Analyze{Method: similarity.MethodAutomatic})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "connection reset")
	}
	got, err := svc.Get(ctx, e.Index)
	require.NoError(t, err)
	assert.Equal(t, equivalence.StatusPending, got.Status)
	assert.Zero(t, got.AnalysisCount)

	repo.fail = false
	got, err = svc.Analyze(ctx, operator, e.Index, equivalence.Analyze{Method: similarity.MethodAutomatic})
	require.NoError(t, err, "a restored request is analyzed without force")
	assert.Equal(t, equivalence.StatusApproved, got.Status)
	assert.Equal(t, uint64(1), got.AnalysisCount)
}
