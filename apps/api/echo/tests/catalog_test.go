package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/academictoken/registry/apps/api/echo"
	"github.com/academictoken/registry/core/course"
	"github.com/academictoken/registry/core/institution"
	"github.com/academictoken/registry/core/subject"
	"github.com/academictoken/registry/tests"
)

func Test_institutionApi(t *testing.T) {
	app, env := setup(t)
	c := testutil.NewCatalog(t, env)

	operatorToken := getToken(t, c.Operator, env.Conf)
	other := getToken(t, testutil.Operator(t, env, "other@uni.test"), env.Conf)
	notFound := marchallObj(t, httpErr{Error: "institution not found"})

	runHttpTests(t, app, []httpTest{
		{name: "Public list", path: "/v1/institutions", wantData: marchallList(t, c.Inst)},
		{name: "search (unknown)", path: "/v1/institutions?search=lol", wantData: marchallList(t)},
		{name: "search", path: "/v1/institutions?search=federal", wantData: marchallList(t, c.Inst)},
		{name: "Public detail", path: "/v1/institutions/" + c.Inst.Index, wantData: marchallObj(t, c.Inst)},
		{name: "Unknown institution", path: "/v1/institutions/lol", wantCode: http.StatusNotFound, wantData: notFound},
		{name: "Courses", path: "/v1/institutions/" + c.Inst.Index + "/courses", wantData: marchallList(t, c.Course)},
		{
			name: "Writes need a token", method: http.MethodPost, path: "/v1/institutions",
			body: marchallObj(t, institution.NewInstitution{Name: "Other", Address: "2 Road"}),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Invalid institution", method: http.MethodPost, path: "/v1/institutions", token: operatorToken,
			body: marchallObj(t, institution.NewInstitution{}), wantCode: http.StatusBadRequest,
		},
		{
			name: "Duplicated name", method: http.MethodPost, path: "/v1/institutions", token: operatorToken,
			body: marchallObj(t, institution.NewInstitution{Name: c.Inst.Name, Address: "elsewhere"}), wantCode: http.StatusBadRequest,
		},
		{
			name: "Registered", method: http.MethodPost, path: "/v1/institutions", token: operatorToken,
			body: marchallObj(t, institution.NewInstitution{Name: "State College", Address: "9 Hill"}), wantCode: http.StatusCreated,
		},
		{
			name: "Only the creator updates", method: http.MethodPut, path: "/v1/institutions/" + c.Inst.Index, token: other,
			body: []byte(`{"name": "Hijacked"}`), wantCode: http.StatusForbidden,
		},
		{
			name: "Only the authority authorizes", method: http.MethodPut, path: "/v1/institutions/" + c.Inst.Index, token: operatorToken,
			body: []byte(`{"is_authorized": "false"}`), wantCode: http.StatusForbidden,
		},
		{
			name: "Updated", method: http.MethodPut, path: "/v1/institutions/" + c.Inst.Index, token: operatorToken,
			body: []byte(`{"name": "Federal University of Science"}`),
		},
	})

	rec := httpGet(t, app, "/v1/institutions?ordering=name", "")
	var insts []institution.Institution
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &insts))
	if assert.Len(t, insts, 2) {
		assert.Equal(t, "Federal University of Science", insts[0].Name)
		assert.Equal(t, "State College", insts[1].Name)
		assert.False(t, insts[1].Authorized(), "new institutions wait for the authority")
	}
}

func Test_courseApi(t *testing.T) {
	app, env := setup(t)
	c := testutil.NewCatalog(t, env)
	operatorToken := getToken(t, c.Operator, env.Conf)

	newCourse := func(inst, code string) []byte {
		return marchallObj(t, course.NewCourse{
			Institution: inst, Name: "Mathematics", Code: code, TotalCredits: 180, DegreeLevel: course.LevelUndergraduate,
		})
	}

	runHttpTests(t, app, []httpTest{
		{name: "List", path: "/v1/courses", wantData: marchallList(t, c.Course)},
		{name: "Filter by institution", path: "/v1/courses?institution=lol", wantData: marchallList(t)},
		{name: "Detail", path: "/v1/courses/" + c.Course.Index, wantData: marchallObj(t, c.Course)},
		{name: "Subjects", path: "/v1/courses/" + c.Course.Index + "/subjects?ordering=code", wantData: marchallList(t, c.Intro, c.Advanced)},
		{
			name: "Unknown institution", method: http.MethodPost, path: "/v1/courses", token: operatorToken,
			body: newCourse("lol", "MATH"), wantCode: http.StatusNotFound,
		},
		{
			name: "Duplicated code", method: http.MethodPost, path: "/v1/courses", token: operatorToken,
			body: newCourse(c.Inst.Index, "cs"), wantCode: http.StatusBadRequest,
		},
		{
			name: "Unknown degree level", method: http.MethodPost, path: "/v1/courses", token: operatorToken,
			body: []byte(`{"institution": "` + c.Inst.Index + `", "name": "X", "code": "X", "total_credits": 1, "degree_level": "lol"}`),
			wantCode: http.StatusBadRequest,
		},
		{name: "Created", method: http.MethodPost, path: "/v1/courses", token: operatorToken, body: newCourse(c.Inst.Index, "MATH"), wantCode: http.StatusCreated},
	})
}

func Test_subjectApi_prerequisites(t *testing.T) {
	app, env := setup(t)
	c := testutil.NewCatalog(t, env)

	check := func(completed ...subject.CompletedSubject) []byte {
		return marchallObj(t, CheckPrerequisitesRequest{Completed: completed})
	}
	checkPath := "/v1/subjects/" + c.Advanced.Index + "/prerequisites/check"

	runHttpTests(t, app, []httpTest{
		{name: "Detail", path: "/v1/subjects/" + c.Intro.Index, wantData: marchallObj(t, c.Intro)},
		{
			name: "Prerequisites", path: "/v1/subjects/" + c.Advanced.Index + "/prerequisites",
			wantData: marchallObj(t, subject.SubjectWithPrerequisites{Subject: c.Advanced, Prerequisites: []subject.Subject{c.Intro}}),
		},
		{
			name: "No prerequisite", method: http.MethodPost, path: "/v1/subjects/" + c.Intro.Index + "/prerequisites/check",
			body: check(),
			wantData: marchallObj(t, subject.CheckResult{
				CanEnroll:            true,
				MissingPrerequisites: []string{},
				SatisfiedGroups:      []string{},
				UnsatisfiedGroups:    []string{},
				Details:              "No prerequisites required",
			}),
		},
		{
			name: "Missing prerequisite", method: http.MethodPost, path: checkPath, body: check(),
			wantData: marchallObj(t, subject.Evaluate(c.Advanced.PrerequisiteGroups, nil)),
		},
		{
			name: "Satisfied", method: http.MethodPost, path: checkPath,
			body: check(subject.CompletedSubject{SubjectID: c.Intro.Index, Credits: c.Intro.Credits}),
			wantData: marchallObj(t, subject.Evaluate(c.Advanced.PrerequisiteGroups, []subject.CompletedSubject{
				{SubjectID: c.Intro.Index, Credits: c.Intro.Credits},
			})),
		},
		{
			name: "Unknown subject", method: http.MethodPost, path: "/v1/subjects/lol/prerequisites/check", body: check(),
			wantCode: http.StatusNotFound,
		},
		{
			name: "Self prerequisite", method: http.MethodPost, path: "/v1/subjects/" + c.Intro.Index + "/prerequisites",
			token: getToken(t, c.Operator, env.Conf), wantCode: http.StatusBadRequest,
			body: marchallObj(t, subject.NewPrerequisiteGroup{GroupType: subject.GroupAll, SubjectIDs: []string{c.Intro.Index}}),
		},
	})

	res := subject.Evaluate(c.Advanced.PrerequisiteGroups, nil)
	assert.False(t, res.CanEnroll)
	assert.Equal(t, []string{c.Intro.Index}, res.MissingPrerequisites)
}

func Test_subjectApi_importSyllabus(t *testing.T) {
	app, env := setup(t)
	c := testutil.NewCatalog(t, env)

	text := `CS101 - Intro to Programming
Credits: 4
Workload: 60 hours

Objectives:
- Write simple programs
- Understand control flow

Content:
Unit 1: Variables (20h)
- Types
- Expressions
Unit 2: Control flow (40h)
- Loops

Bibliography:
1. Kernighan, B. The C Programming Language.
`

	req, rec := newAuthRequest(
		http.MethodPost, "/v1/subjects/"+c.Intro.Index+"/syllabus", getToken(t, c.Operator, env.Conf),
		marchallObj(t, SyllabusRequest{Text: text}),
	)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp SyllabusImportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Subject.Content)
	assert.NotEmpty(t, resp.Subject.ContentHash)
	assert.Equal(t, resp.Document.Objectives, resp.Subject.Content.Objectives)

	stored, err := env.Subjects.Get(req.Context(), c.Intro.Index)
	require.NoError(t, err)
	assert.Equal(t, resp.Subject.ContentHash, stored.ContentHash)
}

func Test_curriculumApi(t *testing.T) {
	app, env := setup(t)
	c := testutil.NewCatalog(t, env)
	operatorToken := getToken(t, c.Operator, env.Conf)

	body := []byte(`{"course_id": "` + c.Course.Index + `", "version": "2024", "elective_min": 1, "total_workload_hours": 120,
		"required_subjects": ["` + c.Intro.Index + `", "` + c.Advanced.Index + `"]}`)
	req, rec := newAuthRequest(http.MethodPost, "/v1/curricula", operatorToken, body)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var tree map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tree))
	idx, _ := tree["index"].(string)
	require.NotEmpty(t, idx)

	runHttpTests(t, app, []httpTest{
		{name: "Detail", path: "/v1/curricula/" + idx},
		{name: "By course", path: "/v1/curricula?course=" + c.Course.Index},
		{name: "Unknown", path: "/v1/curricula/lol", wantCode: http.StatusNotFound},
		{
			name: "Duplicated version", method: http.MethodPost, path: "/v1/curricula", token: operatorToken,
			body: body, wantCode: http.StatusBadRequest,
		},
		{
			name: "Unknown subject", method: http.MethodPost, path: "/v1/curricula", token: operatorToken,
			body: []byte(`{"course_id": "` + c.Course.Index + `", "version": "2025", "elective_min": 1, "total_workload_hours": 120,
				"required_subjects": ["lol"]}`),
			wantCode: http.StatusBadRequest,
		},
	})
}
