package testutil

import (
	"context"
	"testing"

	"github.com/academictoken/registry/core/account"
	"github.com/academictoken/registry/core/course"
	"github.com/academictoken/registry/core/institution"
	"github.com/academictoken/registry/core/student"
	"github.com/academictoken/registry/core/subject"
)

// Catalog is a small authorized institution with one course and two subjects, the second requiring the first.
type Catalog struct {
	Authority account.Account
	Operator  account.Account
	Inst      institution.Institution
	Course    course.Course
	Intro     subject.Subject
	Advanced  subject.Subject
}

func NewCatalog(t *testing.T, env *Env) Catalog {
	t.Helper()
	ctx := context.Background()
	var c Catalog
	var err error

	c.Authority = Authority(t, env)
	c.Operator = Operator(t, env, "operator@uni.test")

	c.Inst, err = env.Institutions.Register(ctx, c.Operator.Actor(), institution.NewInstitution{
		Name: "Federal University", Address: "1 Campus Road",
	})
	if err != nil {
		t.Fatalf("Register(): %v", err)
	}
	c.Inst, err = env.Institutions.Update(ctx, c.Authority.Actor(), c.Inst.Index, institution.UpdateInstitution{
		IsAuthorized: institution.Authorized,
	})
	if err != nil {
		t.Fatalf("Update(): %v", err)
	}
	c.Course, err = env.Courses.Create(ctx, c.Operator.Actor(), course.NewCourse{
		Institution:  c.Inst.Index,
		Name:         "Computer Science",
		Code:         "CS",
		TotalCredits: 240,
		DegreeLevel:  course.LevelUndergraduate,
	})
	if err != nil {
		t.Fatalf("Create(course): %v", err)
	}
	c.Intro = c.NewSubject(t, env, "Intro to Programming", "CS101")
	c.Advanced = c.NewSubject(t, env, "Data Structures", "CS201", subject.NewPrerequisiteGroup{
		GroupType: subject.GroupAll, SubjectIDs: []string{c.Intro.Index},
	})
	return c
}

// NewSubject adds a required 4 credit subject to the catalog course.
func (c Catalog) NewSubject(t *testing.T, env *Env, title, code string, groups ...subject.NewPrerequisiteGroup) subject.Subject {
	t.Helper()
	s, err := env.Subjects.Create(context.Background(), c.Operator.Actor(), subject.NewSubject{
		Institution:        c.Inst.Index,
		CourseID:           c.Course.Index,
		Title:              title,
		Code:               code,
		WorkloadHours:      60,
		Credits:            4,
		SubjectType:        subject.TypeRequired,
		PrerequisiteGroups: groups,
	})
	if err != nil {
		t.Fatalf("Create(subject): %v", err)
	}
	return s
}

// Enroll registers a student with an account of its own and enrolls it in the catalog course.
func (c Catalog) Enroll(t *testing.T, env *Env, email string) (student.Student, account.Account) {
	t.Helper()
	ctx := context.Background()
	acc := StudentAccount(t, env, email)
	st, err := env.Students.Register(ctx, c.Operator.Actor(), student.NewStudent{
		Name: acc.Name, Address: acc.Address, Email: acc.Email,
	})
	if err != nil {
		t.Fatalf("Register(student): %v", err)
	}
	if _, err = env.Students.CreateEnrollment(ctx, c.Operator.Actor(), student.NewEnrollment{
		StudentID: st.Index, InstitutionID: c.Inst.Index, CourseID: c.Course.Index,
	}); err != nil {
		t.Fatalf("CreateEnrollment(): %v", err)
	}
	return st, acc
}

// Pass takes a subject and completes it with the given grade.
func (c Catalog) Pass(t *testing.T, env *Env, studentID, subjectID string, grade float64) student.CompletionResult {
	t.Helper()
	ctx := context.Background()
	if _, err := env.Students.RequestSubjectEnrollment(ctx, c.Operator.Actor(), studentID, subjectID); err != nil {
		t.Fatalf("RequestSubjectEnrollment(): %v", err)
	}
	res, err := env.Students.CompleteSubject(ctx, c.Operator.Actor(), studentID, subjectID, student.CompleteSubject{
		Grade:              grade,
		CompletionDate:     "2024-06-30",
		Semester:           "2024.1",
		ProfessorSignature: "prof-signature",
	})
	if err != nil {
		t.Fatalf("CompleteSubject(): %v", err)
	}
	return res
}
