package records

import (
	"context"

	"github.com/academictoken/registry/core/student"
)

type studentRepository struct {
	students    collection[student.Student]
	enrollments collection[student.Enrollment]
	trees       collection[student.AcademicTree]
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(store Store) student.Repository {
	return &studentRepository{
		students:    newCollection[student.Student](store, kindStudent, "student", student.ErrNotFound),
		enrollments: newCollection[student.Enrollment](store, kindEnrollment, "enrollment", student.ErrEnrollmentNotFound),
		trees:       newCollection[student.AcademicTree](store, kindAcademicTree, "tree", student.ErrTreeNotFound),
	}
}

func (repo *studentRepository) NextStudentIndex(ctx context.Context) (string, error) {
	return repo.students.nextIndex(ctx)
}

func (repo *studentRepository) CreateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	return repo.students.insert(ctx, st.Index, "", st)
}

func (repo *studentRepository) GetStudent(ctx context.Context, index string) (student.Student, error) {
	return repo.students.get(ctx, index)
}

func (repo *studentRepository) QueryStudents(ctx context.Context) ([]student.Student, error) {
	return repo.students.list(ctx, "")
}

func (repo *studentRepository) NextEnrollmentIndex(ctx context.Context) (string, error) {
	return repo.enrollments.nextIndex(ctx)
}

func (repo *studentRepository) CreateEnrollment(ctx context.Context, e student.Enrollment) (student.Enrollment, error) {
	return repo.enrollments.insert(ctx, e.Index, e.StudentID, e)
}

func (repo *studentRepository) GetEnrollment(ctx context.Context, index string) (student.Enrollment, error) {
	return repo.enrollments.get(ctx, index)
}

func (repo *studentRepository) QueryEnrollments(ctx context.Context, studentID string) ([]student.Enrollment, error) {
	return repo.enrollments.list(ctx, studentID)
}

func (repo *studentRepository) UpdateEnrollment(ctx context.Context, e student.Enrollment) (student.Enrollment, error) {
	return repo.enrollments.put(ctx, e.Index, e.StudentID, e)
}

func (repo *studentRepository) NextTreeIndex(ctx context.Context) (string, error) {
	return repo.trees.nextIndex(ctx)
}

func (repo *studentRepository) CreateTree(ctx context.Context, t student.AcademicTree) (student.AcademicTree, error) {
	return repo.trees.insert(ctx, t.Index, t.StudentID, t)
}

func (repo *studentRepository) GetTree(ctx context.Context, index string) (student.AcademicTree, error) {
	return repo.trees.get(ctx, index)
}

func (repo *studentRepository) QueryTrees(ctx context.Context, studentID string) ([]student.AcademicTree, error) {
	return repo.trees.list(ctx, studentID)
}

func (repo *studentRepository) UpdateTree(ctx context.Context, t student.AcademicTree) (student.AcademicTree, error) {
	return repo.trees.put(ctx, t.Index, t.StudentID, t)
}
