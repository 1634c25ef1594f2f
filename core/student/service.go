package student

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/academicnft"
	"github.com/academictoken/registry/core/course"
	"github.com/academictoken/registry/core/curriculum"
	"github.com/academictoken/registry/core/institution"
	"github.com/academictoken/registry/core/ledger"
	"github.com/academictoken/registry/core/subject"
	"github.com/academictoken/registry/core/tokendef"
)

// Ledger event types
const (
	EventRegistered        = "student.registered"
	EventEnrolled          = "student.enrollment_created"
	EventEnrollmentUpdated = "student.enrollment_status_updated"
	EventSubjectRequested  = "student.subject_requested"
	EventSubjectCompleted  = "student.subject_completed"
	EventTreeUpdated       = "student.academic_tree_updated"
	EventGraduated         = "student.graduated"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("student not found")
	ErrEnrollmentNotFound = core.NewNotFoundError("enrollment not found")
	ErrTreeNotFound       = core.NewNotFoundError("academic tree not found")
	ErrAddressExists      = core.NewFieldError("address", "a student with this address already exists")
	ErrAlreadyEnrolled    = core.NewFieldError("course_id", "the student already has an active or pending enrollment in this course")
	ErrNoUpdates          = core.NewValidationError(errors.New("no valid updates provided"))

	errNotAuthorized     = core.NewFieldError("institution_id", "institution is not authorized")
	errWrongInstitution  = core.NewFieldError("course_id", "course does not belong to the institution")
	errTerminalStatus    = core.NewFieldError("status", "the enrollment is already completed or cancelled")
	errSameStatus        = core.NewFieldError("status", "the enrollment already has this status")
	errNotEnrolled       = core.NewFieldError("subject_id", "the student has no active enrollment in the subject's course")
	errAlreadyCompleted  = core.NewFieldError("subject_id", "subject already completed")
	errAlreadyInProgress = core.NewFieldError("subject_id", "subject already in progress")
	errNotInProgress     = core.NewFieldError("subject_id", "subject is not in progress")
)

type (
	Repository interface {
		NextStudentIndex(ctx context.Context) (string, error)
		CreateStudent(ctx context.Context, st Student) (Student, error)
		GetStudent(ctx context.Context, index string) (Student, error)
		QueryStudents(ctx context.Context) ([]Student, error)

		NextEnrollmentIndex(ctx context.Context) (string, error)
		CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		GetEnrollment(ctx context.Context, index string) (Enrollment, error)
		// QueryEnrollments returns the enrollments of a student, or every enrollment when empty.
		QueryEnrollments(ctx context.Context, studentID string) ([]Enrollment, error)
		UpdateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)

		NextTreeIndex(ctx context.Context) (string, error)
		CreateTree(ctx context.Context, t AcademicTree) (AcademicTree, error)
		GetTree(ctx context.Context, index string) (AcademicTree, error)
		// QueryTrees returns the academic trees of a student, or every tree when empty.
		QueryTrees(ctx context.Context, studentID string) ([]AcademicTree, error)
		UpdateTree(ctx context.Context, t AcademicTree) (AcademicTree, error)
	}

	InstitutionGetter interface {
		Get(ctx context.Context, index string) (institution.Institution, error)
	}

	CourseGetter interface {
		Get(ctx context.Context, index string) (course.Course, error)
	}

	SubjectGetter interface {
		Get(ctx context.Context, index string) (subject.Subject, error)
	}

	CurriculumGetter interface {
		Get(ctx context.Context, index string) (curriculum.Tree, error)
		Query(ctx context.Context, courseID string) ([]curriculum.Tree, error)
	}

	DefinitionGetter interface {
		GetBySubject(ctx context.Context, subjectID string) (tokendef.TokenDefinition, error)
	}

	TokenMinter interface {
		Mint(ctx context.Context, actor core.Actor, nt academicnft.NewToken) (academicnft.SubjectTokenInstance, error)
		ListByStudent(ctx context.Context, studentID string) ([]academicnft.SubjectTokenInstance, error)
	}

	// Dependencies are the services a student operation reads from or writes to.
	Dependencies struct {
		Institutions InstitutionGetter
		Courses      CourseGetter
		Subjects     SubjectGetter
		Curricula    CurriculumGetter
		Definitions  DefinitionGetter
		Tokens       TokenMinter
	}

	Service struct {
		repo     Repository
		deps     Dependencies
		ledger   ledger.Recorder
		conf     *core.Config
		validate *validator.Validate
		mu       sync.Mutex
	}
)

func NewService(
	repo Repository,
	deps Dependencies,
	recorder ledger.Recorder,
	conf *core.Config,
	validate *validator.Validate,
) *Service {
	return &Service{repo: repo, deps: deps, ledger: recorder, conf: conf, validate: validate}
}

func (svc *Service) record(ctx context.Context, typ string, actor core.Actor, ref string, payload interface{}) error {
	_, err := svc.ledger.Record(ctx, ledger.Event{Type: typ, Creator: actor.Address, Ref: ref, Payload: payload})
	return errors.Wrapf(err, "recording %s", typ)
}

// actsFor reports whether actor may act on behalf of st.
func actsFor(actor core.Actor, st Student, operators bool) bool {
	switch {
	case actor.IsAuthority:
		return true
	case operators && actor.IsInstitution:
		return true
	}
	return actor.Address != "" && (actor.Address == st.Address || actor.Address == st.Creator)
}

func (svc *Service) Register(ctx context.Context, actor core.Actor, ns NewStudent) (Student, error) {
	if err := actor.Check(); err != nil {
		return Student{}, err
	}
	ns.Clean()
	if err := svc.validate.Struct(ns); err != nil {
		return Student{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	all, err := svc.repo.QueryStudents(ctx)
	if err != nil {
		return Student{}, errors.Wrap(err, "querying students")
	}
	for _, st := range all {
		if st.Address == ns.Address {
			return Student{}, ErrAddressExists
		}
	}

	index, err := svc.repo.NextStudentIndex(ctx)
	if err != nil {
		return Student{}, err
	}
	now := core.Now()
	st := Student{
		Index:     index,
		Name:      ns.Name,
		Address:   ns.Address,
		Email:     ns.Email,
		Creator:   actor.Address,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if st, err = svc.repo.CreateStudent(ctx, st); err != nil {
		return Student{}, errors.Wrap(err, "creating student")
	}
	if err = svc.record(ctx, EventRegistered, actor, st.Index, map[string]string{"address": st.Address}); err != nil {
		return Student{}, err
	}
	return st, nil
}

func (svc *Service) Get(ctx context.Context, index string) (Student, error) {
	return svc.repo.GetStudent(ctx, core.CleanString(index))
}

// GetByAddress returns the student registered with an account address.
func (svc *Service) GetByAddress(ctx context.Context, address string) (Student, error) {
	address = core.CleanString(address, true /* lower */)
	all, err := svc.repo.QueryStudents(ctx)
	if err != nil {
		return Student{}, err
	}
	for _, st := range all {
		if st.Address == address {
			return st, nil
		}
	}
	return Student{}, errors.WithStack(ErrNotFound)
}

func (svc *Service) Query(ctx context.Context) ([]Student, error) {
	return svc.repo.QueryStudents(ctx)
}

func (svc *Service) Count(ctx context.Context) (int, error) {
	all, err := svc.repo.QueryStudents(ctx)
	return len(all), err
}

func (svc *Service) CreateEnrollment(ctx context.Context, actor core.Actor, ne NewEnrollment) (Enrollment, error) {
	if err := actor.Check(); err != nil {
		return Enrollment{}, err
	}
	ne.Clean()
	if err := svc.validate.Struct(ne); err != nil {
		return Enrollment{}, err
	}
	st, err := svc.repo.GetStudent(ctx, ne.StudentID)
	if err != nil {
		return Enrollment{}, err
	}
	inst, err := svc.deps.Institutions.Get(ctx, ne.InstitutionID)
	if err != nil {
		return Enrollment{}, err
	}
	if !inst.Authorized() {
		return Enrollment{}, errNotAuthorized
	}
	crs, err := svc.deps.Courses.Get(ctx, ne.CourseID)
	if err != nil {
		return Enrollment{}, err
	}
	if crs.Institution != inst.Index {
		return Enrollment{}, errWrongInstitution
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	existing, err := svc.repo.QueryEnrollments(ctx, st.Index)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "querying enrollments")
	}
	for _, e := range existing {
		if e.CourseID == crs.Index && e.IsOpen() {
			return Enrollment{}, ErrAlreadyEnrolled
		}
	}

	index, err := svc.repo.NextEnrollmentIndex(ctx)
	if err != nil {
		return Enrollment{}, err
	}
	date := ne.EnrollmentDate
	if date == "" {
		date = core.Now().Format(core.DateFormat)
	}
	now := core.Now()
	e := Enrollment{
		Index:          index,
		StudentID:      st.Index,
		InstitutionID:  inst.Index,
		CourseID:       crs.Index,
		Status:         ne.Status,
		EnrollmentDate: date,
		Creator:        actor.Address,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if e, err = svc.repo.CreateEnrollment(ctx, e); err != nil {
		return Enrollment{}, errors.Wrap(err, "creating enrollment")
	}
	if err = svc.record(ctx, EventEnrolled, actor, e.Index, e); err != nil {
		return Enrollment{}, err
	}
	return e, nil
}

// UpdateEnrollmentStatus moves an enrollment to another status. Completed and cancelled enrollments are final.
func (svc *Service) UpdateEnrollmentStatus(ctx context.Context, actor core.Actor, index, status string) (Enrollment, error) {
	status = core.CleanString(status, true /* lower */)
	if !core.ContainsString(EnrollmentStatuses, status) {
		return Enrollment{}, core.NewFieldError("status", "status must be one of: "+strings.Join(EnrollmentStatuses, ", "))
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	e, err := svc.repo.GetEnrollment(ctx, core.CleanString(index))
	if err != nil {
		return Enrollment{}, err
	}
	if err = actor.RequireModify(e.Creator); err != nil {
		return Enrollment{}, err
	}
	if e.IsTerminal() {
		return Enrollment{}, errTerminalStatus
	}
	if e.Status == status {
		return Enrollment{}, errSameStatus
	}

	prev := e.Status
	e.Status = status
	e.UpdatedAt = core.Now()
	if e, err = svc.repo.UpdateEnrollment(ctx, e); err != nil {
		return Enrollment{}, errors.Wrap(err, "updating enrollment")
	}
	if err = svc.record(ctx, EventEnrollmentUpdated, actor, e.Index, map[string]string{"from": prev, "to": status}); err != nil {
		return Enrollment{}, err
	}
	return e, nil
}

func (svc *Service) GetEnrollment(ctx context.Context, index string) (Enrollment, error) {
	return svc.repo.GetEnrollment(ctx, core.CleanString(index))
}

func (svc *Service) ListEnrollments(ctx context.Context, studentID string) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, core.CleanString(studentID))
}

// findTree returns the academic tree of the student for a course; ok is false when there is none yet.
func (svc *Service) findTree(ctx context.Context, studentID, courseID string) (tree AcademicTree, ok bool, err error) {
	trees, err := svc.repo.QueryTrees(ctx, studentID)
	if err != nil {
		return AcademicTree{}, false, errors.Wrap(err, "querying academic trees")
	}
	for _, t := range trees {
		if courseID == "" || t.CourseID == courseID {
			return t, true, nil
		}
	}
	return AcademicTree{}, false, nil
}

// newTree starts the academic tree of an enrollment on the latest curriculum of its course.
func (svc *Service) newTree(ctx context.Context, e Enrollment) (AcademicTree, error) {
	curricula, err := svc.deps.Curricula.Query(ctx, e.CourseID)
	if err != nil {
		return AcademicTree{}, errors.Wrap(err, "querying curricula")
	}
	var curriculumID string
	if len(curricula) > 0 {
		curriculumID = curricula[len(curricula)-1].Index
	}
	return AcademicTree{
		StudentID:        e.StudentID,
		InstitutionID:    e.InstitutionID,
		CourseID:         e.CourseID,
		CurriculumID:     curriculumID,
		CompletedTokens:  []string{},
		InProgressTokens: []string{},
		AvailableTokens:  []string{},
		Completions:      []Completion{},
		GraduationStatus: GraduationInProgress,
	}, nil
}

func (svc *Service) saveTree(ctx context.Context, t AcademicTree) (AcademicTree, error) {
	t.UpdatedAt = core.Now()
	if t.Index != "" {
		return svc.repo.UpdateTree(ctx, t)
	}
	index, err := svc.repo.NextTreeIndex(ctx)
	if err != nil {
		return AcademicTree{}, err
	}
	t.Index = index
	t.CreatedAt = t.UpdatedAt
	return svc.repo.CreateTree(ctx, t)
}

func completedSubjects(t AcademicTree) []subject.CompletedSubject {
	credits := make(map[string]uint64, len(t.Completions))
	for _, c := range t.Completions {
		credits[c.SubjectID] = c.Credits
	}
	done := make([]subject.CompletedSubject, 0, len(t.CompletedTokens))
	for _, id := range t.CompletedTokens {
		done = append(done, subject.CompletedSubject{SubjectID: id, Credits: credits[id]})
	}
	return done
}

// RequestSubjectEnrollment puts a subject in progress once the student may take it.
func (svc *Service) RequestSubjectEnrollment(ctx context.Context, actor core.Actor, studentID, subjectID string) (AcademicTree, error) {
	st, err := svc.repo.GetStudent(ctx, core.CleanString(studentID))
	if err != nil {
		return AcademicTree{}, err
	}
	if !actsFor(actor, st, true) {
		return AcademicTree{}, errors.WithStack(core.ErrPermissionDenied)
	}
	subj, err := svc.deps.Subjects.Get(ctx, core.CleanString(subjectID))
	if err != nil {
		return AcademicTree{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	enrollments, err := svc.repo.QueryEnrollments(ctx, st.Index)
	if err != nil {
		return AcademicTree{}, errors.Wrap(err, "querying enrollments")
	}
	var enrollment *Enrollment
	for i := range enrollments {
		if enrollments[i].CourseID == subj.CourseID && enrollments[i].Status == EnrollmentActive {
			enrollment = &enrollments[i]
			break
		}
	}
	if enrollment == nil {
		return AcademicTree{}, errNotEnrolled
	}

	tree, ok, err := svc.findTree(ctx, st.Index, subj.CourseID)
	if err != nil {
		return AcademicTree{}, err
	}
	if !ok {
		if tree, err = svc.newTree(ctx, *enrollment); err != nil {
			return AcademicTree{}, err
		}
	}
	if tree.HasCompleted(subj.Index) {
		return AcademicTree{}, errAlreadyCompleted
	}
	if tree.IsInProgress(subj.Index) {
		return AcademicTree{}, errAlreadyInProgress
	}
	if res := subject.Evaluate(subj.PrerequisiteGroups, completedSubjects(tree)); !res.CanEnroll {
		return AcademicTree{}, core.NewFieldError(
			"subject_id", "missing prerequisites: "+strings.Join(res.MissingPrerequisites, ", "),
		)
	}

	tree.InProgressTokens = append(tree.InProgressTokens, subj.Index)
	tree.AvailableTokens = core.RemoveString(tree.AvailableTokens, subj.Index)
	if err = svc.refresh(ctx, &tree); err != nil {
		return AcademicTree{}, err
	}
	if tree, err = svc.saveTree(ctx, tree); err != nil {
		return AcademicTree{}, errors.Wrap(err, "saving academic tree")
	}
	if err = svc.record(ctx, EventSubjectRequested, actor, tree.Index, map[string]string{"subject_id": subj.Index}); err != nil {
		return AcademicTree{}, err
	}
	return tree, nil
}

// CompleteSubject passes an in-progress subject and mints its token when the subject has a mintable definition.
func (svc *Service) CompleteSubject(
	ctx context.Context, actor core.Actor, studentID, subjectID string, cs CompleteSubject,
) (CompletionResult, error) {
	if err := actor.RequireOperator(); err != nil {
		return CompletionResult{}, err
	}
	cs.Clean()
	if err := svc.validate.Struct(cs); err != nil {
		return CompletionResult{}, err
	}
	minGrade := float64(svc.conf.Registry.MinPassingGrade)
	if cs.Grade < minGrade || cs.Grade > 100 {
		return CompletionResult{}, core.NewFieldError("grade", fmt.Sprintf("grade must be between %d and 100", svc.conf.Registry.MinPassingGrade))
	}
	st, err := svc.repo.GetStudent(ctx, core.CleanString(studentID))
	if err != nil {
		return CompletionResult{}, err
	}
	subj, err := svc.deps.Subjects.Get(ctx, core.CleanString(subjectID))
	if err != nil {
		return CompletionResult{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	tree, ok, err := svc.findTree(ctx, st.Index, subj.CourseID)
	if err != nil {
		return CompletionResult{}, err
	}
	if !ok || !tree.IsInProgress(subj.Index) {
		return CompletionResult{}, errNotInProgress
	}

	tree.InProgressTokens = core.RemoveString(tree.InProgressTokens, subj.Index)
	tree.CompletedTokens = append(tree.CompletedTokens, subj.Index)
	tree.Completions = append(tree.Completions, Completion{
		SubjectID:      subj.Index,
		Grade:          cs.Grade,
		Credits:        subj.Credits,
		WorkloadHours:  subj.WorkloadHours,
		CompletionDate: cs.CompletionDate,
		Semester:       cs.Semester,
	})
	if err = svc.refresh(ctx, &tree); err != nil {
		return CompletionResult{}, err
	}
	tokenID, err := svc.mintToken(ctx, actor, st.Index, subj.Index, cs)
	if err != nil {
		return CompletionResult{}, err
	}
	tree.Completions[len(tree.Completions)-1].TokenInstanceID = tokenID
	if tree, err = svc.saveTree(ctx, tree); err != nil {
		return CompletionResult{}, errors.Wrap(err, "saving academic tree")
	}

	res := CompletionResult{
		NftTokenID:              tokenID,
		ProgressPercentage:      tree.AcademicProgress.OverallPercentage,
		CreditsCompleted:        tree.TotalCredits,
		IsEligibleForGraduation: tree.GraduationStatus != GraduationInProgress,
	}
	if err = svc.record(ctx, EventSubjectCompleted, actor, tree.Index, map[string]interface{}{
		"subject_id": subj.Index, "grade": cs.Grade, "nft_token_id": tokenID,
	}); err != nil {
		return CompletionResult{}, err
	}
	return res, nil
}

// mintToken mints the token of a completed subject and returns its id, or "" when the subject has no
// mintable definition. The token of an earlier attempt whose tree was not saved is reused.
func (svc *Service) mintToken(ctx context.Context, actor core.Actor, studentID, subjectID string, cs CompleteSubject) (string, error) {
	def, err := svc.deps.Definitions.GetBySubject(ctx, subjectID)
	switch {
	case core.IsNotFound(err):
		return "", nil
	case err != nil:
		return "", err
	case !def.Mintable():
		return "", nil
	}
	tok, err := svc.deps.Tokens.Mint(ctx, actor, academicnft.NewToken{
		TokenDefID:         def.Index,
		StudentID:          studentID,
		CompletionDate:     cs.CompletionDate,
		Grade:              strconv.FormatFloat(cs.Grade, 'f', -1, 64),
		IssuerInstitution:  def.InstitutionID,
		Semester:           cs.Semester,
		ProfessorSignature: cs.ProfessorSignature,
	})
	if errors.Cause(err) == academicnft.ErrAlreadyMinted {
		held, lErr := svc.deps.Tokens.ListByStudent(ctx, studentID)
		if lErr != nil {
			return "", errors.Wrap(lErr, "listing student tokens")
		}
		for _, t := range held {
			if t.TokenDefID == def.Index {
				return t.TokenInstanceID, nil
			}
		}
	}
	if err != nil {
		return "", errors.Wrap(err, "minting subject token")
	}
	return tok.TokenInstanceID, nil
}

// UpdateAcademicTree replaces the token lists of a tree. Only the student and the authority may do it.
func (svc *Service) UpdateAcademicTree(ctx context.Context, actor core.Actor, index string, uat UpdateAcademicTree) (AcademicTree, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	tree, err := svc.repo.GetTree(ctx, core.CleanString(index))
	if err != nil {
		return AcademicTree{}, err
	}
	st, err := svc.repo.GetStudent(ctx, tree.StudentID)
	if err != nil {
		return AcademicTree{}, err
	}
	if !actor.IsAuthority && actor.Address != st.Address {
		return AcademicTree{}, errors.WithStack(core.ErrPermissionDenied)
	}

	var changed bool
	set := func(dst *[]string, list []string) {
		if list == nil {
			return
		}
		list = core.CleanStrings(list)
		if !sameStrings(*dst, list) {
			*dst = list
			changed = true
		}
	}
	set(&tree.CompletedTokens, uat.CompletedTokens)
	set(&tree.InProgressTokens, uat.InProgressTokens)
	set(&tree.AvailableTokens, uat.AvailableTokens)
	if !changed {
		return AcademicTree{}, ErrNoUpdates
	}

	kept := make([]Completion, 0, len(tree.Completions))
	for _, c := range tree.Completions {
		if tree.HasCompleted(c.SubjectID) {
			kept = append(kept, c)
		}
	}
	tree.Completions = kept
	if err = svc.refresh(ctx, &tree); err != nil {
		return AcademicTree{}, err
	}
	if tree, err = svc.saveTree(ctx, tree); err != nil {
		return AcademicTree{}, errors.Wrap(err, "saving academic tree")
	}
	if err = svc.record(ctx, EventTreeUpdated, actor, tree.Index, uat); err != nil {
		return AcademicTree{}, err
	}
	return tree, nil
}

// MarkGraduated closes an academic tree once its degree is issued.
func (svc *Service) MarkGraduated(ctx context.Context, actor core.Actor, index string) (AcademicTree, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	tree, err := svc.repo.GetTree(ctx, index)
	if err != nil {
		return AcademicTree{}, err
	}
	if tree.GraduationStatus == GraduationGraduated {
		return tree, nil
	}
	tree.GraduationStatus = GraduationGraduated
	if tree, err = svc.saveTree(ctx, tree); err != nil {
		return AcademicTree{}, errors.Wrap(err, "saving academic tree")
	}
	if err = svc.record(ctx, EventGraduated, actor, tree.Index, map[string]string{"student_id": tree.StudentID}); err != nil {
		return AcademicTree{}, err
	}
	return tree, nil
}

// GetAcademicTree returns the tree of the student for a course, or the first tree when courseID is empty.
func (svc *Service) GetAcademicTree(ctx context.Context, studentID, courseID string) (AcademicTree, error) {
	tree, ok, err := svc.findTree(ctx, core.CleanString(studentID), core.CleanString(courseID))
	if err != nil {
		return AcademicTree{}, err
	}
	if !ok {
		return AcademicTree{}, errors.WithStack(ErrTreeNotFound)
	}
	return tree, nil
}

func (svc *Service) GetTree(ctx context.Context, index string) (AcademicTree, error) {
	return svc.repo.GetTree(ctx, core.CleanString(index))
}

func (svc *Service) ListTrees(ctx context.Context, studentID string) ([]AcademicTree, error) {
	return svc.repo.QueryTrees(ctx, core.CleanString(studentID))
}

// GetStudentProgress lists the subjects of the student's curriculum with their status.
func (svc *Service) GetStudentProgress(ctx context.Context, studentID, courseID string) (StudentProgress, error) {
	tree, err := svc.GetAcademicTree(ctx, studentID, courseID)
	if err != nil {
		return StudentProgress{}, err
	}
	subjects, err := svc.subjectProgress(ctx, tree)
	if err != nil {
		return StudentProgress{}, err
	}
	return StudentProgress{
		StudentID:    tree.StudentID,
		CurriculumID: tree.CurriculumID,
		Progress:     tree.AcademicProgress,
		Subjects:     subjects,
	}, nil
}

func (svc *Service) GetStudentStats(ctx context.Context, studentID string) (Stats, error) {
	st, err := svc.repo.GetStudent(ctx, core.CleanString(studentID))
	if err != nil {
		return Stats{}, err
	}
	enrollments, err := svc.repo.QueryEnrollments(ctx, st.Index)
	if err != nil {
		return Stats{}, err
	}
	trees, err := svc.repo.QueryTrees(ctx, st.Index)
	if err != nil {
		return Stats{}, err
	}
	tokens, err := svc.deps.Tokens.ListByStudent(ctx, st.Index)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		StudentID:        st.Index,
		Enrollments:      len(enrollments),
		Tokens:           len(tokens),
		GraduationStatus: GraduationInProgress,
	}
	all := AcademicTree{}
	for i, t := range trees {
		stats.CompletedSubjects += len(t.CompletedTokens)
		stats.InProgressSubjects += len(t.InProgressTokens)
		all.Completions = append(all.Completions, t.Completions...)
		if i == 0 {
			stats.GraduationStatus = t.GraduationStatus
		}
	}
	all.recompute()
	stats.TotalCredits = all.TotalCredits
	stats.TotalHours = all.TotalCompletedHours
	stats.GPA = all.CoefficientGPA
	return stats, nil
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
