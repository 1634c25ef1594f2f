// Package di builds the registry services over a records store and a ledger repository.
package di

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/academicnft"
	"github.com/academictoken/registry/core/account"
	"github.com/academictoken/registry/core/course"
	"github.com/academictoken/registry/core/curriculum"
	"github.com/academictoken/registry/core/degree"
	"github.com/academictoken/registry/core/equivalence"
	"github.com/academictoken/registry/core/institution"
	"github.com/academictoken/registry/core/ledger"
	"github.com/academictoken/registry/core/schedule"
	"github.com/academictoken/registry/core/student"
	"github.com/academictoken/registry/core/subject"
	"github.com/academictoken/registry/core/syllabus"
	"github.com/academictoken/registry/core/tokendef"
	"github.com/academictoken/registry/storage/records"
)

type (
	Deps struct {
		Conf       *core.Config
		Logger     core.Logger
		Store      records.Store
		LedgerRepo ledger.Repository
		Cache      core.Cache
		MailSvc    core.EmailService
		Validate   *validator.Validate
		Translator ut.Translator
	}

	// Container holds one instance of every registry service.
	Container struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator

		Ledger       *ledger.Service
		Accounts     *account.Service
		Institutions *institution.Service
		Courses      *course.Service
		Subjects     *subject.Service
		Curricula    *curriculum.Service
		TokenDefs    *tokendef.Service
		Tokens       *academicnft.Service
		Students     *student.Service
		Equivalences *equivalence.Service
		Degrees      *degree.Service
		Schedules    *schedule.Service
		Syllabi      *syllabus.Processor
	}
)

// InitValidators registers the custom validations of every domain package.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	subject.InitValidators(validate, translator)
	tokendef.InitValidators(validate, translator)
	student.InitValidators(validate, translator)
	equivalence.InitValidators(validate, translator)
}

// New wires the services together. Validate must already carry the domain validations (see InitValidators).
func New(deps Deps) *Container {
	if deps.Logger == nil {
		deps.Logger = core.NopLogger{}
	}
	if deps.Cache == nil {
		deps.Cache = core.NopCache{}
	}

	store := deps.Store
	led := ledger.NewService(deps.LedgerRepo, ledger.NewHub(0), deps.Logger)

	accounts := account.NewService(records.NewAccountRepository(store), led, deps.MailSvc, deps.Conf, deps.Validate)
	institutions := institution.NewService(records.NewInstitutionRepository(store), led, deps.Validate)
	courses := course.NewService(records.NewCourseRepository(store), institutions, led, deps.Validate)
	subjects := subject.NewService(records.NewSubjectRepository(store), courses, led, deps.Validate)
	curricula := curriculum.NewService(records.NewCurriculumRepository(store), courses, subjects, led, deps.Validate)
	tokenDefs := tokendef.NewService(records.NewTokenDefRepository(store), subjects, led, deps.Validate)

	studentRepo := records.NewStudentRepository(store)
	tokens := academicnft.NewService(
		records.NewTokenRepository(store), tokenDefs, institutions, student.NewLookup(studentRepo), led, deps.Validate,
	)
	students := student.NewService(
		studentRepo,
		student.Dependencies{
			Institutions: institutions,
			Courses:      courses,
			Subjects:     subjects,
			Curricula:    curricula,
			Definitions:  tokenDefs,
			Tokens:       tokens,
		},
		led,
		deps.Conf,
		deps.Validate,
	)
	equivalences := equivalence.NewService(
		records.NewEquivalenceRepository(store), subjects, students, deps.Cache, deps.MailSvc, led, deps.Conf, deps.Validate,
	)
	degrees := degree.NewService(
		records.NewDegreeRepository(store), students, institutions, courses, curricula, deps.MailSvc, led, deps.Validate,
	)
	schedules := schedule.NewService(
		records.NewScheduleRepository(store), students, curricula, subjects, led, deps.Conf, deps.Validate,
	)

	return &Container{
		Conf:         deps.Conf,
		Logger:       deps.Logger,
		Validate:     deps.Validate,
		Translator:   deps.Translator,
		Ledger:       led,
		Accounts:     accounts,
		Institutions: institutions,
		Courses:      courses,
		Subjects:     subjects,
		Curricula:    curricula,
		TokenDefs:    tokenDefs,
		Tokens:       tokens,
		Students:     students,
		Equivalences: equivalences,
		Degrees:      degrees,
		Schedules:    schedules,
		Syllabi:      syllabus.NewProcessor(deps.Cache, deps.Logger, 0),
	}
}
