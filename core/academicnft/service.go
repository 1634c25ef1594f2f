package academicnft

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/institution"
	"github.com/academictoken/registry/core/ledger"
	"github.com/academictoken/registry/core/tokendef"
)

// Ledger event types
const (
	EventMinted = "academicnft.minted"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("token instance not found")
	ErrAlreadyMinted    = core.NewFieldError("student_id", "the student already holds a token for this definition")
	errGradeRange       = core.NewFieldError("grade", "grade must be between 0 and 100")
	errNotMintable      = core.NewFieldError("token_def_id", "only NFT and ACHIEVEMENT definitions can be minted")
	errWrongInstitution = core.NewFieldError("issuer_institution", "issuer does not match the token definition institution")
	errMaxSupply        = core.NewFieldError("token_def_id", "maximum supply reached")
)

type (
	Repository interface {
		NextIndex(ctx context.Context) (string, error)
		CreateToken(ctx context.Context, tok SubjectTokenInstance) (SubjectTokenInstance, error)
		GetToken(ctx context.Context, id string) (SubjectTokenInstance, error)
		// QueryTokens returns the tokens of a definition, or every token when empty.
		QueryTokens(ctx context.Context, tokenDefID string) ([]SubjectTokenInstance, error)
	}

	DefinitionGetter interface {
		Get(ctx context.Context, index string) (tokendef.TokenDefinition, error)
	}

	InstitutionGetter interface {
		Get(ctx context.Context, index string) (institution.Institution, error)
	}

	// StudentLookup resolves a student id to the student's address.
	StudentLookup interface {
		StudentAddress(ctx context.Context, studentID string) (string, error)
	}

	Service struct {
		repo         Repository
		defs         DefinitionGetter
		institutions InstitutionGetter
		students     StudentLookup
		ledger       ledger.Recorder
		validate     *validator.Validate
		mu           sync.Mutex
	}
)

func NewService(
	repo Repository,
	defs DefinitionGetter,
	institutions InstitutionGetter,
	students StudentLookup,
	recorder ledger.Recorder,
	validate *validator.Validate,
) *Service {
	return &Service{
		repo:         repo,
		defs:         defs,
		institutions: institutions,
		students:     students,
		ledger:       recorder,
		validate:     validate,
	}
}

func parseGrade(s string) (float64, error) {
	grade, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrap(err, "parsing grade")
	}
	if grade < 0 || grade > 100 {
		return 0, errGradeRange
	}
	return grade, nil
}

// Mint issues the token of a completed subject to a student.
func (svc *Service) Mint(ctx context.Context, actor core.Actor, nt NewToken) (SubjectTokenInstance, error) {
	if err := actor.RequireOperator(); err != nil {
		return SubjectTokenInstance{}, err
	}
	nt.Clean()
	if err := svc.validate.Struct(nt); err != nil {
		return SubjectTokenInstance{}, err
	}
	if _, err := parseGrade(nt.Grade); err != nil {
		return SubjectTokenInstance{}, errGradeRange
	}
	def, err := svc.defs.Get(ctx, nt.TokenDefID)
	if err != nil {
		return SubjectTokenInstance{}, err
	}
	if !def.Mintable() {
		return SubjectTokenInstance{}, errNotMintable
	}
	if def.InstitutionID != nt.IssuerInstitution {
		return SubjectTokenInstance{}, errWrongInstitution
	}
	if _, err = svc.institutions.Get(ctx, nt.IssuerInstitution); err != nil {
		return SubjectTokenInstance{}, err
	}
	address, err := svc.students.StudentAddress(ctx, nt.StudentID)
	if err != nil {
		return SubjectTokenInstance{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	minted, err := svc.repo.QueryTokens(ctx, def.Index)
	if err != nil {
		return SubjectTokenInstance{}, errors.Wrap(err, "querying tokens")
	}
	for _, tok := range minted {
		if tok.StudentID == nt.StudentID {
			return SubjectTokenInstance{}, ErrAlreadyMinted
		}
	}
	if def.MaxSupply > 0 && uint64(len(minted)) >= def.MaxSupply {
		return SubjectTokenInstance{}, errMaxSupply
	}

	id, err := svc.repo.NextIndex(ctx)
	if err != nil {
		return SubjectTokenInstance{}, err
	}
	tok := SubjectTokenInstance{
		TokenInstanceID:    id,
		TokenDefID:         def.Index,
		Student:            address,
		StudentID:          nt.StudentID,
		CompletionDate:     nt.CompletionDate,
		Grade:              nt.Grade,
		IssuerInstitution:  nt.IssuerInstitution,
		Semester:           nt.Semester,
		ProfessorSignature: nt.ProfessorSignature,
		IsValid:            true,
		Creator:            actor.Address,
		MintedAt:           core.Now(),
	}
	if tok, err = svc.repo.CreateToken(ctx, tok); err != nil {
		return SubjectTokenInstance{}, errors.Wrap(err, "creating token")
	}
	if _, err = svc.ledger.Record(ctx, ledger.Event{Type: EventMinted, Creator: actor.Address, Ref: tok.TokenInstanceID, Payload: tok}); err != nil {
		return SubjectTokenInstance{}, errors.Wrap(err, "recording token mint")
	}
	return tok, nil
}

// Verify checks that the token still refers to existing records and holds well formed data.
// It only reads: the stored token is never changed by a verification.
func (svc *Service) Verify(ctx context.Context, id string) (VerifyResult, error) {
	id = core.CleanString(id)
	tok, err := svc.repo.GetToken(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return VerifyResult{TokenInstanceID: id, Reason: "token instance not found"}, nil
		}
		return VerifyResult{}, err
	}

	res := VerifyResult{TokenInstanceID: id}
	if res.Reason, err = svc.invalidReason(ctx, tok); err != nil {
		return VerifyResult{}, err
	}
	res.IsValid = res.Reason == ""
	return res, nil
}

// invalidReason returns why the token is invalid, or "" when it is valid.
func (svc *Service) invalidReason(ctx context.Context, tok SubjectTokenInstance) (string, error) {
	notFound := func(err error, what string) (string, error) {
		if core.IsNotFound(err) {
			return fmt.Sprintf("%s not found", what), nil
		}
		return "", err
	}
	if _, err := svc.defs.Get(ctx, tok.TokenDefID); err != nil {
		return notFound(err, "token definition")
	}
	if _, err := svc.students.StudentAddress(ctx, tok.StudentID); err != nil {
		return notFound(err, "student")
	}
	if _, err := svc.institutions.Get(ctx, tok.IssuerInstitution); err != nil {
		return notFound(err, "issuer institution")
	}
	if _, err := parseGrade(tok.Grade); err != nil {
		return "invalid grade", nil
	}
	if _, err := core.ParseDate(tok.CompletionDate); err != nil {
		return "invalid completion date", nil
	}
	return "", nil
}

func (svc *Service) Get(ctx context.Context, id string) (SubjectTokenInstance, error) {
	return svc.repo.GetToken(ctx, id)
}

func (svc *Service) ListByStudent(ctx context.Context, studentID string) ([]SubjectTokenInstance, error) {
	all, err := svc.repo.QueryTokens(ctx, "")
	if err != nil {
		return nil, err
	}
	list := make([]SubjectTokenInstance, 0)
	for _, tok := range all {
		if tok.StudentID == studentID || tok.Student == studentID {
			list = append(list, tok)
		}
	}
	return list, nil
}

func (svc *Service) ListByDefinition(ctx context.Context, tokenDefID string) ([]SubjectTokenInstance, error) {
	return svc.repo.QueryTokens(ctx, tokenDefID)
}

func (svc *Service) Count(ctx context.Context) (int, error) {
	all, err := svc.repo.QueryTokens(ctx, "")
	return len(all), err
}
