// Package records implements the domain repositories on top of a Store, a small document store
// with an in-memory (storage/inmem) and a PostgreSQL (storage/database) backend.
package records

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/academictoken/registry/core"
)

var (
	ErrNoRecord     = errors.New("record not found")
	ErrRecordExists = errors.New("record already exists")
)

// Store keeps JSON documents by kind and id. `owner` is a secondary key (parent record) used for
// listing; List returns documents in insertion order.
type Store interface {
	NextSequence(ctx context.Context, name string) (uint64, error)
	Get(ctx context.Context, kind, id string, dst interface{}) error
	Insert(ctx context.Context, kind, id, owner string, v interface{}) error
	Put(ctx context.Context, kind, id, owner string, v interface{}) error
	Delete(ctx context.Context, kind, id string) error
	List(ctx context.Context, kind, owner string, each func(raw []byte) error) error
}

// Record kinds
const (
	kindAccount        = "account"
	kindInstitution    = "institution"
	kindCourse         = "course"
	kindSubject        = "subject"
	kindCurriculum     = "curriculum"
	kindStudent        = "student"
	kindEnrollment     = "enrollment"
	kindAcademicTree   = "academic_tree"
	kindTokenDef       = "token_definition"
	kindTokenInstance  = "token_instance"
	kindEquivalence    = "equivalence"
	kindDegreeRequest  = "degree_request"
	kindDegree         = "degree"
	kindRecommendation = "recommendation"
	kindStudyPlan      = "study_plan"
)

// trapNoRecord replaces ErrNoRecord by the domain not-found error.
func trapNoRecord(err, notFound error) error {
	if errors.Cause(err) == ErrNoRecord {
		return errors.WithStack(notFound)
	}
	return err
}

// nextIndex returns the next sequential index of a record kind, e.g. `institution-4`.
func nextIndex(ctx context.Context, store Store, prefix string) (string, uint64, error) {
	seq, err := store.NextSequence(ctx, prefix)
	if err != nil {
		return "", 0, errors.Wrapf(err, "next %s sequence", prefix)
	}
	return core.FormatIndex(prefix, seq), seq, nil
}

func unmarshal(raw []byte, dst interface{}) error {
	return errors.Wrap(json.Unmarshal(raw, dst), "decoding record")
}
