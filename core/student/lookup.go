package student

import (
	"context"

	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/academicnft"
)

// Lookup resolves student addresses straight from the repository, for services the student service depends on.
type Lookup struct {
	repo Repository
}

var _ academicnft.StudentLookup = (*Lookup)(nil)

func NewLookup(repo Repository) *Lookup {
	return &Lookup{repo: repo}
}

func (l *Lookup) StudentAddress(ctx context.Context, studentID string) (string, error) {
	st, err := l.repo.GetStudent(ctx, core.CleanString(studentID))
	if err != nil {
		return "", err
	}
	return st.Address, nil
}
