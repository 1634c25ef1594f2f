package core

import "github.com/pkg/errors"

var errNoCreator = NewFieldError("creator", "creator is required")

// Actor is the account submitting an operation, the `creator` of the records it produces.
type Actor struct {
	Address       string `json:"address"`
	IsAuthority   bool   `json:"is_authority"`
	IsInstitution bool   `json:"is_institution"`
}

// Check fails when the actor carries no address.
func (a Actor) Check() error {
	if CleanString(a.Address) == "" {
		return errNoCreator
	}
	return nil
}

// CanModify reports whether the actor is the record creator or the authority.
func (a Actor) CanModify(creator string) bool {
	return a.IsAuthority || (a.Address != "" && a.Address == creator)
}

// RequireModify returns ErrPermissionDenied unless CanModify.
func (a Actor) RequireModify(creator string) error {
	if !a.CanModify(creator) {
		return errors.WithStack(ErrPermissionDenied)
	}
	return nil
}

// RequireAuthority returns ErrPermissionDenied unless the actor is the authority.
func (a Actor) RequireAuthority() error {
	if !a.IsAuthority {
		return errors.WithStack(ErrPermissionDenied)
	}
	return nil
}

// RequireOperator allows institution operators and the authority.
func (a Actor) RequireOperator() error {
	if !(a.IsAuthority || a.IsInstitution) {
		return errors.WithStack(ErrPermissionDenied)
	}
	return nil
}
