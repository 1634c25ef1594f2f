package institution

import (
	"time"

	"github.com/academictoken/registry/core"
)

const (
	Authorized   = "true"
	Unauthorized = "false"
)

type Institution struct {
	Index        string    `json:"index"`
	Name         string    `json:"name"`
	Address      string    `json:"address"`
	IsAuthorized string    `json:"is_authorized"`
	Creator      string    `json:"creator"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (i Institution) Authorized() bool {
	return i.IsAuthorized == Authorized
}

// NewInstitution contains information needed to register an Institution.
type NewInstitution struct {
	Name    string `json:"name" validate:"required,max=200"`
	Address string `json:"address" validate:"required,max=500"`
}

func (ni *NewInstitution) Clean() {
	ni.Name = core.CleanString(ni.Name)
	ni.Address = core.CleanString(ni.Address)
}

// UpdateInstitution defines what may change on an existing Institution. Empty fields are kept.
type UpdateInstitution struct {
	Name         string `json:"name" validate:"omitempty,max=200"`
	Address      string `json:"address" validate:"omitempty,max=500"`
	IsAuthorized string `json:"is_authorized" validate:"omitempty,oneof=true false"`
}

func (ui *UpdateInstitution) Clean() {
	ui.Name = core.CleanString(ui.Name)
	ui.Address = core.CleanString(ui.Address)
	ui.IsAuthorized = core.CleanString(ui.IsAuthorized, true /* lower */)
}

type QueryFilter struct {
	Search     string `query:"search"`
	Authorized *bool  `query:"authorized"`
	Creator    string `query:"creator"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search, true /* lower */)
	qf.Creator = core.CleanString(qf.Creator)
}
