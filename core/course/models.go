package course

import (
	"strings"
	"time"

	"github.com/academictoken/registry/core"
)

// Degree levels
const (
	LevelUndergraduate = "undergraduate"
	LevelGraduate      = "graduate"
	LevelPostgraduate  = "postgraduate"
	LevelDoctorate     = "doctorate"
	LevelTechnical     = "technical"
)

var DegreeLevels = []string{LevelUndergraduate, LevelGraduate, LevelPostgraduate, LevelDoctorate, LevelTechnical}

type Course struct {
	Index        string    `json:"index"`
	Institution  string    `json:"institution"`
	Name         string    `json:"name"`
	Code         string    `json:"code"`
	Description  string    `json:"description"`
	TotalCredits uint64    `json:"total_credits"`
	DegreeLevel  string    `json:"degree_level"`
	Creator      string    `json:"creator"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

type NewCourse struct {
	Institution  string `json:"institution" validate:"required"`
	Name         string `json:"name" validate:"required,max=200"`
	Code         string `json:"code" validate:"required,max=30"`
	Description  string `json:"description" validate:"max=2000"`
	TotalCredits uint64 `json:"total_credits" validate:"required,gt=0"`
	DegreeLevel  string `json:"degree_level" validate:"required,degreelevel"`
}

func (nc *NewCourse) Clean() {
	nc.Institution = core.CleanString(nc.Institution)
	nc.Name = core.CleanString(nc.Name)
	nc.Code = core.CleanString(nc.Code)
	nc.Description = core.CleanString(nc.Description)
	nc.DegreeLevel = core.CleanString(nc.DegreeLevel, true /* lower */)
}

// UpdateCourse lists the editable fields; zero values are left unchanged.
type UpdateCourse struct {
	Name         string `json:"name" validate:"omitempty,max=200"`
	Code         string `json:"code" validate:"omitempty,max=30"`
	Description  string `json:"description" validate:"omitempty,max=2000"`
	TotalCredits uint64 `json:"total_credits" validate:"omitempty,gt=0"`
	DegreeLevel  string `json:"degree_level" validate:"omitempty,degreelevel"`
}

func (uc *UpdateCourse) Clean() {
	uc.Name = core.CleanString(uc.Name)
	uc.Code = core.CleanString(uc.Code)
	uc.Description = core.CleanString(uc.Description)
	uc.DegreeLevel = core.CleanString(uc.DegreeLevel, true /* lower */)
}

type QueryFilter struct {
	Institution string `query:"institution"`
	Search      string `query:"search"`
	DegreeLevel string `query:"degree_level"`
}

func (qf *QueryFilter) Clean() {
	qf.Institution = core.CleanString(qf.Institution)
	qf.Search = core.CleanString(qf.Search, true /* lower */)
	qf.DegreeLevel = core.CleanString(qf.DegreeLevel, true /* lower */)
}

func (qf QueryFilter) Match(c Course) bool {
	if qf.Institution != "" && c.Institution != qf.Institution {
		return false
	}
	if qf.DegreeLevel != "" && c.DegreeLevel != qf.DegreeLevel {
		return false
	}
	if qf.Search != "" && !containsFold(c.Name, qf.Search) && !containsFold(c.Code, qf.Search) {
		return false
	}
	return true
}

func containsFold(s, lowerSubstr string) bool {
	return strings.Contains(strings.ToLower(s), lowerSubstr)
}
