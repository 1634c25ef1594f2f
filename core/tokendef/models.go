package tokendef

import (
	"regexp"
	"strings"
	"time"

	"github.com/academictoken/registry/core"
)

// Token types
const (
	TypeNFT         = "NFT"
	TypeFungible    = "FUNGIBLE"
	TypeAchievement = "ACHIEVEMENT"
)

var (
	TokenTypes  = []string{TypeNFT, TypeFungible, TypeAchievement}
	symbolRegex = regexp.MustCompile(`^[A-Z0-9]{1,12}$`)
)

type Attribute struct {
	TraitType   string `json:"trait_type" validate:"required,max=50"`
	DisplayType string `json:"display_type" validate:"max=50"`
	IsDynamic   bool   `json:"is_dynamic"`
}

type Metadata struct {
	Description string      `json:"description" validate:"max=2000"`
	ImageURI    string      `json:"image_uri" validate:"omitempty,uri"`
	Attributes  []Attribute `json:"attributes" validate:"dive"`
}

type TokenDefinition struct {
	Index          string    `json:"index"`
	SubjectID      string    `json:"subject_id"`
	InstitutionID  string    `json:"institution_id"`
	CourseID       string    `json:"course_id"`
	TokenName      string    `json:"token_name"`
	TokenSymbol    string    `json:"token_symbol"`
	TokenType      string    `json:"token_type"`
	IsTransferable bool      `json:"is_transferable"`
	IsBurnable     bool      `json:"is_burnable"`
	MaxSupply      uint64    `json:"max_supply"` // 0: unlimited
	Metadata       Metadata  `json:"metadata"`
	ContentHash    string    `json:"content_hash"`
	Creator        string    `json:"creator"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
}

// Mintable reports whether instances of the definition are individual tokens.
func (td TokenDefinition) Mintable() bool {
	return td.TokenType == TypeNFT || td.TokenType == TypeAchievement
}

type NewTokenDefinition struct {
	SubjectID      string   `json:"subject_id" validate:"required"`
	TokenName      string   `json:"token_name" validate:"required,max=100"`
	TokenSymbol    string   `json:"token_symbol" validate:"required,tokensymbol"`
	TokenType      string   `json:"token_type" validate:"required,tokentype"`
	IsTransferable bool     `json:"is_transferable"`
	IsBurnable     bool     `json:"is_burnable"`
	MaxSupply      uint64   `json:"max_supply"`
	Metadata       Metadata `json:"metadata"`
}

func (ntd *NewTokenDefinition) Clean() {
	ntd.SubjectID = core.CleanString(ntd.SubjectID)
	ntd.TokenName = core.CleanString(ntd.TokenName)
	ntd.TokenSymbol = strings.ToUpper(core.CleanString(ntd.TokenSymbol))
	ntd.TokenType = strings.ToUpper(core.CleanString(ntd.TokenType))
	ntd.Metadata.Clean()
}

func (m *Metadata) Clean() {
	m.Description = core.CleanString(m.Description)
	m.ImageURI = core.CleanString(m.ImageURI)
	for i := range m.Attributes {
		m.Attributes[i].TraitType = core.CleanString(m.Attributes[i].TraitType)
		m.Attributes[i].DisplayType = core.CleanString(m.Attributes[i].DisplayType)
	}
}

// UpdateTokenDefinition holds the editable fields. Nil pointers and empty strings keep the current value.
type UpdateTokenDefinition struct {
	TokenName      string      `json:"token_name" validate:"omitempty,max=100"`
	TokenSymbol    string      `json:"token_symbol" validate:"omitempty,tokensymbol"`
	Description    string      `json:"description" validate:"max=2000"`
	ImageURI       string      `json:"image_uri" validate:"omitempty,uri"`
	IsTransferable *bool       `json:"is_transferable"`
	IsBurnable     *bool       `json:"is_burnable"`
	MaxSupply      *uint64     `json:"max_supply"`
	Attributes     []Attribute `json:"attributes" validate:"dive"`
}

func (utd *UpdateTokenDefinition) Clean() {
	utd.TokenName = core.CleanString(utd.TokenName)
	utd.TokenSymbol = strings.ToUpper(core.CleanString(utd.TokenSymbol))
	utd.Description = core.CleanString(utd.Description)
	utd.ImageURI = core.CleanString(utd.ImageURI)
}
