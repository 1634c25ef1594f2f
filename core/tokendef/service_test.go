package tokendef_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/tokendef"
	"github.com/academictoken/registry/tests"
)

func TestService_Create(t *testing.T) {
	env := testutil.NewEnv(t)
	c := testutil.NewCatalog(t, env)
	ctx := context.Background()
	operator := c.Operator.Actor()

	td, err := env.TokenDefs.Create(ctx, operator, tokendef.NewTokenDefinition{
		SubjectID:   " " + c.Intro.Index + " ",
		TokenName:   " Intro to Programming ",
		TokenSymbol: " cs101 ",
		TokenType:   "nft",
		MaxSupply:   100,
	})
	require.NoError(t, err)
	assert.Equal(t, c.Intro.Index, td.SubjectID)
	assert.Equal(t, c.Inst.Index, td.InstitutionID)
	assert.Equal(t, c.Course.Index, td.CourseID)
	assert.Equal(t, "Intro to Programming", td.TokenName)
	assert.Equal(t, "CS101", td.TokenSymbol)
	assert.Equal(t, tokendef.TypeNFT, td.TokenType)
	assert.Equal(t, c.Intro.ContentHash, td.ContentHash)
	assert.NotNil(t, td.Metadata.Attributes)
	assert.True(t, td.Mintable())

	got, err := env.TokenDefs.GetBySubject(ctx, c.Intro.Index)
	require.NoError(t, err)
	assert.Equal(t, td.Index, got.Index)

	valid := func(fn func(ntd *tokendef.NewTokenDefinition)) tokendef.NewTokenDefinition {
		ntd := tokendef.NewTokenDefinition{
			SubjectID:   c.Advanced.Index,
			TokenName:   "Data Structures",
			TokenSymbol: "CS201",
			TokenType:   tokendef.TypeAchievement,
		}
		fn(&ntd)
		return ntd
	}
	tests := []struct {
		name    string
		actor   core.Actor
		ntd     tokendef.NewTokenDefinition
		wantErr string
	}{
		{
			name:    "no creator",
			ntd:     valid(func(*tokendef.NewTokenDefinition) {}),
			wantErr: "creator is required",
		},
		{
			name:    "symbol too long",
			actor:   operator,
			ntd:     valid(func(ntd *tokendef.NewTokenDefinition) { ntd.TokenSymbol = "TOOLONGSYMBOL1" }),
			wantErr: "TokenSymbol",
		},
		{
			name:    "symbol with punctuation",
			actor:   operator,
			ntd:     valid(func(ntd *tokendef.NewTokenDefinition) { ntd.TokenSymbol = "CS-201" }),
			wantErr: "TokenSymbol",
		},
		{
			name:    "missing symbol",
			actor:   operator,
			ntd:     valid(func(ntd *tokendef.NewTokenDefinition) { ntd.TokenSymbol = "  " }),
			wantErr: "TokenSymbol",
		},
		{
			name:    "unknown type",
			actor:   operator,
			ntd:     valid(func(ntd *tokendef.NewTokenDefinition) { ntd.TokenType = "BADGE" }),
			wantErr: "TokenType",
		},
		{
			name:    "bad image uri",
			actor:   operator,
			ntd:     valid(func(ntd *tokendef.NewTokenDefinition) { ntd.Metadata.ImageURI = "not a uri" }),
			wantErr: "ImageURI",
		},
		{
			name:    "unknown subject",
			actor:   operator,
			ntd:     valid(func(ntd *tokendef.NewTokenDefinition) { ntd.SubjectID = "lol" }),
			wantErr: "subject not found",
		},
		{
			name:    "subject already defined",
			actor:   operator,
			ntd:     valid(func(ntd *tokendef.NewTokenDefinition) { ntd.SubjectID = c.Intro.Index }),
			wantErr: "a token definition already exists for this subject",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.TokenDefs.Create(ctx, tt.actor, tt.ntd)
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}

	all, err := env.TokenDefs.Query(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1, "rejected definitions are not stored")
}

func TestService_Update(t *testing.T) {
	env := testutil.NewEnv(t)
	c := testutil.NewCatalog(t, env)
	ctx := context.Background()

	td, err := env.TokenDefs.Create(ctx, c.Operator.Actor(), tokendef.NewTokenDefinition{
		SubjectID:   c.Intro.Index,
		TokenName:   "Intro to Programming",
		TokenSymbol: "CS101",
		TokenType:   tokendef.TypeNFT,
	})
	require.NoError(t, err)

	stranger := testutil.Operator(t, env, "stranger@uni.test").Actor()
	supply := uint64(50)
	yes := true
	tests := []struct {
		name    string
		actor   core.Actor
		index   string
		utd     tokendef.UpdateTokenDefinition
		wantErr string
	}{
		{
			name:    "not the creator",
			index:   td.Index,
			actor:   stranger,
			utd:     tokendef.UpdateTokenDefinition{TokenName: "Hijacked"},
			wantErr: "permission denied",
		},
		{
			name:    "invalid symbol",
			index:   td.Index,
			actor:   c.Operator.Actor(),
			utd:     tokendef.UpdateTokenDefinition{TokenSymbol: "cs 101"},
			wantErr: "TokenSymbol",
		},
		{
			name:    "nothing changes",
			index:   td.Index,
			actor:   c.Operator.Actor(),
			utd:     tokendef.UpdateTokenDefinition{TokenName: td.TokenName, TokenSymbol: "cs101"},
			wantErr: "no valid updates provided",
		},
		{
			name:    "unknown definition",
			index:   "lol",
			actor:   c.Operator.Actor(),
			utd:     tokendef.UpdateTokenDefinition{TokenName: "Renamed"},
			wantErr: "token definition not found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.TokenDefs.Update(ctx, tt.actor, tt.index, tt.utd)
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}

	updated, err := env.TokenDefs.Update(ctx, c.Authority.Actor(), td.Index, tokendef.UpdateTokenDefinition{
		TokenSymbol:    "cs101x",
		MaxSupply:      &supply,
		IsTransferable: &yes,
	})
	require.NoError(t, err)
	assert.Equal(t, "CS101X", updated.TokenSymbol)
	assert.Equal(t, supply, updated.MaxSupply)
	assert.True(t, updated.IsTransferable)
	assert.Equal(t, td.TokenName, updated.TokenName)
	assert.Equal(t, td.Creator, updated.Creator)
}
