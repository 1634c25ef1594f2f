package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/academictoken/registry/apps/api/di"
	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/academicnft"
	"github.com/academictoken/registry/core/tokendef"
)

type tokenApi struct {
	auth   *authenticator
	defs   *tokendef.Service
	tokens *academicnft.Service
}

func registerTokenAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, svcs *di.Container) {
	api := tokenApi{auth: auth, defs: svcs.TokenDefs, tokens: svcs.Tokens}

	dg := g.Group("/token-definitions")
	dg.GET("", api.queryDefinitions)
	dg.GET("/:id", api.retrieveDefinition)
	dg.GET("/:id/tokens", api.queryDefinitionTokens)
	dg.POST("", api.createDefinition, jwt)
	dg.PUT("/:id", api.updateDefinition, jwt)
	g.GET("/subjects/:id/token-definition", api.retrieveSubjectDefinition)

	tg := g.Group("/tokens")
	tg.GET("", api.queryTokens)
	tg.GET("/:id", api.retrieveToken)
	tg.GET("/:id/verify", api.verifyToken)
	tg.POST("", api.mint, jwt)
}

func (api *tokenApi) createDefinition(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	var data tokendef.NewTokenDefinition
	if err = bind(ctx, &data, "NewTokenDefinition"); err != nil {
		return err
	}
	td, err := api.defs.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, td)
}

func (api *tokenApi) updateDefinition(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	var data tokendef.UpdateTokenDefinition
	if err = bind(ctx, &data, "UpdateTokenDefinition"); err != nil {
		return err
	}
	td, err := api.defs.Update(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, td)
}

func (api *tokenApi) retrieveDefinition(ctx echo.Context) error {
	td, err := api.defs.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, td)
}

func (api *tokenApi) retrieveSubjectDefinition(ctx echo.Context) error {
	td, err := api.defs.GetBySubject(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, td)
}

// queryDefinitions lists the definitions of `?institution=`, or every definition.
func (api *tokenApi) queryDefinitions(ctx echo.Context) error {
	defs, err := api.defs.Query(ctx.Request().Context(), ctx.QueryParam("institution"))
	if err != nil {
		return errors.Wrap(err, "querying token definitions")
	}
	return list(ctx, defs)
}

func (api *tokenApi) queryDefinitionTokens(ctx echo.Context) error {
	tokens, err := api.tokens.ListByDefinition(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying tokens")
	}
	return list(ctx, tokens)
}

func (api *tokenApi) mint(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	var data academicnft.NewToken
	if err = bind(ctx, &data, "NewToken"); err != nil {
		return err
	}
	tok, err := api.tokens.Mint(ctx.Request().Context(), actor, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, tok)
}

func (api *tokenApi) retrieveToken(ctx echo.Context) error {
	tok, err := api.tokens.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tok)
}

// queryTokens lists the tokens of `?student=` or `?definition=`, or every token.
func (api *tokenApi) queryTokens(ctx echo.Context) error {
	var (
		tokens []academicnft.SubjectTokenInstance
		err    error
	)
	if st := core.CleanString(ctx.QueryParam("student")); st != "" {
		tokens, err = api.tokens.ListByStudent(ctx.Request().Context(), st)
	} else {
		tokens, err = api.tokens.ListByDefinition(ctx.Request().Context(), core.CleanString(ctx.QueryParam("definition")))
	}
	if err != nil {
		return errors.Wrap(err, "querying tokens")
	}
	return list(ctx, tokens)
}

func (api *tokenApi) verifyToken(ctx echo.Context) error {
	res, err := api.tokens.Verify(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}
