package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/academictoken/registry/apps/api/di"
	"github.com/academictoken/registry/core/equivalence"
)

type equivalenceApi struct {
	auth *authenticator
	svc  *equivalence.Service
}

func registerEquivalenceAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, svcs *di.Container) {
	api := equivalenceApi{auth: auth, svc: svcs.Equivalences}

	eg := g.Group("/equivalences")
	eg.GET("", api.query)
	eg.GET("/stats", api.stats)
	eg.GET("/:id", api.retrieve)
	eg.GET("/:id/integrity", api.verifyIntegrity)
	eg.POST("", api.request, jwt)
	eg.POST("/batch", api.batch, jwt)
	eg.POST("/:id/analyze", api.analyze, jwt)
	eg.POST("/:id/reanalyze", api.reanalyze, jwt)
	eg.POST("/:id/review", api.review, jwt, authorityMiddleware())
}

func (api *equivalenceApi) request(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	var data equivalence.NewEquivalence
	if err = bind(ctx, &data, "NewEquivalence"); err != nil {
		return err
	}
	e, err := api.svc.Request(ctx.Request().Context(), actor, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *equivalenceApi) batch(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	var data equivalence.NewBatch
	if err = bind(ctx, &data, "NewBatch"); err != nil {
		return err
	}
	res, err := api.svc.Batch(ctx.Request().Context(), actor, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *equivalenceApi) analyze(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	var data equivalence.Analyze
	if err = bind(ctx, &data, "Analyze"); err != nil {
		return err
	}
	e, err := api.svc.Analyze(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *equivalenceApi) reanalyze(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	var data equivalence.Analyze
	if err = bind(ctx, &data, "Analyze"); err != nil {
		return err
	}
	e, err := api.svc.Reanalyze(ctx.Request().Context(), actor, ctx.Param("id"), data.Method)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *equivalenceApi) review(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	var data equivalence.Review
	if err = bind(ctx, &data, "Review"); err != nil {
		return err
	}
	e, err := api.svc.Review(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *equivalenceApi) retrieve(ctx echo.Context) error {
	e, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, e)
}

// query filters by `?student=`, then `?subject=`, then `?status=`; without filters every request is listed.
func (api *equivalenceApi) query(ctx echo.Context) error {
	var (
		found []equivalence.SubjectEquivalence
		err   error
	)
	switch {
	case ctx.QueryParam("student") != "":
		found, err = api.svc.ListByStudent(ctx.Request().Context(), ctx.QueryParam("student"))
	case ctx.QueryParam("subject") != "":
		found, err = api.svc.ListBySubject(ctx.Request().Context(), ctx.QueryParam("subject"))
	default:
		found, err = api.svc.ListByStatus(ctx.Request().Context(), ctx.QueryParam("status"))
	}
	if err != nil {
		return err
	}
	return list(ctx, found)
}

func (api *equivalenceApi) stats(ctx echo.Context) error {
	s, err := api.svc.Stats(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *equivalenceApi) verifyIntegrity(ctx echo.Context) error {
	res, err := api.svc.VerifyIntegrity(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}
