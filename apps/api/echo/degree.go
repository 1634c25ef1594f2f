package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/academictoken/registry/apps/api/di"
	"github.com/academictoken/registry/core/degree"
)

type degreeApi struct {
	auth *authenticator
	svc  *degree.Service
}

func registerDegreeAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, svcs *di.Container) {
	api := degreeApi{auth: auth, svc: svcs.Degrees}

	rg := g.Group("/degree-requests")
	rg.GET("", api.queryRequests)
	rg.GET("/:id", api.retrieveRequest)
	rg.POST("", api.request, jwt)
	rg.POST("/:id/validate", api.validateRequirements, jwt)
	rg.POST("/:id/issue", api.issue, jwt)
	rg.POST("/:id/cancel", api.cancel, jwt)

	dg := g.Group("/degrees")
	dg.GET("", api.query)
	dg.GET("/:id", api.retrieve)
	dg.GET("/:id/verify", api.verify)
	dg.POST("/:id/revoke", api.revoke, jwt, authorityMiddleware())
	dg.POST("/:id/suspend", api.suspend, jwt, authorityMiddleware())
}

func (api *degreeApi) request(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	var data degree.NewDegreeRequest
	if err = bind(ctx, &data, "NewDegreeRequest"); err != nil {
		return err
	}
	r, err := api.svc.RequestDegree(ctx.Request().Context(), actor, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *degreeApi) validateRequirements(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	v, err := api.svc.ValidateRequirements(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *degreeApi) issue(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	var data degree.IssueDegree
	if err = bind(ctx, &data, "IssueDegree"); err != nil {
		return err
	}
	d, err := api.svc.Issue(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, d)
}

func (api *degreeApi) cancel(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	r, err := api.svc.CancelRequest(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *degreeApi) retrieveRequest(ctx echo.Context) error {
	r, err := api.svc.GetRequest(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *degreeApi) queryRequests(ctx echo.Context) error {
	requests, err := api.svc.ListRequests(ctx.Request().Context(), ctx.QueryParam("status"))
	if err != nil {
		return errors.Wrap(err, "querying degree requests")
	}
	return list(ctx, requests)
}

func (api *degreeApi) revoke(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	var data degree.StatusChange
	if err = bind(ctx, &data, "StatusChange"); err != nil {
		return err
	}
	d, err := api.svc.Revoke(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *degreeApi) suspend(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	var data degree.StatusChange
	if err = bind(ctx, &data, "StatusChange"); err != nil {
		return err
	}
	d, err := api.svc.Suspend(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *degreeApi) retrieve(ctx echo.Context) error {
	d, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, d)
}

// query lists the degrees of `?student=` or of `?institution=`.
func (api *degreeApi) query(ctx echo.Context) error {
	var (
		degrees []degree.Degree
		err     error
	)
	if inst := ctx.QueryParam("institution"); inst != "" {
		degrees, err = api.svc.ListByInstitution(ctx.Request().Context(), inst)
	} else {
		degrees, err = api.svc.ListByStudent(ctx.Request().Context(), ctx.QueryParam("student"))
	}
	if err != nil {
		return errors.Wrap(err, "querying degrees")
	}
	return list(ctx, degrees)
}

func (api *degreeApi) verify(ctx echo.Context) error {
	res, err := api.svc.Verify(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}
