package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/academictoken/registry/apps/api/di"
	"github.com/academictoken/registry/core/course"
	"github.com/academictoken/registry/core/institution"
)

type institutionApi struct {
	auth    *authenticator
	svc     *institution.Service
	courses *course.Service
}

func registerInstitutionAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, svcs *di.Container) {
	api := institutionApi{auth: auth, svc: svcs.Institutions, courses: svcs.Courses}

	ig := g.Group("/institutions")
	ig.GET("", api.query)
	ig.GET("/:id", api.retrieve)
	ig.GET("/:id/courses", api.queryCourses)
	ig.POST("", api.create, jwt)
	ig.PUT("/:id", api.update, jwt)
}

func (api *institutionApi) create(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	var data institution.NewInstitution
	if err = bind(ctx, &data, "NewInstitution"); err != nil {
		return err
	}
	inst, err := api.svc.Register(ctx.Request().Context(), actor, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, inst)
}

func (api *institutionApi) update(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	var data institution.UpdateInstitution
	if err = bind(ctx, &data, "UpdateInstitution"); err != nil {
		return err
	}
	inst, err := api.svc.Update(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, inst)
}

func (api *institutionApi) retrieve(ctx echo.Context) error {
	inst, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, inst)
}

func (api *institutionApi) query(ctx echo.Context) error {
	filter := new(institution.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []institution.Institution{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	insts, err := api.svc.Query(ctx.Request().Context(), *filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying institutions")
	}
	return list(ctx, insts)
}

func (api *institutionApi) queryCourses(ctx echo.Context) error {
	if _, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	courses, err := api.courses.ListByInstitution(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return list(ctx, courses)
}
