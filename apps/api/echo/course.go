package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/academictoken/registry/apps/api/di"
	"github.com/academictoken/registry/core/course"
	"github.com/academictoken/registry/core/curriculum"
	"github.com/academictoken/registry/core/subject"
)

type courseApi struct {
	auth      *authenticator
	svc       *course.Service
	subjects  *subject.Service
	curricula *curriculum.Service
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, svcs *di.Container) {
	api := courseApi{auth: auth, svc: svcs.Courses, subjects: svcs.Subjects, curricula: svcs.Curricula}

	cg := g.Group("/courses")
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
	cg.GET("/:id/subjects", api.querySubjects)
	cg.GET("/:id/curricula", api.queryCurricula)
	cg.POST("", api.create, jwt)
	cg.PUT("/:id", api.update, jwt)
}

func (api *courseApi) create(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	var data course.NewCourse
	if err = bind(ctx, &data, "NewCourse"); err != nil {
		return err
	}
	c, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) update(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	var data course.UpdateCourse
	if err = bind(ctx, &data, "UpdateCourse"); err != nil {
		return err
	}
	c, err := api.svc.Update(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	c, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) query(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Course{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	courses, err := api.svc.Query(ctx.Request().Context(), *filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return list(ctx, courses)
}

func (api *courseApi) querySubjects(ctx echo.Context) error {
	if _, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	subjects, err := api.subjects.ListByCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	return list(ctx, subjects)
}

func (api *courseApi) queryCurricula(ctx echo.Context) error {
	trees, err := api.curricula.Query(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying curricula")
	}
	return list(ctx, trees)
}
