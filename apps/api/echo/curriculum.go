package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/academictoken/registry/apps/api/di"
	"github.com/academictoken/registry/core/curriculum"
)

type curriculumApi struct {
	auth *authenticator
	svc  *curriculum.Service
}

func registerCurriculumAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, svcs *di.Container) {
	api := curriculumApi{auth: auth, svc: svcs.Curricula}

	cg := g.Group("/curricula")
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
	cg.POST("", api.create, jwt)
	cg.POST("/:id/semesters", api.addSemester, jwt)
	cg.POST("/:id/elective-groups", api.addElectiveGroup, jwt)
	cg.PUT("/:id/graduation-requirements", api.setGraduationRequirements, jwt)
}

func (api *curriculumApi) create(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	var data curriculum.NewTree
	if err = bind(ctx, &data, "NewTree"); err != nil {
		return err
	}
	t, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *curriculumApi) retrieve(ctx echo.Context) error {
	t, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

// query lists the curricula of `?course=`, or every curriculum.
func (api *curriculumApi) query(ctx echo.Context) error {
	trees, err := api.svc.Query(ctx.Request().Context(), ctx.QueryParam("course"))
	if err != nil {
		return errors.Wrap(err, "querying curricula")
	}
	return list(ctx, trees)
}

func (api *curriculumApi) addSemester(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	var data curriculum.NewSemester
	if err = bind(ctx, &data, "NewSemester"); err != nil {
		return err
	}
	t, err := api.svc.AddSemester(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *curriculumApi) addElectiveGroup(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	var data curriculum.NewElectiveGroup
	if err = bind(ctx, &data, "NewElectiveGroup"); err != nil {
		return err
	}
	t, err := api.svc.AddElectiveGroup(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *curriculumApi) setGraduationRequirements(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	var data curriculum.GraduationRequirements
	if err = bind(ctx, &data, "GraduationRequirements"); err != nil {
		return err
	}
	t, err := api.svc.SetGraduationRequirements(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}
