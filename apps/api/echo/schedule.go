package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/academictoken/registry/apps/api/di"
	"github.com/academictoken/registry/core/schedule"
)

type scheduleApi struct {
	auth *authenticator
	svc  *schedule.Service
}

func registerScheduleAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, svcs *di.Container) {
	api := scheduleApi{auth: auth, svc: svcs.Schedules}

	rg := g.Group("/recommendations")
	rg.GET("", api.queryRecommendations)
	rg.GET("/:id", api.retrieveRecommendation)
	rg.POST("", api.recommend, jwt)

	pg := g.Group("/study-plans")
	pg.GET("", api.queryPlans)
	pg.GET("/:id", api.retrievePlan)
	pg.POST("", api.createPlan, jwt)
	pg.POST("/:id/semesters", api.addSemester, jwt)
	pg.PUT("/:id/status", api.updateStatus, jwt)
}

func (api *scheduleApi) recommend(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	var data schedule.NewRecommendation
	if err = bind(ctx, &data, "NewRecommendation"); err != nil {
		return err
	}
	r, err := api.svc.Recommend(ctx.Request().Context(), actor, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *scheduleApi) retrieveRecommendation(ctx echo.Context) error {
	r, err := api.svc.GetRecommendation(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *scheduleApi) queryRecommendations(ctx echo.Context) error {
	recs, err := api.svc.ListRecommendations(ctx.Request().Context(), ctx.QueryParam("student"))
	if err != nil {
		return errors.Wrap(err, "querying recommendations")
	}
	return list(ctx, recs)
}

func (api *scheduleApi) createPlan(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	var data schedule.NewStudyPlan
	if err = bind(ctx, &data, "NewStudyPlan"); err != nil {
		return err
	}
	p, err := api.svc.CreatePlan(ctx.Request().Context(), actor, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *scheduleApi) addSemester(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	var data schedule.NewPlannedSemester
	if err = bind(ctx, &data, "NewPlannedSemester"); err != nil {
		return err
	}
	p, err := api.svc.AddSemester(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *scheduleApi) updateStatus(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	var data PlanStatusRequest
	if err = bind(ctx, &data, "PlanStatusRequest"); err != nil {
		return err
	}
	p, err := api.svc.UpdateStatus(ctx.Request().Context(), actor, ctx.Param("id"), data.Status)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *scheduleApi) retrievePlan(ctx echo.Context) error {
	p, err := api.svc.GetPlan(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *scheduleApi) queryPlans(ctx echo.Context) error {
	plans, err := api.svc.ListPlans(ctx.Request().Context(), ctx.QueryParam("student"))
	if err != nil {
		return errors.Wrap(err, "querying study plans")
	}
	return list(ctx, plans)
}

type PlanStatusRequest struct {
	Status string `json:"status"`
}
