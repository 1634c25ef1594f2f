package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/academictoken/registry/apps/api/di"
	"github.com/academictoken/registry/core/academicnft"
	"github.com/academictoken/registry/core/student"
)

type studentApi struct {
	auth   *authenticator
	svc    *student.Service
	tokens *academicnft.Service
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, svcs *di.Container) {
	api := studentApi{auth: auth, svc: svcs.Students, tokens: svcs.Tokens}

	sg := g.Group("/students")
	sg.GET("", api.query)
	sg.GET("/by-address/:address", api.retrieveByAddress)
	sg.GET("/:id", api.retrieve)
	sg.GET("/:id/enrollments", api.queryStudentEnrollments)
	sg.GET("/:id/academic-trees", api.queryTrees)
	sg.GET("/:id/academic-tree", api.retrieveStudentTree)
	sg.GET("/:id/progress", api.progress)
	sg.GET("/:id/stats", api.stats)
	sg.GET("/:id/tokens", api.queryTokens)
	sg.POST("", api.create, jwt)
	sg.POST("/:id/subjects/:subjectId/enroll", api.requestSubject, jwt)
	sg.POST("/:id/subjects/:subjectId/complete", api.completeSubject, jwt)

	eg := g.Group("/enrollments")
	eg.GET("", api.queryEnrollments)
	eg.GET("/:id", api.retrieveEnrollment)
	eg.POST("", api.createEnrollment, jwt)
	eg.PUT("/:id/status", api.updateEnrollmentStatus, jwt)

	tg := g.Group("/academic-trees")
	tg.GET("/:id", api.retrieveTree)
	tg.PUT("/:id", api.updateTree, jwt)
}

func (api *studentApi) create(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	var data student.NewStudent
	if err = bind(ctx, &data, "NewStudent"); err != nil {
		return err
	}
	st, err := api.svc.Register(ctx.Request().Context(), actor, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, st)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	st, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *studentApi) retrieveByAddress(ctx echo.Context) error {
	st, err := api.svc.GetByAddress(ctx.Request().Context(), ctx.Param("address"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *studentApi) query(ctx echo.Context) error {
	students, err := api.svc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return list(ctx, students)
}

func (api *studentApi) createEnrollment(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	var data student.NewEnrollment
	if err = bind(ctx, &data, "NewEnrollment"); err != nil {
		return err
	}
	e, err := api.svc.CreateEnrollment(ctx.Request().Context(), actor, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *studentApi) updateEnrollmentStatus(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	var data EnrollmentStatusRequest
	if err = bind(ctx, &data, "EnrollmentStatusRequest"); err != nil {
		return err
	}
	e, err := api.svc.UpdateEnrollmentStatus(ctx.Request().Context(), actor, ctx.Param("id"), data.Status)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *studentApi) retrieveEnrollment(ctx echo.Context) error {
	e, err := api.svc.GetEnrollment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, e)
}

// queryEnrollments lists the enrollments of `?student=`, or every enrollment.
func (api *studentApi) queryEnrollments(ctx echo.Context) error {
	enrollments, err := api.svc.ListEnrollments(ctx.Request().Context(), ctx.QueryParam("student"))
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	return list(ctx, enrollments)
}

func (api *studentApi) queryStudentEnrollments(ctx echo.Context) error {
	if _, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	enrollments, err := api.svc.ListEnrollments(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	return list(ctx, enrollments)
}

func (api *studentApi) requestSubject(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	tree, err := api.svc.RequestSubjectEnrollment(ctx.Request().Context(), actor, ctx.Param("id"), ctx.Param("subjectId"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tree)
}

func (api *studentApi) completeSubject(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	var data student.CompleteSubject
	if err = bind(ctx, &data, "CompleteSubject"); err != nil {
		return err
	}
	res, err := api.svc.CompleteSubject(ctx.Request().Context(), actor, ctx.Param("id"), ctx.Param("subjectId"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *studentApi) queryTrees(ctx echo.Context) error {
	trees, err := api.svc.ListTrees(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying academic trees")
	}
	return list(ctx, trees)
}

func (api *studentApi) retrieveStudentTree(ctx echo.Context) error {
	tree, err := api.svc.GetAcademicTree(ctx.Request().Context(), ctx.Param("id"), ctx.QueryParam("course"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tree)
}

func (api *studentApi) retrieveTree(ctx echo.Context) error {
	tree, err := api.svc.GetTree(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tree)
}

func (api *studentApi) updateTree(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	var data student.UpdateAcademicTree
	if err = bind(ctx, &data, "UpdateAcademicTree"); err != nil {
		return err
	}
	tree, err := api.svc.UpdateAcademicTree(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tree)
}

func (api *studentApi) progress(ctx echo.Context) error {
	p, err := api.svc.GetStudentProgress(ctx.Request().Context(), ctx.Param("id"), ctx.QueryParam("course"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *studentApi) stats(ctx echo.Context) error {
	s, err := api.svc.GetStudentStats(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) queryTokens(ctx echo.Context) error {
	tokens, err := api.tokens.ListByStudent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return list(ctx, tokens)
}

type EnrollmentStatusRequest struct {
	Status string `json:"status"`
}
