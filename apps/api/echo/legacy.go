package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/academictoken/registry/apps/api/di"
	"github.com/academictoken/registry/core/institution"
)

// registerLegacyAPI serves the read paths polled by the dashboard before the /v1 API existed.
func registerLegacyAPI(g *echo.Group, svcs *di.Container) {
	insts := institutionApi{svc: svcs.Institutions}
	courses := courseApi{svc: svcs.Courses}
	subjects := subjectApi{svc: svcs.Subjects}
	students := studentApi{svc: svcs.Students, tokens: svcs.Tokens}

	g.GET("/institution/institution", func(ctx echo.Context) error {
		all, err := svcs.Institutions.Query(ctx.Request().Context(), institution.QueryFilter{}, nil)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, echo.Map{"institution": nonNil(all)})
	})
	g.GET("/institution/institution/:id", insts.retrieve)
	g.GET("/course/course/:id", courses.retrieve)
	g.GET("/subject/subject/:id", subjects.retrieve)
	g.GET("/student/student/:id", students.retrieve)
	g.GET("/academicnft/student/:id/tokens", students.queryTokens)
	g.GET("/equivalence/requests/:id", func(ctx echo.Context) error {
		found, err := svcs.Equivalences.ListByStudent(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return err
		}
		return list(ctx, found)
	})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
