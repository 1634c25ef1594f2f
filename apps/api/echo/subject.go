package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/academictoken/registry/apps/api/di"
	"github.com/academictoken/registry/core/subject"
	"github.com/academictoken/registry/core/syllabus"
)

type subjectApi struct {
	auth    *authenticator
	svc     *subject.Service
	syllabi *syllabus.Processor
}

func registerSubjectAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, svcs *di.Container) {
	api := subjectApi{auth: auth, svc: svcs.Subjects, syllabi: svcs.Syllabi}

	sg := g.Group("/subjects")
	sg.GET("", api.query)
	sg.GET("/:id", api.retrieve)
	sg.GET("/:id/prerequisites", api.retrievePrerequisites)
	sg.POST("/:id/prerequisites/check", api.checkPrerequisites)
	sg.GET("/:id/equivalence/:targetId", api.checkEquivalence)
	sg.POST("", api.create, jwt)
	sg.POST("/:id/prerequisites", api.addPrerequisiteGroup, jwt)
	sg.DELETE("/:id/prerequisites/:groupId", api.removePrerequisiteGroup, jwt)
	sg.PUT("/:id/content", api.updateContent, jwt)
	sg.POST("/:id/syllabus", api.importSyllabus, jwt)
}

func (api *subjectApi) create(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	var data subject.NewSubject
	if err = bind(ctx, &data, "NewSubject"); err != nil {
		return err
	}
	s, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *subjectApi) retrieve(ctx echo.Context) error {
	s, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *subjectApi) retrievePrerequisites(ctx echo.Context) error {
	s, err := api.svc.GetWithPrerequisites(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *subjectApi) query(ctx echo.Context) error {
	filter := new(subject.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []subject.Subject{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	subjects, err := api.svc.Query(ctx.Request().Context(), *filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	return list(ctx, subjects)
}

func (api *subjectApi) addPrerequisiteGroup(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	var data subject.NewPrerequisiteGroup
	if err = bind(ctx, &data, "NewPrerequisiteGroup"); err != nil {
		return err
	}
	s, err := api.svc.AddPrerequisiteGroup(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *subjectApi) removePrerequisiteGroup(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	s, err := api.svc.RemovePrerequisiteGroup(ctx.Request().Context(), actor, ctx.Param("id"), ctx.Param("groupId"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *subjectApi) updateContent(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	var data subject.Content
	if err = bind(ctx, &data, "Content"); err != nil {
		return err
	}
	s, err := api.svc.UpdateContent(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

// importSyllabus parses a syllabus text and stores its content on the subject.
func (api *subjectApi) importSyllabus(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	var data SyllabusRequest
	if err = bind(ctx, &data, "SyllabusRequest"); err != nil {
		return err
	}
	doc, _, err := api.syllabi.Parse(ctx.Request().Context(), data.Text)
	if err != nil {
		return err
	}
	s, err := api.svc.UpdateContent(ctx.Request().Context(), actor, ctx.Param("id"), doc.Content())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SyllabusImportResponse{Subject: s, Document: doc})
}

func (api *subjectApi) checkPrerequisites(ctx echo.Context) error {
	var data CheckPrerequisitesRequest
	if err := bind(ctx, &data, "CheckPrerequisitesRequest"); err != nil {
		return err
	}
	res, err := api.svc.CheckPrerequisites(ctx.Request().Context(), ctx.Param("id"), data.Completed)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *subjectApi) checkEquivalence(ctx echo.Context) error {
	res, err := api.svc.CheckEquivalence(ctx.Request().Context(), ctx.Param("id"), ctx.Param("targetId"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

type (
	CheckPrerequisitesRequest struct {
		Completed []subject.CompletedSubject `json:"completed"`
	}

	SyllabusRequest struct {
		Text string `json:"text"`
	}

	SyllabusImportResponse struct {
		Subject  subject.Subject   `json:"subject"`
		Document syllabus.Document `json:"document"`
	}
)
