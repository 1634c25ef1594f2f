package echoapi

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/academictoken/registry/apps/api/di"
	"github.com/academictoken/registry/core/syllabus"
)

const maxSyllabusSize = 1 << 20

type syllabusApi struct {
	processor *syllabus.Processor
}

func registerSyllabusAPI(g *echo.Group, jwt echo.MiddlewareFunc, svcs *di.Container) {
	api := syllabusApi{processor: svcs.Syllabi}

	sg := g.Group("/syllabus", jwt)
	sg.POST("/parse", api.parse)
	sg.GET("/stats", api.stats)
}

// parse accepts a JSON {"text": ...} body or a plain text body and renders the document
// as JSON, or as YAML with `?format=yaml`.
func (api *syllabusApi) parse(ctx echo.Context) error {
	text, err := syllabusText(ctx)
	if err != nil {
		return err
	}
	res := api.processor.Process(ctx.Request().Context(), "request", text)
	if res.Error != "" {
		return echo.NewHTTPError(http.StatusBadRequest, res.Error)
	}

	format := strings.ToLower(ctx.QueryParam("format"))
	if format == syllabus.FormatYAML {
		ctx.Response().Header().Set(echo.HeaderContentType, "application/yaml")
		ctx.Response().WriteHeader(http.StatusOK)
		return syllabus.Encode(ctx.Response(), format, res)
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *syllabusApi) stats(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.processor.Stats())
}

func syllabusText(ctx echo.Context) (string, error) {
	if strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		var data SyllabusRequest
		if err := bind(ctx, &data, "SyllabusRequest"); err != nil {
			return "", err
		}
		return data.Text, nil
	}
	body, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxSyllabusSize))
	if err != nil {
		return "", errors.Wrap(err, "reading syllabus body")
	}
	return string(body), nil
}
