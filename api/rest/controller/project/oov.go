package project

import (
	"io"
	"net/http"

	psvc "github.com/equestria-cloud/equestria/api/rest/service/project"
	"github.com/labstack/echo/v4"
)

// GetOOVDict returns the project's out-of-vocabulary
// dictionary as plain text. A project without one reads as
// empty rather than missing, so the editor can always
// open.
func GetOOVDict(c echo.Context) error {
	svc := psvc.Service(c.Request().Context())

	p, err := fetch(c, svc)
	if err != nil {
		return err
	}

	content, err := svc.ReadOOVDict(p)
	if err != nil {
		return echo.ErrInternalServerError.SetInternal(err)
	}

	return c.String(http.StatusOK, content)
}

// PutOOVDict replaces the dictionary with the request
// body.
func PutOOVDict(c echo.Context) error {
	svc := psvc.Service(c.Request().Context())

	p, err := fetch(c, svc)
	if err != nil {
		return err
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.ErrBadRequest.SetInternal(err)
	}

	if err = svc.WriteOOVDict(p, string(body)); err != nil {
		return echo.ErrInternalServerError.SetInternal(err)
	}

	return c.NoContent(http.StatusNoContent)
}
