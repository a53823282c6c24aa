package project

import (
	"net/http"

	psvc "github.com/equestria-cloud/equestria/api/rest/service/project"
	"github.com/labstack/echo/v4"
)

func Delete(c echo.Context) error {
	svc := psvc.Service(c.Request().Context())

	p, err := fetch(c, svc)
	if err != nil {
		return err
	}

	if err := svc.Delete(p.ID); err != nil {
		return echo.ErrInternalServerError.SetInternal(err)
	}

	return c.NoContent(http.StatusAccepted)
}
