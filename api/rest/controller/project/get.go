package project

import (
	"net/http"

	psvc "github.com/equestria-cloud/equestria/api/rest/service/project"
	"github.com/labstack/echo/v4"
)

func Get(c echo.Context) error {
	svc := psvc.Service(c.Request().Context())

	p, err := fetch(c, svc)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, respond(svc, p))
}
