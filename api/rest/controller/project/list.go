package project

import (
	"net/http"

	"github.com/equestria-cloud/equestria/api/rest/controller/identity"
	psvc "github.com/equestria-cloud/equestria/api/rest/service/project"
	"github.com/labstack/echo/v4"
)

func List(c echo.Context) error {
	user, err := identity.User(c)
	if err != nil {
		return err
	}

	svc := psvc.Service(c.Request().Context())

	projects, err := svc.List(user)
	if err != nil {
		return echo.ErrInternalServerError.SetInternal(err)
	}

	resp := make([]*Response, 0, len(projects))
	for i := range projects {
		resp = append(resp, respond(svc, &projects[i]))
	}

	return c.JSON(http.StatusOK, resp)
}
