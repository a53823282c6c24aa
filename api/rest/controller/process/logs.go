package process

import (
	"net/http"

	psvc "github.com/equestria-cloud/equestria/api/rest/service/process"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func Logs(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.ErrBadRequest.SetInternal(err)
	}

	logs, err := psvc.Service(c.Request().Context()).Logs(id)
	if err != nil {
		return echo.ErrInternalServerError.SetInternal(err)
	}

	return c.JSON(http.StatusOK, logs)
}
