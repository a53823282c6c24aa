package script

import (
	"net/http"

	ssvc "github.com/equestria-cloud/equestria/api/rest/service/script"
	"github.com/labstack/echo/v4"
)

func List(c echo.Context) error {
	scripts, err := ssvc.Service(c.Request().Context()).List()
	if err != nil {
		return echo.ErrInternalServerError.SetInternal(err)
	}

	return c.JSON(http.StatusOK, scripts)
}
