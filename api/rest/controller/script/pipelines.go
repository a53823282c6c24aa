package script

import (
	"errors"
	"net/http"

	ssvc "github.com/equestria-cloud/equestria/api/rest/service/script"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

func ListPipelines(c echo.Context) error {
	pipelines, err := ssvc.Service(c.Request().Context()).ListPipelines()
	if err != nil {
		return echo.ErrInternalServerError.SetInternal(err)
	}

	return c.JSON(http.StatusOK, pipelines)
}

func GetPipeline(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.ErrBadRequest.SetInternal(err)
	}

	p, err := ssvc.Service(c.Request().Context()).GetPipeline(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.ErrNotFound
	}
	if err != nil {
		return echo.ErrInternalServerError.SetInternal(err)
	}

	return c.JSON(http.StatusOK, p)
}
