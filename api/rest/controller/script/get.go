package script

import (
	"errors"
	"net/http"

	ssvc "github.com/equestria-cloud/equestria/api/rest/service/script"
	"github.com/equestria-cloud/equestria/internal/models"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type Response struct {
	*models.Script
	Profiles []models.Profile `json:"profiles"`
}

func Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.ErrBadRequest.SetInternal(err)
	}

	svc := ssvc.Service(c.Request().Context())

	s, err := svc.Get(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.ErrNotFound
	}
	if err != nil {
		return echo.ErrInternalServerError.SetInternal(err)
	}

	profiles, err := svc.Profiles(id)
	if err != nil {
		return echo.ErrInternalServerError.SetInternal(err)
	}

	return c.JSON(http.StatusOK, &Response{Script: s, Profiles: profiles})
}
