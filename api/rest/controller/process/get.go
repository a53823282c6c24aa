package process

import (
	"errors"
	"net/http"

	psvc "github.com/equestria-cloud/equestria/api/rest/service/process"
	"github.com/equestria-cloud/equestria/internal/models"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type Response struct {
	*models.Process
	Profiles []models.Profile `json:"profiles,omitempty"`
}

func Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.ErrBadRequest.SetInternal(err)
	}

	svc := psvc.Service(c.Request().Context())

	p, err := svc.Get(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.ErrNotFound
	}
	if err != nil {
		return echo.ErrInternalServerError.SetInternal(err)
	}

	resp := &Response{Process: p}
	if profiles, err := svc.Profiles(id); err == nil {
		resp.Profiles = profiles
	}

	return c.JSON(http.StatusOK, resp)
}
