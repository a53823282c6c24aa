package project

import (
	"errors"
	"net/http"

	process "github.com/equestria-cloud/equestria/api/rest/service/process"
	psvc "github.com/equestria-cloud/equestria/api/rest/service/project"
	"github.com/equestria-cloud/equestria/internal/models"
	"github.com/equestria-cloud/equestria/pkg/log"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type StartRequest struct {
	ProfileID  uuid.UUID              `json:"profile_id"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// StartFA launches the forced-alignment step on the
// project folder.
func StartFA(c echo.Context) error {
	return start(c, func(svc psvc.Project, id uuid.UUID, req *StartRequest) (*models.Process, error) {
		return svc.StartFA(id, req.ProfileID, req.Parameters)
	})
}

// StartG2P launches the grapheme-to-phoneme step on the
// project folder.
func StartG2P(c echo.Context) error {
	return start(c, func(svc psvc.Project, id uuid.UUID, req *StartRequest) (*models.Process, error) {
		return svc.StartG2P(id, req.ProfileID, req.Parameters)
	})
}

func start(c echo.Context, run func(psvc.Project, uuid.UUID, *StartRequest) (*models.Process, error)) error {
	svc := psvc.Service(c.Request().Context())

	p, err := fetch(c, svc)
	if err != nil {
		return err
	}

	req := &StartRequest{}
	if err := c.Bind(req); err != nil {
		return err
	}

	proc, err := run(svc, p.ID, req)
	switch {
	case err == nil:
		return c.JSON(http.StatusCreated, proc)
	case errors.Is(err, psvc.ErrProjectBusy):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, psvc.ErrProfileMismatch):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case process.IsValidation(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case process.IsRemote(err):
		log.Error("remote failure starting process",
			"project_id", p.ID, "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		return echo.ErrInternalServerError.SetInternal(err)
	}
}
