package project

import (
	"errors"
	"net/http"

	"github.com/equestria-cloud/equestria/api/rest/controller/identity"
	psvc "github.com/equestria-cloud/equestria/api/rest/service/project"
	"github.com/equestria-cloud/equestria/pkg/log"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type PostRequest struct {
	Name       string    `json:"name"`
	PipelineID uuid.UUID `json:"pipeline_id"`
}

func Post(c echo.Context) error {
	user, err := identity.User(c)
	if err != nil {
		return err
	}

	req := &PostRequest{}
	if err := c.Bind(req); err != nil {
		return err
	}

	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	log.Info("creating project", "name", req.Name, "user", user)

	p, err := psvc.Service(c.Request().Context()).Create(req.Name, user, req.PipelineID)
	if errors.Is(err, psvc.ErrProjectExists) || errors.Is(err, psvc.ErrFolderExists) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	if err != nil {
		log.Error("failed to create project", "error", err)
		return echo.ErrInternalServerError.SetInternal(err)
	}

	return c.JSON(http.StatusCreated, p)
}
