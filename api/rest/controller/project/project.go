package project

import (
	"errors"

	"github.com/equestria-cloud/equestria/api/rest/controller/identity"
	psvc "github.com/equestria-cloud/equestria/api/rest/service/project"
	"github.com/equestria-cloud/equestria/internal/models"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// Response decorates a project with its derived workflow
// state.
type Response struct {
	*models.Project
	NextStep  models.ProjectStep `json:"next_step,omitempty"`
	CanUpload bool               `json:"can_upload"`
}

// fetch loads the project addressed by the request and
// enforces ownership. Foreign projects read as not found
// so their existence does not leak.
func fetch(c echo.Context, svc psvc.Project) (*models.Project, error) {
	user, err := identity.User(c)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.ErrBadRequest.SetInternal(err)
	}

	p, err := svc.Get(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, echo.ErrNotFound
	}
	if err != nil {
		return nil, echo.ErrInternalServerError.SetInternal(err)
	}

	if p.UserID != user {
		return nil, echo.ErrNotFound
	}

	return p, nil
}

func respond(svc psvc.Project, p *models.Project) *Response {
	resp := &Response{
		Project:   p,
		CanUpload: svc.CanUpload(p),
	}

	if step, err := svc.NextStep(p); err == nil {
		resp.NextStep = step
	}

	return resp
}
