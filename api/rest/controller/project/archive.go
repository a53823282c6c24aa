package project

import (
	"path/filepath"

	psvc "github.com/equestria-cloud/equestria/api/rest/service/project"
	"github.com/labstack/echo/v4"
)

// Archive zips the project folder and serves it as a
// download.
func Archive(c echo.Context) error {
	svc := psvc.Service(c.Request().Context())

	p, err := fetch(c, svc)
	if err != nil {
		return err
	}

	dest, err := svc.CreateArchive(p)
	if err != nil {
		return echo.ErrInternalServerError.SetInternal(err)
	}

	return c.Attachment(dest, filepath.Base(dest))
}
