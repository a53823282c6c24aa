package project

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	psvc "github.com/equestria-cloud/equestria/api/rest/service/project"
	"github.com/equestria-cloud/equestria/pkg/archive"
	"github.com/equestria-cloud/equestria/pkg/log"
	"github.com/labstack/echo/v4"
)

// Upload stores a multipart file in the project folder.
// Zip archives are extracted in place instead of stored,
// so a user can hand in a whole recording session at once.
func Upload(c echo.Context) error {
	svc := psvc.Service(c.Request().Context())

	p, err := fetch(c, svc)
	if err != nil {
		return err
	}

	if !svc.CanUpload(p) {
		return echo.NewHTTPError(http.StatusConflict, "project has an active process")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return echo.ErrBadRequest.SetInternal(err)
	}

	src, err := file.Open()
	if err != nil {
		return echo.ErrInternalServerError.SetInternal(err)
	}
	defer src.Close()

	name := filepath.Base(file.Filename)
	dest := filepath.Join(p.Folder, name)

	out, err := os.Create(dest)
	if err != nil {
		return echo.ErrInternalServerError.SetInternal(err)
	}

	if _, err = io.Copy(out, src); err != nil {
		out.Close()
		return echo.ErrInternalServerError.SetInternal(err)
	}
	if err = out.Close(); err != nil {
		return echo.ErrInternalServerError.SetInternal(err)
	}

	if strings.HasSuffix(name, ".zip") {
		if err = archive.Unzip(dest, p.Folder); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid zip archive").SetInternal(err)
		}
		if err = os.Remove(dest); err != nil {
			return echo.ErrInternalServerError.SetInternal(err)
		}
	}

	log.Info("file uploaded",
		"project_id", p.ID, "filename", name, "size", file.Size)

	return c.JSON(http.StatusCreated, respond(svc, p))
}
