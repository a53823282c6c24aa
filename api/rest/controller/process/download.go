package process

import (
	"errors"
	"net/http"

	psvc "github.com/equestria-cloud/equestria/api/rest/service/process"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// Download triggers result retrieval for a process whose
// remote job has finished. The poller does this on its
// own; the endpoint lets a user pull results immediately.
func Download(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.ErrBadRequest.SetInternal(err)
	}

	svc := psvc.Service(c.Request().Context())

	if _, err := svc.Get(id); errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.ErrNotFound
	} else if err != nil {
		return echo.ErrInternalServerError.SetInternal(err)
	}

	if !svc.DownloadAndDelete(id) {
		return echo.NewHTTPError(http.StatusConflict, "process has no results to download")
	}

	p, err := svc.Get(id)
	if err != nil {
		return echo.ErrInternalServerError.SetInternal(err)
	}

	return c.JSON(http.StatusOK, p)
}
