package script

import (
	"errors"
	"net/http"

	ssvc "github.com/equestria-cloud/equestria/api/rest/service/script"
	"github.com/equestria-cloud/equestria/pkg/log"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// Refresh re-imports the script's profiles from the remote
// server's metadata.
func Refresh(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.ErrBadRequest.SetInternal(err)
	}

	log.Info("refreshing script profiles", "script_id", id)

	profiles, err := ssvc.Service(c.Request().Context()).Refresh(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.ErrNotFound
	}
	if err != nil {
		log.Error("failed to refresh script", "script_id", id, "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	return c.JSON(http.StatusOK, profiles)
}
