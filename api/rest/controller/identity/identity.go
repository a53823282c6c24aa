// Package identity resolves the caller behind a request.
// Authentication happens upstream; the proxy forwards the
// authenticated username in a header, which also names the
// user's data subfolder.
package identity

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Header carries the authenticated username.
const Header = "X-User"

// User returns the authenticated username of the request,
// or an HTTP error when the header is absent.
func User(c echo.Context) (string, error) {
	user := c.Request().Header.Get(Header)
	if user == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing "+Header+" header")
	}

	return user, nil
}
