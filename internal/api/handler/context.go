package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ctxUserID extracts the user id injected by the Auth middleware and
// fast-fails with 401 when the middleware did not run or the token carried
// no subject.
func ctxUserID(c echo.Context) (string, error) {
	id, _ := c.Get("user_id").(string)
	if id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return id, nil
}
