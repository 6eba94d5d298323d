package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the liveness endpoint used by load balancers. It reports
// nothing about downstream dependencies on purpose: the broker and
// database coming and going must not take the API out of rotation.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
