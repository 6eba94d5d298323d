// Package handler contains the HTTP handlers behind the API routes.
// Every response uses the same envelope the mobile clients expect:
// {success, message, data, errors}.
package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/prodicts/prodicts-backend/internal/repository"
	"github.com/prodicts/prodicts-backend/internal/service"
)

type response struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func ok(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, response{Success: true, Message: message, Data: data})
}

func fail(c echo.Context, status int, message string, errs ...string) error {
	return c.JSON(status, response{Success: false, Message: message, Errors: errs})
}

// failFrom maps the known sentinel errors onto HTTP statuses; anything
// unrecognized is a 500 with a generic message so internals never
// leak.
func failFrom(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fail(c, http.StatusNotFound, "not found")
	case errors.Is(err, repository.ErrConflict):
		return fail(c, http.StatusConflict, "conflict")
	case errors.Is(err, service.ErrInvalidCredentials):
		return fail(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrAlreadyUpgraded),
		errors.Is(err, service.ErrDeviceUpgraded):
		return fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidRefresh),
		errors.Is(err, service.ErrRefreshReused):
		return fail(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrUploadNotAllowed):
		return fail(c, http.StatusConflict, err.Error())
	}
	c.Logger().Errorf("internal error: %v", err)
	return fail(c, http.StatusInternalServerError, "internal server error")
}
