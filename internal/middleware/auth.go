// Package middleware contains the Echo middleware shared by the API
// routes: bearer-token authentication, role checks and the Redis
// rate limiter.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/prodicts/prodicts-backend/internal/token"
)

// Context keys set by Auth for downstream handlers.
const (
	CtxUserID      = "user_id"
	CtxDeviceID    = "device_id"
	CtxRole        = "role"
	CtxIsAnonymous = "is_anonymous"
	CtxClaims      = "claims"
)

// Auth validates the Bearer access token and injects the request
// identity into the context. Both identity kinds pass: registered
// users carry a subject, anonymous sessions a device id. Handlers
// read whichever applies via OwnerID.
func Auth(issuer *token.Issuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"success": false, "message": "missing bearer token",
				})
			}
			claims, err := issuer.ParseClaims(strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"success": false, "message": "invalid or expired token",
				})
			}

			c.Set(CtxUserID, claims.Subject)
			c.Set(CtxDeviceID, claims.DeviceID)
			c.Set(CtxRole, claims.Role)
			c.Set(CtxIsAnonymous, claims.UserType == token.UserTypeAnonymous)
			c.Set(CtxClaims, claims)
			return next(c)
		}
	}
}

// OwnerID resolves the identity that owns request-scoped data: the
// user id for registered sessions, the device id for anonymous ones.
// Empty means the route was reached without Auth.
func OwnerID(c echo.Context) string {
	if v, ok := c.Get(CtxUserID).(string); ok && v != "" {
		return v
	}
	if v, ok := c.Get(CtxDeviceID).(string); ok && v != "" {
		return v
	}
	return ""
}

// IsAnonymous reports whether the request identity is a device-scoped
// session.
func IsAnonymous(c echo.Context) bool {
	v, _ := c.Get(CtxIsAnonymous).(bool)
	return v
}
