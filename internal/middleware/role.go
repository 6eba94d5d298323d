package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole aborts with 403 unless the authenticated identity holds
// one of the given roles. It assumes Auth ran earlier in the chain.
// Anonymous sessions carry the "Anonymous" role and never pass an
// admin check.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxRole).(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{
					"success": false, "message": "forbidden",
				})
			}
			return next(c)
		}
	}
}

// RequireRegistered aborts with 403 for anonymous sessions. Routes
// like refresh and logout only make sense for registered users, whose
// sessions are backed by the refresh-token store.
func RequireRegistered() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if IsAnonymous(c) {
				return c.JSON(http.StatusForbidden, echo.Map{
					"success": false, "message": "registered account required",
				})
			}
			return next(c)
		}
	}
}
