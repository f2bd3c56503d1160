package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireKind returns a middleware that only lets through session handles
// of one of the given kinds, so a form handle cannot drive a list route
// and the other way round. It must run after SessionAuth.
func RequireKind(kinds ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		allowed[k] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			kind, ok := c.Get(CtxSessionKind).(string)
			if !ok || !allowed[kind] {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "session token not valid for this resource"})
			}
			return next(c)
		}
	}
}
