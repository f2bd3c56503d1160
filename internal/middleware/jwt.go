package middleware // middleware provides shared request processing for handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-reservations/internal/utils"
)

// Context keys set by SessionAuth.
const (
	CtxSessionID   = "session_id"
	CtxSessionKind = "session_kind"
)

// SessionAuth returns an Echo middleware that validates a signed session
// handle and injects the session id and kind into the request context.
// The handle is read from the :token path parameter, or from a Bearer
// Authorization header on routes without one. The secret must match the
// one used when the handle was issued.
func SessionAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.Param("token")
			if raw == "" {
				auth := c.Request().Header.Get("Authorization")
				if !strings.HasPrefix(auth, "Bearer ") {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing session token"})
				}
				raw = strings.TrimPrefix(auth, "Bearer ")
			}

			claims, err := utils.ParseSessionToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid session token"})
			}

			// Handlers read these back through SessionID.
			c.Set(CtxSessionID, claims.Subject)
			c.Set(CtxSessionKind, claims.Kind)
			return next(c)
		}
	}
}
