package handler // handler holds the HTTP handlers of the reservation API

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthHandler answers liveness probes. When Ping is set (the MySQL pool
// in the default setup) the probe also checks the store.
type HealthHandler struct {
	Ping func(ctx context.Context) error
}

// Health returns "ok" with 200, or 503 when the store does not answer.
func (h HealthHandler) Health(c echo.Context) error {
	if h.Ping != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "store unavailable"})
		}
	}
	return c.String(http.StatusOK, "ok")
}
