package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/venue-reservations/internal/handler"
	"github.com/iliyamo/venue-reservations/internal/middleware"
	"github.com/iliyamo/venue-reservations/internal/session"
)

// Deps carries what RegisterRoutes mounts. ListCache wraps the stateless
// listing; nil serves it uncached.
type Deps struct {
	Health       handler.HealthHandler
	Reservations *handler.ReservationHandler
	Sessions     *handler.SessionHandler
	Secret       string
	ListCache    echo.MiddlewareFunc
}

// RegisterRoutes registers every route of the API on e.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", d.Health.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	RegisterReservations(e, d.Reservations, d.ListCache)
	RegisterForms(e, d.Sessions, d.Secret)
	RegisterLists(e, d.Sessions, d.Secret)
}

// RegisterReservations mounts the read-only endpoints. They need no
// session handle.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/reservations")
	if cache != nil {
		g.GET("", h.List, cache)
	} else {
		g.GET("", h.List)
	}
	g.GET("/availability", h.Availability)
	g.GET("/stream", h.Stream)
	g.GET("/:id/contact", h.Contact)
}

// RegisterForms mounts the reservation form. Opening a form is
// unauthenticated; every other route needs a form handle.
func RegisterForms(e *echo.Echo, h *handler.SessionHandler, secret string) {
	e.POST("/v1/forms", h.OpenForm)

	g := e.Group("/v1/forms/:token",
		middleware.SessionAuth(secret),
		middleware.RequireKind(session.KindForm),
	)
	g.GET("", h.GetForm)
	g.PATCH("", h.UpdateForm)
	g.DELETE("", h.CloseForm)
	g.POST("/submit", h.SubmitForm)
	g.POST("/dismiss", h.DismissForm)
}

// RegisterLists mounts the live reservation list.
func RegisterLists(e *echo.Echo, h *handler.SessionHandler, secret string) {
	e.POST("/v1/lists", h.OpenList)

	g := e.Group("/v1/lists/:token",
		middleware.SessionAuth(secret),
		middleware.RequireKind(session.KindList),
	)
	g.GET("", h.GetList)
	g.DELETE("", h.CloseList)
	g.PUT("/filter", h.SetFilter)
	g.DELETE("/filter", h.ResetFilter)
	g.DELETE("/armed", h.Disarm)
	g.DELETE("/error", h.DismissListError)
	g.POST("/items/:id/arm", h.Arm)
	g.POST("/items/:id/delete", h.ConfirmDelete)
	g.GET("/items/:id/contact", h.ItemContact)
}
