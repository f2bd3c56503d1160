package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/venue-reservations/internal/booking"
	"github.com/iliyamo/venue-reservations/internal/session"
)

// writeError maps domain errors onto status codes:
//
//	*booking.ValidationError               400
//	session.ErrSessionNotFound, ErrClosed  404
//	session.ErrItemNotFound                404
//	session.ErrNotArmed, ErrSubmitting     409
//	*booking.StoreWriteError               502
//
// Anything else is a 500.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	var verr *booking.ValidationError
	var werr *booking.StoreWriteError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrClosed):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
	case errors.Is(err, session.ErrItemNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
	case errors.Is(err, session.ErrNotArmed), errors.Is(err, session.ErrSubmitting):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.As(err, &werr):
		return c.JSON(http.StatusBadGateway, echo.Map{"error": werr.Error()})
	default:
		log.Error("request failed", zap.String("route", c.Path()), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
