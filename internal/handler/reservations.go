package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/venue-reservations/internal/booking"
	"github.com/iliyamo/venue-reservations/internal/live"
	"github.com/iliyamo/venue-reservations/internal/model"
	"github.com/iliyamo/venue-reservations/internal/session"
)

// Snapshots is the read side of live.Hub.
type Snapshots interface {
	List(ctx context.Context) ([]model.Reservation, error)
	Subscribe(fn func([]model.Reservation)) *live.Subscription
}

// ReservationHandler serves the stateless read endpoints: the filtered
// listing, the availability advisory, the live stream and contact links.
type ReservationHandler struct {
	Hub       Snapshots
	Settings  session.Settings
	Log       *zap.Logger
	Heartbeat time.Duration // SSE keep-alive interval; 25s when zero
}

// NewReservationHandler wires the handler and panics on a nil hub.
func NewReservationHandler(hub Snapshots, set session.Settings, log *zap.Logger) *ReservationHandler {
	if hub == nil {
		panic("nil hub passed to NewReservationHandler")
	}
	if set.Contact.Location == nil {
		set.Contact.Location = set.Location
	}
	return &ReservationHandler{Hub: hub, Settings: set, Log: log.Named("reservations")}
}

// filterFrom reads ?year=&month=. A missing year means the current year,
// as on a freshly opened list; "all" disables a criterion.
func (h *ReservationHandler) filterFrom(c echo.Context) (booking.Filter, error) {
	year, month := c.QueryParam("year"), c.QueryParam("month")
	if year == "" {
		year = booking.DefaultFilter(h.now(), h.Settings.Location).YearString()
	}
	return booking.ParseFilter(year, month, h.Settings.Location)
}

func (h *ReservationHandler) now() time.Time {
	if h.Settings.Now != nil {
		return h.Settings.Now()
	}
	return time.Now()
}

// List handles GET /v1/reservations.
func (h *ReservationHandler) List(c echo.Context) error {
	f, err := h.filterFrom(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	all, err := h.Hub.List(c.Request().Context())
	if err != nil {
		h.Log.Error("list reservations failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "could not load reservations"})
	}
	return c.JSON(http.StatusOK, session.RenderList(h.Settings, all, f, ""))
}

// Availability handles GET /v1/reservations/availability?date=YYYY-MM-DD.
// A blank date yields an empty advisory, not an error.
func (h *ReservationHandler) Availability(c echo.Context) error {
	date := strings.TrimSpace(c.QueryParam("date"))
	all, err := h.Hub.List(c.Request().Context())
	if err != nil {
		h.Log.Error("list reservations failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "could not load reservations"})
	}
	matches := booking.CheckAvailability(date, all)
	adv := session.Advisory{Date: date, Conflicts: booking.Conflicts(matches)}
	if date != "" {
		adv.Status = session.Available
		if len(matches) > 0 {
			adv.Status = session.Booked
		}
	}
	return c.JSON(http.StatusOK, adv)
}

// Contact handles GET /v1/reservations/:id/contact. With ?redirect=1 the
// client is sent straight to the messaging link.
func (h *ReservationHandler) Contact(c echo.Context) error {
	all, err := h.Hub.List(c.Request().Context())
	if err != nil {
		h.Log.Error("list reservations failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "could not load reservations"})
	}
	id := c.Param("id")
	for _, r := range all {
		if r.ID == id {
			return sendLink(c, h.Settings.Contact.Link(r))
		}
	}
	return writeError(c, h.Log, session.ErrItemNotFound)
}

func sendLink(c echo.Context, link string) error {
	if c.QueryParam("redirect") == "1" {
		return c.Redirect(http.StatusSeeOther, link)
	}
	return c.JSON(http.StatusOK, echo.Map{"url": link})
}

// Stream handles GET /v1/reservations/stream. It holds a hub subscription
// for as long as the client stays connected and sends every snapshot,
// rendered through the optional year/month filter, as a server-sent
// "snapshot" event.
func (h *ReservationHandler) Stream(c echo.Context) error {
	f, err := h.filterFrom(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}

	// Only the latest snapshot matters; older ones are overwritten.
	latest := make(chan []model.Reservation, 1)
	sub := h.Hub.Subscribe(func(snap []model.Reservation) {
		select {
		case <-latest:
		default:
		}
		latest <- snap
	})
	defer sub.Close()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	every := h.Heartbeat
	if every <= 0 {
		every = 25 * time.Second
	}
	ping := time.NewTicker(every)
	defer ping.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ping.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case snap := <-latest:
			data, err := json.Marshal(session.RenderList(h.Settings, snap, f, ""))
			if err != nil {
				h.Log.Error("encode snapshot failed", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
