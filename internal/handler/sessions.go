package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/venue-reservations/internal/middleware"
	"github.com/iliyamo/venue-reservations/internal/model"
	"github.com/iliyamo/venue-reservations/internal/session"
	"github.com/iliyamo/venue-reservations/internal/utils"
)

// SessionHandler exposes form and list sessions over HTTP. Opening a
// session returns a signed handle; every other route carries it in the
// :token path segment and runs behind middleware.SessionAuth.
type SessionHandler struct {
	Registry  *session.Registry
	Secret    string
	HandleTTL time.Duration
	Log       *zap.Logger
}

// NewSessionHandler wires the handler. A zero ttl issues handles valid for
// a day.
func NewSessionHandler(reg *session.Registry, secret string, ttl time.Duration, log *zap.Logger) *SessionHandler {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionHandler{Registry: reg, Secret: secret, HandleTTL: ttl, Log: log.Named("sessions")}
}

type openResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	View      interface{} `json:"view"`
}

type filterRequest struct {
	Year  string `json:"year"`
	Month string `json:"month"`
}

// ---- forms ----

// OpenForm handles POST /v1/forms.
func (h *SessionHandler) OpenForm(c echo.Context) error {
	s := h.Registry.OpenForm()
	tok, err := utils.NewSessionToken(h.Secret, s.ID(), session.KindForm, h.HandleTTL)
	if err != nil {
		_ = h.Registry.CloseForm(s.ID())
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, openResponse{Token: tok.Token, ExpiresAt: tok.Exp, View: s.View()})
}

func (h *SessionHandler) form(c echo.Context) (*session.FormSession, error) {
	return h.Registry.Form(middleware.SessionID(c))
}

// GetForm handles GET /v1/forms/:token.
func (h *SessionHandler) GetForm(c echo.Context) error {
	s, err := h.form(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, s.View())
}

// UpdateForm handles PATCH /v1/forms/:token. The body is a JSON object of
// draft fields; numbers are accepted in place of strings and null clears
// a field.
func (h *SessionHandler) UpdateForm(c echo.Context) error {
	s, err := h.form(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	// Path params would otherwise be bound into the map as well.
	var body map[string]interface{}
	if err := (&echo.DefaultBinder{}).BindBody(c, &body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	fields := make(map[string]string, len(body))
	for k, v := range body {
		str, ok := fieldString(v)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "field must be a string or number", "field": k})
		}
		fields[k] = str
	}
	if err := s.Update(fields); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, s.View())
}

func fieldString(v interface{}) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}

// SubmitForm handles POST /v1/forms/:token/submit. Validation errors come
// back as 400 and store failures as 502; both leave the draft in place.
func (h *SessionHandler) SubmitForm(c echo.Context) error {
	s, err := h.form(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	created, err := s.Submit(c.Request().Context())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, struct {
		Reservation model.Reservation `json:"reservation"`
		View        session.FormView  `json:"view"`
	}{created, s.View()})
}

// DismissForm handles POST /v1/forms/:token/dismiss.
func (h *SessionHandler) DismissForm(c echo.Context) error {
	s, err := h.form(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	s.Dismiss()
	return c.JSON(http.StatusOK, s.View())
}

// CloseForm handles DELETE /v1/forms/:token.
func (h *SessionHandler) CloseForm(c echo.Context) error {
	if err := h.Registry.CloseForm(middleware.SessionID(c)); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ---- lists ----

// OpenList handles POST /v1/lists.
func (h *SessionHandler) OpenList(c echo.Context) error {
	s := h.Registry.OpenList()
	tok, err := utils.NewSessionToken(h.Secret, s.ID(), session.KindList, h.HandleTTL)
	if err != nil {
		_ = h.Registry.CloseList(s.ID())
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, openResponse{Token: tok.Token, ExpiresAt: tok.Exp, View: s.View()})
}

func (h *SessionHandler) list(c echo.Context) (*session.ListSession, error) {
	return h.Registry.List(middleware.SessionID(c))
}

// GetList handles GET /v1/lists/:token.
func (h *SessionHandler) GetList(c echo.Context) error {
	s, err := h.list(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, s.View())
}

// SetFilter handles PUT /v1/lists/:token/filter with {"year","month"}.
func (h *SessionHandler) SetFilter(c echo.Context) error {
	s, err := h.list(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	var req filterRequest
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := s.SetFilter(req.Year, req.Month); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, s.View())
}

// ResetFilter handles DELETE /v1/lists/:token/filter.
func (h *SessionHandler) ResetFilter(c echo.Context) error {
	s, err := h.list(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	s.ResetFilters()
	return c.JSON(http.StatusOK, s.View())
}

// Arm handles POST /v1/lists/:token/items/:id/arm.
func (h *SessionHandler) Arm(c echo.Context) error {
	s, err := h.list(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	if err := s.Arm(c.Param("id")); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, s.View())
}

// Disarm handles DELETE /v1/lists/:token/armed.
func (h *SessionHandler) Disarm(c echo.Context) error {
	s, err := h.list(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	s.Disarm()
	return c.JSON(http.StatusOK, s.View())
}

// ConfirmDelete handles POST /v1/lists/:token/items/:id/delete. Only the
// armed item can be deleted; anything else is a 409.
func (h *SessionHandler) ConfirmDelete(c echo.Context) error {
	s, err := h.list(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	if err := s.ConfirmDelete(c.Request().Context(), c.Param("id")); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, s.View())
}

// DismissListError handles DELETE /v1/lists/:token/error.
func (h *SessionHandler) DismissListError(c echo.Context) error {
	s, err := h.list(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	if err := s.DismissError(); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, s.View())
}

// ItemContact handles GET /v1/lists/:token/items/:id/contact.
func (h *SessionHandler) ItemContact(c echo.Context) error {
	s, err := h.list(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	link, err := s.ContactLink(c.Param("id"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return sendLink(c, link)
}

// CloseList handles DELETE /v1/lists/:token.
func (h *SessionHandler) CloseList(c echo.Context) error {
	if err := h.Registry.CloseList(middleware.SessionID(c)); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
