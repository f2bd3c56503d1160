package session

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/venue-reservations/internal/booking"
	"github.com/iliyamo/venue-reservations/internal/live"
	"github.com/iliyamo/venue-reservations/internal/model"
)

// FormState is the position of a form in its submit cycle.
type FormState string

const (
	StateEditing    FormState = "editing"
	StateSubmitting FormState = "submitting"
	StateSuccess    FormState = "success"
	StateFailure    FormState = "failure"
)

// Availability values shown in the advisory panel.
const (
	Available = "available"
	Booked    = "booked"
)

// Advisory tells the operator whether the chosen date is already taken.
// It never blocks submission.
type Advisory struct {
	Date      string             `json:"date"`
	Status    string             `json:"status,omitempty"`
	Conflicts []booking.Conflict `json:"conflicts,omitempty"`
}

// FormView is what the form renders.
type FormView struct {
	ID           string      `json:"id"`
	State        FormState   `json:"state"`
	Draft        model.Draft `json:"draft"`
	Advisory     *Advisory   `json:"advisory,omitempty"`
	Loading      bool        `json:"loading"`
	Confirmation string      `json:"confirmation,omitempty"`
	Error        string      `json:"error,omitempty"`
}

const confirmationText = "Reserva salva com sucesso!"

// FormSession drafts a reservation and submits it through the hub. It
// keeps its own subscription so that the availability advisory follows
// the live collection.
type FormSession struct {
	id  string
	hub Hub
	log *zap.Logger
	set Settings

	mu        sync.Mutex
	state     FormState
	draft     model.Draft
	snapshot  []model.Reservation
	loaded    bool
	advisory  *Advisory
	confirmed bool
	confirmGn uint64
	timer     *time.Timer
	errText   string
	closed    bool
	lastUsed  time.Time
	sub       *live.Subscription
}

// NewFormSession opens a form in the editing state and subscribes it.
func NewFormSession(id string, hub Hub, set Settings, log *zap.Logger) *FormSession {
	set = set.withDefaults()
	s := &FormSession{
		id:       id,
		hub:      hub,
		log:      log.Named("form").With(zap.String("session", id)),
		set:      set,
		state:    StateEditing,
		lastUsed: set.Now(),
	}
	s.sub = hub.Subscribe(s.onSnapshot)
	return s
}

// ID returns the session id.
func (s *FormSession) ID() string { return s.id }

func (s *FormSession) onSnapshot(snap []model.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap
	s.loaded = true
	s.checkDate()
}

// checkDate refreshes the advisory for the draft date. Callers hold mu.
func (s *FormSession) checkDate() {
	date := strings.TrimSpace(s.draft.Date)
	if date == "" {
		s.advisory = nil
		return
	}
	a := &Advisory{Date: date, Status: Available}
	if matches := booking.CheckAvailability(date, s.snapshot); len(matches) > 0 {
		a.Status = Booked
		a.Conflicts = booking.Conflicts(matches)
	}
	s.advisory = a
}

// Set binds one draft field. Changing the date re-runs the availability
// check. An edit after a success or failure returns the form to editing.
func (s *FormSession) Set(field, value string) error {
	return s.Update(map[string]string{field: value})
}

// Update binds several draft fields at once. Unknown field names are
// rejected before anything changes.
func (s *FormSession) Update(fields map[string]string) error {
	var probe model.Draft
	names := make([]string, 0, len(fields))
	for name := range fields {
		if !probe.Set(name, "") {
			return &booking.ValidationError{Field: name, Reason: "is not a form field"}
		}
		names = append(names, name)
	}
	sort.Strings(names)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.state == StateSubmitting {
		return ErrSubmitting
	}
	s.lastUsed = s.set.Now()
	dateChanged := false
	for _, name := range names {
		s.draft.Set(name, fields[name])
		if name == model.FieldDate {
			dateChanged = true
		}
	}
	if dateChanged {
		s.checkDate()
	}
	if s.state == StateSuccess || s.state == StateFailure {
		s.state = StateEditing
		s.errText = ""
	}
	return nil
}

// Submit validates the draft and, when it is complete, writes exactly one
// new reservation. Validation failures never reach the store. A store
// failure keeps the draft so the operator can retry by hand.
func (s *FormSession) Submit(ctx context.Context) (model.Reservation, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return model.Reservation{}, ErrClosed
	}
	if s.state == StateSubmitting {
		s.mu.Unlock()
		return model.Reservation{}, ErrSubmitting
	}
	s.lastUsed = s.set.Now()
	s.clearConfirmation()
	r, err := booking.BuildReservation(s.draft, s.set.Now())
	if err != nil {
		s.state = StateEditing
		s.errText = err.Error()
		s.mu.Unlock()
		return model.Reservation{}, err
	}
	s.state = StateSubmitting
	s.errText = ""
	s.mu.Unlock()

	created, err := s.hub.Create(ctx, r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateFailure
		s.errText = "Erro ao salvar reserva: " + errorDetail(err)
		s.log.Error("submit reservation failed",
			zap.String("client", r.ClientName), zap.String("date", r.Date), zap.Error(err))
		return model.Reservation{}, err
	}
	s.state = StateSuccess
	s.draft = model.Draft{}
	s.advisory = nil
	s.confirmed = true
	s.confirmGn++
	gen := s.confirmGn
	if !s.closed {
		s.timer = time.AfterFunc(s.set.ConfirmationTTL, func() { s.expireConfirmation(gen) })
	}
	s.log.Info("reservation submitted", zap.String("id", created.ID))
	return created, nil
}

// clearConfirmation drops a pending confirmation. Callers hold mu.
func (s *FormSession) clearConfirmation() {
	s.confirmed = false
	s.confirmGn++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *FormSession) expireConfirmation(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.confirmGn {
		return
	}
	s.confirmed = false
	s.timer = nil
	if s.state == StateSuccess {
		s.state = StateEditing
	}
}

// Dismiss closes the error alert or the confirmation.
func (s *FormSession) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = s.set.Now()
	s.clearConfirmation()
	s.errText = ""
	if s.state == StateSuccess || s.state == StateFailure {
		s.state = StateEditing
	}
}

// View returns a copy of the form state.
func (s *FormSession) View() FormView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = s.set.Now()
	v := FormView{
		ID:      s.id,
		State:   s.state,
		Draft:   s.draft,
		Loading: !s.loaded,
		Error:   s.errText,
	}
	if s.advisory != nil {
		a := *s.advisory
		v.Advisory = &a
	}
	if s.confirmed {
		v.Confirmation = confirmationText
	}
	return v
}

// Close releases the hub subscription. An in-flight submission is not
// cancelled.
func (s *FormSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.clearConfirmation()
	sub := s.sub
	s.mu.Unlock()
	sub.Close()
}

func (s *FormSession) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// errorDetail is the operator-facing part of a write failure.
func errorDetail(err error) string {
	var werr *booking.StoreWriteError
	if errors.As(err, &werr) && werr.Err != nil {
		return werr.Err.Error()
	}
	return err.Error()
}
