package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/venue-reservations/internal/booking"
	"github.com/iliyamo/venue-reservations/internal/live"
	"github.com/iliyamo/venue-reservations/internal/model"
)

// Empty-state messages of the list.
const (
	EmptyNoReservations = "Nenhuma reserva encontrada."
	EmptyNoMatch        = "Nenhuma reserva encontrada para os filtros selecionados."
)

// ItemView is one reservation card. Advance and Remaining are only set
// when an advance payment greater than zero was recorded.
type ItemView struct {
	ID            string       `json:"id"`
	ClientName    string       `json:"clientName"`
	Date          string       `json:"date"`
	DateLabel     string       `json:"dateLabel"`
	Status        model.Status `json:"status"`
	StatusLabel   string       `json:"statusLabel"`
	Guests        *int         `json:"guests,omitempty"`
	TableQuantity *int         `json:"tableQuantity,omitempty"`
	Phone         string       `json:"phone"`
	Notes         string       `json:"notes,omitempty"`
	Total         string       `json:"total"`
	Advance       string       `json:"advance,omitempty"`
	Remaining     string       `json:"remaining,omitempty"`
	Armed         bool         `json:"armed"`
}

// MonthOption is one entry of the month selector.
type MonthOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// ListView is what the list renders.
type ListView struct {
	ID           string        `json:"id"`
	Loading      bool          `json:"loading"`
	Year         string        `json:"year"`
	Month        string        `json:"month"`
	Armed        string        `json:"armed,omitempty"`
	Error        string        `json:"error,omitempty"`
	Items        []ItemView    `json:"items"`
	Shown        int           `json:"shown"`
	Total        int           `json:"total"`
	Empty        string        `json:"empty,omitempty"`
	YearOptions  []int         `json:"yearOptions"`
	MonthOptions []MonthOption `json:"monthOptions"`
}

// ListSession is a live, filterable view of every reservation. At most
// one item is armed for deletion at any time.
type ListSession struct {
	id  string
	hub Hub
	log *zap.Logger
	set Settings

	mu       sync.Mutex
	snapshot []model.Reservation
	loaded   bool
	filter   booking.Filter
	armed    string
	errText  string
	closed   bool
	lastUsed time.Time
	sub      *live.Subscription
}

// NewListSession opens a list filtered on the current year and subscribes it.
func NewListSession(id string, hub Hub, set Settings, log *zap.Logger) *ListSession {
	set = set.withDefaults()
	now := set.Now()
	s := &ListSession{
		id:       id,
		hub:      hub,
		log:      log.Named("list").With(zap.String("session", id)),
		set:      set,
		filter:   booking.DefaultFilter(now, set.Location),
		lastUsed: now,
	}
	s.sub = hub.Subscribe(s.onSnapshot)
	return s
}

// ID returns the session id.
func (s *ListSession) ID() string { return s.id }

func (s *ListSession) onSnapshot(snap []model.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap
	s.loaded = true
}

// SetFilter changes the year and month criteria. Either may be "all".
func (s *ListSession) SetFilter(year, month string) error {
	f, err := booking.ParseFilter(year, month, s.set.Location)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.lastUsed = s.set.Now()
	s.filter = f
	return nil
}

// ResetFilters restores the current year and every month.
func (s *ListSession) ResetFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.set.Now()
	s.lastUsed = now
	s.filter = booking.DefaultFilter(now, s.set.Location)
}

// Arm asks for confirmation before deleting id, disarming any other item.
func (s *ListSession) Arm(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.lastUsed = s.set.Now()
	if _, ok := s.find(id); !ok {
		return ErrItemNotFound
	}
	s.armed = id
	s.errText = ""
	return nil
}

// Disarm cancels a pending delete confirmation.
func (s *ListSession) Disarm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = s.set.Now()
	s.armed = ""
}

// Armed returns the id armed for deletion, or "".
func (s *ListSession) Armed() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armed
}

// ConfirmDelete deletes id if and only if it is the armed item. The arm is
// consumed before the store is called, so concurrent confirms issue a
// single delete and the rest get ErrNotArmed. The item stays in the view
// until the hub pushes a snapshot without it.
func (s *ListSession) ConfirmDelete(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.lastUsed = s.set.Now()
	if s.armed == "" || s.armed != id {
		s.mu.Unlock()
		return ErrNotArmed
	}
	s.armed = ""
	s.mu.Unlock()

	err := s.hub.Delete(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.errText = "Erro ao deletar reserva: " + errorDetail(err)
		s.log.Error("delete reservation failed", zap.String("id", id), zap.Error(err))
		return err
	}
	s.errText = ""
	return nil
}

// DismissError clears the error alert.
func (s *ListSession) DismissError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.errText = ""
	return nil
}

// ContactLink returns the prefilled messaging link for a reservation.
func (s *ListSession) ContactLink(id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	s.lastUsed = s.set.Now()
	r, ok := s.find(id)
	if !ok {
		return "", ErrItemNotFound
	}
	return s.set.Contact.Link(r), nil
}

// find looks id up in the latest snapshot. Callers hold mu.
func (s *ListSession) find(id string) (model.Reservation, bool) {
	for _, r := range s.snapshot {
		if r.ID == id {
			return r, true
		}
	}
	return model.Reservation{}, false
}

// View applies the filter to the latest snapshot and renders it.
func (s *ListSession) View() ListView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = s.set.Now()

	v := RenderList(s.set, s.snapshot, s.filter, s.armed)
	v.ID = s.id
	v.Loading = !s.loaded
	v.Error = s.errText
	if v.Loading {
		v.Empty = ""
	}
	return v
}

// RenderList renders snap through filter f the way a list session shows
// it, marking armed as the item awaiting delete confirmation.
func RenderList(set Settings, snap []model.Reservation, f booking.Filter, armed string) ListView {
	set = set.withDefaults()
	shown := f.Apply(snap)
	v := ListView{
		Year:         f.YearString(),
		Month:        f.MonthString(),
		Armed:        armed,
		Items:        make([]ItemView, 0, len(shown)),
		Shown:        len(shown),
		Total:        len(snap),
		YearOptions:  booking.YearOptions(set.Now(), set.Location),
		MonthOptions: monthOptions(),
	}
	for _, r := range shown {
		v.Items = append(v.Items, renderItem(set, r, armed))
	}
	if len(shown) == 0 {
		if len(snap) == 0 {
			v.Empty = EmptyNoReservations
		} else {
			v.Empty = EmptyNoMatch
		}
	}
	return v
}

func renderItem(set Settings, r model.Reservation, armed string) ItemView {
	cur := set.Currency
	iv := ItemView{
		ID:            r.ID,
		ClientName:    r.ClientName,
		Date:          r.Date,
		DateLabel:     booking.FormatDate(r.Date, set.Location),
		Status:        r.Status,
		StatusLabel:   booking.StatusLabel(r.Status),
		Guests:        r.Guests,
		TableQuantity: r.TableQuantity,
		Phone:         r.Phone,
		Notes:         r.Notes,
		Total:         cur.Format(r.ReservationValue),
		Armed:         armed != "" && r.ID == armed,
	}
	if r.HasAdvance() {
		iv.Advance = cur.Format(r.AdvancePayment.Decimal)
		iv.Remaining = cur.Format(r.Balance())
	}
	return iv
}

func monthOptions() []MonthOption {
	out := make([]MonthOption, 0, 13)
	out = append(out, MonthOption{Value: booking.All, Label: "Todos os meses"})
	for m := time.January; m <= time.December; m++ {
		out = append(out, MonthOption{Value: booking.Filter{Month: m}.MonthString(), Label: booking.MonthName(m)})
	}
	return out
}

// Close releases the hub subscription. No snapshot is applied after Close
// returns; an in-flight delete is not cancelled.
func (s *ListSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.armed = ""
	sub := s.sub
	s.mu.Unlock()
	sub.Close()
}

func (s *ListSession) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}
