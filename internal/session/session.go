// Package session holds the server-side state of the operator's views.
// A FormSession drafts and submits one reservation at a time; a
// ListSession browses, filters, contacts and deletes reservations. Both
// receive live snapshots from the shared live.Hub and must be closed when
// the view goes away.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/venue-reservations/internal/booking"
	"github.com/iliyamo/venue-reservations/internal/live"
	"github.com/iliyamo/venue-reservations/internal/model"
)

var (
	// ErrNotArmed is returned by ConfirmDelete when the item was not armed first.
	ErrNotArmed = errors.New("delete not armed for this reservation")
	// ErrSubmitting is returned while a submission is still in flight.
	ErrSubmitting = errors.New("a submission is already in progress")
	// ErrSessionNotFound is returned for unknown, closed or expired sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrItemNotFound is returned when an id is not in the current snapshot.
	ErrItemNotFound = errors.New("reservation not in current view")
	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("session closed")
)

// Kinds of session, used in metrics labels and signed handles.
const (
	KindForm = "form"
	KindList = "list"
)

// Hub is the part of live.Hub the sessions depend on.
type Hub interface {
	Subscribe(fn func([]model.Reservation)) *live.Subscription
	Create(ctx context.Context, r model.Reservation) (model.Reservation, error)
	Delete(ctx context.Context, id string) error
}

// Settings are shared by every session of a registry.
type Settings struct {
	Location        *time.Location
	Contact         booking.Contact
	Currency        booking.Currency
	ConfirmationTTL time.Duration
	Now             func() time.Time
}

func (s Settings) withDefaults() Settings {
	if s.Location == nil {
		s.Location = time.Local
	}
	if s.Contact.Location == nil {
		s.Contact.Location = s.Location
	}
	if s.Currency == (booking.Currency{}) {
		s.Currency = booking.BRL
	}
	if s.ConfirmationTTL <= 0 {
		s.ConfirmationTTL = 5 * time.Second
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	return s
}
