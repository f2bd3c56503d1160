package repository

import (
	"context"

	"github.com/iliyamo/venue-reservations/internal/model"
)

// Store is the persistence contract shared by every backend. A reservation
// is created whole in a single write; there is no update.
type Store interface {
	// Create persists r, assigns its ID and returns it.
	Create(ctx context.Context, r *model.Reservation) (string, error)
	// Delete removes a reservation. It returns ErrNotFound when id is unknown.
	Delete(ctx context.Context, id string) error
	// List returns every reservation ordered by event date ascending.
	List(ctx context.Context) ([]model.Reservation, error)
}
