package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/iliyamo/venue-reservations/internal/model"
)

// MemoryStore keeps reservations in process. It backs STORE_DRIVER=memory
// for local runs and is the store used by the hub and session tests.
type MemoryStore struct {
	mu   sync.Mutex
	rows []model.Reservation
}

// NewMemoryStore returns a store preloaded with seed, whose ids are kept
// when set.
func NewMemoryStore(seed ...model.Reservation) *MemoryStore {
	s := &MemoryStore{}
	for _, r := range seed {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		s.rows = append(s.rows, r)
	}
	return s
}

func (s *MemoryStore) Create(_ context.Context, r *model.Reservation) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = uuid.NewString()
	if r.Status == "" {
		r.Status = model.StatusPending
	}
	s.rows = append(s.rows, *r)
	return r.ID, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.rows {
		if r.ID == id {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) List(_ context.Context) ([]model.Reservation, error) {
	s.mu.Lock()
	out := make([]model.Reservation, len(s.rows))
	copy(out, s.rows)
	s.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}
