package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/venue-reservations/internal/metrics"
)

type idler interface {
	Close()
	idleSince() time.Time
}

// Registry tracks open sessions by id and closes the ones left idle for
// longer than the TTL.
type Registry struct {
	hub Hub
	set Settings
	ttl time.Duration
	log *zap.Logger

	mu    sync.Mutex
	forms map[string]*FormSession
	lists map[string]*ListSession
}

// NewRegistry creates an empty registry. A ttl of zero disables expiry.
func NewRegistry(hub Hub, set Settings, ttl time.Duration, log *zap.Logger) *Registry {
	return &Registry{
		hub:   hub,
		set:   set.withDefaults(),
		ttl:   ttl,
		log:   log.Named("sessions"),
		forms: make(map[string]*FormSession),
		lists: make(map[string]*ListSession),
	}
}

// OpenForm starts a new form session.
func (r *Registry) OpenForm() *FormSession {
	s := NewFormSession(uuid.NewString(), r.hub, r.set, r.log)
	r.mu.Lock()
	r.forms[s.id] = s
	n := len(r.forms)
	r.mu.Unlock()
	metrics.OpenSessions.WithLabelValues(KindForm).Set(float64(n))
	return s
}

// OpenList starts a new list session.
func (r *Registry) OpenList() *ListSession {
	s := NewListSession(uuid.NewString(), r.hub, r.set, r.log)
	r.mu.Lock()
	r.lists[s.id] = s
	n := len(r.lists)
	r.mu.Unlock()
	metrics.OpenSessions.WithLabelValues(KindList).Set(float64(n))
	return s
}

// Form returns an open form session.
func (r *Registry) Form(id string) (*FormSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.forms[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// List returns an open list session.
func (r *Registry) List(id string) (*ListSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.lists[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// CloseForm closes and forgets a form session.
func (r *Registry) CloseForm(id string) error {
	r.mu.Lock()
	s, ok := r.forms[id]
	delete(r.forms, id)
	n := len(r.forms)
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	metrics.OpenSessions.WithLabelValues(KindForm).Set(float64(n))
	return nil
}

// CloseList closes and forgets a list session.
func (r *Registry) CloseList(id string) error {
	r.mu.Lock()
	s, ok := r.lists[id]
	delete(r.lists, id)
	n := len(r.lists)
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	metrics.OpenSessions.WithLabelValues(KindList).Set(float64(n))
	return nil
}

// Sweep closes every session idle since before now minus the TTL and
// returns how many were closed.
func (r *Registry) Sweep(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := now.Add(-r.ttl)

	r.mu.Lock()
	stale := expired(r.forms, cutoff)
	stale = append(stale, expired(r.lists, cutoff)...)
	nf, nl := len(r.forms), len(r.lists)
	r.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
	metrics.OpenSessions.WithLabelValues(KindForm).Set(float64(nf))
	metrics.OpenSessions.WithLabelValues(KindList).Set(float64(nl))
	if len(stale) > 0 {
		r.log.Info("expired idle sessions", zap.Int("count", len(stale)))
	}
	return len(stale)
}

func expired[S idler](m map[string]S, cutoff time.Time) []idler {
	var out []idler
	for id, s := range m {
		if s.idleSince().Before(cutoff) {
			delete(m, id)
			out = append(out, s)
		}
	}
	return out
}

// Run sweeps every interval until ctx is done, then closes everything.
func (r *Registry) Run(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			r.CloseAll()
			return
		case <-t.C:
			r.Sweep(r.set.Now())
		}
	}
}

// CloseAll closes every open session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := make([]idler, 0, len(r.forms)+len(r.lists))
	for _, s := range r.forms {
		all = append(all, s)
	}
	for _, s := range r.lists {
		all = append(all, s)
	}
	r.forms = make(map[string]*FormSession)
	r.lists = make(map[string]*ListSession)
	r.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
	metrics.OpenSessions.WithLabelValues(KindForm).Set(0)
	metrics.OpenSessions.WithLabelValues(KindList).Set(0)
}
