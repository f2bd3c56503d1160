package live

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/venue-reservations/internal/booking"
	"github.com/iliyamo/venue-reservations/internal/metrics"
	"github.com/iliyamo/venue-reservations/internal/model"
	"github.com/iliyamo/venue-reservations/internal/queue"
	"github.com/iliyamo/venue-reservations/internal/repository"
)

// EventPublisher receives an event after every successful write.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ReservationEvent) error
}

// Option configures a Hub.
type Option func(*Hub)

// WithEvents publishes reservation events after successful writes.
func WithEvents(p EventPublisher) Option {
	return func(h *Hub) { h.events = p }
}

// WithClock overrides the clock used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) { h.now = now }
}

// Hub is the shared subscription manager. It owns at most one upstream
// watch on the feed, started by the first subscriber and stopped when the
// last one leaves, and it is the only write path to the store.
type Hub struct {
	store  repository.Store
	feed   Feed
	events EventPublisher
	log    *zap.Logger
	now    func() time.Time

	refresh chan struct{}

	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	cancel context.CancelFunc
}

// NewHub wires a hub over store and feed.
func NewHub(store repository.Store, feed Feed, log *zap.Logger, opts ...Option) *Hub {
	h := &Hub{
		store:   store,
		feed:    feed,
		log:     log.Named("hub"),
		now:     time.Now,
		refresh: make(chan struct{}, 1),
		subs:    make(map[uint64]*Subscription),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscription is the handle returned by Subscribe. Close must be called
// when the view goes away; it must not be called from inside the callback.
type Subscription struct {
	hub  *Hub
	id   uint64
	fn   func([]model.Reservation)
	mu   sync.Mutex
	done bool
	once sync.Once
}

// Close detaches the subscriber. Once Close returns, the callback is never
// invoked again. Calling Close more than once is harmless.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.done = true
		s.mu.Unlock()
		s.hub.release(s.id)
	})
}

func (s *Subscription) deliver(snap []model.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.fn(snap)
}

// Subscribe registers fn for full snapshots ordered by date ascending. A
// first snapshot follows shortly after subscribing and a new one after
// every change. Snapshots are shared between subscribers and must be
// treated as read-only.
func (h *Hub) Subscribe(fn func([]model.Reservation)) *Subscription {
	h.mu.Lock()
	h.nextID++
	s := &Subscription{hub: h, id: h.nextID, fn: fn}
	h.subs[s.id] = s
	if h.cancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancel = cancel
		go h.watch(ctx)
	} else {
		notify(h.refresh)
	}
	n := len(h.subs)
	h.mu.Unlock()
	metrics.Subscribers.Set(float64(n))
	return s
}

func (h *Hub) release(id uint64) {
	h.mu.Lock()
	delete(h.subs, id)
	n := len(h.subs)
	if n == 0 && h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	h.mu.Unlock()
	metrics.Subscribers.Set(float64(n))
}

// Subscribers returns the number of attached subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close stops the upstream watch. Remaining subscriptions stay attached
// but receive nothing more.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// List reads the collection straight from the store.
func (h *Hub) List(ctx context.Context) ([]model.Reservation, error) {
	return h.store.List(ctx)
}

// Create writes a new reservation in one call and returns it with its id.
// Failures are logged and returned as *booking.StoreWriteError; nothing is
// retried.
func (h *Hub) Create(ctx context.Context, r model.Reservation) (model.Reservation, error) {
	_, err := h.store.Create(ctx, &r)
	metrics.ObserveWrite("create", err)
	if err != nil {
		h.log.Error("create reservation failed",
			zap.String("client", r.ClientName), zap.String("date", r.Date), zap.Error(err))
		return model.Reservation{}, &booking.StoreWriteError{Op: "create", Err: err}
	}
	h.log.Info("reservation created", zap.String("id", r.ID), zap.String("date", r.Date))
	h.changed(ctx, createdEvent(r, h.now()))
	return r, nil
}

// Delete removes a reservation. Deleting an unknown id fails with a
// *booking.StoreWriteError wrapping repository.ErrNotFound.
func (h *Hub) Delete(ctx context.Context, id string) error {
	err := h.store.Delete(ctx, id)
	metrics.ObserveWrite("delete", err)
	if err != nil {
		h.log.Error("delete reservation failed", zap.String("id", id), zap.Error(err))
		return &booking.StoreWriteError{Op: "delete", ID: id, Err: err}
	}
	h.log.Info("reservation deleted", zap.String("id", id))
	h.changed(ctx, queue.ReservationEvent{
		Type:          queue.EventDeleted,
		ReservationID: id,
		OccurredAt:    h.now().UTC().Format(time.RFC3339),
	})
	return nil
}

func (h *Hub) changed(ctx context.Context, ev queue.ReservationEvent) {
	if err := h.feed.Publish(ctx); err != nil {
		h.log.Warn("publish change failed, refreshing locally", zap.Error(err))
		notify(h.refresh)
	}
	if h.events == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.events.Publish(ctx, ev); err != nil {
			h.log.Warn("publish reservation event failed", zap.String("type", ev.Type), zap.Error(err))
		}
	}()
}

func createdEvent(r model.Reservation, at time.Time) queue.ReservationEvent {
	ev := queue.ReservationEvent{
		Type:             queue.EventCreated,
		ReservationID:    r.ID,
		ClientName:       r.ClientName,
		Date:             r.Date,
		ReservationValue: r.ReservationValue.StringFixed(2),
		OccurredAt:       at.UTC().Format(time.RFC3339),
	}
	if r.AdvancePayment.Valid {
		ev.AdvancePayment = r.AdvancePayment.Decimal.StringFixed(2)
	}
	if r.Guests != nil {
		ev.Guests = *r.Guests
	}
	return ev
}

// watch keeps one listener on the feed for as long as ctx lives,
// reconnecting with backoff when the feed drops.
func (h *Hub) watch(ctx context.Context) {
	backoff := time.Second
	for ctx.Err() == nil {
		changes, err := h.feed.Listen(ctx)
		if err != nil {
			h.log.Warn("listen for changes failed", zap.Error(err), zap.Duration("retry_in", backoff))
			h.reload(ctx)
			h.idle(ctx, backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second
		h.reload(ctx)
		h.pump(ctx, changes)
	}
}

func (h *Hub) pump(ctx context.Context, changes <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.refresh:
			h.reload(ctx)
		case _, ok := <-changes:
			if !ok {
				if ctx.Err() == nil {
					h.log.Warn("change feed closed, reconnecting")
				}
				return
			}
			h.reload(ctx)
		}
	}
}

// idle waits for d while still serving refresh requests.
func (h *Hub) idle(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			return
		case <-h.refresh:
			h.reload(ctx)
		}
	}
}

func (h *Hub) reload(ctx context.Context) {
	snap, err := h.store.List(ctx)
	if err != nil {
		if ctx.Err() == nil {
			h.log.Warn("reload reservations failed", zap.Error(err))
		}
		return
	}
	if ctx.Err() != nil {
		return
	}

	h.mu.Lock()
	subs := make([]*Subscription, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	sort.Slice(subs, func(i, j int) bool { return subs[i].id < subs[j].id })
	for _, s := range subs {
		s.deliver(snap)
	}
	metrics.SnapshotPushes.Inc()
}
