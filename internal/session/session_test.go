package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/venue-reservations/internal/booking"
	"github.com/iliyamo/venue-reservations/internal/live"
	"github.com/iliyamo/venue-reservations/internal/model"
	"github.com/iliyamo/venue-reservations/internal/repository"
)

const wait = 2 * time.Second
const tick = 5 * time.Millisecond

var brt = time.FixedZone("BRT", -3*60*60)

// countingStore records every create that reaches the store.
type countingStore struct {
	repository.Store
	mu      sync.Mutex
	creates []model.Reservation
	deletes int
	fail    error
	gate    chan struct{}
	delGate chan struct{}
}

func (s *countingStore) Create(ctx context.Context, r *model.Reservation) (string, error) {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	s.creates = append(s.creates, *r)
	fail := s.fail
	s.mu.Unlock()
	if fail != nil {
		return "", fail
	}
	return s.Store.Create(ctx, r)
}

func (s *countingStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	s.deletes++
	gate := s.delGate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	s.mu.Lock()
	fail := s.fail
	s.mu.Unlock()
	if fail != nil {
		return fail
	}
	return s.Store.Delete(ctx, id)
}

func (s *countingStore) created() []model.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Reservation(nil), s.creates...)
}

type fixture struct {
	store *countingStore
	hub   *live.Hub
	set   Settings
}

func newFixture(t *testing.T, seed ...model.Reservation) *fixture {
	t.Helper()
	store := &countingStore{Store: repository.NewMemoryStore(seed...)}
	hub := live.NewHub(store, live.NewLocalFeed(), zap.NewNop())
	t.Cleanup(hub.Close)
	return &fixture{
		store: store,
		hub:   hub,
		set: Settings{
			Location:        brt,
			Contact:         booking.Contact{Host: "wa.me", CountryCode: "55"},
			ConfirmationTTL: time.Minute,
			Now:             func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, brt) },
		},
	}
}

func (f *fixture) form(t *testing.T) *FormSession {
	s := NewFormSession("form-1", f.hub, f.set, zap.NewNop())
	t.Cleanup(s.Close)
	return s
}

func (f *fixture) list(t *testing.T) *ListSession {
	s := NewListSession("list-1", f.hub, f.set, zap.NewNop())
	t.Cleanup(s.Close)
	require.Eventually(t, func() bool { return !s.View().Loading }, wait, tick)
	return s
}

func seeded(name, date string, advance string) model.Reservation {
	r := model.Reservation{
		ClientName:       name,
		Date:             date,
		ReservationValue: decimal.RequireFromString("1500"),
		Phone:            "(11) 98888-7777",
		Status:           model.StatusPending,
	}
	if advance != "" {
		r.AdvancePayment = decimal.NewNullDecimal(decimal.RequireFromString(advance))
	}
	return r
}

func fill(t *testing.T, s *FormSession) {
	t.Helper()
	require.NoError(t, s.Update(map[string]string{
		model.FieldClientName:       "Maria Silva",
		model.FieldDate:             "2025-12-20",
		model.FieldReservationValue: "1500",
		model.FieldAdvancePayment:   "500",
		model.FieldPhone:            "11999999999",
	}))
}

func TestSubmitThenListShowsBalance(t *testing.T) {
	f := newFixture(t)
	form := f.form(t)
	list := f.list(t)

	fill(t, form)
	created, err := form.Submit(context.Background())
	require.NoError(t, err)

	writes := f.store.created()
	require.Len(t, writes, 1)
	assert.Equal(t, model.StatusPending, writes[0].Status)
	assert.Equal(t, "Maria Silva", writes[0].ClientName)

	v := form.View()
	assert.Equal(t, StateSuccess, v.State)
	assert.Equal(t, model.Draft{}, v.Draft)
	assert.NotEmpty(t, v.Confirmation)

	require.NoError(t, list.SetFilter("2025", "12"))
	require.Eventually(t, func() bool { return list.View().Shown == 1 }, wait, tick)
	item := list.View().Items[0]
	assert.Equal(t, created.ID, item.ID)
	assert.Equal(t, "R$\u00a01.500,00", item.Total)
	assert.Equal(t, "R$\u00a0500,00", item.Advance)
	assert.Equal(t, "R$\u00a01.000,00", item.Remaining)
	assert.Equal(t, "20/12/2025", item.DateLabel)
	assert.Equal(t, "Pendente", item.StatusLabel)
}

func TestAdvisoryFollowsDate(t *testing.T) {
	f := newFixture(t, seeded("Ana Souza", "2025-12-20", ""))
	form := f.form(t)

	require.NoError(t, form.Set(model.FieldDate, "2025-12-20"))
	require.Eventually(t, func() bool {
		a := form.View().Advisory
		return a != nil && a.Status == Booked
	}, wait, tick)
	a := form.View().Advisory
	require.Len(t, a.Conflicts, 1)
	assert.Equal(t, "Ana Souza", a.Conflicts[0].ClientName)
	assert.Equal(t, "(11) 98888-7777", a.Conflicts[0].Phone)

	require.NoError(t, form.Set(model.FieldDate, "2025-12-21"))
	a = form.View().Advisory
	require.NotNil(t, a)
	assert.Equal(t, Available, a.Status)
	assert.Empty(t, a.Conflicts)

	require.NoError(t, form.Set(model.FieldDate, ""))
	assert.Nil(t, form.View().Advisory)
}

func TestArmIsSingleSlot(t *testing.T) {
	f := newFixture(t, seeded("A", "2025-03-01", ""), seeded("B", "2025-04-01", ""))
	list := f.list(t)
	items := list.View().Items
	require.Len(t, items, 2)
	idA, idB := items[0].ID, items[1].ID

	require.NoError(t, list.Arm(idA))
	require.NoError(t, list.Arm(idB))
	assert.Equal(t, idB, list.Armed())
	v := list.View()
	assert.False(t, v.Items[0].Armed)
	assert.True(t, v.Items[1].Armed)

	assert.ErrorIs(t, list.ConfirmDelete(context.Background(), idA), ErrNotArmed)
	require.NoError(t, list.ConfirmDelete(context.Background(), idB))
	assert.Empty(t, list.Armed())

	require.Eventually(t, func() bool { return list.View().Total == 1 }, wait, tick)
	assert.Equal(t, idA, list.View().Items[0].ID)
}

func TestDisarmPreventsDelete(t *testing.T) {
	f := newFixture(t, seeded("A", "2025-03-01", ""))
	list := f.list(t)
	id := list.View().Items[0].ID

	require.NoError(t, list.Arm(id))
	list.Disarm()
	assert.ErrorIs(t, list.ConfirmDelete(context.Background(), id), ErrNotArmed)
	assert.ErrorIs(t, list.Arm("missing"), ErrItemNotFound)
	assert.Equal(t, 1, list.View().Total)
}

func TestNoAdvanceShowsOnlyTotal(t *testing.T) {
	f := newFixture(t, seeded("A", "2025-03-01", ""), seeded("B", "2025-03-02", "0"))
	list := f.list(t)
	for _, item := range list.View().Items {
		assert.Equal(t, "R$\u00a01.500,00", item.Total)
		assert.Empty(t, item.Advance)
		assert.Empty(t, item.Remaining)
	}
}

func TestSubmitRejectsIncompleteDraft(t *testing.T) {
	f := newFixture(t)
	form := f.form(t)
	require.NoError(t, form.Set(model.FieldClientName, "Maria Silva"))

	_, err := form.Submit(context.Background())
	var verr *booking.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, model.FieldDate, verr.Field)
	assert.Empty(t, f.store.created())
	assert.Equal(t, StateEditing, form.View().State)
	assert.Equal(t, "Maria Silva", form.View().Draft.ClientName)
}

func TestSubmitFailureKeepsDraft(t *testing.T) {
	f := newFixture(t)
	f.store.fail = errors.New("permission denied")
	form := f.form(t)
	fill(t, form)

	_, err := form.Submit(context.Background())
	var werr *booking.StoreWriteError
	require.ErrorAs(t, err, &werr)

	v := form.View()
	assert.Equal(t, StateFailure, v.State)
	assert.Contains(t, v.Error, "permission denied")
	assert.Equal(t, "Maria Silva", v.Draft.ClientName)
	assert.Len(t, f.store.created(), 1, "one attempt, no retry")

	form.Dismiss()
	v = form.View()
	assert.Equal(t, StateEditing, v.State)
	assert.Empty(t, v.Error)
	assert.Equal(t, "Maria Silva", v.Draft.ClientName)
}

func TestSecondSubmitWhileInFlight(t *testing.T) {
	f := newFixture(t)
	f.store.gate = make(chan struct{})
	form := f.form(t)
	fill(t, form)

	var done atomic.Bool
	go func() {
		_, _ = form.Submit(context.Background())
		done.Store(true)
	}()
	require.Eventually(t, func() bool { return form.View().State == StateSubmitting }, wait, tick)

	_, err := form.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitting)
	assert.ErrorIs(t, form.Set(model.FieldNotes, "x"), ErrSubmitting)

	close(f.store.gate)
	require.Eventually(t, done.Load, wait, tick)
	assert.Len(t, f.store.created(), 1)
}

func TestConfirmationClearsItself(t *testing.T) {
	f := newFixture(t)
	f.set.ConfirmationTTL = 20 * time.Millisecond
	form := f.form(t)
	fill(t, form)

	_, err := form.Submit(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, form.View().Confirmation)
	require.Eventually(t, func() bool { return form.View().Confirmation == "" }, wait, tick)
	assert.Equal(t, StateEditing, form.View().State)
}

func TestDeleteFailureResetsArm(t *testing.T) {
	f := newFixture(t, seeded("A", "2025-03-01", ""))
	list := f.list(t)
	id := list.View().Items[0].ID

	f.store.mu.Lock()
	f.store.fail = errors.New("unavailable")
	f.store.mu.Unlock()

	require.NoError(t, list.Arm(id))
	err := list.ConfirmDelete(context.Background(), id)
	var werr *booking.StoreWriteError
	require.ErrorAs(t, err, &werr)

	v := list.View()
	assert.Empty(t, v.Armed)
	assert.Contains(t, v.Error, "unavailable")
	assert.Equal(t, 1, v.Total)
}

func TestConcurrentConfirmDeletesOnce(t *testing.T) {
	f := newFixture(t, seeded("A", "2025-03-01", ""))
	list := f.list(t)
	id := list.View().Items[0].ID
	require.NoError(t, list.Arm(id))

	gate := make(chan struct{})
	f.store.mu.Lock()
	f.store.delGate = gate
	f.store.mu.Unlock()

	first := make(chan error, 1)
	go func() { first <- list.ConfirmDelete(context.Background(), id) }()
	require.Eventually(t, func() bool {
		f.store.mu.Lock()
		defer f.store.mu.Unlock()
		return f.store.deletes == 1
	}, wait, tick)

	assert.ErrorIs(t, list.ConfirmDelete(context.Background(), id), ErrNotArmed)
	close(gate)
	require.NoError(t, <-first)

	f.store.mu.Lock()
	assert.Equal(t, 1, f.store.deletes)
	f.store.mu.Unlock()
	assert.Empty(t, list.View().Error)
	require.Eventually(t, func() bool { return list.View().Total == 0 }, wait, tick)
}

func TestClosedListRejectsOperations(t *testing.T) {
	f := newFixture(t, seeded("A", "2025-03-01", ""))
	list := f.list(t)
	id := list.View().Items[0].ID
	list.Close()

	assert.ErrorIs(t, list.Arm(id), ErrClosed)
	assert.ErrorIs(t, list.SetFilter("all", "all"), ErrClosed)
	assert.ErrorIs(t, list.DismissError(), ErrClosed)
	_, err := list.ContactLink(id)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, list.ConfirmDelete(context.Background(), id), ErrClosed)
}

func TestListFilterAndEmptyMessages(t *testing.T) {
	f := newFixture(t, seeded("A", "2024-12-31", ""), seeded("B", "2025-01-15", ""))
	list := f.list(t)

	v := list.View()
	assert.Equal(t, "2025", v.Year)
	assert.Equal(t, booking.All, v.Month)
	assert.Equal(t, 1, v.Shown)
	assert.Equal(t, 2, v.Total)
	assert.Equal(t, []int{2024, 2025, 2026, 2027, 2028}, v.YearOptions)
	require.Len(t, v.MonthOptions, 13)
	assert.Equal(t, "Março", v.MonthOptions[3].Label)

	require.NoError(t, list.SetFilter("2025", "7"))
	v = list.View()
	assert.Zero(t, v.Shown)
	assert.Equal(t, EmptyNoMatch, v.Empty)

	require.NoError(t, list.SetFilter("all", "all"))
	assert.Equal(t, 2, list.View().Shown)

	list.ResetFilters()
	assert.Equal(t, "2025", list.View().Year)

	var verr *booking.ValidationError
	assert.ErrorAs(t, list.SetFilter("25", "all"), &verr)
}

func TestEmptyCollectionMessage(t *testing.T) {
	f := newFixture(t)
	list := f.list(t)
	assert.Equal(t, EmptyNoReservations, list.View().Empty)
}

func TestContactLink(t *testing.T) {
	f := newFixture(t, seeded("Maria Silva", "2025-12-20", ""))
	list := f.list(t)
	id := list.View().Items[0].ID

	link, err := list.ContactLink(id)
	require.NoError(t, err)
	assert.Equal(t,
		"https://wa.me/5511988887777?text=Ol%C3%A1%20Maria%20Silva%2C%20sua%20reserva%20para%20o%20dia%2020%2F12%2F2025%20foi%20confirmada!",
		link)

	_, err = list.ContactLink("missing")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestClosedListReceivesNothing(t *testing.T) {
	f := newFixture(t, seeded("A", "2025-03-01", ""))
	list := f.list(t)
	list.Close()

	_, err := f.hub.Create(context.Background(), seeded("B", "2025-03-02", ""))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, list.View().Total)
	assert.Zero(t, f.hub.Subscribers())
}

func TestRegistrySweepsIdleSessions(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, brt)
	var mu sync.Mutex
	f.set.Now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	reg := NewRegistry(f.hub, f.set, time.Minute, zap.NewNop())
	t.Cleanup(reg.CloseAll)

	form := reg.OpenForm()
	list := reg.OpenList()
	got, err := reg.Form(form.ID())
	require.NoError(t, err)
	assert.Same(t, form, got)
	assert.Equal(t, 2, f.hub.Subscribers())

	mu.Lock()
	now = now.Add(30 * time.Second)
	mu.Unlock()
	list.View()

	assert.Equal(t, 1, reg.Sweep(now.Add(45*time.Second)))
	_, err = reg.Form(form.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = reg.List(list.ID())
	assert.NoError(t, err)
	assert.Equal(t, 1, f.hub.Subscribers())

	require.NoError(t, reg.CloseList(list.ID()))
	assert.ErrorIs(t, reg.CloseList(list.ID()), ErrSessionNotFound)
	assert.Zero(t, f.hub.Subscribers())
}
