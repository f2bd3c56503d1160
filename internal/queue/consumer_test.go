package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHandleMessageAppendsLines(t *testing.T) {
	dir := t.TempDir()
	c := NewConsumer("amqp://unused", dir, zap.NewNop())

	created, err := json.Marshal(ReservationEvent{
		Type:             EventCreated,
		ReservationID:    "r-1",
		ClientName:       "Maria Silva",
		Date:             "2025-12-20",
		ReservationValue: "1500.00",
		AdvancePayment:   "500.00",
		Guests:           80,
		OccurredAt:       "2025-06-01T15:00:00Z",
	})
	require.NoError(t, err)
	deleted, err := json.Marshal(ReservationEvent{Type: EventDeleted, ReservationID: "r-1", OccurredAt: "2025-06-02T15:00:00Z"})
	require.NoError(t, err)

	require.NoError(t, c.handleMessage(created))
	require.NoError(t, c.handleMessage(deleted))

	got, err := os.ReadFile(filepath.Join(dir, EventsLogFile))
	require.NoError(t, err)
	assert.Equal(t,
		"[2025-06-01T15:00:00Z] reservation.created | reservation_id=r-1 | client=\"Maria Silva\" | date=2025-12-20 | value=1500.00 | advance=500.00 | guests=80\n"+
			"[2025-06-02T15:00:00Z] reservation.deleted | reservation_id=r-1\n",
		string(got))
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	c := NewConsumer("amqp://unused", t.TempDir(), zap.NewNop())
	assert.Error(t, c.handleMessage([]byte("{")))
	assert.Error(t, c.handleMessage([]byte(`{"type":"reservation.created"}`)))
}
