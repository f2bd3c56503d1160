package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venue-reservations/internal/model"
)

func TestMemoryStore_ordersByDateAndDeletesOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(
		model.Reservation{ID: "b", Date: "2025-12-20"},
		model.Reservation{ID: "a", Date: "2025-01-05"},
	)

	r := model.Reservation{ClientName: "Carla", Date: "2025-06-01"}
	id, err := s.Create(ctx, &r)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, r.ID)
	assert.Equal(t, model.StatusPending, r.Status)

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"a", id, "b"}, []string{all[0].ID, all[1].ID, all[2].ID})

	require.NoError(t, s.Delete(ctx, "a"))
	assert.ErrorIs(t, s.Delete(ctx, "a"), ErrNotFound)

	all, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestFirestoreDocument_roundTrip(t *testing.T) {
	guests, tables := 80, 3
	created := time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   model.Reservation
		want map[string]interface{}
	}{
		{
			name: "with advance and guests",
			in: model.Reservation{
				ClientName:       "Maria Silva",
				Date:             "2025-12-20",
				ReservationValue: decimal.RequireFromString("1500.50"),
				AdvancePayment:   decimal.NewNullDecimal(decimal.RequireFromString("500")),
				Guests:           &guests,
				Phone:            "11999999999",
				Status:           model.StatusPending,
				CreatedAt:        created,
			},
			want: map[string]interface{}{"reservationValue": "1500.5", "guests": "80", "tableQuantity": ""},
		},
		{
			name: "tables only",
			in: model.Reservation{
				ClientName:       "Maria",
				Date:             "2025-12-20",
				ReservationValue: decimal.RequireFromString("1500.50"),
				TableQuantity:    &tables,
				Phone:            "11",
				Status:           model.StatusPending,
				CreatedAt:        created,
			},
			want: map[string]interface{}{"advancePayment": "", "tableQuantity": "3", "guests": ""},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := toDocument(tt.in)
			for k, v := range tt.want {
				assert.Equal(t, v, doc[k], k)
			}

			got := fromDocument("doc-1", doc)
			assert.Equal(t, "doc-1", got.ID)
			assert.True(t, got.ReservationValue.Equal(tt.in.ReservationValue))
			assert.Equal(t, tt.in.AdvancePayment.Valid, got.AdvancePayment.Valid)
			assert.Equal(t, tt.in.Guests, got.Guests)
			assert.Equal(t, tt.in.TableQuantity, got.TableQuantity)
			assert.Equal(t, created, got.CreatedAt)
		})
	}
}

func TestFirestoreDocument_toleratesForeignShapes(t *testing.T) {
	got := fromDocument("x", map[string]interface{}{
		"clientName":       " Bruno ",
		"date":             "2025-03-01",
		"reservationValue": float64(900),
		"advancePayment":   "",
		"guests":           int64(0),
		"status":           "CONFIRMED",
	})
	assert.Equal(t, "Bruno", got.ClientName)
	assert.True(t, got.ReservationValue.Equal(decimal.NewFromInt(900)))
	assert.False(t, got.AdvancePayment.Valid)
	assert.Nil(t, got.Guests)
	assert.Equal(t, model.StatusConfirmed, got.Status)

	got = fromDocument("y", map[string]interface{}{
		"clientName":       "Ana",
		"date":             "2025-01-01",
		"reservationValue": int64(1200),
		"advancePayment":   float64(200.5),
		"guests":           int64(30),
		"status":           "confirmed",
	})
	assert.True(t, got.Balance().Equal(decimal.RequireFromString("999.5")))
	require.NotNil(t, got.Guests)
	assert.Equal(t, 30, *got.Guests)
	assert.Equal(t, model.StatusConfirmed, got.Status)
}
