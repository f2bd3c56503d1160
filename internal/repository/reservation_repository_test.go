package repository

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venue-reservations/internal/model"
)

type anyUUID struct{}

func (anyUUID) Match(v driver.Value) bool {
	s, ok := v.(string)
	return ok && len(s) == 36
}

func TestReservationRepo_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	guests := 50
	res := &model.Reservation{
		ClientName:       "Maria Silva",
		Date:             "2025-12-20",
		ReservationValue: decimal.NewFromInt(1500),
		AdvancePayment:   decimal.NullDecimal{Decimal: decimal.NewFromInt(500), Valid: true},
		Guests:           &guests,
		Phone:            "11999999999",
		CreatedAt:        created,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservations")).
		WithArgs(anyUUID{}, "Maria Silva", "2025-12-20", "1500", "500",
			nil, int64(50), "11999999999", "", "pending", created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := NewReservationRepo(db).Create(context.Background(), res)
	require.NoError(t, err)
	assert.Len(t, id, 36)
	assert.Equal(t, id, res.ID)
	assert.Equal(t, model.StatusPending, res.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepo_DeleteMissingReturnsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM reservations WHERE id = ?")).
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewReservationRepo(db).Delete(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepo_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "client_name", "event_date", "reservation_value",
		"advance_payment", "table_quantity", "guests", "phone", "notes", "status", "created_at"}).
		AddRow("a", "Ana", "2025-01-10", "800.00", nil, nil, nil, "1", nil, "pending", created).
		AddRow("b", "Bia", "2025-02-10", "1500.00", "500.00", int64(10), int64(90), "2", "bolo", "confirmed", created)
	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations")).WillReturnRows(rows)

	got, err := NewReservationRepo(db).List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "a", got[0].ID)
	assert.False(t, got[0].AdvancePayment.Valid)
	assert.Nil(t, got[0].Guests)
	assert.True(t, got[0].ReservationValue.Equal(decimal.NewFromInt(800)))

	assert.Equal(t, model.StatusConfirmed, got[1].Status)
	assert.True(t, got[1].Balance().Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, 90, *got[1].Guests)
	assert.Equal(t, 10, *got[1].TableQuantity)
	assert.Equal(t, "bolo", got[1].Notes)
	require.NoError(t, mock.ExpectationsWereMet())
}
