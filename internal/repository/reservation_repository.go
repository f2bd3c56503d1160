package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/venue-reservations/internal/model"
)

// ReservationRepo is the MySQL-backed Store. Rows live in the
// `reservations` table created by database.Migrate. Ids are UUIDs
// generated here rather than auto-increment values so that every backend
// hands out the same kind of opaque identifier.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying pool for health checks.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

// Create inserts a reservation in a single statement and populates its ID.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) (string, error) {
	const q = `INSERT INTO reservations
	           (id, client_name, event_date, reservation_value, advance_payment,
	            table_quantity, guests, phone, notes, status, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	id := uuid.NewString()
	status := res.Status
	if status == "" {
		status = model.StatusPending
	}
	_, err := r.db.ExecContext(ctx, q,
		id, res.ClientName, res.Date, res.ReservationValue, res.AdvancePayment,
		nullInt(res.TableQuantity), nullInt(res.Guests), res.Phone, res.Notes,
		string(status), res.CreatedAt.UTC(),
	)
	if err != nil {
		return "", err
	}
	res.ID = id
	res.Status = status
	return id, nil
}

// Delete removes a reservation by id. It returns ErrNotFound when no row
// was affected.
func (r *ReservationRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns all reservations ordered by event date, oldest first. Rows
// sharing a date keep their creation order.
func (r *ReservationRepo) List(ctx context.Context) ([]model.Reservation, error) {
	const q = `SELECT id, client_name, DATE_FORMAT(event_date, '%Y-%m-%d'), reservation_value,
	                  advance_payment, table_quantity, guests, phone, notes, status, created_at
	           FROM reservations
	           ORDER BY event_date ASC, created_at ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Reservation{}
	for rows.Next() {
		var (
			res     model.Reservation
			value   decimal.Decimal
			advance decimal.NullDecimal
			tables  sql.NullInt64
			guests  sql.NullInt64
			notes   sql.NullString
			status  string
		)
		if err := rows.Scan(&res.ID, &res.ClientName, &res.Date, &value, &advance,
			&tables, &guests, &res.Phone, &notes, &status, &res.CreatedAt); err != nil {
			return nil, err
		}
		res.ReservationValue = value
		res.AdvancePayment = advance
		res.TableQuantity = intPtr(tables)
		res.Guests = intPtr(guests)
		res.Notes = notes.String
		res.Status = model.ParseStatus(status)
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
