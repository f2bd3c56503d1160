package booking

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/venue-reservations/internal/model"
)

// BuildReservation validates a draft and turns it into a new pending
// reservation stamped with now. The first offending field is reported as
// a *ValidationError; required fields are checked before formats.
func BuildReservation(d model.Draft, now time.Time) (model.Reservation, error) {
	required := []struct{ field, value string }{
		{model.FieldClientName, d.ClientName},
		{model.FieldDate, d.Date},
		{model.FieldReservationValue, d.ReservationValue},
		{model.FieldPhone, d.Phone},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return model.Reservation{}, &ValidationError{Field: f.field, Reason: "is required"}
		}
	}

	date := strings.TrimSpace(d.Date)
	if _, err := time.Parse(dateLayout, date); err != nil {
		return model.Reservation{}, &ValidationError{Field: model.FieldDate, Reason: "must be a date in YYYY-MM-DD format"}
	}

	value, err := nonNegativeAmount(model.FieldReservationValue, d.ReservationValue)
	if err != nil {
		return model.Reservation{}, err
	}

	r := model.Reservation{
		ClientName:       strings.TrimSpace(d.ClientName),
		Date:             date,
		ReservationValue: value,
		Phone:            strings.TrimSpace(d.Phone),
		Notes:            strings.TrimSpace(d.Notes),
		Status:           model.StatusPending,
		CreatedAt:        now,
	}

	if strings.TrimSpace(d.AdvancePayment) != "" {
		adv, err := nonNegativeAmount(model.FieldAdvancePayment, d.AdvancePayment)
		if err != nil {
			return model.Reservation{}, err
		}
		r.AdvancePayment = decimal.NullDecimal{Decimal: adv, Valid: true}
	}
	if r.TableQuantity, err = positiveCount(model.FieldTableQuantity, d.TableQuantity); err != nil {
		return model.Reservation{}, err
	}
	if r.Guests, err = positiveCount(model.FieldGuests, d.Guests); err != nil {
		return model.Reservation{}, err
	}
	return r, nil
}

func nonNegativeAmount(field, s string) (decimal.Decimal, error) {
	d, ok := parseAmount(s)
	if !ok {
		return decimal.Zero, &ValidationError{Field: field, Reason: "must be a number"}
	}
	if d.IsNegative() {
		return decimal.Zero, &ValidationError{Field: field, Reason: "must not be negative"}
	}
	return d, nil
}

func positiveCount(field, s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return nil, &ValidationError{Field: field, Reason: "must be a whole number of at least 1"}
	}
	return &n, nil
}
