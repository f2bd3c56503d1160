package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle flag of a reservation. New reservations are
// always PENDING; nothing in this service moves them to CONFIRMED, but
// records written by other tools may already carry that value.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
)

// ParseStatus maps a stored value onto a Status. Unknown or empty values
// are read as pending so that a foreign record never breaks a listing.
func ParseStatus(s string) Status {
	if Status(strings.ToLower(strings.TrimSpace(s))) == StatusConfirmed {
		return StatusConfirmed
	}
	return StatusPending
}

// Reservation is one booked party at the venue. It corresponds to a row
// in the `reservations` table (MySQL) or a document in the reservations
// collection (Firestore).
//
// Fields:
//
//	ID               – opaque identifier assigned by the store on create.
//	ClientName       – name of the client who booked the party.
//	Date             – event date as an ISO calendar date (YYYY-MM-DD).
//	ReservationValue – total price of the party.
//	AdvancePayment   – amount already paid; invalid when absent.
//	TableQuantity    – number of tables requested (optional).
//	Guests           – expected guest count (optional).
//	Phone            – contact phone as typed by the operator.
//	Notes            – free text.
//	Status           – pending or confirmed.
//	CreatedAt        – client clock at submission time.
type Reservation struct {
	ID               string              `json:"id"`
	ClientName       string              `json:"clientName"`
	Date             string              `json:"date"`
	ReservationValue decimal.Decimal     `json:"reservationValue"`
	AdvancePayment   decimal.NullDecimal `json:"advancePayment"`
	TableQuantity    *int                `json:"tableQuantity,omitempty"`
	Guests           *int                `json:"guests,omitempty"`
	Phone            string              `json:"phone"`
	Notes            string              `json:"notes,omitempty"`
	Status           Status              `json:"status"`
	CreatedAt        time.Time           `json:"createdAt"`
}

// HasAdvance reports whether an advance payment greater than zero was
// recorded. Only then does a listing show the advance and remaining rows.
func (r Reservation) HasAdvance() bool {
	return r.AdvancePayment.Valid && r.AdvancePayment.Decimal.IsPositive()
}

// Balance returns the value still owed. It may be negative when the
// client overpaid.
func (r Reservation) Balance() decimal.Decimal {
	if !r.AdvancePayment.Valid {
		return r.ReservationValue
	}
	return r.ReservationValue.Sub(r.AdvancePayment.Decimal)
}

// Draft holds the reservation form exactly as typed. All fields are text
// so that a half-filled or malformed form can be kept and resubmitted.
type Draft struct {
	ClientName       string `json:"clientName"`
	Date             string `json:"date"`
	ReservationValue string `json:"reservationValue"`
	AdvancePayment   string `json:"advancePayment"`
	TableQuantity    string `json:"tableQuantity"`
	Guests           string `json:"guests"`
	Phone            string `json:"phone"`
	Notes            string `json:"notes"`
}

// Draft field names accepted by Draft.Set. They match the JSON keys.
const (
	FieldClientName       = "clientName"
	FieldDate             = "date"
	FieldReservationValue = "reservationValue"
	FieldAdvancePayment   = "advancePayment"
	FieldTableQuantity    = "tableQuantity"
	FieldGuests           = "guests"
	FieldPhone            = "phone"
	FieldNotes            = "notes"
)

// Set assigns a field by name and reports whether the name is known.
func (d *Draft) Set(field, value string) bool {
	switch field {
	case FieldClientName:
		d.ClientName = value
	case FieldDate:
		d.Date = value
	case FieldReservationValue:
		d.ReservationValue = value
	case FieldAdvancePayment:
		d.AdvancePayment = value
	case FieldTableQuantity:
		d.TableQuantity = value
	case FieldGuests:
		d.Guests = value
	case FieldPhone:
		d.Phone = value
	case FieldNotes:
		d.Notes = value
	default:
		return false
	}
	return true
}
