// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationEventsQueue is the durable queue carrying reservation events.
const ReservationEventsQueue = "reservation.events"

// Event types published after a successful store write.
const (
	EventCreated = "reservation.created"
	EventDeleted = "reservation.deleted"
)

// ReservationEvent is published after a reservation is created or deleted.
// It carries enough information for downstream consumers to log or notify
// without querying the store. Amounts are decimal strings; on delete only
// ReservationID is guaranteed.
type ReservationEvent struct {
	Type             string `json:"type"`
	ReservationID    string `json:"reservation_id"`
	ClientName       string `json:"client_name,omitempty"`
	Date             string `json:"date,omitempty"`
	ReservationValue string `json:"reservation_value,omitempty"`
	AdvancePayment   string `json:"advance_payment,omitempty"`
	Guests           int    `json:"guests,omitempty"`
	OccurredAt       string `json:"occurred_at"`
}
