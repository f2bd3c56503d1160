package booking

import (
	"strings"

	"github.com/iliyamo/venue-reservations/internal/model"
)

// Conflict is what the form shows about a reservation already booked on
// the chosen date. It deliberately carries no id or money fields.
type Conflict struct {
	ClientName string `json:"clientName"`
	Guests     *int   `json:"guests,omitempty"`
	Phone      string `json:"phone"`
}

// CheckAvailability returns the reservations booked on exactly date, in
// the order they appear in all. A blank date yields no matches.
func CheckAvailability(date string, all []model.Reservation) []model.Reservation {
	date = strings.TrimSpace(date)
	if date == "" {
		return nil
	}
	var out []model.Reservation
	for _, r := range all {
		if r.Date == date {
			out = append(out, r)
		}
	}
	return out
}

// Conflicts projects matches from CheckAvailability into advisory rows.
func Conflicts(matches []model.Reservation) []Conflict {
	if len(matches) == 0 {
		return nil
	}
	out := make([]Conflict, 0, len(matches))
	for _, r := range matches {
		out = append(out, Conflict{ClientName: r.ClientName, Guests: r.Guests, Phone: r.Phone})
	}
	return out
}
