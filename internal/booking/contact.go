package booking

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/iliyamo/venue-reservations/internal/model"
)

// Contact builds the prefilled messaging link sent to a client.
type Contact struct {
	Host        string // messaging host, e.g. wa.me
	CountryCode string // prefixed to the digits of the phone
	Location    *time.Location
}

// Message is the text prefilled in the conversation.
func (c Contact) Message(r model.Reservation) string {
	return fmt.Sprintf("Olá %s, sua reserva para o dia %s foi confirmada!",
		r.ClientName, FormatDate(r.Date, c.Location))
}

// Link returns https://<host>/<country><digits>?text=<message>.
func (c Contact) Link(r model.Reservation) string {
	return fmt.Sprintf("https://%s/%s%s?text=%s",
		c.Host, c.CountryCode, DigitsOnly(r.Phone), encodeURIComponent(c.Message(r)))
}

// DigitsOnly strips every non-digit character from a phone number.
func DigitsOnly(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var uriUnreserved = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// encodeURIComponent escapes like the browser function of the same name,
// which messaging apps expect: spaces become %20, not '+'.
func encodeURIComponent(s string) string {
	return uriUnreserved.Replace(url.QueryEscape(s))
}
