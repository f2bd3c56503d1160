package booking

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/venue-reservations/internal/model"
)

// Currency describes how money is written in the venue's locale.
type Currency struct {
	Symbol    string
	Thousands string
	Decimal   string
}

// BRL is the Brazilian real as written in pt-BR: "R$ 1.500,00", with a
// non-breaking space after the symbol.
var BRL = Currency{Symbol: "R$\u00a0", Thousands: ".", Decimal: ","}

// Format renders an amount with two decimal places.
func (c Currency) Format(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg && !d.Round(2).IsZero() {
		b.WriteByte('-')
	}
	b.WriteString(c.Symbol)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(c.Thousands)
		}
		b.WriteRune(r)
	}
	b.WriteString(c.Decimal)
	b.WriteString(frac)
	return b.String()
}

// FormatOptional renders an optional amount; a missing one is shown as zero.
func (c Currency) FormatOptional(d decimal.NullDecimal) string {
	if !d.Valid {
		return c.Format(decimal.Zero)
	}
	return c.Format(d.Decimal)
}

// FormatDate renders a stored event date as dd/mm/yyyy on the local
// calendar of loc. Unparseable dates are returned untouched.
func FormatDate(s string, loc *time.Location) string {
	t, err := ParseEventDate(s, loc)
	if err != nil {
		return s
	}
	return t.Format("02/01/2006")
}

// StatusLabel is the operator-facing name of a status.
func StatusLabel(s model.Status) string {
	if s == model.StatusConfirmed {
		return "Confirmado"
	}
	return "Pendente"
}

var monthNames = [...]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// MonthName returns the Portuguese name of m, or "" when m is out of range.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthNames[m-1]
}

// YearOptions lists the years offered by the list filter: the previous
// year followed by the current one and the next three.
func YearOptions(now time.Time, loc *time.Location) []int {
	if loc == nil {
		loc = time.Local
	}
	first := now.In(loc).Year() - 1
	out := make([]int, 5)
	for i := range out {
		out[i] = first + i
	}
	return out
}
