package booking

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Balance computes total minus advance. Missing or non-numeric inputs
// count as zero; the result is never clamped, so an overpayment comes
// back negative.
func Balance(total, advance string) decimal.Decimal {
	return ParseAmount(total).Sub(ParseAmount(advance))
}

// ParseAmount reads a money amount typed with either a dot or a comma as
// decimal separator. Anything unreadable is zero.
func ParseAmount(s string) decimal.Decimal {
	d, ok := parseAmount(s)
	if !ok {
		return decimal.Zero
	}
	return d
}

func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
