package booking

import (
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/venue-reservations/internal/model"
)

// All is the filter value that disables the year or month criterion.
const All = "all"

// dateLayout is the ISO calendar date stored on every reservation.
const dateLayout = "2006-01-02"

// Filter selects reservations by calendar year and month of the event
// date. A zero Year or Month means "all". Dates are read in Location;
// a nil Location means time.Local.
type Filter struct {
	Year     int
	Month    time.Month
	Location *time.Location
}

// ParseFilter builds a Filter from operator input. Year must be a
// four-digit year and month a number from 1 to 12; either may be empty
// or "all".
func ParseFilter(year, month string, loc *time.Location) (Filter, error) {
	f := Filter{Location: loc}
	year = strings.TrimSpace(year)
	if year != "" && !strings.EqualFold(year, All) {
		y, err := strconv.Atoi(year)
		if err != nil || len(year) != 4 || y <= 0 {
			return Filter{}, &ValidationError{Field: "year", Reason: "must be a four-digit year or all"}
		}
		f.Year = y
	}
	month = strings.TrimSpace(month)
	if month != "" && !strings.EqualFold(month, All) {
		m, err := strconv.Atoi(month)
		if err != nil || m < 1 || m > 12 {
			return Filter{}, &ValidationError{Field: "month", Reason: "must be between 1 and 12 or all"}
		}
		f.Month = time.Month(m)
	}
	return f, nil
}

// DefaultFilter is the filter of a freshly opened list: the current year
// in loc and every month.
func DefaultFilter(now time.Time, loc *time.Location) Filter {
	if loc == nil {
		loc = time.Local
	}
	return Filter{Year: now.In(loc).Year(), Location: loc}
}

// IsAll reports whether the filter lets everything through.
func (f Filter) IsAll() bool { return f.Year == 0 && f.Month == 0 }

// YearString renders the year criterion the way operators type it.
func (f Filter) YearString() string {
	if f.Year == 0 {
		return All
	}
	return strconv.Itoa(f.Year)
}

// MonthString renders the month criterion the way operators type it.
func (f Filter) MonthString() string {
	if f.Month == 0 {
		return All
	}
	return strconv.Itoa(int(f.Month))
}

// Apply returns the reservations matching f, keeping their order. With
// both criteria set to all the input slice itself is returned. Records
// whose date cannot be parsed never match a year or month criterion.
func (f Filter) Apply(all []model.Reservation) []model.Reservation {
	if f.IsAll() {
		return all
	}
	out := make([]model.Reservation, 0, len(all))
	for _, r := range all {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Match reports whether a single reservation passes the filter.
func (f Filter) Match(r model.Reservation) bool {
	if f.IsAll() {
		return true
	}
	t, err := ParseEventDate(r.Date, f.Location)
	if err != nil {
		return false
	}
	if f.Year != 0 && t.Year() != f.Year {
		return false
	}
	if f.Month != 0 && t.Month() != f.Month {
		return false
	}
	return true
}

// ParseEventDate reads a stored event date on the local calendar of loc.
// Plain ISO dates are taken as local dates; full RFC 3339 timestamps are
// converted to loc first.
func ParseEventDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err == nil {
		return t, nil
	}
	if ts, tsErr := time.Parse(time.RFC3339, s); tsErr == nil {
		return ts.In(loc), nil
	}
	return time.Time{}, &ParseError{Value: s, Err: err}
}
