// Package booking holds the reservation rules that do not depend on any
// transport or store: the availability check, the year/month filter, the
// balance arithmetic and the presentation helpers used by the list and
// form sessions.
package booking

import "fmt"

// ValidationError reports a draft or filter value that was rejected
// before any store call was attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// StoreWriteError wraps a failed create or delete. Op is "create" or
// "delete"; ID is empty for creates.
type StoreWriteError struct {
	Op  string
	ID  string
	Err error
}

func (e *StoreWriteError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

// ParseError is produced when a stored event date cannot be read. The
// filter drops such records instead of failing.
type ParseError struct {
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse date %q: %v", e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
