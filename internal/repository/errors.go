// Package repository defines error types that are reused across the
// reservation stores. These sentinel values allow higher layers such as
// the live hub and the handlers to distinguish between different failure
// scenarios regardless of which backend produced them.
package repository

import "errors"

// ErrNotFound is returned when a delete targets a reservation that does
// not exist (or no longer exists). Deleting the same id twice therefore
// fails the second time.
var ErrNotFound = errors.New("reservation not found")
