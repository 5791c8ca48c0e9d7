/*
errors.go - Centralized error types for the core engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The API layer maps these to HTTP statuses; the client maps transport
  failures into its offline-fallback path.

ERROR CATEGORIES:
  1. Lookup errors - referenced record does not exist
  2. Policy errors - caller's role may not perform the write
  3. Persistence errors - the authoritative store write failed

NOTE ON VALIDATION:
  Malformed numeric input is NOT an error in this system. Front-desk
  operators leave fields blank; non-numeric input coerces to zero and
  the request succeeds. See room.go.

USAGE:
  if errors.Is(err, core.ErrRoomNotFound) { ... }

  var pe *core.PersistenceError
  if errors.As(err, &pe) {
      // pe.Doc carries the in-memory result for broadcasting
  }
*/
package core

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrRoomNotFound is returned when a room id does not exist in the
	// document. The edit mutates nothing.
	ErrRoomNotFound = errors.New("room not found")

	// ErrCustomerKeyMissing is returned when a guest fragment carries no
	// identity-document number. Anonymous walk-ins are not tracked.
	ErrCustomerKeyMissing = errors.New("customer identity number missing")

	// ErrForbidden is returned when the caller's role may not perform
	// the requested write. The edit mutates nothing.
	ErrForbidden = errors.New("forbidden for role")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// PersistenceError reports that the store accepted a mutation in memory
// but failed to make it durable. Doc is the mutated document so the
// caller can still broadcast it to connected terminals while reporting
// failure to the originator.
type PersistenceError struct {
	Doc *Document
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
