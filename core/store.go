/*
store.go - Persistence interface for the authoritative document

PURPOSE:
  Defines the interface between the engines and durable storage. The
  whole state is one Document; the Store's job is to serialize
  read-modify-write cycles over it.

SERIALIZATION CONTRACT:
  Update(fn) must run fn against the current document with NO other
  Update interleaved: read entire document -> fn mutates in memory ->
  write entire document. A single in-process mutex is sufficient. This
  is the only mechanism preventing two concurrent payments from
  clobbering each other via a stale read.

FAILURE CONTRACT:
  If fn returns an error, nothing is written and the error is returned
  as-is. If fn succeeds but the durable write fails, Update returns the
  mutated document wrapped in *PersistenceError: connected terminals
  should still see the in-memory result even though the originating
  caller must not treat the edit as durable.

IMPLEMENTATIONS:
  - core/store/memory.go: in-memory, for tests and dev
  - store/sqlite/sqlite.go: durable single-row JSON document in SQLite

SEE ALSO:
  - errors.go: PersistenceError
  - api/handlers.go: broadcast-after-persistence-failure policy
*/
package core

import "context"

// Store owns the canonical Document.
type Store interface {
	// View calls fn with a private snapshot of the document. The
	// snapshot is the caller's to keep; mutating it affects nothing.
	View(ctx context.Context, fn func(doc *Document) error) error

	// Update runs fn as one serialized read-modify-write cycle and
	// persists the result. Returns the post-mutation document snapshot.
	// If fn fails, nothing is written. If persistence fails after fn
	// succeeded, returns the snapshot inside *PersistenceError.
	Update(ctx context.Context, fn func(doc *Document) error) (*Document, error)

	// Close releases underlying resources.
	Close() error
}
