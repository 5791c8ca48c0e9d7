/*
Package sqlite provides the durable SQLite-backed implementation of the
authoritative document store.

PURPOSE:
  Owns durability for the single shared document (rooms, payment
  aggregate, customers, notifications). The document is stored as one
  JSON row; atomicity of multi-field edits comes from serialized
  whole-document read-modify-write, not from relational transactions.

WHY ONE ROW:
  Every mutation in this system touches multiple collections at once
  (a room edit updates the room, the aggregate, and often a customer).
  A single JSON document keeps those updates indivisible without a
  schema migration treadmill. SQLite supplies crash-safe writes and a
  real on-disk format.

CONCURRENCY:
  A sync.Mutex serializes Update cycles: read document -> mutate in
  memory -> write document, with no interleaving. The parsed document
  is cached in memory between calls; the database row is the source of
  truth across restarts.

FAILURE CONTRACT:
  If the durable write fails after the mutation succeeded in memory,
  Update keeps the OLD in-memory document (so the store never diverges
  from disk) and returns the mutated snapshot wrapped in
  *core.PersistenceError, letting the API layer broadcast the result
  while reporting failure to the originating caller.

WAL MODE:
  Opened with WAL for better crash recovery and non-blocking readers.

USAGE:
  store, err := sqlite.New("./data/frontdesk.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - core/store.go: interface definition and contracts
  - core/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lakeview/frontdesk-engine/core"
)

// Store implements core.Store on a single-row SQLite document.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	doc *core.Document
}

// New opens (or creates) the database at dbPath and loads the document.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := s.load(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- The whole authoritative state, one row.
	CREATE TABLE IF NOT EXISTS ledger_document (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		body TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`
	_, err := s.db.Exec(schema)
	return err
}

// load reads the document row into memory, starting empty when the row
// does not exist yet.
func (s *Store) load() error {
	var body string
	err := s.db.QueryRow(`SELECT body FROM ledger_document WHERE id = 1`).Scan(&body)
	switch {
	case err == sql.ErrNoRows:
		s.doc = core.NewDocument()
		return nil
	case err != nil:
		return err
	}

	doc := core.NewDocument()
	if err := json.Unmarshal([]byte(body), doc); err != nil {
		return fmt.Errorf("corrupt document row: %w", err)
	}
	s.doc = doc
	return nil
}

func (s *Store) View(_ context.Context, fn func(doc *core.Document) error) error {
	s.mu.RLock()
	snapshot := s.doc.Clone()
	s.mu.RUnlock()
	return fn(snapshot)
}

func (s *Store) Update(ctx context.Context, fn func(doc *core.Document) error) (*core.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.doc.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}

	if err := s.persist(ctx, next); err != nil {
		// Keep the old in-memory document: memory must not drift from
		// disk. The caller still gets the mutated snapshot so connected
		// terminals can be kept consistent with each other.
		return nil, &core.PersistenceError{Doc: next.Clone(), Err: err}
	}

	s.doc = next
	return next.Clone(), nil
}

func (s *Store) persist(ctx context.Context, doc *core.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ledger_document (id, body, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		string(body), time.Now().UTC().Format(time.RFC3339))
	return err
}
