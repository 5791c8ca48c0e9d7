// Package store provides core.Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/lakeview/frontdesk-engine/core"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory holds the document in process memory. Update cycles are
// serialized by a mutex; View hands out deep copies so readers never
// alias the live document.
type Memory struct {
	mu  sync.RWMutex
	doc *core.Document
}

func NewMemory() *Memory {
	return &Memory{doc: core.NewDocument()}
}

func (m *Memory) View(_ context.Context, fn func(doc *core.Document) error) error {
	m.mu.RLock()
	snapshot := m.doc.Clone()
	m.mu.RUnlock()
	return fn(snapshot)
}

func (m *Memory) Update(_ context.Context, fn func(doc *core.Document) error) (*core.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Mutate a copy so a failing fn leaves the document untouched.
	next := m.doc.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	m.doc = next
	return next.Clone(), nil
}

func (m *Memory) Close() error { return nil }
