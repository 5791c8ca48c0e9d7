/*
Package client is the terminal-side half of the sync engine: an
optimistic local mirror of the four collections plus the reconciler
that merges server-confirmed and broadcast state back into it.

PURPOSE:
  Every mutating user action lands in the local cache IMMEDIATELY, so
  the terminal never blocks on network latency. The authoritative write
  happens after; its outcome decides whether the pending write ends
  Confirmed (server value wins) or OfflineFallback (local value kept,
  "saved locally" surfaced to the operator).

STATE MACHINE (per pending write):
  Idle -> Optimistic -> {Confirmed | OfflineFallback} -> Idle
  There is no retry queue: the next broadcast or the next explicit
  action is the implicit retry.

RECONCILIATION:
  A broadcast replaces the entire named collection wholesale - the
  server is always more current than a stale local guess. The one
  exception: label and nightly rate edited locally by a non-privileged
  role are local-only overrides (the server drops them), and the
  reconciler re-applies them on top of every rooms broadcast. Applying
  the same broadcast twice is a no-op.

SEE ALSO:
  - mirror.go: the durable per-terminal copy of this cache
  - client.go: transport and the optimistic write flows
*/
package client

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/lakeview/frontdesk-engine/api"
	"github.com/lakeview/frontdesk-engine/core"
)

// WriteState is the lifecycle state of the cache's pending write.
type WriteState int

const (
	StateIdle WriteState = iota
	StateOptimistic
	StateConfirmed
	StateOfflineFallback
)

func (s WriteState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOptimistic:
		return "optimistic"
	case StateConfirmed:
		return "confirmed"
	case StateOfflineFallback:
		return "offline-fallback"
	}
	return fmt.Sprintf("WriteState(%d)", int(s))
}

// roomOverride holds non-privileged local-only room fields that
// broadcasts must not clobber.
type roomOverride struct {
	label *string
	price *decimal.Decimal
}

// Cache is the terminal's local mirror of the four collections.
type Cache struct {
	mu   sync.RWMutex
	doc  *core.Document
	role core.Role

	state     WriteState
	lastState WriteState // terminal state of the most recent write

	overrides map[int]roomOverride
}

// NewCache returns an empty cache for a terminal with the given role.
func NewCache(role core.Role) *Cache {
	return &Cache{
		doc:       core.NewDocument(),
		role:      role,
		overrides: make(map[int]roomOverride),
	}
}

// SetRole updates the role after login.
func (c *Cache) SetRole(role core.Role) {
	c.mu.Lock()
	c.role = role
	c.mu.Unlock()
}

// Snapshot returns a private copy of the mirrored document.
func (c *Cache) Snapshot() *core.Document {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.doc.Clone()
}

// Restore replaces the whole mirror, e.g. from the durable local copy
// at startup.
func (c *Cache) Restore(doc *core.Document) {
	c.mu.Lock()
	c.doc = doc.Clone()
	c.mu.Unlock()
}

// State reports the pending-write state.
func (c *Cache) State() WriteState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// LastOutcome reports how the most recent write terminated.
func (c *Cache) LastOutcome() WriteState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastState
}

// =============================================================================
// OPTIMISTIC WRITES
// =============================================================================

// OptimisticRoomEdit applies the edit to the local mirror using the
// same lifecycle engine the server runs, so the local guess already has
// recomputed totals. Label/rate edits by a non-privileged role are
// recorded as local-only overrides. The pending write moves to
// Optimistic.
func (c *Cache) OptimisticRoomEdit(id int, patch core.RoomPatch) (core.Room, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Locally, every field applies - restricted ones just never reach
	// the server. Track them so broadcasts don't wipe them.
	room, _, err := c.doc.ApplyRoomEdit(id, patch, core.RoleOwner)
	if err != nil {
		return core.Room{}, err
	}
	if c.role != core.RoleOwner {
		ov := c.overrides[id]
		if raw, ok := patch["label"]; ok {
			if s := core.CoerceString(raw); s != "" {
				ov.label = &s
			}
		}
		if raw, ok := patch["price"]; ok {
			p := core.CoerceDecimal(raw)
			ov.price = &p
		}
		c.overrides[id] = ov
	}

	c.state = StateOptimistic
	return room, nil
}

// OptimisticPayment applies the payment delta to the local aggregate
// (and room, when given) ahead of the authoritative write.
func (c *Cache) OptimisticPayment(amount decimal.Decimal, mode string, roomID int) core.PaymentAggregate {
	c.mu.Lock()
	defer c.mu.Unlock()
	agg := c.doc.ApplyPayment(amount, mode, roomID, nowFunc())
	c.state = StateOptimistic
	return agg
}

// OptimisticCustomer merges the guest fragment into the local
// directory ahead of the authoritative write.
func (c *Cache) OptimisticCustomer(frag core.CustomerFragment) (core.Customer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	customer, err := c.doc.MergeCustomer(frag)
	if err != nil {
		return core.Customer{}, err
	}
	c.state = StateOptimistic
	return customer, nil
}

// =============================================================================
// RECONCILIATION
// =============================================================================

// ConfirmRoom reconciles a server-confirmed room into the mirror. The
// server value wins over the optimistic guess: derived fields were
// recomputed authoritatively. The pending write terminates Confirmed.
func (c *Cache) ConfirmRoom(room core.Room) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx := c.doc.RoomIndex(room.ID); idx >= 0 {
		c.doc.Rooms[idx] = room
		c.applyOverrideLocked(idx)
	}
	c.settleLocked(StateConfirmed)
}

// ConfirmPayments reconciles the server-confirmed aggregate.
func (c *Cache) ConfirmPayments(agg core.PaymentAggregate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc.Payments = agg
	c.settleLocked(StateConfirmed)
}

// ConfirmCustomer reconciles a server-confirmed customer record.
func (c *Cache) ConfirmCustomer(customer core.Customer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	replaced := false
	for i := range c.doc.Customers {
		if c.doc.Customers[i].Aadhar == customer.Aadhar {
			c.doc.Customers[i] = customer
			replaced = true
			break
		}
	}
	if !replaced {
		c.doc.Customers = append(c.doc.Customers, customer)
	}
	c.settleLocked(StateConfirmed)
}

// Confirm settles a pending write whose response carried no record to
// reconcile (e.g. notification append).
func (c *Cache) Confirm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settleLocked(StateConfirmed)
}

// Fallback keeps the optimistic mutation and terminates the pending
// write OfflineFallback: the operator keeps forward progress while the
// backend is unreachable.
func (c *Cache) Fallback() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settleLocked(StateOfflineFallback)
}

// settleLocked records the terminal state and returns the cache to
// Idle.
func (c *Cache) settleLocked(terminal WriteState) {
	c.lastState = terminal
	c.state = StateIdle
}

// ApplyBroadcast replaces the named collection wholesale with the
// broadcast payload, then re-applies role-restricted local overrides.
// Unknown events and undecodable payloads are ignored; applying the
// same broadcast twice is a no-op.
func (c *Cache) ApplyBroadcast(event string, data json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch event {
	case api.EventRooms:
		var rooms []core.Room
		if json.Unmarshal(data, &rooms) != nil {
			return
		}
		c.doc.Rooms = rooms
		for i := range c.doc.Rooms {
			c.applyOverrideLocked(i)
		}
	case api.EventPayments:
		var agg core.PaymentAggregate
		if json.Unmarshal(data, &agg) != nil {
			return
		}
		c.doc.Payments = agg
	case api.EventCustomers:
		var customers []core.Customer
		if json.Unmarshal(data, &customers) != nil {
			return
		}
		c.doc.Customers = customers
	case api.EventNotifications:
		var notes []core.Notification
		if json.Unmarshal(data, &notes) != nil {
			return
		}
		c.doc.Notifications = notes
	}
}

func (c *Cache) applyOverrideLocked(idx int) {
	ov, ok := c.overrides[c.doc.Rooms[idx].ID]
	if !ok {
		return
	}
	if ov.label != nil {
		c.doc.Rooms[idx].Label = *ov.label
	}
	if ov.price != nil {
		c.doc.Rooms[idx].Price = *ov.price
	}
}

// =============================================================================
// DERIVED VIEWS
// =============================================================================

// Stats is the dashboard occupancy summary.
type Stats struct {
	Available   int
	Occupied    int
	Maintenance int
}

// Stats counts rooms per status.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var s Stats
	for _, r := range c.doc.Rooms {
		switch r.Status {
		case core.StatusAvailable:
			s.Available++
		case core.StatusOccupied:
			s.Occupied++
		case core.StatusMaintenance:
			s.Maintenance++
		}
	}
	return s
}

// TotalDue sums outstanding dues across all rooms (owner dashboard).
func (c *Cache) TotalDue() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	total := decimal.Zero
	for _, r := range c.doc.Rooms {
		total = total.Add(r.DueAmount)
	}
	return total
}
