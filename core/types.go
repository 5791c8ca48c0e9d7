/*
Package core provides the authoritative state and ledger engine for the
front-desk system.

PURPOSE:
  This package contains the domain types and the three mutation engines
  that protect the system's invariants:
  - Room Lifecycle Engine (room.go): recomputes derived room fields
  - Payment Reconciliation Engine (payment.go): applies payment deltas
  - Customer Directory Merge (customer.go): upserts guest records

KEY CONCEPTS IN THIS FILE (types.go):
  - Document: the single shared document holding all four collections.
    Every authoritative mutation is a read-modify-write of one Document.
  - Room: a physical room with occupancy and per-stay money fields
  - PaymentAggregate: the running cash/UPI/day/month totals
  - Customer: a guest keyed by identity-document number, with history
  - Notification: an append-only free-text log entry

DESIGN PRINCIPLES:
  1. Single document: atomicity comes from serialized whole-document
     read-modify-write, not from row-level transactions
  2. Precision: decimal.Decimal for all money, no float arithmetic
  3. Derived fields (total/due) are recomputed by the engine, never
     trusted from callers

SEE ALSO:
  - store.go: the read-modify-write Store contract
  - room.go, payment.go, customer.go: the mutation engines
*/
package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Money fields go over the wire as plain JSON numbers, matching the
	// terminal clients' expectations.
	decimal.MarshalJSONWithoutQuotes = true
}

// =============================================================================
// ROLES
// =============================================================================

// Role is the access tag attached to a bearer credential.
type Role string

const (
	RoleOwner   Role = "Owner"
	RoleManager Role = "Manager"
)

// =============================================================================
// ROOM
// =============================================================================

// RoomStatus is the occupancy state of a room.
type RoomStatus string

const (
	StatusAvailable   RoomStatus = "available"
	StatusOccupied    RoomStatus = "occupied"
	StatusMaintenance RoomStatus = "maintenance"
)

// Valid reports whether s is one of the three known statuses.
func (s RoomStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusOccupied, StatusMaintenance:
		return true
	}
	return false
}

// Room is one physical room. TotalAmount and DueAmount are derived:
// total = nights * price while occupied, due = max(0, total - paid).
// Check-in/out are stored as the submitted timestamp strings
// (datetime-local or RFC 3339); empty means not set.
type Room struct {
	ID              int             `json:"id"`
	Label           string          `json:"label"`
	Status          RoomStatus      `json:"status"`
	Price           decimal.Decimal `json:"price"`
	CustomerName    string          `json:"customerName"`
	NumberOfPersons int             `json:"numberOfPersons"`
	AadharNumber    string          `json:"aadharNumber"`
	PhoneNumber     string          `json:"phoneNumber"`
	CheckinTime     string          `json:"checkinTime"`
	CheckoutTime    string          `json:"checkoutTime"`
	PaymentMode     string          `json:"paymentMode"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	PaidAmount      decimal.Decimal `json:"paidAmount"`
	DueAmount       decimal.Decimal `json:"dueAmount"`
}

// NewRoom returns an available room with the given id and nightly rate.
func NewRoom(id int, price decimal.Decimal) Room {
	return Room{
		ID:              id,
		Label:           fmt.Sprintf("Room %d", id),
		Status:          StatusAvailable,
		Price:           price,
		NumberOfPersons: 1,
		TotalAmount:     decimal.Zero,
		PaidAmount:      decimal.Zero,
		DueAmount:       decimal.Zero,
	}
}

// =============================================================================
// PAYMENT AGGREGATE
// =============================================================================

// PaymentAggregate is the shared running-totals record. Cash+UPI since
// creation equals the sum of all positive payment deltas ever applied.
// Day/month figures are cumulative counters reset externally.
type PaymentAggregate struct {
	Cash         decimal.Decimal `json:"cash"`
	UPI          decimal.Decimal `json:"upi"`
	DayRevenue   decimal.Decimal `json:"dayRevenue"`
	MonthRevenue decimal.Decimal `json:"monthRevenue"`
	LastUpdated  time.Time       `json:"lastUpdated"`
}

// NewPaymentAggregate returns a zeroed aggregate.
func NewPaymentAggregate() PaymentAggregate {
	return PaymentAggregate{
		Cash:         decimal.Zero,
		UPI:          decimal.Zero,
		DayRevenue:   decimal.Zero,
		MonthRevenue: decimal.Zero,
	}
}

// =============================================================================
// CUSTOMER DIRECTORY
// =============================================================================

// StayRecord is one occupancy in a guest's history. History entries are
// append-only and never deduplicated.
type StayRecord struct {
	RoomID       int             `json:"roomId"`
	CheckinTime  string          `json:"checkinTime"`
	CheckoutTime string          `json:"checkoutTime"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	PaidAmount   decimal.Decimal `json:"paidAmount"`
	DueAmount    decimal.Decimal `json:"dueAmount"`
}

// Customer is a guest record keyed by identity-document number (Aadhar).
// Guests without an identity number are never persisted.
type Customer struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Aadhar      string       `json:"aadhar"`
	PhoneNumber string       `json:"phoneNumber"`
	History     []StayRecord `json:"history"`
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

// Notification is one entry in the append-only notification log.
type Notification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// =============================================================================
// DOCUMENT - The single authoritative state
// =============================================================================

// Document is the whole authoritative state: all four collections in one
// value. The Store serializes read-modify-write cycles over it; engines
// mutate it in place inside an Update.
type Document struct {
	Rooms         []Room           `json:"rooms"`
	Payments      PaymentAggregate `json:"payments"`
	Customers     []Customer       `json:"customers"`
	Notifications []Notification   `json:"notifications"`
}

// NewDocument returns an empty document with a zeroed aggregate.
func NewDocument() *Document {
	return &Document{
		Rooms:         []Room{},
		Payments:      NewPaymentAggregate(),
		Customers:     []Customer{},
		Notifications: []Notification{},
	}
}

// SeedRooms populates the fleet when the document has no rooms yet:
// one available room per id in [1, count] at the given nightly rate.
func (d *Document) SeedRooms(count int, price decimal.Decimal) {
	if len(d.Rooms) > 0 {
		return
	}
	for i := 1; i <= count; i++ {
		d.Rooms = append(d.Rooms, NewRoom(i, price))
	}
}

// RoomIndex returns the index of the room with the given id, or -1.
func (d *Document) RoomIndex(id int) int {
	for i := range d.Rooms {
		if d.Rooms[i].ID == id {
			return i
		}
	}
	return -1
}

// CustomerByAadhar returns the customer with the given identity number,
// or nil.
func (d *Document) CustomerByAadhar(aadhar string) *Customer {
	for i := range d.Customers {
		if d.Customers[i].Aadhar == aadhar {
			return &d.Customers[i]
		}
	}
	return nil
}

// Clone returns a deep copy. Stores hand clones to readers so a caller
// can never alias the document another Update is mutating.
func (d *Document) Clone() *Document {
	out := &Document{
		Rooms:         make([]Room, len(d.Rooms)),
		Payments:      d.Payments,
		Customers:     make([]Customer, len(d.Customers)),
		Notifications: make([]Notification, len(d.Notifications)),
	}
	copy(out.Rooms, d.Rooms)
	copy(out.Notifications, d.Notifications)
	for i, c := range d.Customers {
		cc := c
		cc.History = make([]StayRecord, len(c.History))
		copy(cc.History, c.History)
		out.Customers[i] = cc
	}
	return out
}
