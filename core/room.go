/*
room.go - Room Lifecycle Engine

PURPOSE:
  Applies a partial room edit and recomputes every derived field. This
  is the only path that mutates a room; callers never write room fields
  directly.

INVARIANTS ENFORCED HERE:
  1. due == max(0, total - paid) after every edit
  2. total == nights * price while occupied with a valid stay window,
     zero otherwise; caller-supplied total/due are overwritten
  3. A release (status leaving "occupied") clears every guest and money
     field in the same operation - a freed room never carries stale
     guest data

TOLERANT INPUT:
  Front-desk operators leave fields blank. Non-numeric numeric input
  coerces to zero; an unrecognized status keeps the previous status;
  unknown fields are dropped. A room edit never fails on bad field
  values, only on a missing room id.

PAYMENT EVENTS:
  When an edit raises the paid amount of an occupied room, the engine
  emits a PaymentEvent. EditRoom feeds it into the Payment
  Reconciliation Engine within the same document mutation, so the
  aggregate and the room ledger cannot diverge.

NIGHTS:
  nights = ceil(hours / 24), minimum 1, computed only when checkout is
  after checkin. Timestamps accept datetime-local ("2006-01-02T15:04")
  or RFC 3339 strings.

SEE ALSO:
  - policy.go: per-field role filter applied at the edge
  - payment.go: aggregate application of emitted events
*/
package core

import (
	"encoding/json"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// RoomPatch is a decoded partial room payload: raw field name to raw
// JSON value. Unknown fields are ignored.
type RoomPatch map[string]any

// PaymentEvent is the delta a room edit contributes to the payment
// aggregate. RoomID is informational; the room's own paid/due were
// already updated by the edit that emitted the event.
type PaymentEvent struct {
	RoomID int
	Delta  decimal.Decimal
	Mode   string
}

// timestamp layouts accepted from terminals, most common first.
var stayLayouts = []string{
	"2006-01-02T15:04",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

func parseStayTime(s string) (time.Time, bool) {
	for _, layout := range stayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// StayNights returns the billable nights between the two timestamp
// strings: ceil(hours/24) with a one-night minimum, or 0 when either
// side is missing/unparseable or checkout is not after checkin.
func StayNights(checkin, checkout string) int {
	ci, ok := parseStayTime(checkin)
	if !ok {
		return 0
	}
	co, ok := parseStayTime(checkout)
	if !ok {
		return 0
	}
	if !co.After(ci) {
		return 0
	}
	nights := int(math.Ceil(co.Sub(ci).Hours() / 24))
	if nights < 1 {
		nights = 1
	}
	return nights
}

// =============================================================================
// COERCION - tolerant-input policy
// =============================================================================

// CoerceDecimal converts any JSON-decoded value to a decimal, treating
// anything non-numeric (blank field, wrong type) as zero.
func CoerceDecimal(v any) decimal.Decimal {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n)
	case int:
		return decimal.NewFromInt(int64(n))
	case int64:
		return decimal.NewFromInt(n)
	case json.Number:
		if d, err := decimal.NewFromString(n.String()); err == nil {
			return d
		}
	case string:
		if d, err := decimal.NewFromString(n); err == nil {
			return d
		}
	case decimal.Decimal:
		return n
	}
	return decimal.Zero
}

// CoerceInt converts any JSON-decoded value to an int, zero on anything
// non-numeric.
func CoerceInt(v any) int {
	return int(CoerceDecimal(v).IntPart())
}

// CoerceString returns v if it is a string, "" otherwise.
func CoerceString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// =============================================================================
// ROOM LIFECYCLE ENGINE
// =============================================================================

// ApplyRoomEdit applies patch to the room with the given id and returns
// the recomputed room plus an optional payment event. The patch is
// filtered through the field write policy for role. Fails only with
// ErrRoomNotFound; nothing is mutated on failure.
func (d *Document) ApplyRoomEdit(id int, patch RoomPatch, role Role) (Room, *PaymentEvent, error) {
	idx := d.RoomIndex(id)
	if idx < 0 {
		return Room{}, nil, ErrRoomNotFound
	}

	room := d.Rooms[idx]
	prevPaid := room.PaidAmount

	for field, raw := range FilterPatch(patch, role) {
		switch field {
		case "label":
			if s := CoerceString(raw); s != "" {
				room.Label = s
			}
		case "status":
			if s := RoomStatus(CoerceString(raw)); s.Valid() {
				room.Status = s
			}
		case "price":
			room.Price = CoerceDecimal(raw)
		case "customerName":
			room.CustomerName = CoerceString(raw)
		case "numberOfPersons":
			room.NumberOfPersons = CoerceInt(raw)
		case "aadharNumber":
			room.AadharNumber = CoerceString(raw)
		case "phoneNumber":
			room.PhoneNumber = CoerceString(raw)
		case "checkinTime":
			room.CheckinTime = CoerceString(raw)
		case "checkoutTime":
			room.CheckoutTime = CoerceString(raw)
		case "paymentMode":
			room.PaymentMode = CoerceString(raw)
		case "paidAmount":
			room.PaidAmount = CoerceDecimal(raw)
		}
		// totalAmount/dueAmount pass the policy filter but are derived;
		// the recompute below owns them.
	}

	if room.Status != StatusOccupied {
		// Release: never leave stale guest data on a freed room.
		room.CustomerName = ""
		room.NumberOfPersons = 1
		room.AadharNumber = ""
		room.PhoneNumber = ""
		room.CheckinTime = ""
		room.CheckoutTime = ""
		room.PaymentMode = ""
		room.PaidAmount = decimal.Zero
	}

	nights := 0
	if room.Status == StatusOccupied {
		nights = StayNights(room.CheckinTime, room.CheckoutTime)
	}
	room.TotalAmount = room.Price.Mul(decimal.NewFromInt(int64(nights)))
	room.DueAmount = maxZero(room.TotalAmount.Sub(room.PaidAmount))

	var event *PaymentEvent
	if room.Status == StatusOccupied && room.PaidAmount.GreaterThan(prevPaid) {
		event = &PaymentEvent{
			RoomID: room.ID,
			Delta:  room.PaidAmount.Sub(prevPaid),
			Mode:   room.PaymentMode,
		}
	}

	d.Rooms[idx] = room
	return room, event, nil
}

// EditRoom is the full room-edit transaction: applies the edit and, if
// it raised the paid amount, reconciles the payment aggregate in the
// same document mutation.
func (d *Document) EditRoom(id int, patch RoomPatch, role Role, now time.Time) (Room, error) {
	room, event, err := d.ApplyRoomEdit(id, patch, role)
	if err != nil {
		return Room{}, err
	}
	if event != nil {
		// The room's paid/due are already current; route the delta into
		// the aggregate buckets only.
		d.ApplyPayment(event.Delta, event.Mode, 0, now)
	}
	return room, nil
}

func maxZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
