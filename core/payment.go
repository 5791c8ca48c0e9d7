/*
payment.go - Payment Reconciliation Engine

PURPOSE:
  Applies a payment delta to the shared aggregate and, when a room id is
  supplied, to that room's paid/due fields - atomically with respect to
  other payments because every call runs inside one serialized Store
  Update.

CLASSIFICATION:
  Two buckets, the complete taxonomy: a case-insensitive "upi" mode goes
  to UPI, everything else is cash. Day and month revenue always receive
  the full delta regardless of bucket.

SAFETY:
  - delta <= 0 is a successful no-op: safe to retry, never decrements
  - a room id pointing at no room still applies the aggregate side
    (the aggregate is the primary ledger; the room link is best-effort
    reconciliation between the two call sites that submit payments)

SEE ALSO:
  - room.go: emits PaymentEvents into this engine
  - store.go: the serialization that makes the read-modify-write safe
*/
package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ModeUPI is the payment-mode token routed to the UPI bucket, matched
// case-insensitively. Every other mode is cash.
const ModeUPI = "upi"

// ApplyPayment routes delta into the aggregate and stamps it. If roomID
// is non-zero and the room exists, the room's paid amount is raised by
// delta and its due recomputed, keeping the per-room ledger and the
// aggregate from diverging. Returns the updated aggregate.
func (d *Document) ApplyPayment(delta decimal.Decimal, mode string, roomID int, now time.Time) PaymentAggregate {
	if delta.LessThanOrEqual(decimal.Zero) {
		return d.Payments
	}

	if strings.EqualFold(strings.TrimSpace(mode), ModeUPI) {
		d.Payments.UPI = d.Payments.UPI.Add(delta)
	} else {
		d.Payments.Cash = d.Payments.Cash.Add(delta)
	}
	d.Payments.DayRevenue = d.Payments.DayRevenue.Add(delta)
	d.Payments.MonthRevenue = d.Payments.MonthRevenue.Add(delta)
	d.Payments.LastUpdated = now

	if roomID != 0 {
		if idx := d.RoomIndex(roomID); idx >= 0 {
			room := &d.Rooms[idx]
			room.PaidAmount = room.PaidAmount.Add(delta)
			room.DueAmount = maxZero(room.TotalAmount.Sub(room.PaidAmount))
			room.PaymentMode = mode
		}
	}

	return d.Payments
}
