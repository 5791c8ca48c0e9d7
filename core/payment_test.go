package core_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/lakeview/frontdesk-engine/core"
)

// =============================================================================
// BUCKET ROUTING
// =============================================================================

func TestApplyPayment_RoutesUPIAndCash(t *testing.T) {
	// GIVEN: aggregate {cash:0, upi:0}
	// WHEN: 500 via "UPI" then 200 via "cash"
	// THEN: {cash:200, upi:500}, day/month both +700
	doc := core.NewDocument()
	now := time.Now()

	doc.ApplyPayment(decimal.NewFromInt(500), "UPI", 0, now)
	doc.ApplyPayment(decimal.NewFromInt(200), "cash", 0, now)

	requireDecimal(t, 200, doc.Payments.Cash)
	requireDecimal(t, 500, doc.Payments.UPI)
	requireDecimal(t, 700, doc.Payments.DayRevenue)
	requireDecimal(t, 700, doc.Payments.MonthRevenue)
}

func TestApplyPayment_UnknownModeIsCash(t *testing.T) {
	doc := core.NewDocument()

	doc.ApplyPayment(decimal.NewFromInt(100), "card", 0, time.Now())
	doc.ApplyPayment(decimal.NewFromInt(50), "", 0, time.Now())

	requireDecimal(t, 150, doc.Payments.Cash)
	require.True(t, doc.Payments.UPI.IsZero())
}

func TestApplyPayment_UPITokenCaseInsensitive(t *testing.T) {
	doc := core.NewDocument()

	for _, mode := range []string{"upi", "UPI", "Upi", " upi "} {
		doc.ApplyPayment(decimal.NewFromInt(10), mode, 0, time.Now())
	}

	requireDecimal(t, 40, doc.Payments.UPI)
	require.True(t, doc.Payments.Cash.IsZero())
}

// =============================================================================
// NO-OP AND CLAMPING
// =============================================================================

func TestApplyPayment_ZeroAndNegative_NoOp(t *testing.T) {
	doc := core.NewDocument()
	before := doc.Payments

	doc.ApplyPayment(decimal.Zero, "cash", 0, time.Now())
	doc.ApplyPayment(decimal.NewFromInt(-500), "upi", 0, time.Now())

	require.Equal(t, before, doc.Payments)
}

func TestApplyPayment_StampsLastUpdated(t *testing.T) {
	doc := core.NewDocument()
	stamp := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

	doc.ApplyPayment(decimal.NewFromInt(1), "cash", 0, stamp)

	require.Equal(t, stamp, doc.Payments.LastUpdated)
}

// =============================================================================
// ROOM LINKAGE
// =============================================================================

func TestApplyPayment_WithRoom_UpdatesPaidAndDue(t *testing.T) {
	doc := newTestDocument(5)
	now := time.Now()
	_, err := doc.EditRoom(3, occupyPatch("A", "X1", "2024-01-01T10:00", "2024-01-03T10:00", 1000), core.RoleManager, now)
	require.NoError(t, err)

	doc.ApplyPayment(decimal.NewFromInt(500), "upi", 3, now)

	room := doc.Rooms[doc.RoomIndex(3)]
	requireDecimal(t, 1500, room.PaidAmount)
	requireDecimal(t, 1500, room.DueAmount) // 3000 total - 1500 paid
	require.Equal(t, "upi", room.PaymentMode)
}

func TestApplyPayment_MissingRoom_StillUpdatesAggregate(t *testing.T) {
	doc := core.NewDocument()

	doc.ApplyPayment(decimal.NewFromInt(500), "cash", 99, time.Now())

	requireDecimal(t, 500, doc.Payments.Cash)
}

// =============================================================================
// INVARIANT: cash+upi equals sum of all positive deltas
// =============================================================================

func TestApplyPayment_BucketSumMatchesDeltas(t *testing.T) {
	doc := core.NewDocument()
	now := time.Now()

	deltas := []struct {
		amount int64
		mode   string
	}{
		{500, "upi"}, {200, "cash"}, {0, "cash"}, {-100, "upi"}, {300, "card"},
	}
	expected := decimal.Zero
	for _, d := range deltas {
		amt := decimal.NewFromInt(d.amount)
		doc.ApplyPayment(amt, d.mode, 0, now)
		if amt.IsPositive() {
			expected = expected.Add(amt)
		}
	}

	total := doc.Payments.Cash.Add(doc.Payments.UPI)
	require.True(t, total.Equal(expected), "want %s, got %s", expected, total)
}
