/*
client_test.go - Terminal flow tests against a live in-process server

Covers the three write outcomes: Confirmed (server reachable),
OfflineFallback (server down, local value kept), and the logged-out
state on an auth rejection.
*/
package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/lakeview/frontdesk-engine/api"
	"github.com/lakeview/frontdesk-engine/auth"
	"github.com/lakeview/frontdesk-engine/core"
	"github.com/lakeview/frontdesk-engine/core/store"
)

func newSyncRouter(t *testing.T) (http.Handler, *store.Memory) {
	t.Helper()

	s := store.NewMemory()
	_, err := s.Update(context.Background(), func(doc *core.Document) error {
		doc.SeedRooms(5, decimal.NewFromInt(1500))
		return nil
	})
	require.NoError(t, err)

	authSvc := auth.NewService("test-secret")
	require.NoError(t, authSvc.AddUser("owner", "owner-pass", core.RoleOwner))
	require.NoError(t, authSvc.AddUser("manager", "manager-pass", core.RoleManager))

	return api.NewRouter(api.NewHandler(s, authSvc)), s
}

func newSyncServer(t *testing.T) (*httptest.Server, *store.Memory) {
	t.Helper()
	router, s := newSyncRouter(t)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, s
}

func newTerminal(t *testing.T, baseURL string) (*Client, chan Signal) {
	t.Helper()
	mirror := NewMirror(filepath.Join(t.TempDir(), "terminal.json"))
	c := New(baseURL, mirror)
	signals := make(chan Signal, 16)
	c.OnSignal(func(s Signal) { signals <- s })
	require.NoError(t, c.Bootstrap())
	return c, signals
}

// =============================================================================
// LOGIN
// =============================================================================

func TestClient_Login_BadCredentials(t *testing.T) {
	server, _ := newSyncServer(t)
	c, _ := newTerminal(t, server.URL)

	err := c.Login(context.Background(), "owner", "wrong")
	require.ErrorIs(t, err, ErrLoginFailed)
	require.False(t, c.LoggedIn())
}

func TestClient_Login_PullsInitialState(t *testing.T) {
	server, _ := newSyncServer(t)
	c, _ := newTerminal(t, server.URL)

	require.NoError(t, c.Login(context.Background(), "manager", "manager-pass"))
	require.True(t, c.LoggedIn())
	require.Equal(t, core.RoleManager, c.Role())
	require.Len(t, c.Cache().Snapshot().Rooms, 5)
}

// =============================================================================
// CONFIRMED FLOW
// =============================================================================

func TestClient_EditRoom_Confirmed(t *testing.T) {
	server, _ := newSyncServer(t)
	c, signals := newTerminal(t, server.URL)
	require.NoError(t, c.Login(context.Background(), "owner", "owner-pass"))

	room, state, err := c.EditRoom(context.Background(), 2, core.RoomPatch{
		"status":       "occupied",
		"customerName": "A",
		"checkinTime":  "2024-01-01T10:00",
		"checkoutTime": "2024-01-03T10:00",
	})
	require.NoError(t, err)
	require.Equal(t, StateConfirmed, state)
	require.True(t, room.TotalAmount.Equal(decimal.NewFromInt(3000)))

	// The server-confirmed value replaced the optimistic guess.
	require.Equal(t, core.StatusOccupied, c.Cache().Snapshot().Rooms[1].Status)

	var got Signal
	select {
	case got = <-signals:
	case <-time.After(2 * time.Second):
		t.Fatal("no signal delivered")
	}
	require.Equal(t, SignalConfirmed, got.Kind)

	// The mirror was rewritten with the confirmed state.
	doc, err := c.mirror.Load()
	require.NoError(t, err)
	require.Equal(t, core.StatusOccupied, doc.Rooms[1].Status)
}

// =============================================================================
// OFFLINE FALLBACK
// =============================================================================

func TestClient_EditRoom_OfflineFallback(t *testing.T) {
	// A terminal whose server is gone keeps working from the mirror.
	server, _ := newSyncServer(t)
	c, signals := newTerminal(t, server.URL)
	require.NoError(t, c.Login(context.Background(), "owner", "owner-pass"))
	server.Close()

	room, state, err := c.EditRoom(context.Background(), 3, core.RoomPatch{"status": "maintenance"})
	require.NoError(t, err)
	require.Equal(t, StateOfflineFallback, state)
	require.Equal(t, core.StatusMaintenance, room.Status)
	require.Equal(t, StateOfflineFallback, c.Cache().LastOutcome())

	// Drain until the offline signal shows up (the dead push channel may
	// have produced one first).
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-signals:
			if s.Kind == SignalOffline {
				doc, err := c.mirror.Load()
				require.NoError(t, err)
				require.Equal(t, core.StatusMaintenance, doc.Rooms[2].Status)
				return
			}
		case <-deadline:
			t.Fatal("no offline signal delivered")
		}
	}
}

func TestClient_SubmitPayment_OfflineKeepsLocalAggregate(t *testing.T) {
	server, _ := newSyncServer(t)
	c, _ := newTerminal(t, server.URL)
	require.NoError(t, c.Login(context.Background(), "owner", "owner-pass"))
	server.Close()

	agg, state, err := c.SubmitPayment(context.Background(), decimal.NewFromInt(500), "upi", 0)
	require.NoError(t, err)
	require.Equal(t, StateOfflineFallback, state)
	require.True(t, agg.UPI.Equal(decimal.NewFromInt(500)))
	require.True(t, c.Cache().Snapshot().Payments.UPI.Equal(decimal.NewFromInt(500)))
}

// =============================================================================
// AUTH REJECTION
// =============================================================================

func TestClient_AuthRejection_EntersLoggedOut(t *testing.T) {
	server, _ := newSyncServer(t)
	c, signals := newTerminal(t, server.URL)

	// No login: the server answers 401 and the client must not treat it
	// as an offline fallback.
	err := c.ClearNotifications(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
	require.False(t, c.LoggedIn())

	var got Signal
	select {
	case got = <-signals:
	case <-time.After(2 * time.Second):
		t.Fatal("no signal delivered")
	}
	require.Equal(t, SignalLoggedOut, got.Kind)
}

func TestClient_SubmitPayment_ForbiddenKeepsSession(t *testing.T) {
	// A role rejection on an owner-gated flow must not destroy the
	// manager's valid session: only an invalid/expired credential does.
	server, _ := newSyncServer(t)
	c, _ := newTerminal(t, server.URL)
	require.NoError(t, c.Login(context.Background(), "manager", "manager-pass"))

	_, state, err := c.SubmitPayment(context.Background(), decimal.NewFromInt(500), "upi", 0)
	require.ErrorIs(t, err, core.ErrForbidden)
	require.Equal(t, StateIdle, state)
	require.True(t, c.LoggedIn())

	// The pending write settled; the cache is not stuck Optimistic.
	require.Equal(t, StateIdle, c.Cache().State())
}

func TestClient_SubmitPayment_UnauthorizedSettlesAndLogsOut(t *testing.T) {
	server, _ := newSyncServer(t)
	c, _ := newTerminal(t, server.URL)

	// No login: the server answers 401.
	_, state, err := c.SubmitPayment(context.Background(), decimal.NewFromInt(500), "upi", 0)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Equal(t, StateIdle, state)
	require.False(t, c.LoggedIn())
	require.Equal(t, StateIdle, c.Cache().State())
}

func TestClient_ClearNotifications_ForbiddenForManager(t *testing.T) {
	server, _ := newSyncServer(t)
	c, _ := newTerminal(t, server.URL)
	require.NoError(t, c.Login(context.Background(), "manager", "manager-pass"))

	err := c.ClearNotifications(context.Background())
	require.ErrorIs(t, err, core.ErrForbidden)
	// A role rejection does not end the session.
	require.True(t, c.LoggedIn())
}

// =============================================================================
// GUEST TRACKING
// =============================================================================

func TestClient_CheckinPopulatesCustomerDirectory(t *testing.T) {
	// Every occupancy carrying an identity number lands in the
	// authoritative directory alongside the room write.
	server, s := newSyncServer(t)
	c, _ := newTerminal(t, server.URL)
	require.NoError(t, c.Login(context.Background(), "owner", "owner-pass"))

	_, state, err := c.EditRoom(context.Background(), 1, core.RoomPatch{
		"status":       "occupied",
		"customerName": "A",
		"aadharNumber": "X123",
		"phoneNumber":  "9876543210",
		"checkinTime":  "2024-01-01T10:00",
		"checkoutTime": "2024-01-03T10:00",
	})
	require.NoError(t, err)
	require.Equal(t, StateConfirmed, state)

	var customers []core.Customer
	require.NoError(t, s.View(context.Background(), func(doc *core.Document) error {
		customers = doc.Customers
		return nil
	}))
	require.Len(t, customers, 1)
	require.Equal(t, "X123", customers[0].Aadhar)
	require.Equal(t, "A", customers[0].Name)
	require.Equal(t, "9876543210", customers[0].PhoneNumber)
	require.Len(t, customers[0].History, 1)
	require.Equal(t, 1, customers[0].History[0].RoomID)
	require.True(t, customers[0].History[0].TotalAmount.Equal(decimal.NewFromInt(3000)))
}

func TestClient_CheckinWithoutIdentity_NotTracked(t *testing.T) {
	server, s := newSyncServer(t)
	c, _ := newTerminal(t, server.URL)
	require.NoError(t, c.Login(context.Background(), "owner", "owner-pass"))

	_, _, err := c.EditRoom(context.Background(), 1, core.RoomPatch{
		"status":       "occupied",
		"customerName": "Anonymous",
	})
	require.NoError(t, err)

	require.NoError(t, s.View(context.Background(), func(doc *core.Document) error {
		require.Empty(t, doc.Customers)
		return nil
	}))
}

func TestClient_OfflineCheckinTracksGuestLocally(t *testing.T) {
	server, _ := newSyncServer(t)
	c, _ := newTerminal(t, server.URL)
	require.NoError(t, c.Login(context.Background(), "owner", "owner-pass"))
	server.Close()

	_, state, err := c.EditRoom(context.Background(), 2, core.RoomPatch{
		"status":       "occupied",
		"customerName": "B",
		"aadharNumber": "Y456",
	})
	require.NoError(t, err)
	require.Equal(t, StateOfflineFallback, state)

	// The guest made it into the local directory for a later sync.
	snap := c.Cache().Snapshot()
	require.Len(t, snap.Customers, 1)
	require.Equal(t, "Y456", snap.Customers[0].Aadhar)
}

// =============================================================================
// PUSH CHANNEL
// =============================================================================

func TestClient_BroadcastReachesOtherTerminal(t *testing.T) {
	server, _ := newSyncServer(t)

	watcher, _ := newTerminal(t, server.URL)
	require.NoError(t, watcher.Login(context.Background(), "manager", "manager-pass"))

	actor, _ := newTerminal(t, server.URL)
	require.NoError(t, actor.Login(context.Background(), "owner", "owner-pass"))

	_, state, err := actor.SubmitPayment(context.Background(), decimal.NewFromInt(700), "upi", 0)
	require.NoError(t, err)
	require.Equal(t, StateConfirmed, state)

	require.Eventually(t, func() bool {
		return watcher.Cache().Snapshot().Payments.UPI.Equal(decimal.NewFromInt(700))
	}, 2*time.Second, 20*time.Millisecond)
}

func TestClient_PushChannelRecoversFromFailedInitialDial(t *testing.T) {
	// The websocket endpoint is down during login; the client must keep
	// retrying the dial and catch up via the reconnect snapshot.
	router, _ := newSyncRouter(t)

	var wsReady atomic.Bool
	gate := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" && !wsReady.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		router.ServeHTTP(w, r)
	})
	server := httptest.NewServer(gate)
	t.Cleanup(server.Close)

	watcher, _ := newTerminal(t, server.URL)
	require.NoError(t, watcher.Login(context.Background(), "manager", "manager-pass"))

	// Channel comes back; a payment made before the watcher reconnects
	// is covered by the connect snapshot.
	wsReady.Store(true)
	actor, _ := newTerminal(t, server.URL)
	require.NoError(t, actor.Login(context.Background(), "owner", "owner-pass"))
	_, state, err := actor.SubmitPayment(context.Background(), decimal.NewFromInt(900), "upi", 0)
	require.NoError(t, err)
	require.Equal(t, StateConfirmed, state)

	require.Eventually(t, func() bool {
		return watcher.Cache().Snapshot().Payments.UPI.Equal(decimal.NewFromInt(900))
	}, 10*time.Second, 100*time.Millisecond)
}
