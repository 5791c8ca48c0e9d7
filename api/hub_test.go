/*
hub_test.go - Push channel tests over a live websocket

Dials the real /ws endpoint through an httptest server and verifies the
connect snapshot, broadcast fan-out, and per-connection ordering.
*/
package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/lakeview/frontdesk-engine/api"
	"github.com/lakeview/frontdesk-engine/core"
)

func dialWS(t *testing.T, server *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) api.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev api.Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestWS_RejectsBadToken(t *testing.T) {
	e := newTestEnv(t)
	server := httptest.NewServer(e.router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWS_SnapshotOnConnect(t *testing.T) {
	// A terminal joining mid-session gets all four collections before
	// any later broadcast.
	e := newTestEnv(t)
	server := httptest.NewServer(e.router)
	defer server.Close()

	conn := dialWS(t, server, e.managerToken)

	want := []string{api.EventRooms, api.EventPayments, api.EventCustomers, api.EventNotifications}
	for _, name := range want {
		ev := readEvent(t, conn)
		require.Equal(t, name, ev.Name)
	}

	var rooms []core.Room
	// The rooms snapshot is the seeded collection.
	conn2 := dialWS(t, server, e.ownerToken)
	ev := readEvent(t, conn2)
	require.Equal(t, api.EventRooms, ev.Name)
	require.NoError(t, json.Unmarshal(ev.Data, &rooms))
	require.Len(t, rooms, 10)
}

func TestWS_MutationFansOutToAllTerminals(t *testing.T) {
	e := newTestEnv(t)
	server := httptest.NewServer(e.router)
	defer server.Close()

	owner := dialWS(t, server, e.ownerToken)
	manager := dialWS(t, server, e.managerToken)
	for i := 0; i < 4; i++ {
		readEvent(t, owner)
		readEvent(t, manager)
	}

	rec := e.do(t, http.MethodPost, "/api/payments", e.ownerToken, api.PaymentRequest{Amount: 500, Mode: "upi"})
	require.Equal(t, http.StatusOK, rec.Code)

	for _, conn := range []*websocket.Conn{owner, manager} {
		ev := readEvent(t, conn)
		require.Equal(t, api.EventPayments, ev.Name)
		var agg core.PaymentAggregate
		require.NoError(t, json.Unmarshal(ev.Data, &agg))
		require.True(t, agg.UPI.Equal(decimal.NewFromInt(500)))

		ev = readEvent(t, conn)
		require.Equal(t, api.EventRooms, ev.Name)
	}
}

func TestWS_SequentialBroadcastsArriveInOrder(t *testing.T) {
	e := newTestEnv(t)
	server := httptest.NewServer(e.router)
	defer server.Close()

	conn := dialWS(t, server, e.ownerToken)
	for i := 0; i < 4; i++ {
		readEvent(t, conn)
	}

	for _, amount := range []int{500, 200} {
		rec := e.do(t, http.MethodPost, "/api/payments", e.ownerToken, api.PaymentRequest{Amount: amount, Mode: "cash"})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	var totals []decimal.Decimal
	for i := 0; i < 4; i++ {
		ev := readEvent(t, conn)
		if ev.Name != api.EventPayments {
			continue
		}
		var agg core.PaymentAggregate
		require.NoError(t, json.Unmarshal(ev.Data, &agg))
		totals = append(totals, agg.Cash)
	}
	require.Len(t, totals, 2)
	require.True(t, totals[0].Equal(decimal.NewFromInt(500)))
	require.True(t, totals[1].Equal(decimal.NewFromInt(700)))
}

func TestHub_ClientCountTracksRegistrations(t *testing.T) {
	hub := api.NewHub()
	require.Zero(t, hub.ClientCount())

	// Broadcast onto an empty hub is a no-op.
	hub.BroadcastDocument(core.NewDocument())
	require.Zero(t, hub.ClientCount())
}
