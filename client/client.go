/*
client.go - Terminal transport and optimistic write flows

PURPOSE:
  Wires the cache and mirror to the server: REST for authoritative
  writes, the websocket push channel for broadcasts. Every flow is
  local-first: the cache and mirror are updated before the network call,
  and a transport failure downgrades the write to OfflineFallback
  instead of rolling it back.

FAILURE POLICY:
  - Network failure / non-auth error response: keep the optimistic
    mutation, surface a "saved locally" signal. Never a hard failure.
  - 401: the credential is invalid or expired - drop the bearer token
    and enter the logged-out state. The local mirror is NOT cleared.
  - 403: the session is valid but the role is insufficient - surface
    ErrForbidden and keep the session.
  - The HTTP client uses a fixed 5s timeout so a dead server cannot
    stall a flow longer than that.

SEE ALSO:
  - cache.go: the state machine these flows drive
  - mirror.go: durable persistence after every local mutation
*/
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/lakeview/frontdesk-engine/api"
	"github.com/lakeview/frontdesk-engine/core"
)

var nowFunc = time.Now

var (
	// ErrNotLoggedIn is returned by flows that need a bearer token
	// before Login has succeeded.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrUnauthorized is returned when the server rejected the bearer
	// token; the client has entered the logged-out state.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrLoginFailed is returned for rejected credentials.
	ErrLoginFailed = errors.New("login failed")
)

// SignalKind classifies operator-visible sync outcomes.
type SignalKind int

const (
	SignalConfirmed SignalKind = iota
	SignalOffline
	SignalLoggedOut
)

// Signal is an advisory notification for the terminal UI.
type Signal struct {
	Kind    SignalKind
	Message string
}

// Client is one front-desk terminal's connection to the server.
type Client struct {
	baseURL string
	http    *http.Client
	mirror  *Mirror
	cache   *Cache
	notify  func(Signal)

	mu    sync.Mutex
	token string
	role  core.Role
	ws    *websocket.Conn
}

// New creates a client for the server at baseURL, persisting its local
// mirror through mirror. Call Bootstrap to load the mirror, then Login.
func New(baseURL string, mirror *Mirror) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
		mirror:  mirror,
		cache:   NewCache(""),
		notify:  func(Signal) {},
	}
}

// OnSignal registers the UI callback for sync outcome signals.
func (c *Client) OnSignal(fn func(Signal)) {
	if fn != nil {
		c.notify = fn
	}
}

// Cache exposes the local mirror for rendering.
func (c *Client) Cache() *Cache { return c.cache }

// Role returns the role tag from the last successful login.
func (c *Client) Role() core.Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role
}

// LoggedIn reports whether the client holds a bearer token.
func (c *Client) LoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token != ""
}

// Bootstrap loads the durable mirror into the cache so the terminal can
// render before (or without) a server connection.
func (c *Client) Bootstrap() error {
	doc, err := c.mirror.Load()
	if err != nil {
		return err
	}
	c.cache.Restore(doc)
	return nil
}

// =============================================================================
// LOGIN / LOGOUT
// =============================================================================

// Login exchanges credentials for a bearer token, connects the push
// channel, and pulls an initial sync of all four collections.
func (c *Client) Login(ctx context.Context, username, password string) error {
	body, _ := json.Marshal(api.LoginRequest{Username: username, Password: password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ErrLoginFailed
	}

	var lr api.LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return err
	}

	c.mu.Lock()
	c.token = lr.Token
	c.role = lr.Role
	c.mu.Unlock()
	c.cache.SetRole(lr.Role)

	// Push channel first so no broadcast is missed during the pull; its
	// connect snapshot already covers the initial state, the explicit
	// pull below just tightens the window. A failed dial is tolerable:
	// the terminal works from the mirror until the reconnect loop
	// re-establishes the channel.
	if err := c.connectPush(); err != nil {
		c.notify(Signal{Kind: SignalOffline, Message: "Push channel unavailable"})
		go c.reconnectPush()
	}
	c.Sync(ctx)
	return nil
}

// Logout discards the bearer credential and closes the push channel.
// The local mirror is retained.
func (c *Client) Logout() {
	c.mu.Lock()
	c.token = ""
	c.role = ""
	if c.ws != nil {
		c.ws.Close()
		c.ws = nil
	}
	c.mu.Unlock()
}

// handleAuthFailure forces the logged-out state when the server rejects
// the credential mid-session.
func (c *Client) handleAuthFailure() error {
	c.Logout()
	c.notify(Signal{Kind: SignalLoggedOut, Message: "Session expired"})
	return ErrUnauthorized
}

// =============================================================================
// INITIAL SYNC
// =============================================================================

// Sync pulls all four collections. Each pull is best-effort: a failed
// collection keeps its mirrored value (the connect snapshot or a later
// broadcast will freshen it).
func (c *Client) Sync(ctx context.Context) {
	var rooms []core.Room
	if c.getJSON(ctx, "/api/rooms", &rooms) == nil {
		data, _ := json.Marshal(rooms)
		c.cache.ApplyBroadcast(api.EventRooms, data)
	}
	var agg core.PaymentAggregate
	if c.getJSON(ctx, "/api/payments", &agg) == nil {
		data, _ := json.Marshal(agg)
		c.cache.ApplyBroadcast(api.EventPayments, data)
	}
	if c.Role() == core.RoleOwner {
		var customers []core.Customer
		if c.getJSON(ctx, "/api/customers", &customers) == nil {
			data, _ := json.Marshal(customers)
			c.cache.ApplyBroadcast(api.EventCustomers, data)
		}
	}
	var notes []core.Notification
	if c.getJSON(ctx, "/api/notifications", &notes) == nil {
		data, _ := json.Marshal(notes)
		c.cache.ApplyBroadcast(api.EventNotifications, data)
	}
	c.persistMirror()
}

// =============================================================================
// OPTIMISTIC WRITE FLOWS
// =============================================================================

// EditRoom applies the edit locally, then attempts the authoritative
// write. Returns the room the operator should see and the write's
// terminal state. The error is non-nil only for a locally unknown room
// id or a credential/role rejection.
func (c *Client) EditRoom(ctx context.Context, id int, patch core.RoomPatch) (core.Room, WriteState, error) {
	room, err := c.cache.OptimisticRoomEdit(id, patch)
	if err != nil {
		return core.Room{}, StateIdle, err
	}
	c.persistMirror()

	var rr api.RoomResponse
	status, err := c.sendJSON(ctx, http.MethodPut, fmt.Sprintf("/api/rooms/%d", id), patch, &rr)
	if err == nil {
		if rejected := c.settleRejected(status); rejected != nil {
			return core.Room{}, StateIdle, rejected
		}
	}
	if err != nil || status != http.StatusOK {
		c.cache.Fallback()
		c.persistMirror()
		c.notify(Signal{Kind: SignalOffline, Message: "Room saved locally (server offline)"})
		c.trackGuest(ctx, room)
		return room, StateOfflineFallback, nil
	}

	c.cache.ConfirmRoom(rr.Room)
	c.persistMirror()
	c.notify(Signal{Kind: SignalConfirmed, Message: "Room updated"})
	c.trackGuest(ctx, rr.Room)
	return rr.Room, StateConfirmed, nil
}

// trackGuest mirrors a check-in into the customer directory: every
// occupancy carrying an identity number produces a directory upsert
// with the stay record, best-effort like the room write itself.
func (c *Client) trackGuest(ctx context.Context, room core.Room) {
	if room.Status != core.StatusOccupied || strings.TrimSpace(room.AadharNumber) == "" {
		return
	}
	_, _, _ = c.UpsertCustomer(ctx, core.CustomerFragment{
		Aadhar:      room.AadharNumber,
		Name:        room.CustomerName,
		PhoneNumber: room.PhoneNumber,
		Stay: &core.StayRecord{
			RoomID:       room.ID,
			CheckinTime:  room.CheckinTime,
			CheckoutTime: room.CheckoutTime,
			TotalAmount:  room.TotalAmount,
			PaidAmount:   room.PaidAmount,
			DueAmount:    room.DueAmount,
		},
	})
}

// SubmitPayment applies the delta locally, then attempts the
// authoritative write.
func (c *Client) SubmitPayment(ctx context.Context, amount decimal.Decimal, mode string, roomID int) (core.PaymentAggregate, WriteState, error) {
	agg := c.cache.OptimisticPayment(amount, mode, roomID)
	c.persistMirror()

	req := api.PaymentRequest{Amount: amount, Mode: mode}
	if roomID != 0 {
		req.RoomID = roomID
	}
	var pr api.PaymentResponse
	status, err := c.sendJSON(ctx, http.MethodPost, "/api/payments", req, &pr)
	if err == nil {
		if rejected := c.settleRejected(status); rejected != nil {
			return core.PaymentAggregate{}, StateIdle, rejected
		}
	}
	if err != nil || status != http.StatusOK {
		c.cache.Fallback()
		c.persistMirror()
		c.notify(Signal{Kind: SignalOffline, Message: "Payment saved locally (offline)"})
		return agg, StateOfflineFallback, nil
	}

	c.cache.ConfirmPayments(pr.Payments)
	c.persistMirror()
	c.notify(Signal{Kind: SignalConfirmed, Message: "Payment updated"})
	return pr.Payments, StateConfirmed, nil
}

// UpsertCustomer merges the guest locally, then attempts the
// authoritative write. Fragments without an identity number are not
// tracked and return core.ErrCustomerKeyMissing.
func (c *Client) UpsertCustomer(ctx context.Context, frag core.CustomerFragment) (core.Customer, WriteState, error) {
	customer, err := c.cache.OptimisticCustomer(frag)
	if err != nil {
		return core.Customer{}, StateIdle, err
	}
	c.persistMirror()

	var cr api.CustomerResponse
	status, err := c.sendJSON(ctx, http.MethodPost, "/api/customers", frag, &cr)
	if err == nil {
		if rejected := c.settleRejected(status); rejected != nil {
			return core.Customer{}, StateIdle, rejected
		}
	}
	if err != nil || status != http.StatusOK {
		c.cache.Fallback()
		c.persistMirror()
		c.notify(Signal{Kind: SignalOffline, Message: "Guest saved locally (offline)"})
		return customer, StateOfflineFallback, nil
	}

	c.cache.ConfirmCustomer(cr.Customer)
	c.persistMirror()
	return cr.Customer, StateConfirmed, nil
}

// ClearNotifications is owner-only; a 403 is surfaced as a hard
// failure rather than an offline fallback, since the action cannot be
// replayed by a broadcast.
func (c *Client) ClearNotifications(ctx context.Context) error {
	var ok api.OKResponse
	status, err := c.sendJSON(ctx, http.MethodDelete, "/api/notifications", nil, &ok)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK:
		c.cache.ApplyBroadcast(api.EventNotifications, json.RawMessage("[]"))
		c.persistMirror()
		return nil
	case http.StatusUnauthorized:
		return c.handleAuthFailure()
	case http.StatusForbidden:
		return core.ErrForbidden
	default:
		return fmt.Errorf("clear notifications: status %d", status)
	}
}

// =============================================================================
// PUSH CHANNEL
// =============================================================================

// connectPush dials the websocket and starts the listen loop.
func (c *Client) connectPush() error {
	c.mu.Lock()
	token := c.token
	if c.ws != nil {
		c.ws.Close()
		c.ws = nil
	}
	c.mu.Unlock()
	if token == "" {
		return ErrNotLoggedIn
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	u.RawQuery = "token=" + url.QueryEscape(token)

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.ws = conn
	c.mu.Unlock()

	go c.listen(conn)
	return nil
}

// listen reconciles every broadcast into the cache until the connection
// dies, then hands off to the reconnect loop. Missed broadcasts are
// covered by the snapshot the server sends on reconnect.
func (c *Client) listen(conn *websocket.Conn) {
	defer conn.Close()
	for {
		var ev api.Event
		if err := conn.ReadJSON(&ev); err != nil {
			go c.reconnectPush()
			return
		}
		c.cache.ApplyBroadcast(ev.Name, ev.Data)
		c.persistMirror()
	}
}

// reconnectPush redials the push channel with backoff for as long as
// the client stays logged in. A deliberate Logout ends the loop.
func (c *Client) reconnectPush() {
	backoff := 2 * time.Second
	for c.LoggedIn() {
		time.Sleep(backoff)
		if !c.LoggedIn() {
			return
		}
		if err := c.connectPush(); err == nil {
			return
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

// persistMirror writes the current cache snapshot to the durable
// mirror. Persistence failures are advisory: the in-memory cache is
// still correct and a later mutation will retry the write.
func (c *Client) persistMirror() {
	if c.mirror == nil {
		return
	}
	if err := c.mirror.Save(c.cache.Snapshot()); err != nil {
		log.Printf("mirror save failed: %v", err)
	}
}

// =============================================================================
// TRANSPORT HELPERS
// =============================================================================

// settleRejected handles a credential or role rejection of a pending
// optimistic write. The write is settled (the local value stays, like
// any other unsynced edit) and the error distinguishes the two cases:
// only an invalid/expired credential ends the session; a role
// rejection leaves it intact.
func (c *Client) settleRejected(status int) error {
	switch status {
	case http.StatusUnauthorized:
		c.cache.Fallback()
		c.persistMirror()
		return c.handleAuthFailure()
	case http.StatusForbidden:
		c.cache.Fallback()
		c.persistMirror()
		return core.ErrForbidden
	}
	return nil
}

func (c *Client) bearer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.bearer())

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// sendJSON performs an authenticated write and decodes a 200 response
// into out. A non-200 status is NOT an error here; callers decide
// between fallback and hard failure.
func (c *Client) sendJSON(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.bearer())

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK && out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}
