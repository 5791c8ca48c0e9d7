/*
hub.go - Change Broadcaster (websocket push channel)

PURPOSE:
  After every authoritative mutation, pushes the full updated collection
  to every connected terminal as a named event. New connections receive
  a snapshot of all four collections immediately, so a terminal joining
  mid-session needs no separate bootstrap call.

EVENTS:
  roomsUpdated | paymentsUpdated | customersUpdated | notificationsUpdated
  Each payload is the complete collection, JSON-encoded.

ORDERING:
  Each client has one buffered send channel drained by a single write
  goroutine, so delivery is ordered per connection. Register enqueues
  the snapshot under the same lock that Broadcast takes, so a client can
  never observe a broadcast older than its snapshot.

FIRE-AND-FORGET:
  Delivery is best-effort, at-most-once, unacknowledged. A client whose
  buffer is full is disconnected rather than blocking the triggering
  request; the terminal's reconnect snapshot brings it back in sync.
*/
package api

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/lakeview/frontdesk-engine/core"
)

// Collection event names carried on the push channel.
const (
	EventRooms         = "roomsUpdated"
	EventPayments      = "paymentsUpdated"
	EventCustomers     = "customersUpdated"
	EventNotifications = "notificationsUpdated"
)

// Event is one push-channel frame: an event name and the full updated
// collection.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// sendBuffer is how many undelivered events a terminal may lag before
// it is dropped.
const sendBuffer = 32

type hubClient struct {
	conn *websocket.Conn
	send chan Event
}

// Hub tracks connected terminals and fans mutations out to them.
type Hub struct {
	mu      sync.Mutex
	clients map[*hubClient]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*hubClient]struct{})}
}

// Register adds a connection and enqueues its initial snapshot
// atomically with respect to concurrent broadcasts. It starts the
// read/write pumps and returns immediately.
func (h *Hub) Register(conn *websocket.Conn, snapshot *core.Document) {
	c := &hubClient{conn: conn, send: make(chan Event, sendBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	for _, ev := range snapshotEvents(snapshot) {
		c.send <- ev
	}
	h.mu.Unlock()

	go c.writePump(h)
	go c.readPump(h)
}

// Broadcast pushes one named collection to every connected terminal.
// It never blocks on a slow terminal and never returns an error to the
// triggering request.
func (h *Hub) Broadcast(name string, collection any) {
	data, err := json.Marshal(collection)
	if err != nil {
		log.Printf("broadcast %s: marshal failed: %v", name, err)
		return
	}
	ev := Event{Name: name, Data: data}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			// Terminal too far behind; cut it loose instead of blocking.
			h.dropLocked(c)
		}
	}
}

// BroadcastDocument pushes the collections named in which (all four
// when which is empty) from the given document snapshot.
func (h *Hub) BroadcastDocument(doc *core.Document, which ...string) {
	if len(which) == 0 {
		which = []string{EventRooms, EventPayments, EventCustomers, EventNotifications}
	}
	for _, name := range which {
		switch name {
		case EventRooms:
			h.Broadcast(EventRooms, doc.Rooms)
		case EventPayments:
			h.Broadcast(EventPayments, doc.Payments)
		case EventCustomers:
			h.Broadcast(EventCustomers, doc.Customers)
		case EventNotifications:
			h.Broadcast(EventNotifications, doc.Notifications)
		}
	}
}

// ClientCount reports the number of connected terminals.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) drop(c *hubClient) {
	h.mu.Lock()
	h.dropLocked(c)
	h.mu.Unlock()
}

func (h *Hub) dropLocked(c *hubClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func snapshotEvents(doc *core.Document) []Event {
	out := make([]Event, 0, 4)
	for _, pair := range []struct {
		name string
		data any
	}{
		{EventRooms, doc.Rooms},
		{EventPayments, doc.Payments},
		{EventCustomers, doc.Customers},
		{EventNotifications, doc.Notifications},
	} {
		data, err := json.Marshal(pair.data)
		if err != nil {
			continue
		}
		out = append(out, Event{Name: pair.name, Data: data})
	}
	return out
}

// writePump drains the send channel onto the wire until the channel is
// closed or a write fails.
func (c *hubClient) writePump(h *Hub) {
	defer c.conn.Close()
	for ev := range c.send {
		if err := c.conn.WriteJSON(ev); err != nil {
			h.drop(c)
			return
		}
	}
}

// readPump discards inbound frames (terminals only listen) and
// unregisters on close or error.
func (c *hubClient) readPump(h *Hub) {
	defer func() {
		h.drop(c)
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
