/*
handlers.go - HTTP API handlers for the front-desk sync engine

PURPOSE:
  Exposes the authoritative document via REST, delegates mutations to
  the core engines inside serialized store Updates, and triggers the
  Change Broadcaster after every successful mutation.

ENDPOINTS:
  Auth:
    POST   /api/login            Credentials -> bearer token + role

  Rooms:
    GET    /api/rooms            Full room collection
    PUT    /api/rooms/{id}       Partial edit -> recomputed room

  Payments:
    GET    /api/payments         The aggregate
    POST   /api/payments         {amount, mode, roomId?} (Owner)

  Customers:
    GET    /api/customers        Directory (Owner)
    POST   /api/customers        Guest fragment upsert

  Notifications:
    GET    /api/notifications    The log
    POST   /api/notifications    Append {message}
    DELETE /api/notifications    Clear all (Owner)

  Push:
    GET    /ws?token=...         Websocket upgrade

ERROR HANDLING:
  - 400: undecodable request body
  - 401: missing/invalid/expired token
  - 403: insufficient role
  - 404: room id absent (nothing mutated)
  - 500: persistence failure - the in-memory result is STILL broadcast
         so already-connected terminals stay consistent with each
         other, but the originator must not treat the edit as durable

SEE ALSO:
  - dto.go: request/response shapes
  - hub.go: the Change Broadcaster
  - server.go: router and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lakeview/frontdesk-engine/auth"
	"github.com/lakeview/frontdesk-engine/core"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store core.Store
	Auth  *auth.Service
	Hub   *Hub

	upgrader websocket.Upgrader
	now      func() time.Time
}

// NewHandler creates a handler over the given store and auth service.
func NewHandler(store core.Store, authSvc *auth.Service) *Handler {
	return &Handler{
		Store: store,
		Auth:  authSvc,
		Hub:   NewHub(),
		upgrader: websocket.Upgrader{
			// Terminals connect from file:// and LAN origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		now: time.Now,
	}
}

// =============================================================================
// AUTH
// =============================================================================

// Login verifies a credential pair and returns a bearer token plus the
// role tag terminals use to gate owner-only UI.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	token, role, err := h.Auth.Authenticate(req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, Role: role})
}

// =============================================================================
// ROOM HANDLERS
// =============================================================================

// ListRooms returns the full room collection.
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	var rooms []core.Room
	err := h.Store.View(r.Context(), func(doc *core.Document) error {
		rooms = doc.Rooms
		return nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rooms", err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

// UpdateRoom applies a partial room edit through the Room Lifecycle
// Engine and broadcasts the result. Payment-raising edits also update
// the aggregate within the same document mutation.
func (h *Handler) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid room id", err)
		return
	}

	var patch core.RoomPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	role := roleFrom(r)
	var room core.Room
	doc, err := h.Store.Update(r.Context(), func(doc *core.Document) error {
		var inner error
		room, inner = doc.EditRoom(id, patch, role, h.now())
		return inner
	})
	if err != nil {
		h.failMutation(w, err, "Failed to update room", EventRooms, EventPayments)
		return
	}

	h.Hub.BroadcastDocument(doc, EventRooms, EventPayments)
	writeJSON(w, http.StatusOK, RoomResponse{OK: true, Room: room})
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// GetPayments returns the aggregate.
func (h *Handler) GetPayments(w http.ResponseWriter, r *http.Request) {
	var agg core.PaymentAggregate
	err := h.Store.View(r.Context(), func(doc *core.Document) error {
		agg = doc.Payments
		return nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get payments", err)
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

// SubmitPayment applies a payment delta via the Payment Reconciliation
// Engine. Zero/negative/malformed amounts are a successful no-op.
func (h *Handler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount := core.CoerceDecimal(req.Amount)
	roomID := core.CoerceInt(req.RoomID)

	var agg core.PaymentAggregate
	doc, err := h.Store.Update(r.Context(), func(doc *core.Document) error {
		agg = doc.ApplyPayment(amount, req.Mode, roomID, h.now())
		return nil
	})
	if err != nil {
		h.failMutation(w, err, "Failed to apply payment", EventPayments, EventRooms)
		return
	}

	h.Hub.BroadcastDocument(doc, EventPayments, EventRooms)
	writeJSON(w, http.StatusOK, PaymentResponse{OK: true, Payments: agg})
}

// =============================================================================
// CUSTOMER HANDLERS
// =============================================================================

// ListCustomers returns the directory. Owner-only (route-gated).
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	var customers []core.Customer
	err := h.Store.View(r.Context(), func(doc *core.Document) error {
		customers = doc.Customers
		return nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list customers", err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

// UpsertCustomer merges a guest fragment into the directory. A fragment
// without an identity number is rejected without mutating anything.
func (h *Handler) UpsertCustomer(w http.ResponseWriter, r *http.Request) {
	var frag core.CustomerFragment
	if err := json.NewDecoder(r.Body).Decode(&frag); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var customer core.Customer
	doc, err := h.Store.Update(r.Context(), func(doc *core.Document) error {
		var inner error
		customer, inner = doc.MergeCustomer(frag)
		return inner
	})
	if err != nil {
		if errors.Is(err, core.ErrCustomerKeyMissing) {
			writeError(w, http.StatusBadRequest, "Identity number required", err)
			return
		}
		h.failMutation(w, err, "Failed to upsert customer", EventCustomers)
		return
	}

	h.Hub.BroadcastDocument(doc, EventCustomers)
	writeJSON(w, http.StatusOK, CustomerResponse{OK: true, Customer: customer})
}

// =============================================================================
// NOTIFICATION HANDLERS
// =============================================================================

// ListNotifications returns the log.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	var notes []core.Notification
	err := h.Store.View(r.Context(), func(doc *core.Document) error {
		notes = doc.Notifications
		return nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// AppendNotification appends one entry to the log.
func (h *Handler) AppendNotification(w http.ResponseWriter, r *http.Request) {
	var req NotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	doc, err := h.Store.Update(r.Context(), func(doc *core.Document) error {
		doc.Notifications = append(doc.Notifications, core.Notification{
			ID:        uuid.NewString(),
			Message:   req.Message,
			Timestamp: h.now(),
		})
		return nil
	})
	if err != nil {
		h.failMutation(w, err, "Failed to append notification", EventNotifications)
		return
	}

	h.Hub.BroadcastDocument(doc, EventNotifications)
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// ClearNotifications empties the log. Owner-only (route-gated).
func (h *Handler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Store.Update(r.Context(), func(doc *core.Document) error {
		doc.Notifications = []core.Notification{}
		return nil
	})
	if err != nil {
		h.failMutation(w, err, "Failed to clear notifications", EventNotifications)
		return
	}

	h.Hub.BroadcastDocument(doc, EventNotifications)
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// =============================================================================
// PUSH CHANNEL
// =============================================================================

// ServeWS upgrades the connection and registers it with the hub. The
// bearer credential rides the token query parameter because browser
// websocket clients cannot set headers.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if _, err := h.Auth.ParseToken(token); err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid or expired token", nil)
		return
	}

	var snapshot *core.Document
	if err := h.Store.View(r.Context(), func(doc *core.Document) error {
		snapshot = doc
		return nil
	}); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read snapshot", err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return // Upgrade already wrote the response
	}
	h.Hub.Register(conn, snapshot)
}

// =============================================================================
// HELPERS
// =============================================================================

// failMutation maps a mutation error to an HTTP response. On a
// persistence failure the in-memory result is still broadcast so
// connected terminals stay consistent with each other, while the
// originating caller learns the edit is not durable.
func (h *Handler) failMutation(w http.ResponseWriter, err error, message string, events ...string) {
	var pe *core.PersistenceError
	switch {
	case errors.Is(err, core.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, "Room not found", nil)
	case errors.As(err, &pe):
		h.Hub.BroadcastDocument(pe.Doc, events...)
		writeError(w, http.StatusInternalServerError, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
