/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication. Collections go over the wire
  as the core types themselves (their JSON shape IS the terminal
  contract); this file holds the request/response envelopes around them.

NAMING CONVENTION:
  - *Request: request body types from terminals
  - *Response: response wrappers

VALIDATION:
  Numeric payment fields are deliberately loose (any): malformed input
  coerces to zero in the handler instead of failing the request.

SEE ALSO:
  - handlers.go: uses these types
  - core/types.go: the collection wire shapes
*/
package api

import "github.com/lakeview/frontdesk-engine/core"

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// LoginRequest is a credential pair.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token and its role tag.
type LoginResponse struct {
	Token string    `json:"token"`
	Role  core.Role `json:"role"`
}

// PaymentRequest applies a payment delta to the aggregate and,
// optionally, to a room. Amount and RoomID are raw JSON values so that
// blank or malformed input coerces to zero instead of failing.
type PaymentRequest struct {
	Amount any    `json:"amount"`
	Mode   string `json:"mode"`
	RoomID any    `json:"roomId,omitempty"`
}

// PaymentResponse returns the updated aggregate.
type PaymentResponse struct {
	OK       bool                  `json:"ok"`
	Payments core.PaymentAggregate `json:"payments"`
}

// RoomResponse returns the recomputed room after an edit.
type RoomResponse struct {
	OK   bool      `json:"ok"`
	Room core.Room `json:"room"`
}

// CustomerResponse returns the merged customer record.
type CustomerResponse struct {
	OK       bool          `json:"ok"`
	Customer core.Customer `json:"customer"`
}

// NotificationRequest appends one entry to the notification log.
type NotificationRequest struct {
	Message string `json:"message"`
}

// OKResponse is the minimal success envelope.
type OKResponse struct {
	OK bool `json:"ok"`
}

// ErrorResponse is returned for all error statuses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
