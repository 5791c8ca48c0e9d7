/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests from terminals
  5. requireAuth: Bearer-token validation on everything but login
  6. requireRole: Owner gate on privileged routes

ROUTE GROUPS:
  /api/login               Credential exchange (public)
  /api/rooms/*             Room collection and edits
  /api/payments            Aggregate read and payment submission
  /api/customers           Directory (list is Owner-only)
  /api/notifications       Log, append, Owner-only clear
  /ws                      Push channel (token via query parameter)

SEE ALSO:
  - handlers.go: handler implementations
  - cmd/server/main.go: server startup
*/
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/lakeview/frontdesk-engine/auth"
	"github.com/lakeview/frontdesk-engine/core"
)

type ctxKey int

const claimsKey ctxKey = iota

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/login", h.Login)

		// Everything below requires a valid bearer token.
		r.Group(func(r chi.Router) {
			r.Use(requireAuth(h.Auth))

			r.Route("/rooms", func(r chi.Router) {
				r.Get("/", h.ListRooms)
				r.Put("/{id}", h.UpdateRoom)
			})

			r.Route("/payments", func(r chi.Router) {
				r.Get("/", h.GetPayments)
				r.With(requireRole(core.RoleOwner)).Post("/", h.SubmitPayment)
			})

			r.Route("/customers", func(r chi.Router) {
				r.With(requireRole(core.RoleOwner)).Get("/", h.ListCustomers)
				r.Post("/", h.UpsertCustomer)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.ListNotifications)
				r.Post("/", h.AppendNotification)
				r.With(requireRole(core.RoleOwner)).Delete("/", h.ClearNotifications)
			})
		})
	})

	// Push channel. Token is validated inside the handler (query param).
	r.Get("/ws", h.ServeWS)

	return r
}

// =============================================================================
// AUTH MIDDLEWARE
// =============================================================================

// requireAuth validates the Authorization bearer token and stores its
// claims on the request context.
func requireAuth(svc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeError(w, http.StatusUnauthorized, "Missing bearer token", nil)
				return
			}

			claims, err := svc.ParseToken(parts[1])
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid or expired token", nil)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireRole gates a route on an exact role tag.
func requireRole(role core.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if roleFrom(r) != role {
				writeError(w, http.StatusForbidden, "Insufficient role", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// roleFrom returns the authenticated role on the request, or "" when
// the request skipped the auth middleware.
func roleFrom(r *http.Request) core.Role {
	if claims, ok := r.Context().Value(claimsKey).(*auth.Claims); ok {
		return claims.Role
	}
	return ""
}
