/*
main.go - Server entry point

PURPOSE:
  Initializes and starts the front-desk sync server: durable document
  store, auth service, REST router, push channel, graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (optional) and parse command-line flags
  2. Open the SQLite document store
  3. Seed the room fleet if the document is empty
  4. Seed terminal accounts from the environment
  5. Start the HTTP server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: frontdesk.db)
           Use ":memory:" for an in-memory database
  -rooms   Fleet size to seed on an empty document (default: 29)
  -rate    Nightly rate for seeded rooms (default: 1500)

ENVIRONMENT:
  JWT_SECRET        Token signing secret (required)
  OWNER_PASSWORD    Password for the "owner" account (required)
  MANAGER_PASSWORD  Password for the "manager" account (optional)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, wait up to 30s for
  active requests, close the store, exit.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/lakeview/frontdesk-engine/api"
	"github.com/lakeview/frontdesk-engine/auth"
	"github.com/lakeview/frontdesk-engine/core"
	"github.com/lakeview/frontdesk-engine/store/sqlite"
)

func main() {
	// .env is a convenience for dev; absence is fine.
	_ = godotenv.Load()

	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "frontdesk.db", "SQLite database path")
	roomCount := flag.Int("rooms", 29, "fleet size seeded on an empty document")
	nightlyRate := flag.Int64("rate", 1500, "nightly rate for seeded rooms")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Seed the fleet on first run.
	if _, err := store.Update(context.Background(), func(doc *core.Document) error {
		doc.SeedRooms(*roomCount, decimal.NewFromInt(*nightlyRate))
		return nil
	}); err != nil {
		log.Fatalf("Failed to seed rooms: %v", err)
	}

	// Terminal accounts.
	authSvc := auth.NewService(secret)
	ownerPassword := os.Getenv("OWNER_PASSWORD")
	if ownerPassword == "" {
		log.Fatal("OWNER_PASSWORD is required")
	}
	if err := authSvc.AddUser("owner", ownerPassword, core.RoleOwner); err != nil {
		log.Fatalf("Failed to register owner account: %v", err)
	}
	if managerPassword := os.Getenv("MANAGER_PASSWORD"); managerPassword != "" {
		if err := authSvc.AddUser("manager", managerPassword, core.RoleManager); err != nil {
			log.Fatalf("Failed to register manager account: %v", err)
		}
	}

	handler := api.NewHandler(store, authSvc)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Front-desk server listening on http://localhost:%d", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
