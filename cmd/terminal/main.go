/*
main.go - Front-desk terminal (demo client)

PURPOSE:
  A minimal terminal built on the client package: logs in, syncs the
  local mirror, prints the dashboard summary, and optionally performs a
  check-in to demonstrate the optimistic write flow. Works offline from
  the mirror when the server is unreachable.

COMMAND-LINE FLAGS:
  -server   Server base URL (default: http://localhost:8080)
  -mirror   Local mirror file (default: terminal.json)
  -user     Username
  -pass     Password
  -checkin  Room id to check a demo guest into (0 = just show state)
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/lakeview/frontdesk-engine/client"
	"github.com/lakeview/frontdesk-engine/core"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "server base URL")
	mirrorPath := flag.String("mirror", "terminal.json", "local mirror file")
	user := flag.String("user", "owner", "username")
	pass := flag.String("pass", "", "password")
	checkin := flag.Int("checkin", 0, "room id to check a demo guest into")
	flag.Parse()

	c := client.New(*serverURL, client.NewMirror(*mirrorPath))
	c.OnSignal(func(s client.Signal) {
		switch s.Kind {
		case client.SignalOffline:
			log.Printf("! %s", s.Message)
		case client.SignalLoggedOut:
			log.Printf("! %s", s.Message)
		default:
			log.Printf("  %s", s.Message)
		}
	})

	if err := c.Bootstrap(); err != nil {
		log.Fatalf("Failed to load local mirror: %v", err)
	}

	ctx := context.Background()
	if err := c.Login(ctx, *user, *pass); err != nil {
		// Offline start: render from the mirror.
		log.Printf("Login failed (%v); working from local mirror", err)
	} else {
		log.Printf("Logged in as %s (%s)", *user, c.Role())
	}

	if *checkin != 0 {
		now := time.Now()
		room, outcome, err := c.EditRoom(ctx, *checkin, core.RoomPatch{
			"status":       string(core.StatusOccupied),
			"customerName": "Walk-in Guest",
			"aadharNumber": "000011112222",
			"checkinTime":  now.Format("2006-01-02T15:04"),
			"checkoutTime": now.Add(24 * time.Hour).Format("2006-01-02T15:04"),
			"paymentMode":  "cash",
		})
		if err != nil {
			log.Fatalf("Check-in failed: %v", err)
		}
		fmt.Printf("Room %d: total %s, due %s (%v)\n",
			room.ID, room.TotalAmount, room.DueAmount, outcome)
	}

	// Give a broadcast a moment to land before printing the summary.
	time.Sleep(500 * time.Millisecond)

	stats := c.Cache().Stats()
	fmt.Printf("Rooms: %d available / %d occupied / %d maintenance\n",
		stats.Available, stats.Occupied, stats.Maintenance)
	if c.Role() == core.RoleOwner {
		fmt.Printf("Total due: %s\n", c.Cache().TotalDue())
		agg := c.Cache().Snapshot().Payments
		fmt.Printf("Cash %s | UPI %s | Day %s | Month %s\n",
			agg.Cash, agg.UPI, agg.DayRevenue, agg.MonthRevenue)
	}
}
