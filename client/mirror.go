/*
mirror.go - Durable per-terminal key/value mirror

PURPOSE:
  The OfflineFallback persistence: four keys, one per collection, read
  at startup and rewritten after every local mutation. A terminal that
  starts while the server is down works from this copy until the next
  broadcast replaces it.

FORMAT:
  One JSON file. Writes go through a temp file + rename so a crash
  mid-write never leaves a torn mirror.
*/
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/lakeview/frontdesk-engine/core"
)

// Mirror persists the cache under a single file path.
type Mirror struct {
	path string
}

// mirrorFile is the on-disk shape: the four collection keys.
type mirrorFile struct {
	Rooms         []core.Room           `json:"hotelRooms"`
	Payments      core.PaymentAggregate `json:"hotelPayments"`
	Customers     []core.Customer       `json:"hotelCustomersDB"`
	Notifications []core.Notification   `json:"hotelNotifications"`
}

// NewMirror creates a mirror at path. The file is created on first Save.
func NewMirror(path string) *Mirror {
	return &Mirror{path: path}
}

// Load reads the mirrored document. A missing file yields an empty
// document, not an error; a corrupt file is reported.
func (m *Mirror) Load() (*core.Document, error) {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return core.NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read mirror: %w", err)
	}

	var f mirrorFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("corrupt mirror file: %w", err)
	}

	doc := core.NewDocument()
	if f.Rooms != nil {
		doc.Rooms = f.Rooms
	}
	doc.Payments = f.Payments
	if f.Customers != nil {
		doc.Customers = f.Customers
	}
	if f.Notifications != nil {
		doc.Notifications = f.Notifications
	}
	return doc, nil
}

// Save writes the document atomically.
func (m *Mirror) Save(doc *core.Document) error {
	f := mirrorFile{
		Rooms:         doc.Rooms,
		Payments:      doc.Payments,
		Customers:     doc.Customers,
		Notifications: doc.Notifications,
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(m.path), ".mirror-*")
	if err != nil {
		return fmt.Errorf("write mirror: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write mirror: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write mirror: %w", err)
	}
	return os.Rename(tmp.Name(), m.path)
}
