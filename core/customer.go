/*
customer.go - Customer Directory Merge

PURPOSE:
  Upserts a guest record keyed by identity-document number and appends a
  stay-history entry. The directory is an audit trail: history entries
  are append-only and never merged or deduplicated.

MERGE RULES:
  - No identity number, no record: anonymous walk-ins are not tracked
    (ErrCustomerKeyMissing).
  - First sight of a number creates the record, then appends the stay.
  - On subsequent sights, name/phone are refreshed only with non-empty
    incoming values; an empty edit never blanks a known name or phone.
  - Every call with a stay appends exactly one history entry, repeat
    stays in the same room included.

SEE ALSO:
  - room.go: the occupancy edits that produce guest fragments
*/
package core

import (
	"strings"

	"github.com/google/uuid"
)

// CustomerFragment is an incoming guest record: identity number
// required, the rest optional.
type CustomerFragment struct {
	Aadhar      string      `json:"aadhar"`
	Name        string      `json:"name"`
	PhoneNumber string      `json:"phoneNumber"`
	Stay        *StayRecord `json:"stay,omitempty"`
}

// MergeCustomer upserts the fragment into the directory and returns the
// resulting record. Fails only when the identity number is missing.
func (d *Document) MergeCustomer(frag CustomerFragment) (Customer, error) {
	aadhar := strings.TrimSpace(frag.Aadhar)
	if aadhar == "" {
		return Customer{}, ErrCustomerKeyMissing
	}

	c := d.CustomerByAadhar(aadhar)
	if c == nil {
		d.Customers = append(d.Customers, Customer{
			ID:      uuid.NewString(),
			Aadhar:  aadhar,
			History: []StayRecord{},
		})
		c = &d.Customers[len(d.Customers)-1]
	}

	if name := strings.TrimSpace(frag.Name); name != "" {
		c.Name = name
	}
	if phone := strings.TrimSpace(frag.PhoneNumber); phone != "" {
		c.PhoneNumber = phone
	}
	if frag.Stay != nil {
		c.History = append(c.History, *frag.Stay)
	}

	return *c, nil
}
