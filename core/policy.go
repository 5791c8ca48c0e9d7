/*
policy.go - Per-field write policy for room edits

PURPOSE:
  A capability table: which roles may write which room fields. Consulted
  once at the edge of the Room Lifecycle Engine instead of scattering
  role checks per call site.

SEMANTICS:
  - A field absent from the table is unknown and dropped (schema
    protection against client drift).
  - A field the caller's role may not write is dropped, not rejected:
    the rest of the edit still applies. Terminals keep such edits as
    local-only overrides.
  - Derived fields (totalAmount, dueAmount) are accepted from any role
    but always overwritten by the recompute in room.go.
*/
package core

// anyRole means every authenticated role may write the field.
var anyRole []Role = nil

// roomFieldPolicy maps a patch field name to the roles allowed to write
// it. Label and nightly rate are structural hotel data, owner-only.
var roomFieldPolicy = map[string][]Role{
	"label":           {RoleOwner},
	"price":           {RoleOwner},
	"status":          anyRole,
	"customerName":    anyRole,
	"numberOfPersons": anyRole,
	"aadharNumber":    anyRole,
	"phoneNumber":     anyRole,
	"checkinTime":     anyRole,
	"checkoutTime":    anyRole,
	"paymentMode":     anyRole,
	"paidAmount":      anyRole,
	"totalAmount":     anyRole, // derived, recomputed regardless
	"dueAmount":       anyRole, // derived, recomputed regardless
}

// FieldWritable reports whether role may write the named room field.
// Unknown fields are never writable.
func FieldWritable(field string, role Role) bool {
	roles, known := roomFieldPolicy[field]
	if !known {
		return false
	}
	if roles == nil {
		return true
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// FilterPatch returns patch with unknown fields and fields role may not
// write removed. The input map is not modified.
func FilterPatch(patch RoomPatch, role Role) RoomPatch {
	out := make(RoomPatch, len(patch))
	for k, v := range patch {
		if FieldWritable(k, role) {
			out[k] = v
		}
	}
	return out
}
