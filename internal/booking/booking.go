// Package booking converts raw Bookster API records into canonical
// bookings suitable for calendar rendering. Upstream data quality is
// uneven, so every lookup fails soft: a record that cannot be resolved
// is dropped, never an error.
package booking

import "time"

// Record is one raw booking as decoded from the Bookster JSON payload.
// Keys and value types are whatever the API returned; all access goes
// through the fallback tables in fields.go.
type Record map[string]any

// Booking is the canonical representation of one confirmed stay.
// Immutable once constructed; Arrival and Departure are date-only
// values at UTC midnight, Departure exclusive and strictly after
// Arrival.
type Booking struct {
	GuestName string
	Arrival   time.Time
	Departure time.Time

	Email     string
	Phone     string
	PartySize int // 0 = unknown
	Extras    []string

	Reference    string
	PropertyName string
	PropertyID   string
	Channel      string

	Currency   string
	AmountPaid *float64 // nil = unknown; never negative
}

// Nights returns the number of nights covered by the stay.
func (b Booking) Nights() int {
	return int(b.Departure.Sub(b.Arrival).Hours() / 24)
}
