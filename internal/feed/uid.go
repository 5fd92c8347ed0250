package feed

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"bookcal/internal/booking"
)

// uidNamespace is the fixed namespace for name-based event UUIDs.
// Changing it would re-key every event in every subscribed calendar
// client, so it must never change.
var uidNamespace = uuid.MustParse("8c4f1d2a-6b7e-5a90-b1c3-d4e5f6a7b8c9")

// eventUID derives the stable identifier for a calendar event. The
// same booking rendered twice must always produce the same UID so that
// calendar clients dedupe and update instead of duplicating. Keyed on
// the upstream reference (guest name when absent) plus the relevant
// date(s) and, in split mode, the day-kind tag.
func eventUID(b booking.Booking, parts ...string) string {
	key := b.Reference
	if key == "" {
		key = b.GuestName
	}
	key += "|" + strings.Join(parts, "|")
	return uuid.NewSHA1(uidNamespace, []byte(key)).String() + "@bookcal"
}

func dateKey(t time.Time) string {
	return t.Format("20060102")
}
