// Package feed renders canonical bookings into iCalendar subscription
// documents and writes them out as per-property feeds.
package feed

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"bookcal/internal/booking"
)

// DefaultProductID identifies feeds generated by this tool.
const DefaultProductID = "-//bookcal//Bookster Feeds//EN"

// Day-kind tags used in split-mode summaries and UID keys.
const (
	dayIn  = "IN"
	dayMid = "MID"
	dayOut = "OUT"
)

// Renderer turns bookings into a serialized VCALENDAR document. The
// zero value is usable; all fields are optional.
type Renderer struct {
	// ProductID overrides DefaultProductID.
	ProductID string

	// LinkTemplate is a fmt template with a single %s for the booking
	// reference, producing a deep link back to the upstream booking.
	// Empty disables the link.
	LinkTemplate string

	// PropertyCodes maps property names to the short codes used as
	// split-mode title suffixes. Unknown properties fall back to the
	// first two letters of the name, upper-cased.
	PropertyCodes map[string]string

	// Now supplies DTSTAMP values; defaults to time.Now. Fixing it
	// makes re-renders of unchanged input byte-identical.
	Now func() time.Time
}

// Render serializes one calendar document. In simple mode each booking
// becomes a single all-day event spanning [Arrival, Departure); in
// split mode each covered day becomes its own one-day event, the
// departure day included as "OUT". Event order follows booking order.
//
// Bookings are trusted to satisfy the normalizer's invariants; a
// booking with unresolved or inverted dates is a programming error and
// panics rather than emitting a malformed document.
func (r *Renderer) Render(bookings []booking.Booking, title string, splitDays bool) []byte {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(r.productID())
	cal.SetVersion("2.0")
	if title != "" {
		cal.SetXWRCalName(title)
	}

	stamp := r.now().UTC()
	for _, b := range bookings {
		if b.Arrival.IsZero() || !b.Departure.After(b.Arrival) {
			panic(fmt.Sprintf("feed: booking %q has invalid dates %v..%v", b.GuestName, b.Arrival, b.Departure))
		}
		if splitDays {
			r.addDayEvents(cal, b, stamp)
		} else {
			r.addStayEvent(cal, b, stamp)
		}
	}

	return []byte(cal.Serialize())
}

// addStayEvent emits the simple-mode event: DTSTART on arrival, DTEND
// on the departure day itself (exclusive per the all-day convention).
func (r *Renderer) addStayEvent(cal *ics.Calendar, b booking.Booking, stamp time.Time) {
	ev := cal.AddEvent(eventUID(b, dateKey(b.Arrival), dateKey(b.Departure)))
	ev.SetDtStampTime(stamp)
	ev.SetAllDayStartAt(b.Arrival)
	ev.SetAllDayEndAt(b.Departure)
	ev.SetSummary(b.GuestName)
	ev.SetDescription(r.description(b))
	if link := r.bookingLink(b); link != "" {
		ev.SetURL(link)
	}
}

// addDayEvents emits one event per calendar day of the stay, arrival
// through departure day inclusive.
func (r *Renderer) addDayEvents(cal *ics.Calendar, b booking.Booking, stamp time.Time) {
	desc := r.description(b)
	link := r.bookingLink(b)
	code := r.propertyCode(b.PropertyName)

	for day := b.Arrival; !day.After(b.Departure); day = day.AddDate(0, 0, 1) {
		var kind, summary string
		switch {
		case day.Equal(b.Arrival):
			kind = dayIn
			// The guest count is always shown on arrival, defaulting
			// to 1 when the party size is unknown.
			size := b.PartySize
			if size < 1 {
				size = 1
			}
			summary = "IN: " + b.GuestName + " x" + strconv.Itoa(size)
		case day.Equal(b.Departure):
			kind = dayOut
			summary = "OUT: " + b.GuestName
		default:
			kind = dayMid
			summary = b.GuestName
		}
		if code != "" {
			summary += " [" + code + "]"
		}

		ev := cal.AddEvent(eventUID(b, dateKey(day), kind))
		ev.SetDtStampTime(stamp)
		ev.SetAllDayStartAt(day)
		ev.SetAllDayEndAt(day.AddDate(0, 0, 1))
		ev.SetSummary(summary)
		ev.SetDescription(desc)
		if link != "" {
			ev.SetURL(link)
		}
	}
}

// description builds the free-text block from whichever optional
// fields are present, in fixed order. Absent fields contribute no
// line.
func (r *Renderer) description(b booking.Booking) string {
	var lines []string
	if b.Email != "" {
		lines = append(lines, "Email: "+b.Email)
	}
	if b.Phone != "" {
		lines = append(lines, "Mobile: "+b.Phone)
	}
	if b.PartySize > 0 {
		lines = append(lines, "Guests in party: "+strconv.Itoa(b.PartySize))
	}
	if len(b.Extras) > 0 {
		lines = append(lines, "Extras: "+strings.Join(b.Extras, ", "))
	}
	if b.PropertyName != "" {
		lines = append(lines, "Property: "+b.PropertyName)
	}
	if b.Channel != "" {
		lines = append(lines, "Channel: "+b.Channel)
	}
	if b.AmountPaid != nil {
		amount := fmt.Sprintf("%.2f", *b.AmountPaid)
		if b.Currency != "" {
			amount = b.Currency + " " + amount
		}
		lines = append(lines, "Amount paid to us: "+amount)
	}
	if link := r.bookingLink(b); link != "" {
		lines = append(lines, "Booking: "+link)
	}
	if len(lines) == 0 {
		return "Guest booking"
	}
	return strings.Join(lines, "\n")
}

func (r *Renderer) bookingLink(b booking.Booking) string {
	if r.LinkTemplate == "" || b.Reference == "" {
		return ""
	}
	return fmt.Sprintf(r.LinkTemplate, b.Reference)
}

func (r *Renderer) propertyCode(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if code, ok := r.PropertyCodes[name]; ok {
		return code
	}
	runes := []rune(strings.ToUpper(name))
	if len(runes) == 1 {
		return string(runes)
	}
	return string(runes[:2])
}

func (r *Renderer) productID() string {
	if r.ProductID != "" {
		return r.ProductID
	}
	return DefaultProductID
}

func (r *Renderer) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
