package booking

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order for string-valued date fields. Bookster
// usually sends plain dates, but datetimes and compact forms show up in
// older payloads.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"20060102",
	"02/01/2006",
}

// coerceDate resolves a raw arrival/departure value to a calendar date
// (UTC midnight). Accepted inputs, in resolution order:
//
//   - time.Time: time-of-day truncated
//   - numeric (or all-digit string): Unix seconds, date taken in UTC
//   - string: the layouts above; the date is taken as written, with no
//     timezone conversion
//
// Anything unresolvable is (zero, false).
func coerceDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return dateOf(t), true
	case float64:
		return dateOf(time.Unix(int64(t), 0).UTC()), true
	case int:
		return dateOf(time.Unix(int64(t), 0).UTC()), true
	case int64:
		return dateOf(time.Unix(t, 0).UTC()), true
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return dateOf(time.Unix(n, 0).UTC()), true
		}
		if f, err := t.Float64(); err == nil {
			return dateOf(time.Unix(int64(f), 0).UTC()), true
		}
		return time.Time{}, false
	case string:
		return parseDateString(t)
	default:
		return time.Time{}, false
	}
}

func parseDateString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	// All digits and too long to be a YYYYMMDD date: epoch seconds.
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && len(s) > 8 {
		return dateOf(time.Unix(n, 0).UTC()), true
	}

	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return dateOf(ts), true
		}
	}
	return time.Time{}, false
}

// dateOf truncates to the calendar date as written, at UTC midnight.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
