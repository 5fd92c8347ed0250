package booking

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Ordered fallback lists per logical field. The Bookster API has grown
// several spellings for the same thing over time; each list is tried
// front to back and the first non-empty value wins. Keeping these as
// data (rather than inline b["k1"] or b["k2"] chains) makes the field
// contract visible and testable in one place.
var (
	stateFields     = []string{"state", "status"}
	arrivalFields   = []string{"start_inclusive", "arrival", "start"}
	departureFields = []string{"end_exclusive", "departure", "end"}
	forenameFields  = []string{"customer_forename", "forename"}
	surnameFields   = []string{"customer_surname", "surname"}
	emailFields     = []string{"customer_email", "email"}
	partyFields     = []string{"party_size", "party_total"}
	valueFields     = []string{"value"}
	balanceFields   = []string{"balance"}
	currencyFields  = []string{"currency"}
	referenceFields = []string{"id", "reference"}
	propNameFields  = []string{"entry_name", "property_name"}
	propIDFields    = []string{"entry_id", "property_id"}
	channelFields   = []string{"syndicate_name", "channel"}
	linesFields     = []string{"lines", "extras", "add_ons"}

	// Mobile numbers first, then day/evening landlines, then anything.
	phoneFields = []string{
		"customer_mobile",
		"customer_phone_day",
		"customer_phone_evening",
		"customer_phone",
		"phone",
	}
)

// first returns the first present, non-nil value for the given keys.
func first(r Record, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// firstString returns the first value that renders to a non-empty
// trimmed string.
func firstString(r Record, keys []string) string {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			if s := AsString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// AsString renders a raw field value as a trimmed string. Numeric
// values are formatted without an exponent so IDs like 12345678 do not
// come out as "1.2345678e+07".
func AsString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// asFloat coerces numeric or numeric-string values. Anything else is
// (0, false).
func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// asInt coerces integer or integer-string values. Fractional numbers
// do not round; they fail.
func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		if t != float64(int64(t)) {
			return 0, false
		}
		return int(t), true
	case json.Number:
		n, err := t.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	default:
		return 0, false
	}
}
