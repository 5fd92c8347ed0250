package booking

import (
	"strconv"
	"strings"

	"bookcal/internal/log"
)

// rejectedStates filters out bookings that should never reach a feed.
// Matching is case-insensitive. Anything not in this set is treated as
// confirmed; Bookster has shipped several spellings of "live" states
// over the years and rejecting unknowns would drop real stays.
var rejectedStates = map[string]struct{}{
	"cancelled": {},
	"canceled":  {},
	"void":      {},
	"rejected":  {},
	"tentative": {},
	"quote":     {},
}

// Options hold the normalization policies that upstream deployments
// disagree on. Both default to the permissive choice.
type Options struct {
	// MissingBalanceIsZero treats an absent balance field as "nothing
	// outstanding", so AmountPaid = value. When false an absent balance
	// leaves AmountPaid unknown.
	MissingBalanceIsZero bool

	// ExtrasAllowList, when non-empty, restricts extras to labels that
	// contain one of these terms (case-insensitive). Empty means emit
	// extras untouched.
	ExtrasAllowList []string
}

type Normalizer struct {
	opts  Options
	allow []string // lowercased allow-list terms
}

func NewNormalizer(opts Options) *Normalizer {
	n := &Normalizer{opts: opts}
	for _, term := range opts.ExtrasAllowList {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" {
			n.allow = append(n.allow, term)
		}
	}
	return n
}

// Normalize converts one raw record into a canonical Booking. The
// second return is false when the record is filtered out: rejected
// state, or unresolvable arrival/departure. Individual optional fields
// never cause a record to be dropped.
func (n *Normalizer) Normalize(r Record) (Booking, bool) {
	state := strings.ToLower(firstString(r, stateFields))
	if _, rejected := rejectedStates[state]; rejected {
		return Booking{}, false
	}

	rawArrival, _ := first(r, arrivalFields)
	rawDeparture, _ := first(r, departureFields)
	arrival, okA := coerceDate(rawArrival)
	departure, okD := coerceDate(rawDeparture)
	if !okA || !okD || !departure.After(arrival) {
		return Booking{}, false
	}

	b := Booking{
		Arrival:      arrival,
		Departure:    departure,
		GuestName:    guestName(r),
		Email:        firstString(r, emailFields),
		Phone:        firstString(r, phoneFields),
		Extras:       n.extras(r),
		Reference:    firstString(r, referenceFields),
		PropertyName: firstString(r, propNameFields),
		PropertyID:   firstString(r, propIDFields),
		Channel:      firstString(r, channelFields),
		Currency:     strings.ToUpper(firstString(r, currencyFields)),
	}

	if raw, ok := first(r, partyFields); ok {
		if size, ok := asInt(raw); ok && size > 0 {
			b.PartySize = size
		}
	}

	b.AmountPaid = n.amountPaid(r)

	return b, true
}

// NormalizeAll runs Normalize over a batch, keeping input order and
// silently dropping filtered records.
func (n *Normalizer) NormalizeAll(records []Record) []Booking {
	out := make([]Booking, 0, len(records))
	for _, r := range records {
		b, ok := n.Normalize(r)
		if !ok {
			continue
		}
		out = append(out, b)
	}
	if dropped := len(records) - len(out); dropped > 0 {
		log.Debug("normalize dropped records", "dropped", dropped, "kept", len(out))
	}
	return out
}

func guestName(r Record) string {
	forename := firstString(r, forenameFields)
	surname := firstString(r, surnameFields)
	name := strings.TrimSpace(forename + " " + surname)
	if name == "" {
		return "Guest"
	}
	return name
}

// amountPaid computes max(0, value - balance). A missing or
// unparseable value always yields nil; a missing balance yields nil
// unless MissingBalanceIsZero is set.
func (n *Normalizer) amountPaid(r Record) *float64 {
	rawValue, okV := first(r, valueFields)
	if !okV {
		return nil
	}
	value, okV := asFloat(rawValue)
	if !okV {
		return nil
	}

	var balance float64
	if rawBalance, ok := first(r, balanceFields); ok {
		balance, ok = asFloat(rawBalance)
		if !ok {
			return nil
		}
	} else if !n.opts.MissingBalanceIsZero {
		return nil
	}

	paid := value - balance
	if paid < 0 {
		paid = 0
	}
	return &paid
}

// extras collects display labels from the nested line-item list.
// Entries may be plain strings or records; records with a type
// discriminator other than "extra" (charges, discounts, rent lines)
// are skipped.
func (n *Normalizer) extras(r Record) []string {
	raw, ok := first(r, linesFields)
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}

	var out []string
	for _, item := range items {
		switch t := item.(type) {
		case string:
			if label := strings.TrimSpace(t); label != "" && n.allowed(label) {
				out = append(out, label)
			}
		case map[string]any:
			if kind := AsString(t["type"]); kind != "" && !strings.EqualFold(kind, "extra") {
				continue
			}
			name := firstString(t, []string{"name", "title", "code"})
			if !n.allowed(name) {
				continue
			}
			label := name
			if label == "" {
				label = "Extra"
			}
			if qty, ok := quantity(t); ok && qty > 0 {
				label += " x" + strconv.Itoa(qty)
			}
			out = append(out, label)
		}
	}
	return out
}

func quantity(line map[string]any) (int, bool) {
	if v, ok := first(line, []string{"quantity", "qty"}); ok {
		return asInt(v)
	}
	return 0, false
}

func (n *Normalizer) allowed(label string) bool {
	if len(n.allow) == 0 {
		return true
	}
	label = strings.ToLower(label)
	for _, term := range n.allow {
		if strings.Contains(label, term) {
			return true
		}
	}
	return false
}
