package booking

import (
	"testing"
	"time"
)

func confirmedRecord() Record {
	return Record{
		"state":           "confirmed",
		"start_inclusive": "2024-06-01",
		"end_exclusive":   "2024-06-04",
	}
}

func TestNormalizeRejectedStates(t *testing.T) {
	states := []string{
		"cancelled", "canceled", "void", "rejected", "tentative", "quote",
		"CANCELLED", "Tentative", "QUOTE",
	}
	n := NewNormalizer(Options{})
	for _, state := range states {
		r := confirmedRecord()
		r["state"] = state
		if _, ok := n.Normalize(r); ok {
			t.Errorf("state %q should be filtered out", state)
		}
	}
}

func TestNormalizeAcceptsConfirmedAndUnknownStates(t *testing.T) {
	n := NewNormalizer(Options{})
	for _, state := range []string{"confirmed", "Confirmed", "provisional-paid", ""} {
		r := confirmedRecord()
		r["state"] = state
		if _, ok := n.Normalize(r); !ok {
			t.Errorf("state %q should pass the filter", state)
		}
	}
}

func TestNormalizeRequiresBothDates(t *testing.T) {
	n := NewNormalizer(Options{})

	r := confirmedRecord()
	delete(r, "start_inclusive")
	if _, ok := n.Normalize(r); ok {
		t.Error("missing arrival should drop the record")
	}

	r = confirmedRecord()
	r["end_exclusive"] = "not a date"
	if _, ok := n.Normalize(r); ok {
		t.Error("unparseable departure should drop the record")
	}

	// Departure must be strictly after arrival.
	r = confirmedRecord()
	r["end_exclusive"] = "2024-06-01"
	if _, ok := n.Normalize(r); ok {
		t.Error("zero-night stay should drop the record")
	}
}

func TestNormalizeDates(t *testing.T) {
	n := NewNormalizer(Options{})
	r := confirmedRecord()
	b, ok := n.Normalize(r)
	if !ok {
		t.Fatal("record should normalize")
	}
	wantArrival := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	wantDeparture := time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC)
	if !b.Arrival.Equal(wantArrival) || !b.Departure.Equal(wantDeparture) {
		t.Fatalf("got %v / %v", b.Arrival, b.Departure)
	}
	if b.Nights() != 3 {
		t.Fatalf("nights = %d, want 3", b.Nights())
	}
}

func TestNormalizeGuestNameFallback(t *testing.T) {
	n := NewNormalizer(Options{})

	r := confirmedRecord()
	r["customer_forename"] = "  "
	r["customer_surname"] = ""
	b, _ := n.Normalize(r)
	if b.GuestName != "Guest" {
		t.Fatalf("guest name = %q, want Guest", b.GuestName)
	}

	r["customer_forename"] = " Jane "
	r["customer_surname"] = "Doe"
	b, _ = n.Normalize(r)
	if b.GuestName != "Jane Doe" {
		t.Fatalf("guest name = %q, want Jane Doe", b.GuestName)
	}

	// Single-sided names must not carry stray spaces.
	r["customer_forename"] = ""
	b, _ = n.Normalize(r)
	if b.GuestName != "Doe" {
		t.Fatalf("guest name = %q, want Doe", b.GuestName)
	}
}

func TestNormalizePhoneFallbackOrder(t *testing.T) {
	n := NewNormalizer(Options{})
	r := confirmedRecord()
	r["customer_phone"] = "0111"
	r["customer_phone_day"] = "0222"
	b, _ := n.Normalize(r)
	if b.Phone != "0222" {
		t.Fatalf("phone = %q, want day number over generic", b.Phone)
	}
	r["customer_mobile"] = "0777"
	b, _ = n.Normalize(r)
	if b.Phone != "0777" {
		t.Fatalf("phone = %q, want mobile first", b.Phone)
	}
}

func TestNormalizePartySize(t *testing.T) {
	n := NewNormalizer(Options{})
	cases := []struct {
		raw  any
		want int
	}{
		{"4", 4},
		{float64(2), 2},
		{"", 0},
		{"abc", 0},
		{"2.5", 0},
		{float64(-1), 0},
		{nil, 0},
	}
	for _, tc := range cases {
		r := confirmedRecord()
		if tc.raw != nil {
			r["party_size"] = tc.raw
		}
		b, ok := n.Normalize(r)
		if !ok {
			t.Fatalf("party_size %v dropped the record", tc.raw)
		}
		if b.PartySize != tc.want {
			t.Errorf("party_size %v -> %d, want %d", tc.raw, b.PartySize, tc.want)
		}
	}
}

func TestNormalizeAmountPaid(t *testing.T) {
	n := NewNormalizer(Options{})

	r := confirmedRecord()
	r["value"] = "500.00"
	r["balance"] = float64(150)
	b, _ := n.Normalize(r)
	if b.AmountPaid == nil || *b.AmountPaid != 350 {
		t.Fatalf("amount paid = %v, want 350", b.AmountPaid)
	}

	// Overpaid balances clamp at zero, never negative.
	r["balance"] = "600"
	b, _ = n.Normalize(r)
	if b.AmountPaid == nil || *b.AmountPaid != 0 {
		t.Fatalf("amount paid = %v, want 0", b.AmountPaid)
	}

	// Either side missing or malformed leaves the amount unknown.
	r = confirmedRecord()
	r["balance"] = "150"
	b, _ = n.Normalize(r)
	if b.AmountPaid != nil {
		t.Fatalf("amount paid = %v, want nil without value", *b.AmountPaid)
	}
	r = confirmedRecord()
	r["value"] = "500"
	b, _ = n.Normalize(r)
	if b.AmountPaid != nil {
		t.Fatalf("amount paid = %v, want nil without balance", *b.AmountPaid)
	}
	r["balance"] = "n/a"
	b, _ = n.Normalize(r)
	if b.AmountPaid != nil {
		t.Fatal("malformed balance should leave amount unknown")
	}
}

func TestNormalizeMissingBalanceIsZeroPolicy(t *testing.T) {
	n := NewNormalizer(Options{MissingBalanceIsZero: true})
	r := confirmedRecord()
	r["value"] = "500"
	b, _ := n.Normalize(r)
	if b.AmountPaid == nil || *b.AmountPaid != 500 {
		t.Fatalf("amount paid = %v, want 500 under zero-balance policy", b.AmountPaid)
	}
}

func TestNormalizeCurrencyUppercased(t *testing.T) {
	n := NewNormalizer(Options{})
	r := confirmedRecord()
	r["currency"] = "gbp"
	b, _ := n.Normalize(r)
	if b.Currency != "GBP" {
		t.Fatalf("currency = %q", b.Currency)
	}
}

func TestNormalizeExtras(t *testing.T) {
	n := NewNormalizer(Options{})
	r := confirmedRecord()
	r["lines"] = []any{
		map[string]any{"type": "extra", "name": "Travel cot", "quantity": float64(2)},
		map[string]any{"type": "rent", "name": "3 nights"},
		map[string]any{"type": "extra", "title": "Pet fee"},
		map[string]any{"type": "extra"},
		"High chair",
	}
	b, _ := n.Normalize(r)
	want := []string{"Travel cot x2", "Pet fee", "Extra", "High chair"}
	if len(b.Extras) != len(want) {
		t.Fatalf("extras = %v, want %v", b.Extras, want)
	}
	for i := range want {
		if b.Extras[i] != want[i] {
			t.Fatalf("extras[%d] = %q, want %q", i, b.Extras[i], want[i])
		}
	}
}

func TestNormalizeExtrasAllowList(t *testing.T) {
	n := NewNormalizer(Options{ExtrasAllowList: []string{"pet", "cot"}})
	r := confirmedRecord()
	r["lines"] = []any{
		map[string]any{"type": "extra", "name": "Travel Cot"},
		map[string]any{"type": "extra", "name": "Pet fee", "qty": "1"},
		map[string]any{"type": "extra", "name": "Champagne"},
	}
	b, _ := n.Normalize(r)
	want := []string{"Travel Cot", "Pet fee x1"}
	if len(b.Extras) != 2 || b.Extras[0] != want[0] || b.Extras[1] != want[1] {
		t.Fatalf("extras = %v, want %v", b.Extras, want)
	}
}

func TestNormalizeReferenceMayBeNumeric(t *testing.T) {
	n := NewNormalizer(Options{})
	r := confirmedRecord()
	r["id"] = float64(12345678)
	b, _ := n.Normalize(r)
	if b.Reference != "12345678" {
		t.Fatalf("reference = %q", b.Reference)
	}
}

func TestNormalizeAllKeepsOrderAndSkipsBad(t *testing.T) {
	n := NewNormalizer(Options{})
	good1 := confirmedRecord()
	good1["customer_forename"] = "A"
	bad := Record{"state": "cancelled"}
	good2 := confirmedRecord()
	good2["customer_forename"] = "B"

	out := n.NormalizeAll([]Record{good1, bad, good2})
	if len(out) != 2 {
		t.Fatalf("got %d bookings, want 2", len(out))
	}
	if out[0].GuestName != "A" || out[1].GuestName != "B" {
		t.Fatalf("order not preserved: %v", out)
	}
}
