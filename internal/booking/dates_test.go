package booking

import (
	"encoding/json"
	"testing"
	"time"
)

func TestCoerceDate(t *testing.T) {
	want := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		in   any
	}{
		{"date string", "2024-06-01"},
		{"datetime string", "2024-06-01 14:30:00"},
		{"rfc3339", "2024-06-01T14:30:00Z"},
		{"compact", "20240601"},
		{"uk style", "01/06/2024"},
		{"epoch float", float64(1717243200)}, // 2024-06-01T12:00:00Z
		{"epoch int", int64(1717243200)},
		{"epoch string", "1717243200"},
		{"json number", json.Number("1717243200")},
		{"typed time", time.Date(2024, 6, 1, 23, 59, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, ok := coerceDate(tc.in)
		if !ok {
			t.Errorf("%s: did not resolve", tc.name)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("%s: got %v, want %v", tc.name, got, want)
		}
	}
}

func TestCoerceDateFailures(t *testing.T) {
	for _, in := range []any{nil, "", "  ", "soon", "2024-13-45", []any{"2024-06-01"}, true} {
		if got, ok := coerceDate(in); ok {
			t.Errorf("coerceDate(%v) = %v, want failure", in, got)
		}
	}
}
