package utils

import (
	"testing"
	"time"
)

func TestParseTimestampLayouts(t *testing.T) {
	cases := []string{
		"2026-02-15 08:00:00",
		"2026-02-15 08:00",
		"2026/02/15 08:00:00",
		"2026/02/15 08:00",
		"2026-02-15T08:00:00",
		"2026-02-15T08:00:00Z",
	}
	want := time.Date(2026, 2, 15, 8, 0, 0, 0, time.UTC)
	for _, raw := range cases {
		got, err := ParseTimestamp(raw)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", raw, err)
		}
		if !got.Equal(want) {
			t.Fatalf("%q: expected %v, got %v", raw, want, got)
		}
	}
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "yesterday", "2026-99-99 00:00"} {
		if _, err := ParseTimestamp(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestDurationMinutes(t *testing.T) {
	a := time.Date(2026, 2, 15, 8, 0, 0, 0, time.UTC)
	b := a.Add(45 * time.Minute)
	if got := DurationMinutes(a, b); got != 45 {
		t.Fatalf("expected 45 minutes, got %v", got)
	}
	// Order-insensitive.
	if got := DurationMinutes(b, a); got != 45 {
		t.Fatalf("expected 45 minutes reversed, got %v", got)
	}
}
