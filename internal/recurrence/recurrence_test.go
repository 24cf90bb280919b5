package recurrence

import (
	"errors"
	"testing"
	"time"
)

func TestParseValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "interval", raw: "every:2h0m0s"},
		{name: "daily", raw: "daily"},
		{name: "weekly", raw: "weekly"},
		{name: "monthly", raw: "monthly"},
		{name: "yearly", raw: "yearly"},
		{name: "cron", raw: "cron:30 9 * * 1-5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rule, err := Parse(tt.raw)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.raw, err)
			}
			if got := rule.String(); got != tt.raw {
				t.Errorf("String() = %q, want %q", got, tt.raw)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{name: "garbage", raw: "fortnightly"},
		{name: "bad duration", raw: "every:abc"},
		{name: "zero duration", raw: "every:0s"},
		{name: "negative duration", raw: "every:-5m"},
		{name: "bad cron", raw: "cron:not a cron"},
		{name: "cron too few fields", raw: "cron:* * *"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Parse(tt.raw); !errors.Is(err, ErrInvalidRule) {
				t.Errorf("Parse(%q) error = %v, want ErrInvalidRule", tt.raw, err)
			}
		})
	}
}

func TestNext(t *testing.T) {
	t.Parallel()

	after := time.Date(2025, 6, 10, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{name: "interval", raw: "every:45m", want: after.Add(45 * time.Minute)},
		{name: "daily", raw: "daily", want: time.Date(2025, 6, 11, 9, 30, 0, 0, time.UTC)},
		{name: "weekly", raw: "weekly", want: time.Date(2025, 6, 17, 9, 30, 0, 0, time.UTC)},
		{name: "monthly", raw: "monthly", want: time.Date(2025, 7, 10, 9, 30, 0, 0, time.UTC)},
		{name: "yearly", raw: "yearly", want: time.Date(2026, 6, 10, 9, 30, 0, 0, time.UTC)},
		{name: "cron weekday mornings", raw: "cron:0 9 * * 1-5", want: time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rule, err := Parse(tt.raw)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.raw, err)
			}
			if got := rule.Next(after); !got.Equal(tt.want) {
				t.Errorf("Next(%v) = %v, want %v", after, got, tt.want)
			}
		})
	}
}

func TestNextNone(t *testing.T) {
	t.Parallel()

	rule, err := Parse("")
	if err != nil {
		t.Fatalf("Parse(\"\") returned error: %v", err)
	}
	if !rule.None() {
		t.Error("None() = false for empty rule")
	}
	if got := rule.Next(time.Now()); !got.IsZero() {
		t.Errorf("Next() = %v, want zero time", got)
	}
}
