// Package recurrence computes the nominal next fire time for recurring
// reminders. Rules are stored as strings on the reminder record:
//
//	""                none
//	"every:<dur>"     fixed interval, Go duration syntax
//	"daily" ...       calendar steps (daily, weekly, monthly, yearly)
//	"cron:<expr>"     standard 5-field cron expression
//
// The learned behavior offset is a separate computation composed by the
// scheduling core at materialization time; this package stays pure.
package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidRule indicates the rule string cannot be interpreted
var ErrInvalidRule = errors.New("invalid recurrence rule")

var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// Rule is a parsed recurrence rule
type Rule struct {
	raw      string
	interval time.Duration
	calendar string
	cronSked cron.Schedule
}

// None reports whether the rule describes a non-recurring reminder
func (r *Rule) None() bool { return r == nil || r.raw == "" }

// String returns the stored form of the rule
func (r *Rule) String() string {
	if r == nil {
		return ""
	}
	return r.raw
}

// Parse interprets a stored rule string
func Parse(raw string) (*Rule, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return &Rule{}, nil
	}

	switch {
	case strings.HasPrefix(raw, "every:"):
		d, err := time.ParseDuration(strings.TrimPrefix(raw, "every:"))
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRule, raw)
		}
		return &Rule{raw: raw, interval: d}, nil

	case raw == "daily" || raw == "weekly" || raw == "monthly" || raw == "yearly":
		return &Rule{raw: raw, calendar: raw}, nil

	case strings.HasPrefix(raw, "cron:"):
		sked, err := cronParser.Parse(strings.TrimPrefix(raw, "cron:"))
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidRule, raw, err)
		}
		return &Rule{raw: raw, cronSked: sked}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrInvalidRule, raw)
}

// Next returns the nominal fire time following after. Returns the zero time
// for non-recurring rules.
func (r *Rule) Next(after time.Time) time.Time {
	if r.None() {
		return time.Time{}
	}

	switch {
	case r.interval > 0:
		return after.Add(r.interval)
	case r.calendar == "daily":
		return after.AddDate(0, 0, 1)
	case r.calendar == "weekly":
		return after.AddDate(0, 0, 7)
	case r.calendar == "monthly":
		return after.AddDate(0, 1, 0)
	case r.calendar == "yearly":
		return after.AddDate(1, 0, 0)
	case r.cronSked != nil:
		return r.cronSked.Next(after)
	}
	return time.Time{}
}
