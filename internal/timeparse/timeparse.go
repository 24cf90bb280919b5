// Package timeparse resolves natural-language and ISO-8601 time expressions
// into absolute fire times. Parsing is a pure function of the expression, the
// reference time, and the user's timezone; it performs no I/O so results are
// reproducible in tests.
package timeparse

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrUnparsableTime indicates no valid instant can be derived from the
	// expression.
	ErrUnparsableTime = errors.New("unparsable time expression")
	// ErrAmbiguousTime indicates the expression maps to more than one
	// plausible instant (e.g. a repeated hour at a daylight-saving
	// transition). The caller must not silently pick an offset.
	ErrAmbiguousTime = errors.New("ambiguous time expression")
)

// Schedule is the result of parsing a time expression.
type Schedule struct {
	FireTime   time.Time // UTC
	Recurrence string    // empty when the reminder does not repeat
}

var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

var (
	reIn       = regexp.MustCompile(`^in (\d+) ?(second|minute|hour|day|week)s?$`)
	reEvery    = regexp.MustCompile(`^every (\d+) ?(minute|hour)s?(?: (.+))?$`)
	reAt       = regexp.MustCompile(`^(?:at )?(\d{1,2})(?::(\d{2}))? ?(am|pm)?$`)
	reDayAt    = regexp.MustCompile(`^(today|tomorrow|tonight) ?(?:at )?(.*)$`)
	reWeekday  = regexp.MustCompile(`^(?:next |this )?(monday|tuesday|wednesday|thursday|friday|saturday|sunday) ?(?:at )?(.*)$`)
	reRecurDay = regexp.MustCompile(`^(daily|weekly|monthly|yearly|every day|every week|every month|every year) ?(?:at )?(.*)$`)
)

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

// Parse resolves a time expression against the reference time in the user's
// timezone. Absolute ISO-8601 expressions resolve directly; relative
// expressions ("tomorrow at 9am", "in 20 minutes") resolve against reference.
func Parse(text string, reference time.Time, timezone string) (*Schedule, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", ErrUnparsableTime, timezone)
	}

	expr := strings.ToLower(strings.TrimSpace(text))
	if expr == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrUnparsableTime)
	}
	ref := reference.In(loc)

	// Absolute ISO forms first. Layouts with an explicit offset resolve
	// directly; wall-clock layouts resolve in the user's timezone with
	// daylight-saving checks.
	if t, err := time.Parse(time.RFC3339, strings.ToUpper(expr)); err == nil {
		return &Schedule{FireTime: t.UTC()}, nil
	}
	for _, layout := range isoLayouts[1:] {
		if wall, err := time.Parse(layout, expr); err == nil {
			t, err := resolveWall(loc, wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), wall.Second())
			if err != nil {
				return nil, err
			}
			return &Schedule{FireTime: t.UTC()}, nil
		}
	}

	// "in N units"
	if m := reIn.FindStringSubmatch(expr); m != nil {
		n, _ := strconv.Atoi(m[1])
		var d time.Duration
		switch m[2] {
		case "second":
			d = time.Duration(n) * time.Second
		case "minute":
			d = time.Duration(n) * time.Minute
		case "hour":
			d = time.Duration(n) * time.Hour
		case "day":
			d = time.Duration(n) * 24 * time.Hour
		case "week":
			d = time.Duration(n) * 7 * 24 * time.Hour
		}
		if d <= 0 {
			return nil, fmt.Errorf("%w: non-positive offset %q", ErrUnparsableTime, text)
		}
		return &Schedule{FireTime: reference.Add(d).UTC()}, nil
	}

	// "every N minutes/hours [at ...]" — fixed-interval recurrence
	if m := reEvery.FindStringSubmatch(expr); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n <= 0 {
			return nil, fmt.Errorf("%w: non-positive interval %q", ErrUnparsableTime, text)
		}
		var d time.Duration
		if m[2] == "minute" {
			d = time.Duration(n) * time.Minute
		} else {
			d = time.Duration(n) * time.Hour
		}
		return &Schedule{
			FireTime:   reference.Add(d).UTC(),
			Recurrence: "every:" + d.String(),
		}, nil
	}

	// "daily at 9am", "every day at 7:30", ...
	if m := reRecurDay.FindStringSubmatch(expr); m != nil {
		rule := normalizeRecurrence(m[1])
		clause := strings.TrimSpace(m[2])
		hour, minute := 9, 0 // default morning firing
		if clause != "" {
			h, mi, ok := parseClock(clause)
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnparsableTime, text)
			}
			hour, minute = h, mi
		}
		t, err := nextWallOccurrence(ref, loc, hour, minute)
		if err != nil {
			return nil, err
		}
		return &Schedule{FireTime: t.UTC(), Recurrence: rule}, nil
	}

	// "today/tomorrow/tonight [at H[:MM] [am|pm]]" and day-part words
	if m := reDayAt.FindStringSubmatch(expr); m != nil {
		dayOffset := 0
		if m[1] == "tomorrow" {
			dayOffset = 1
		}
		clause := strings.TrimSpace(m[2])
		hour, minute := 9, 0
		switch {
		case m[1] == "tonight" && clause == "":
			hour = 20
		case clause == "" && m[1] == "tomorrow":
			hour = 9
		case clause == "":
			return nil, fmt.Errorf("%w: %q", ErrUnparsableTime, text)
		default:
			h, mi, ok := parseClock(clause)
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnparsableTime, text)
			}
			hour, minute = h, mi
			if m[1] == "tonight" && hour < 12 {
				hour += 12
			}
		}
		day := ref.AddDate(0, 0, dayOffset)
		t, err := resolveWall(loc, day.Year(), day.Month(), day.Day(), hour, minute, 0)
		if err != nil {
			return nil, err
		}
		if dayOffset == 0 && !t.After(ref) {
			// Past-looking same-day times roll to tomorrow, matching the
			// prefer-future behavior of the assistant.
			day = day.AddDate(0, 0, 1)
			t, err = resolveWall(loc, day.Year(), day.Month(), day.Day(), hour, minute, 0)
			if err != nil {
				return nil, err
			}
		}
		return &Schedule{FireTime: t.UTC()}, nil
	}

	// "next monday at 9am"
	if m := reWeekday.FindStringSubmatch(expr); m != nil {
		target := weekdays[m[1]]
		clause := strings.TrimSpace(m[2])
		hour, minute := 9, 0
		if clause != "" {
			h, mi, ok := parseClock(clause)
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnparsableTime, text)
			}
			hour, minute = h, mi
		}
		days := (int(target) - int(ref.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		day := ref.AddDate(0, 0, days)
		t, err := resolveWall(loc, day.Year(), day.Month(), day.Day(), hour, minute, 0)
		if err != nil {
			return nil, err
		}
		return &Schedule{FireTime: t.UTC()}, nil
	}

	// day-part words and bare clock times
	switch expr {
	case "noon":
		return Parse("today at 12:00", reference, timezone)
	case "midnight":
		return Parse("tomorrow at 0:00", reference, timezone)
	case "morning", "this morning":
		return Parse("today at 9:00", reference, timezone)
	case "afternoon", "this afternoon":
		return Parse("today at 15:00", reference, timezone)
	case "evening", "this evening":
		return Parse("today at 18:00", reference, timezone)
	}
	if h, mi, ok := parseClock(expr); ok {
		return Parse(fmt.Sprintf("today at %d:%02d", h, mi), reference, timezone)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnparsableTime, text)
}

// Extract scans a longer utterance for a parsable time expression, e.g.
// "remind me to call mom at 3pm". It tries the whole text, then clauses after
// common trigger words.
func Extract(text string, reference time.Time, timezone string) (*Schedule, error) {
	expr := strings.ToLower(strings.TrimSpace(text))

	if s, err := Parse(expr, reference, timezone); err == nil || errors.Is(err, ErrAmbiguousTime) {
		return s, err
	}

	// Day qualifiers first so "tomorrow at 11:30" is not truncated to "at 11:30".
	for _, trigger := range []string{"tomorrow", "tonight", "today", "next ", " every ", " at ", " in ", " on "} {
		idx := strings.Index(expr, trigger)
		if idx < 0 {
			continue
		}
		clause := strings.TrimSpace(expr[idx:])
		if s, err := Parse(clause, reference, timezone); err == nil || errors.Is(err, ErrAmbiguousTime) {
			return s, err
		}
		// Trailing clause may carry extra words ("at 3pm to buy milk"); trim
		// words off the end until something parses.
		words := strings.Fields(clause)
		for end := len(words) - 1; end > 0; end-- {
			candidate := strings.Join(words[:end], " ")
			if s, err := Parse(candidate, reference, timezone); err == nil || errors.Is(err, ErrAmbiguousTime) {
				return s, err
			}
		}
	}

	return nil, fmt.Errorf("%w: no time reference in %q", ErrUnparsableTime, text)
}

// parseClock parses "9", "9:30", "9pm", "21:15", "9:30 pm" and day-part
// words ("morning", "noon").
func parseClock(s string) (hour, minute int, ok bool) {
	s = strings.TrimSpace(s)
	switch s {
	case "morning":
		return 9, 0, true
	case "noon":
		return 12, 0, true
	case "afternoon":
		return 15, 0, true
	case "evening":
		return 18, 0, true
	case "night":
		return 21, 0, true
	}
	m := reAt.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	hour, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	switch m[3] {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

// nextWallOccurrence finds the next instant strictly after ref whose wall
// clock in loc reads hour:minute.
func nextWallOccurrence(ref time.Time, loc *time.Location, hour, minute int) (time.Time, error) {
	t, err := resolveWall(loc, ref.Year(), ref.Month(), ref.Day(), hour, minute, 0)
	if err == nil && t.After(ref) {
		return t, nil
	}
	if err != nil && !errors.Is(err, ErrUnparsableTime) {
		return time.Time{}, err
	}
	day := ref.AddDate(0, 0, 1)
	return resolveWall(loc, day.Year(), day.Month(), day.Day(), hour, minute, 0)
}

// resolveWall maps a wall-clock reading in loc to an instant, detecting
// daylight-saving anomalies: a wall time that never occurs (spring-forward
// gap) is unparsable, and one that occurs twice (fall-back repeat) is
// ambiguous rather than silently picking an offset.
func resolveWall(loc *time.Location, year int, month time.Month, day, hour, minute, second int) (time.Time, error) {
	t := time.Date(year, month, day, hour, minute, second, 0, loc)

	matches := make([]time.Time, 0, 2)
	for _, candidate := range []time.Time{t.Add(-time.Hour), t, t.Add(time.Hour)} {
		c := candidate.In(loc)
		if c.Year() == year && c.Month() == month && c.Day() == day &&
			c.Hour() == hour && c.Minute() == minute && c.Second() == second {
			matches = appendDistinct(matches, c)
		}
	}

	switch len(matches) {
	case 0:
		return time.Time{}, fmt.Errorf("%w: %04d-%02d-%02d %02d:%02d does not exist in %s",
			ErrUnparsableTime, year, month, day, hour, minute, loc)
	case 1:
		return matches[0], nil
	default:
		return time.Time{}, fmt.Errorf("%w: %04d-%02d-%02d %02d:%02d occurs more than once in %s",
			ErrAmbiguousTime, year, month, day, hour, minute, loc)
	}
}

func appendDistinct(ts []time.Time, t time.Time) []time.Time {
	for _, existing := range ts {
		if existing.Equal(t) {
			return ts
		}
	}
	return append(ts, t)
}

func normalizeRecurrence(word string) string {
	switch word {
	case "daily", "every day":
		return "daily"
	case "weekly", "every week":
		return "weekly"
	case "monthly", "every month":
		return "monthly"
	case "yearly", "every year":
		return "yearly"
	}
	return ""
}
