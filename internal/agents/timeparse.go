package agents

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	relativeRe = regexp.MustCompile(`^in\s+(\d+)\s+(minute|minutes|hour|hours|day|days|week|weeks)$`)
	clockRe    = regexp.MustCompile(`^(?:at\s+)?(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)
)

// ParseWhen turns a natural-language time phrase into a concrete timestamp.
// Accepts RFC3339, "YYYY-MM-DD", relative phrases ("in 2 hours"), and a
// small day-level vocabulary ("tomorrow", "next week"). Phrases it cannot
// interpret return an error so the caller can ask for clarification.
func ParseWhen(phrase string, now time.Time) (time.Time, error) {
	p := strings.ToLower(strings.TrimSpace(phrase))
	if p == "" {
		return time.Time{}, fmt.Errorf("empty time phrase")
	}

	if t, err := time.Parse(time.RFC3339, phrase); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02 15:04", phrase); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", phrase); err == nil {
		// Date-only defaults to 09:00 local, a sane reminder hour.
		return time.Date(t.Year(), t.Month(), t.Day(), 9, 0, 0, 0, now.Location()), nil
	}

	if m := relativeRe.FindStringSubmatch(p); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch strings.TrimSuffix(m[2], "s") {
		case "minute":
			return now.Add(time.Duration(n) * time.Minute), nil
		case "hour":
			return now.Add(time.Duration(n) * time.Hour), nil
		case "day":
			return now.AddDate(0, 0, n), nil
		case "week":
			return now.AddDate(0, 0, 7*n), nil
		}
	}

	switch p {
	case "now":
		return now, nil
	case "today":
		return atHour(now, 9, now), nil
	case "tonight":
		return time.Date(now.Year(), now.Month(), now.Day(), 20, 0, 0, 0, now.Location()), nil
	case "tomorrow":
		return atHour(now.AddDate(0, 0, 1), 9, now), nil
	case "tomorrow morning":
		return atHour(now.AddDate(0, 0, 1), 9, now), nil
	case "tomorrow evening":
		return atHour(now.AddDate(0, 0, 1), 20, now), nil
	case "next week":
		return atHour(now.AddDate(0, 0, 7), 9, now), nil
	case "next month":
		return atHour(now.AddDate(0, 1, 0), 9, now), nil
	}

	for i, day := range []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"} {
		if p == day || p == "next "+day {
			delta := (i - int(now.Weekday()) + 7) % 7
			if delta == 0 {
				delta = 7
			}
			return atHour(now.AddDate(0, 0, delta), 9, now), nil
		}
	}

	// Composites like "tomorrow at 9" or "friday at 3pm": resolve the day
	// part first, then pin the clock onto that day.
	if i := strings.Index(p, " at "); i > 0 {
		if base, err := ParseWhen(p[:i], now); err == nil {
			if hour, minute, ok := parseClock(p[i+len(" at "):]); ok {
				return time.Date(base.Year(), base.Month(), base.Day(), hour, minute, 0, 0, now.Location()), nil
			}
		}
	}

	if hour, minute, ok := parseClock(p); ok {
		t := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		if !t.After(now) {
			t = t.AddDate(0, 0, 1)
		}
		return t, nil
	}

	return time.Time{}, fmt.Errorf("cannot interpret time phrase %q", phrase)
}

func parseClock(s string) (hour, minute int, ok bool) {
	m := clockRe.FindStringSubmatch(strings.TrimSpace(s))
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

func atHour(day time.Time, hour int, now time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, now.Location())
}
