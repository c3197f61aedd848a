// Package cli holds small parsing helpers shared by flownet commands.
package cli

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Matches "3d ago", "2w", "90m ago". Catch times are in the past, so the
// suffix is optional.
var agoRegex = regexp.MustCompile(`^(\d+)\s*(mo|w|d|h|m)(\s+ago)?$`)

var unitDurations = map[string]time.Duration{
	"w": 7 * 24 * time.Hour,
	"d": 24 * time.Hour,
	"h": time.Hour,
	"m": time.Minute,
}

// ParseCatchTime parses a point in time relative to now. It accepts RFC 3339,
// YYYY-MM-DD (local midnight), "today", "yesterday", a weekday name ("sat",
// "last sunday") meaning its most recent occurrence, and "3d ago" style
// offsets.
func ParseCatchTime(s string, now time.Time) (time.Time, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty time expression")
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", raw, now.Location()); err == nil {
		return t, nil
	}

	input := strings.ToLower(raw)
	switch input {
	case "now":
		return now, nil
	case "today":
		return midnight(now), nil
	case "yesterday":
		return midnight(now).AddDate(0, 0, -1), nil
	}

	if t, ok := lastWeekday(input, now); ok {
		return t, nil
	}

	if m := agoRegex.FindStringSubmatch(input); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			return time.Time{}, fmt.Errorf("invalid relative time %q", raw)
		}
		if m[2] == "mo" {
			return now.AddDate(0, -n, 0), nil
		}
		return now.Add(-time.Duration(n) * unitDurations[m[2]]), nil
	}

	return time.Time{}, fmt.Errorf("invalid time expression %q", raw)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// lastWeekday resolves "sat" or "last sat" to the most recent such day at
// midnight. Today's weekday resolves to today; "last" forces the week before.
func lastWeekday(expr string, now time.Time) (time.Time, bool) {
	name, last := strings.CutPrefix(expr, "last ")
	weekday, ok := weekdays[strings.TrimSpace(name)]
	if !ok {
		return time.Time{}, false
	}
	base := midnight(now)
	back := (int(base.Weekday()) - int(weekday) + 7) % 7
	if last && back == 0 {
		back = 7
	}
	return base.AddDate(0, 0, -back), true
}

var weekdays = func() map[string]time.Weekday {
	m := make(map[string]time.Weekday, 21)
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		m[full] = d
		m[full[:3]] = d
	}
	m["tues"] = time.Tuesday
	m["weds"] = time.Wednesday
	m["thur"] = time.Thursday
	m["thurs"] = time.Thursday
	return m
}()
