package revset

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DatePattern matches timestamps on or after (After) or strictly before
// (Before) an instant.
type DatePattern struct {
	Before bool
	At     time.Time
}

func (d DatePattern) Match(t time.Time) bool {
	if d.Before {
		return t.Before(d.At)
	}
	return !t.Before(d.At)
}

var absoluteLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDatePattern parses "after:<date>" or "before:<date>". Dates without a
// zone are interpreted in now's location; relative dates are relative to now.
func ParseDatePattern(kind, value string, now time.Time) (DatePattern, error) {
	var before bool
	switch kind {
	case "after":
	case "before":
		before = true
	default:
		return DatePattern{}, fmt.Errorf("invalid date pattern kind %q (want after or before)", kind)
	}
	at, err := parseDate(value, now)
	if err != nil {
		return DatePattern{}, err
	}
	return DatePattern{Before: before, At: at}, nil
}

func parseDate(raw string, now time.Time) (time.Time, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch value {
	case "now":
		return now, nil
	case "today":
		return midnight, nil
	case "yesterday":
		return midnight.AddDate(0, 0, -1), nil
	}
	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, strings.TrimSpace(raw), now.Location()); err == nil {
			return t, nil
		}
	}
	if t, ok := parseRelative(value, now); ok {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}

// parseRelative understands "<n> <unit>[s] ago".
func parseRelative(value string, now time.Time) (time.Time, bool) {
	fields := strings.Fields(value)
	if len(fields) != 3 || fields[2] != "ago" {
		return time.Time{}, false
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 {
		return time.Time{}, false
	}
	switch strings.TrimSuffix(fields[1], "s") {
	case "second", "sec":
		return now.Add(-time.Duration(n) * time.Second), true
	case "minute", "min":
		return now.Add(-time.Duration(n) * time.Minute), true
	case "hour":
		return now.Add(-time.Duration(n) * time.Hour), true
	case "day":
		return now.AddDate(0, 0, -n), true
	case "week":
		return now.AddDate(0, 0, -7*n), true
	case "month":
		return now.AddDate(0, -n, 0), true
	case "year":
		return now.AddDate(-n, 0, 0), true
	}
	return time.Time{}, false
}
