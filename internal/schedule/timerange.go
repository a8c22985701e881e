package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Clock is a time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On returns the instant at c on the calendar date of day.
func (c Clock) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, time.UTC)
}

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// ParseClock parses a strict, zero-padded 24h "HH:MM".
func ParseClock(s string) (Clock, bool) {
	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return Clock{}, false
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	return Clock{Hour: h, Minute: min}, true
}

// ParseTimeRange parses "13:15-16:45". Both sides must be valid for ok to
// be true; an end before the start is accepted as-is.
func ParseTimeRange(s string) (start, end Clock, ok bool) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return Clock{}, Clock{}, false
	}

	start, okStart := ParseClock(strings.TrimSpace(parts[0]))
	end, okEnd := ParseClock(strings.TrimSpace(parts[1]))
	if !okStart || !okEnd {
		return Clock{}, Clock{}, false
	}
	return start, end, true
}
