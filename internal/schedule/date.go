package schedule

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

var germanMonths = map[string]time.Month{
	"Januar":    time.January,
	"Februar":   time.February,
	"März":      time.March,
	"April":     time.April,
	"Mai":       time.May,
	"Juni":      time.June,
	"Juli":      time.July,
	"August":    time.August,
	"September": time.September,
	"Oktober":   time.October,
	"November":  time.November,
	"Dezember":  time.December,
}

// weekdayPrefix matches a leading "Dienstag, " (anything up to the first comma).
var weekdayPrefix = regexp.MustCompile(`^[^,]+,\s*`)

// ParseDate parses "Dienstag, 2. September 2025" into a date at midnight.
// The weekday prefix is optional and never checked against the date.
func ParseDate(s string) (time.Time, bool) {
	s = norm.NFC.String(strings.TrimSpace(s))
	s = weekdayPrefix.ReplaceAllString(s, "")

	parts := strings.Fields(s)
	if len(parts) != 3 {
		return time.Time{}, false
	}

	day, err := strconv.Atoi(strings.TrimSuffix(parts[0], "."))
	if err != nil {
		return time.Time{}, false
	}
	month, ok := germanMonths[parts[1]]
	if !ok {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, false
	}

	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes 31. September to 1. October; reject that.
	if d.Day() != day || d.Month() != month || d.Year() != year {
		return time.Time{}, false
	}
	return d, true
}
