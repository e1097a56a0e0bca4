// Package dates formats post dates for display.
//
// Relative ages are computed from naive calendar-field differences (year,
// month and day-of-month subtracted independently), not from elapsed time.
// Existing pages depend on that output, so it must not be "corrected".
package dates

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// InvalidDate is rendered for dates that cannot be parsed.
const InvalidDate = "Invalid Date"

// DisplayLayout is the fixed en-US rendering, e.g. "Jan 25, 2025".
const DisplayLayout = "Jan 02, 2006"

// Formatter renders dates relative to a clock in a fixed location.
type Formatter struct {
	Now      func() time.Time
	Location *time.Location
}

// Default formats against the wall clock in local time.
var Default = Formatter{Now: time.Now, Location: time.Local}

// Format renders date using the Default formatter.
func Format(date string, includeRelative bool) string {
	return Default.Format(date, includeRelative)
}

// Format renders date as "Jan 02, 2006", optionally followed by a relative
// suffix such as "(2d ago)".
func (f Formatter) Format(date string, includeRelative bool) string {
	loc := f.location()
	t, err := Parse(date, loc)
	if err != nil {
		if includeRelative {
			return InvalidDate + " (Today)"
		}
		return InvalidDate
	}
	full := t.In(loc).Format(DisplayLayout)
	if !includeRelative {
		return full
	}
	return fmt.Sprintf("%s (%s)", full, Relative(t, f.now().In(loc)))
}

func (f Formatter) location() *time.Location {
	if f.Location == nil {
		return time.Local
	}
	return f.Location
}

func (f Formatter) now() time.Time {
	if f.Now == nil {
		return time.Now()
	}
	return f.Now()
}

// Relative returns "<N>y ago", "<N>mo ago", "<N>d ago" or "Today" from the
// field-wise difference between now and target. Both are compared in now's location.
func Relative(target, now time.Time) string {
	target = target.In(now.Location())
	years := now.Year() - target.Year()
	months := int(now.Month()) - int(target.Month())
	days := now.Day() - target.Day()

	switch {
	case years > 0:
		return fmt.Sprintf("%dy ago", years)
	case months > 0:
		return fmt.Sprintf("%dmo ago", months)
	case days > 0:
		return fmt.Sprintf("%dd ago", days)
	default:
		return "Today"
	}
}

// Parse normalizes and parses a publish date. Values without a time component
// get "T00:00:00" appended so they resolve to midnight in loc.
func Parse(date string, loc *time.Location) (time.Time, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return time.Time{}, fmt.Errorf("dates: empty date")
	}
	if !strings.Contains(date, "T") {
		date += "T00:00:00"
	}
	t, err := dateparse.ParseIn(date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("dates: parse %q: %w", date, err)
	}
	return t, nil
}

// HTTPDate renders date as an RFC 1123 GMT string for feeds. Date-only values
// are taken as UTC midnight. Unparseable dates yield "".
func HTTPDate(date string) string {
	t, err := Parse(date, time.UTC)
	if err != nil {
		return ""
	}
	return t.UTC().Format(http.TimeFormat)
}
