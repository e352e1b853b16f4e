package schedule

import (
	"fmt"
	"regexp"
	"time"
)

// Layouts for the strings slots are published with.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var (
	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// ValidateDate checks that raw is a real calendar date in "YYYY-MM-DD" form.
// The format is strict: "2024-3-5" is rejected even though it names a date,
// because slots are deduplicated on the raw string pair.
func ValidateDate(raw string) error {
	if !dateRe.MatchString(raw) {
		return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", raw)
	}
	if _, err := time.Parse(DateLayout, raw); err != nil {
		return fmt.Errorf("invalid date %q: no such calendar day", raw)
	}
	return nil
}

// ValidateTime checks that raw is a 24-hour time of day in "HH:MM" form.
func ValidateTime(raw string) error {
	if !timeRe.MatchString(raw) {
		return fmt.Errorf("invalid time %q: expected HH:MM in 24-hour form", raw)
	}
	return nil
}

// StartAt combines a slot's date and time of day into a single instant in loc.
// Both strings must already be valid.
func StartAt(date, timeOfDay string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+timeOfDay, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid slot start %q %q: %w", date, timeOfDay, err)
	}
	return t, nil
}

// InFuture reports whether the slot beginning at date+timeOfDay starts
// strictly after now. A slot starting exactly at now is already in the past.
func InFuture(date, timeOfDay string, loc *time.Location, now time.Time) (bool, error) {
	start, err := StartAt(date, timeOfDay, loc)
	if err != nil {
		return false, err
	}
	return start.After(now), nil
}
