// Package clock handles the wall-clock "HH:mm" times used throughout the
// timetable engine and the two interval overlap rules built on them.
package clock

import (
	"fmt"
	"time"
)

// Layout is the wall-clock format accepted from and rendered to callers.
const Layout = "15:04"

// Epoch is the fixed date periods are stored under. Only the time-of-day
// component of a period timestamp is meaningful.
var Epoch = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

// Parse converts an "HH:mm" string into a timestamp on the fixed epoch date.
func Parse(value string) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse wall-clock time %q: %w", value, err)
	}
	return time.Date(Epoch.Year(), Epoch.Month(), Epoch.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}

// Format renders a stored period timestamp back into "HH:mm".
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// Valid reports whether value is a well-formed "HH:mm" string.
func Valid(value string) bool {
	_, err := Parse(value)
	return err == nil
}

// Canonical re-renders value as zero-padded "HH:mm". Parse is lenient about
// padding and accepts "9:00"; the lexical overlap rules are not. Only
// canonical strings may be compared lexically.
func Canonical(value string) (string, error) {
	t, err := Parse(value)
	if err != nil {
		return "", err
	}
	return Format(t), nil
}

// Overlaps is the strict half-open overlap rule: intervals that merely touch
// (end of one equals start of the other) do not overlap. Operates lexically,
// which is equivalent to numeric comparison for zero-padded "HH:mm" values.
// This is the rule applied to break-time windows.
func Overlaps(startA, endA, startB, endB string) bool {
	return startA < endB && endA > startB
}

// OverlapsInclusive is the closed-interval variant used when comparing a
// candidate against stored periods: touching boundaries DO count as a hit.
// The asymmetry with Overlaps is deliberate and part of the scheduling
// contract; do not unify the two.
func OverlapsInclusive(startA, endA, startB, endB time.Time) bool {
	return !startA.After(endB) && !endA.Before(startB)
}

// MinutesBetween returns the whole minutes from start to end.
func MinutesBetween(start, end time.Time) int {
	return int(end.Sub(start) / time.Minute)
}
