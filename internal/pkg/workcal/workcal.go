// Package workcal resolves company working-day calendars: which calendar
// days count as working days in a company's timezone, and the date windows
// used by reporting and scoring.
package workcal

import (
	"time"
)

// DefaultWorkingDays is Monday through Friday in ISO weekday numbering.
var DefaultWorkingDays = []int{1, 2, 3, 4, 5}

// ISOWeekday returns the ISO-8601 weekday number for t (1=Monday .. 7=Sunday).
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// NormalizeWorkingDays drops out-of-range entries and de-duplicates. A company
// with an empty or fully malformed configuration falls back to Mon-Fri; this
// is a deliberate fail-open default so a bad setup never blocks clock-ins.
func NormalizeWorkingDays(days []int) []int {
	seen := make(map[int]bool, 7)
	out := make([]int, 0, 7)
	for _, d := range days {
		if d < 1 || d > 7 || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	if len(out) == 0 {
		return DefaultWorkingDays
	}
	return out
}

// IsWorkingDay reports whether t, viewed in loc, falls on one of the
// company's working days.
func IsWorkingDay(t time.Time, workingDays []int, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	wd := ISOWeekday(t.In(loc))
	for _, d := range NormalizeWorkingDays(workingDays) {
		if d == wd {
			return true
		}
	}
	return false
}

// ReportingWindow resolves the inclusive [start, end] date range for a
// reporting query. Explicit bounds win; otherwise the window is the
// defaultDays most recent days ending on now's company-local day.
func ReportingWindow(now time.Time, loc *time.Location, explicitStart, explicitEnd *time.Time, defaultDays int) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	if defaultDays < 1 {
		defaultDays = 1
	}

	if explicitStart != nil && explicitEnd != nil {
		return dateOnly(*explicitStart, loc), dateOnly(*explicitEnd, loc)
	}

	end := dateOnly(now.In(loc), loc)
	start := end.AddDate(0, 0, -(defaultDays - 1))
	return start, end
}

// ExpectedWorkDays counts calendar days in [start, end] whose ISO weekday is
// in the working-day set. Used as the denominator for attendance-rate scoring.
func ExpectedWorkDays(workingDays []int, start, end time.Time) int {
	days := NormalizeWorkingDays(workingDays)
	inSet := make(map[int]bool, len(days))
	for _, d := range days {
		inSet[d] = true
	}

	count := 0
	for d := dateOnly(start, start.Location()); !d.After(end); d = d.AddDate(0, 0, 1) {
		if inSet[ISOWeekday(d)] {
			count++
		}
	}
	return count
}

// LoadLocation resolves an IANA timezone name, falling back to UTC when the
// name is empty or unknown (same fallback the clock-in path uses).
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func dateOnly(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
