package budget

import "time"

const monthKeyLayout = "2006-01"

// CivilDate drops the clock and location of t, keeping the calendar day it
// shows. No timezone conversion happens, so a transaction stamped late on the
// last day of a month stays in that month.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthStart returns the first day of ref's calendar month.
func MonthStart(ref time.Time) time.Time {
	y, m, _ := ref.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// MonthRange returns the first and last instant of ref's calendar month.
func MonthRange(ref time.Time) (time.Time, time.Time) {
	start := MonthStart(ref)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}

// TrailingWindowStart returns the start of the month months-1 months before
// ref's month, so a window of N months includes ref's month.
func TrailingWindowStart(ref time.Time, months int) (time.Time, error) {
	if months <= 0 {
		return time.Time{}, invalidf("window must be at least one month, got %d", months)
	}
	return MonthStart(ref).AddDate(0, -(months - 1), 0), nil
}

// MonthKey is the year+month bucket of a date, e.g. "2024-03".
func MonthKey(t time.Time) string {
	return CivilDate(t).Format(monthKeyLayout)
}

// ParseMonth accepts "2006-01" or "2006-01-02" and returns the month start.
func ParseMonth(value string) (time.Time, error) {
	if t, err := time.Parse(monthKeyLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, invalidf("month must be YYYY-MM, got %q", value)
	}
	return MonthStart(t), nil
}
