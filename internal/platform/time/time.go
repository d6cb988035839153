// Package time contains time related helpers shared by the tier pipeline
package time

import "time"

// Ptr returns a pointer to t or nil if t is zero
func Ptr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// DayUTC truncates t to midnight UTC of its day
func DayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayOfUnix returns midnight UTC of the day containing the unix second ts
func DayOfUnix(ts int64) time.Time {
	return DayUTC(time.Unix(ts, 0))
}

// DayKey formats a day as YYYY-MM-DD (UTC)
func DayKey(t time.Time) string { return t.UTC().Format("2006-01-02") }

// ParseDayKey parses YYYY-MM-DD into midnight UTC
func ParseDayKey(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.UTC)
}
