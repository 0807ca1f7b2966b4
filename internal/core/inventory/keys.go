package inventory

import (
	"fmt"
	"time"
)

// WeekKey formats t as "YYYY-WW" where WW counts Monday-started weeks of the
// year. Days before the first Monday fall into week 00.
func WeekKey(t time.Time) string {
	yday := t.YearDay() - 1
	wday := (int(t.Weekday()) + 6) % 7 // Monday = 0
	return fmt.Sprintf("%04d-%02d", t.Year(), (yday+7-wday)/7)
}

// MonthKey formats t as "YYYY-MM".
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// ParseMonth parses a "YYYY-MM" key into the first instant of that month (UTC).
func ParseMonth(month string) (time.Time, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month key %q: %w", month, err)
	}
	return t, nil
}

// QuarterMonths returns the month keys of the calendar quarter containing
// month, in chronological order.
func QuarterMonths(month string) ([]string, error) {
	t, err := ParseMonth(month)
	if err != nil {
		return nil, err
	}
	first := time.Date(t.Year(), time.Month((int(t.Month())-1)/3*3+1), 1, 0, 0, 0, 0, time.UTC)
	return []string{
		MonthKey(first),
		MonthKey(first.AddDate(0, 1, 0)),
		MonthKey(first.AddDate(0, 2, 0)),
	}, nil
}
