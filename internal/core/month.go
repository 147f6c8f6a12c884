package core

import (
	"fmt"
	"time"
)

const (
	monthLayout = "2006-01"
	dateLayout  = "2006-01-02"
)

// ParseMonth parses a zero-padded "YYYY-MM" value.
func ParseMonth(s string) (time.Time, error) {
	if len(s) != len(monthLayout) {
		return time.Time{}, ErrInvalidMonth
	}
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidMonth
	}
	return t, nil
}

// ParseDate parses a "YYYY-MM-DD" value.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// MonthOf formats t as "YYYY-MM".
func MonthOf(t time.Time) string {
	return t.Format(monthLayout)
}

// FormatMonth builds "YYYY-MM" from numeric parts.
func FormatMonth(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// AddMonths shifts a "YYYY-MM" value by n months.
func AddMonths(month string, n int) (string, error) {
	t, err := ParseMonth(month)
	if err != nil {
		return "", err
	}
	return MonthOf(t.AddDate(0, n, 0)), nil
}

// MonthsOfYear returns January through December of the year month falls in.
func MonthsOfYear(month string) ([]string, error) {
	t, err := ParseMonth(month)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, 12)
	for m := 1; m <= 12; m++ {
		out = append(out, FormatMonth(t.Year(), m))
	}
	return out, nil
}

// Applies reports whether a record starting at startMonth counts in viewed.
// Plain string comparison is correct because the format is fixed width.
func Applies(startMonth, viewed string) bool {
	return startMonth == "" || startMonth <= viewed
}
