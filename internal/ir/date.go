package ir

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date without time or zone, serialized as "YYYY-MM-DD".
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func (Date) irValue() {}

// ParseDate parses "YYYY-MM-DD". A trailing time part, as the remote system
// returns for date columns ("2024-03-01T00:00:00"), is ignored.
func ParseDate(s string) (Date, error) {
	if len(s) > len(dateLayout) && s[len(dateLayout)] == 'T' {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// String returns the "YYYY-MM-DD" form.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalJSON emits the date as a JSON string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}
