package domain

import (
	"time"

	dErrors "sojourn/pkg/domain-errors"
)

// DateLayout is the ISO-8601 calendar date format used on every boundary.
const DateLayout = "2006-01-02"

// Date is a calendar date with no time-of-day or zone, stored as the number
// of days since 1970-01-01. Arithmetic is plain integer arithmetic, so a Date
// can index day-count arrays directly.
type Date int32

// MinDate is the earliest date accepted anywhere in the system.
var MinDate = NewDate(1900, time.January, 1)

// NewDate builds a Date from its calendar parts. Out-of-range parts normalize
// the way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	u := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return Date(u.Unix() / 86400)
}

// ParseDate parses an ISO-8601 calendar date (YYYY-MM-DD).
//
// Errors: returns CodeInvalidInput when the value is not a valid date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid date "+quote(s)+": expected YYYY-MM-DD")
	}
	return DateOf(t), nil
}

// MustParseDate is ParseDate for literals in tests and seed data.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Unix(int64(d)*86400, 0).UTC()
}

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date { return d + Date(n) }

// DaysSince returns d − o in days.
func (d Date) DaysSince(o Date) int { return int(d - o) }

func (d Date) Before(o Date) bool { return d < o }
func (d Date) After(o Date) bool  { return d > o }

func (d Date) String() string { return d.Time().Format(DateLayout) }

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func quote(s string) string {
	if len(s) > 32 {
		s = s[:32] + "..."
	}
	return "\"" + s + "\""
}
