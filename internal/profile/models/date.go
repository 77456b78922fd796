package models

import (
	"fmt"
	"math"
	"time"
)

const (
	dateLayout    = "2006-01-02"
	displayLayout = "02.01.2006"

	// The persisted YYYY-MM-DD form carries four-digit years only.
	minYear = 1
	maxYear = 9999
)

// referenceEpoch is the origin of timestamps written by the original app,
// which stored dates as seconds since 2001-01-01 UTC.
var referenceEpoch = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

// Legacy timestamps outside this window cannot name a representable date.
var (
	minReferenceSeconds = time.Date(minYear, time.January, 1, 0, 0, 0, 0, time.UTC).Unix() - referenceEpoch.Unix()
	maxReferenceSeconds = time.Date(maxYear, time.December, 31, 23, 59, 59, 0, time.UTC).Unix() - referenceEpoch.Unix()
)

// Date is a calendar date without time of day or zone. The zero value means
// "no date".
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a Date, rejecting out-of-range components such as February 30
// and years outside 1..9999.
func NewDate(year int, month time.Month, day int) (Date, error) {
	if year < minYear || year > maxYear {
		return Date{}, fmt.Errorf("invalid date %04d-%02d-%02d: year out of range %d..%d", year, int(month), day, minYear, maxYear)
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return Date{}, fmt.Errorf("invalid date %04d-%02d-%02d", year, int(month), day)
	}
	return Date{Year: year, Month: month, Day: day}, nil
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return NewDate(t.Date())
}

// dateFromReferenceSeconds converts a legacy reference-epoch timestamp to the
// calendar date it falls on in loc.
func dateFromReferenceSeconds(secs float64, loc *time.Location) (Date, error) {
	if math.IsNaN(secs) || math.IsInf(secs, 0) {
		return Date{}, fmt.Errorf("timestamp %v is not a number", secs)
	}
	if secs < float64(minReferenceSeconds) || secs > float64(maxReferenceSeconds) {
		return Date{}, fmt.Errorf("timestamp %v out of range", secs)
	}
	t := time.Unix(referenceEpoch.Unix()+int64(math.Floor(secs)), 0).In(loc)
	return NewDate(t.Date())
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// Validate reports whether d is a real calendar date the persisted form can
// carry. The zero Date means "no date" and is valid.
func (d Date) Validate() error {
	if d.IsZero() {
		return nil
	}
	_, err := NewDate(d.Year, d.Month, d.Day)
	return err
}

// Time returns midnight UTC on d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(dateLayout)
}

// Display formats d the way previews show it (dd.MM.yyyy).
func (d Date) Display() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(displayLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
