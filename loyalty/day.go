package loyalty

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// DAY - Calendar day (campaign windows, transaction dates)
// =============================================================================

// DayLayout is the ISO calendar-day format used on the wire and in storage.
const DayLayout = "2006-01-02"

// Day is a calendar day with no time-of-day component.
// The zero Day means "not set" (an unbounded campaign window edge).
type Day struct {
	t time.Time
}

func NewDay(year int, month time.Month, day int) Day {
	return Day{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf returns the calendar day of t in t's own location.
func DayOf(t time.Time) Day {
	return NewDay(t.Year(), t.Month(), t.Day())
}

// ParseDay parses YYYY-MM-DD. An empty string yields the zero Day.
func ParseDay(s string) (Day, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Day{}, nil
	}
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid day %q (use YYYY-MM-DD): %w", s, err)
	}
	return Day{t: t}, nil
}

// MustParseDay is ParseDay for literals in tests and presets.
func MustParseDay(s string) Day {
	d, err := ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Day) IsZero() bool { return d.t.IsZero() }
func (d Day) Time() time.Time { return d.t }
func (d Day) Before(other Day) bool { return d.t.Before(other.t) }
func (d Day) After(other Day) bool { return d.t.After(other.t) }
func (d Day) Equal(other Day) bool { return d.t.Equal(other.t) }
func (d Day) AddDays(n int) Day { return Day{t: d.t.AddDate(0, 0, n)} }

func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DayLayout)
}

func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Day) UnmarshalText(b []byte) error {
	parsed, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// CLOCK - Source of "now" and "today"
// =============================================================================

// Clock supplies the current time. Lifecycle status and transaction dates are
// always derived from it, never from the wall clock directly.
type Clock interface {
	Now() time.Time
}

// SystemClock reports wall-clock time in Location (UTC when nil).
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.Location)
}

// FixedClock always reports the same instant.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// Today returns the calendar day of clock's current time.
func Today(clock Clock) Day {
	return DayOf(clock.Now())
}
