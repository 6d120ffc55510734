package timesheet

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxDailyHours bounds a single day's productive hours.
var MaxDailyHours = decimal.NewFromInt(24)

// Clock is a wall clock time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" (seconds, if present, are ignored).
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
		}
	}
	return Clock{}, fmt.Errorf("%w: %q is not HH:MM", ErrInvalidTimes, s)
}

// ParseOptionalClock returns nil for an empty string.
func ParseOptionalClock(s string) (*Clock, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	c, err := ParseClock(s)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Minutes since midnight.
func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

// Entry is the productive time an owner recorded for one calendar date.
type Entry struct {
	OwnerID         int64
	Date            time.Time
	StartTime       *Clock
	FinishTime      *Clock
	ProductiveHours decimal.Decimal
	TargetHours     decimal.Decimal
	Comment         string
}

// DayOfWeek is the English weekday name of the entry date.
func (e Entry) DayOfWeek() string {
	return e.Date.Weekday().String()
}

// TotalHours is the span between start and finish in hours, rounded to two
// decimals. ok is false unless both times are set.
func (e Entry) TotalHours() (hours decimal.Decimal, ok bool) {
	if e.StartTime == nil || e.FinishTime == nil {
		return decimal.Zero, false
	}
	minutes := e.FinishTime.Minutes() - e.StartTime.Minutes()
	return decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60)).Round(2), true
}

// Validate checks the write-time invariants of an entry.
func (e Entry) Validate() error {
	if e.ProductiveHours.IsNegative() || e.ProductiveHours.GreaterThan(MaxDailyHours) {
		return fmt.Errorf("%w: %s", ErrInvalidHours, e.ProductiveHours)
	}
	if e.StartTime != nil && e.FinishTime != nil && e.FinishTime.Minutes() <= e.StartTime.Minutes() {
		return &InvalidTimesError{Start: *e.StartTime, Finish: *e.FinishTime}
	}
	return nil
}

// ParseHours parses a submitted hour value as a non-negative decimal of at most
// MaxDailyHours, rounded to two places.
func ParseHours(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidHours, s)
	}
	if d.IsNegative() || d.GreaterThan(MaxDailyHours) {
		return decimal.Zero, fmt.Errorf("%w: %q out of range", ErrInvalidHours, s)
	}
	return d.Round(2), nil
}
