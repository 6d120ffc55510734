package timesheet

import (
	"strings"
	"time"
)

// DateLayout is the ISO-8601 calendar date format used everywhere dates cross a boundary.
const DateLayout = "2006-01-02"

// MaxViewDays bounds the span of any window a view is built over, whatever
// the configured limit.
const MaxViewDays = 3660

const secondsPerDay = 24 * 60 * 60

// Window is an inclusive range of calendar dates.
type Window struct {
	Start time.Time
	End   time.Time
	// FilterActive is set when the range was supplied by the caller instead of
	// defaulting to the current week.
	FilterActive bool
}

// DateOf strips the clock from t and returns its calendar date at UTC midnight.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date in loc.
func Today(loc *time.Location) time.Time {
	return DateOf(time.Now().In(loc))
}

// WeekStart returns the Monday on or before day.
func WeekStart(day time.Time) time.Time {
	day = DateOf(day)
	offset := (int(day.Weekday()) + 6) % 7 // Monday=0 .. Sunday=6
	return day.AddDate(0, 0, -offset)
}

// DefaultWindow returns the Monday to Sunday week containing today.
func DefaultWindow(today time.Time) Window {
	start := WeekStart(today)
	return Window{
		Start: start,
		End:   start.AddDate(0, 0, 6),
	}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, &InvalidDateFormatError{Value: s}
	}
	return d, nil
}

// NewWindow validates an explicit range. maxSpanDays of 0 disables the span check.
func NewWindow(start, end time.Time, maxSpanDays int) (Window, error) {
	start, end = DateOf(start), DateOf(end)
	if start.After(end) {
		return Window{}, &InvalidRangeError{Start: start, End: end}
	}
	w := Window{Start: start, End: end, FilterActive: true}
	if maxSpanDays > 0 && w.SpanDays() > maxSpanDays {
		return Window{}, &RangeTooLargeError{Days: w.SpanDays(), MaxDays: maxSpanDays}
	}
	return w, nil
}

// ResolveWindow returns the current week when either bound is empty, otherwise
// the explicit range start..end. The span is never allowed past MaxViewDays.
func ResolveWindow(today time.Time, start, end string, maxSpanDays int) (Window, error) {
	if maxSpanDays <= 0 || maxSpanDays > MaxViewDays {
		maxSpanDays = MaxViewDays
	}
	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return DefaultWindow(today), nil
	}
	s, err := ParseDate(start)
	if err != nil {
		return Window{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return Window{}, err
	}
	return NewWindow(s, e, maxSpanDays)
}

// SpanDays is the number of days between Start and End, so a single day has span 0.
// Counted on Unix seconds; time.Duration saturates after about 292 years.
func (w Window) SpanDays() int {
	return int((w.End.Unix() - w.Start.Unix()) / secondsPerDay)
}

// Days lists every date of the window in ascending order.
func (w Window) Days() []time.Time {
	days := make([]time.Time, 0, w.SpanDays()+1)
	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Contains reports whether day falls inside the window.
func (w Window) Contains(day time.Time) bool {
	day = DateOf(day)
	return !day.Before(w.Start) && !day.After(w.End)
}

// Query renders the window as start_date/end_date query parameters, or an
// empty string for the default week.
func (w Window) Query() string {
	if !w.FilterActive {
		return ""
	}
	return "?start_date=" + w.Start.Format(DateLayout) + "&end_date=" + w.End.Format(DateLayout)
}
