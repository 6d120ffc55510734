package timesheet

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidDateFormat = errors.New("invalid date format")
	ErrInvalidRange      = errors.New("invalid date range")
	ErrRangeTooLarge     = errors.New("date range too large")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidHours      = errors.New("invalid hours")
	ErrInvalidTimes      = errors.New("invalid start or finish time")
)

// InvalidDateFormatError is returned when a date string is not YYYY-MM-DD.
type InvalidDateFormatError struct {
	Value string
}

func (e *InvalidDateFormatError) Error() string {
	return fmt.Sprintf("invalid date format %q, expected YYYY-MM-DD", e.Value)
}

func (e *InvalidDateFormatError) Unwrap() error { return ErrInvalidDateFormat }

// InvalidRangeError is returned when the start of a range is after its end.
type InvalidRangeError struct {
	Start, End time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("start date %s cannot be after end date %s", e.Start.Format(DateLayout), e.End.Format(DateLayout))
}

func (e *InvalidRangeError) Unwrap() error { return ErrInvalidRange }

// RangeTooLargeError is returned when an explicit range spans more days than allowed.
type RangeTooLargeError struct {
	Days    int
	MaxDays int
}

func (e *RangeTooLargeError) Error() string {
	return fmt.Sprintf("please choose a range shorter than %d days (got %d)", e.MaxDays, e.Days)
}

func (e *RangeTooLargeError) Unwrap() error { return ErrRangeTooLarge }

// UnauthorizedError is returned when the caller may not act on the owner's timesheet.
type UnauthorizedError struct {
	CallerID int64
	OwnerID  int64
	Action   string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("user %d may not %s timesheet of user %d", e.CallerID, e.Action, e.OwnerID)
}

func (e *UnauthorizedError) Unwrap() error { return ErrUnauthorized }

// InvalidHoursError lists the dates whose submitted value did not parse.
type InvalidHoursError struct {
	Dates []time.Time
}

func (e *InvalidHoursError) Error() string {
	dates := make([]string, len(e.Dates))
	for i, d := range e.Dates {
		dates[i] = d.Format(DateLayout)
	}
	return fmt.Sprintf("invalid hours for %s", strings.Join(dates, ", "))
}

func (e *InvalidHoursError) Unwrap() error { return ErrInvalidHours }

// InvalidTimesError is returned when finish time is not after start time.
type InvalidTimesError struct {
	Start, Finish Clock
}

func (e *InvalidTimesError) Error() string {
	return fmt.Sprintf("finish time %s must be after start time %s", e.Finish, e.Start)
}

func (e *InvalidTimesError) Unwrap() error { return ErrInvalidTimes }
