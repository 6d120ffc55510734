// Package timesheet holds the weekly timesheet rules: resolving the date
// window, reconciling submitted hours against stored entries, building the
// per-day aggregate and producing export rows.
package timesheet

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Store is the persistence the timesheet rules need.
type Store interface {
	// UpsertHours atomically creates the (owner, date) entry with hours and
	// target, or overwrites only the productive hours of an existing one.
	UpsertHours(ctx context.Context, ownerID int64, date time.Time, hours, target decimal.Decimal) error
	// UpsertEntry creates the entry, or overwrites start, finish, hours and
	// comment of an existing one. Target hours of an existing entry are kept.
	UpsertEntry(ctx context.Context, entry Entry) error
	ListEntries(ctx context.Context, ownerID int64, from, to time.Time) ([]Entry, error)
	ListAllEntries(ctx context.Context, ownerID int64) ([]Entry, error)
	// LatestEntryDate returns the most recent entry date; ok is false when the
	// owner has no entries.
	LatestEntryDate(ctx context.Context, ownerID int64) (date time.Time, ok bool, err error)
	DeleteEntries(ctx context.Context, ownerID int64) (int64, error)
}

// Caller is the authenticated identity performing an operation.
type Caller struct {
	UserID int64
	Admin  bool
}

// CanAccess reports whether the caller may read or write the owner's timesheet.
func (c Caller) CanAccess(ownerID int64) bool {
	return c.Admin || c.UserID == ownerID
}

type Settings struct {
	DefaultTargetHours decimal.Decimal
	// StrictHours rejects a whole weekly submission when one value does not parse.
	StrictHours bool
	// ResetStaleWeek forces the current week when the owner's latest entry is
	// older than the current week.
	ResetStaleWeek bool
}

type Service struct {
	store    Store
	settings Settings
	logger   *slog.Logger
}

func NewService(store Store, settings Settings) *Service {
	if settings.DefaultTargetHours.IsZero() {
		settings.DefaultTargetHours = decimal.NewFromInt(8)
	}
	return &Service{
		store:    store,
		settings: settings,
		logger:   slog.With("component", "timesheet"),
	}
}

func (s *Service) authorize(caller Caller, ownerID int64, action string) error {
	if !caller.CanAccess(ownerID) {
		s.logger.Warn("Timesheet access denied", "caller", caller.UserID, "owner", ownerID, "action", action)
		return &UnauthorizedError{CallerID: caller.UserID, OwnerID: ownerID, Action: action}
	}
	return nil
}

// SaveResult summarises a weekly submission.
type SaveResult struct {
	Changed int
	// Skipped dates had a value that did not parse (lenient mode only).
	Skipped []time.Time
	// Failed dates could not be written to the store.
	Failed []time.Time
}

// SaveWeek writes the submitted hours of every window date that has a
// non-empty value. submitted is keyed by YYYY-MM-DD; dates that are absent or
// blank are left untouched. Each day is written on its own, so one bad day
// never undoes the others.
func (s *Service) SaveWeek(ctx context.Context, caller Caller, ownerID int64, window Window, submitted map[string]string) (SaveResult, error) {
	var result SaveResult
	if err := s.authorize(caller, ownerID, "edit"); err != nil {
		return result, err
	}

	type dayValue struct {
		date  time.Time
		hours decimal.Decimal
	}
	var values []dayValue
	var invalid []time.Time

	for _, day := range window.Days() {
		raw := strings.TrimSpace(submitted[day.Format(DateLayout)])
		if raw == "" {
			continue
		}
		hours, err := ParseHours(raw)
		if err != nil {
			invalid = append(invalid, day)
			continue
		}
		values = append(values, dayValue{date: day, hours: hours})
	}

	if len(invalid) > 0 {
		if s.settings.StrictHours {
			return result, &InvalidHoursError{Dates: invalid}
		}
		for _, day := range invalid {
			s.logger.Warn("Skipping unparsable hours", "owner", ownerID, "date", day.Format(DateLayout), "value", submitted[day.Format(DateLayout)])
		}
		result.Skipped = invalid
	}

	for _, v := range values {
		if err := s.store.UpsertHours(ctx, ownerID, v.date, v.hours, s.settings.DefaultTargetHours); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return result, err
			}
			s.logger.Error("Failed to save hours", "owner", ownerID, "date", v.date.Format(DateLayout), "error", err)
			result.Failed = append(result.Failed, v.date)
			continue
		}
		result.Changed++
	}

	s.logger.Debug("Saved week", "owner", ownerID, "changed", result.Changed, "skipped", len(result.Skipped), "failed", len(result.Failed))
	return result, nil
}

// SaveEntry validates and stores a complete entry.
func (s *Service) SaveEntry(ctx context.Context, caller Caller, entry Entry) error {
	if err := s.authorize(caller, entry.OwnerID, "edit"); err != nil {
		return err
	}
	entry.Date = DateOf(entry.Date)
	entry.ProductiveHours = entry.ProductiveHours.Round(2)
	if entry.TargetHours.IsZero() {
		entry.TargetHours = s.settings.DefaultTargetHours
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	return s.store.UpsertEntry(ctx, entry)
}

// DayHours is one materialised day of a view.
type DayHours struct {
	Date  time.Time
	Hours decimal.Decimal
	// Entry is nil when nothing is stored for the day.
	Entry *Entry
}

func (d DayHours) DayOfWeek() string { return d.Date.Weekday().String() }

// Key is the YYYY-MM-DD form of the date.
func (d DayHours) Key() string { return d.Date.Format(DateLayout) }

// WeekView is the aggregate of one owner's window.
type WeekView struct {
	OwnerID int64
	Window  Window
	Days    []DayHours
	// Hours maps every window date (YYYY-MM-DD) to its productive hours.
	Hours map[string]decimal.Decimal
	Total decimal.Decimal
	// Reset is set when the stale-week policy replaced the requested window.
	Reset bool
}

// FilterActive reports whether the view shows a caller-supplied range.
func (v WeekView) FilterActive() bool { return v.Window.FilterActive }

// WeekView reads back the window and fills every day, defaulting to zero.
func (s *Service) WeekView(ctx context.Context, caller Caller, ownerID int64, window Window, today time.Time) (WeekView, error) {
	if err := s.authorize(caller, ownerID, "view"); err != nil {
		return WeekView{}, err
	}

	view := WeekView{OwnerID: ownerID}

	if s.settings.ResetStaleWeek {
		latest, ok, err := s.store.LatestEntryDate(ctx, ownerID)
		if err != nil {
			return WeekView{}, err
		}
		current := DefaultWindow(today)
		if ok && latest.Before(current.Start) && window.FilterActive {
			s.logger.Debug("Latest entry predates current week, showing blank week", "owner", ownerID, "latest", latest.Format(DateLayout))
			window = current
			view.Reset = true
		}
	}
	view.Window = window

	entries, err := s.store.ListEntries(ctx, ownerID, window.Start, window.End)
	if err != nil {
		return WeekView{}, err
	}
	byDate := make(map[string]*Entry, len(entries))
	for i := range entries {
		byDate[entries[i].Date.Format(DateLayout)] = &entries[i]
	}

	view.Hours = make(map[string]decimal.Decimal)
	view.Total = decimal.Zero
	for _, day := range window.Days() {
		key := day.Format(DateLayout)
		dh := DayHours{Date: day, Hours: decimal.Zero}
		if e, ok := byDate[key]; ok {
			dh.Hours = e.ProductiveHours
			dh.Entry = e
		}
		view.Days = append(view.Days, dh)
		view.Hours[key] = dh.Hours
		view.Total = view.Total.Add(dh.Hours)
	}
	view.Total = view.Total.Round(2)

	return view, nil
}

// DeleteTimesheet removes every entry of the owner. Administrators only.
func (s *Service) DeleteTimesheet(ctx context.Context, caller Caller, ownerID int64) (int64, error) {
	if !caller.Admin {
		return 0, &UnauthorizedError{CallerID: caller.UserID, OwnerID: ownerID, Action: "delete"}
	}
	n, err := s.store.DeleteEntries(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("Deleted timesheet", "owner", ownerID, "by", caller.UserID, "entries", n)
	return n, nil
}
