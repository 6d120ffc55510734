package storage

import (
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"employee-timesheet/internal/timesheet"
)

// User is an account that can sign in and own a timesheet.
type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	PasswordHash string    `db:"password_hash"`
	IsAdmin      bool      `db:"is_admin"`
	IsActive     bool      `db:"is_active"`
	DateJoined   time.Time `db:"date_joined"`
}

// DisplayName is the full name, or the username when no name is set.
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return u.Username
}

// AccessRequest is a prospective user's request for an account.
type AccessRequest struct {
	ID         int64     `db:"id"`
	Name       string    `db:"name"`
	Email      string    `db:"email"`
	Message    string    `db:"message"`
	CreatedAt  time.Time `db:"created_at"`
	IsReviewed bool      `db:"is_reviewed"`
}

// entryRow is the timesheet_entries row as scanned by sqlx.
type entryRow struct {
	UserID          int64           `db:"user_id"`
	EntryDate       string          `db:"entry_date"`
	DayOfWeek       string          `db:"day_of_week"`
	StartTime       sql.NullString  `db:"start_time"`
	FinishTime      sql.NullString  `db:"finish_time"`
	ProductiveHours decimal.Decimal `db:"productive_hours"`
	TargetHours     decimal.Decimal `db:"target_hours"`
	Comment         string          `db:"comment"`
}

func (r entryRow) toEntry() (timesheet.Entry, error) {
	date, err := timesheet.ParseDate(r.EntryDate)
	if err != nil {
		return timesheet.Entry{}, err
	}
	start, err := timesheet.ParseOptionalClock(r.StartTime.String)
	if err != nil {
		return timesheet.Entry{}, err
	}
	finish, err := timesheet.ParseOptionalClock(r.FinishTime.String)
	if err != nil {
		return timesheet.Entry{}, err
	}
	return timesheet.Entry{
		OwnerID:         r.UserID,
		Date:            date,
		StartTime:       start,
		FinishTime:      finish,
		ProductiveHours: r.ProductiveHours,
		TargetHours:     r.TargetHours,
		Comment:         r.Comment,
	}, nil
}

func clockValue(c *timesheet.Clock) sql.NullString {
	if c == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: c.String(), Valid: true}
}
