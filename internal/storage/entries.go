package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"employee-timesheet/internal/timesheet"
)

const entryColumns = `user_id, entry_date, day_of_week, start_time, finish_time, productive_hours, target_hours, comment`

// UpsertHours relies on UNIQUE(user_id, entry_date) so concurrent submissions
// for the same day can never create two rows.
func (p *SQLProvider) UpsertHours(ctx context.Context, ownerID int64, date time.Time, hours, target decimal.Decimal) error {
	now := time.Now().UTC()
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO timesheet_entries (user_id, entry_date, productive_hours, target_hours, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, entry_date) DO UPDATE SET
			productive_hours = excluded.productive_hours,
			updated_at = excluded.updated_at`,
		ownerID, date.Format(timesheet.DateLayout), hours.StringFixed(2), target.StringFixed(2), now, now)
	return err
}

func (p *SQLProvider) UpsertEntry(ctx context.Context, entry timesheet.Entry) error {
	now := time.Now().UTC()
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO timesheet_entries (user_id, entry_date, start_time, finish_time, productive_hours, target_hours, comment, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, entry_date) DO UPDATE SET
			start_time = excluded.start_time,
			finish_time = excluded.finish_time,
			productive_hours = excluded.productive_hours,
			comment = excluded.comment,
			updated_at = excluded.updated_at`,
		entry.OwnerID, entry.Date.Format(timesheet.DateLayout),
		clockValue(entry.StartTime), clockValue(entry.FinishTime),
		entry.ProductiveHours.StringFixed(2), entry.TargetHours.StringFixed(2),
		entry.Comment, now, now)
	return err
}

func (p *SQLProvider) ListEntries(ctx context.Context, ownerID int64, from, to time.Time) ([]timesheet.Entry, error) {
	var rows []entryRow
	err := p.db.SelectContext(ctx, &rows, `
		SELECT `+entryColumns+` FROM timesheet_entries
		WHERE user_id = ? AND entry_date BETWEEN ? AND ?
		ORDER BY entry_date`,
		ownerID, from.Format(timesheet.DateLayout), to.Format(timesheet.DateLayout))
	if err != nil {
		return nil, err
	}
	return toEntries(rows)
}

func (p *SQLProvider) ListAllEntries(ctx context.Context, ownerID int64) ([]timesheet.Entry, error) {
	var rows []entryRow
	err := p.db.SelectContext(ctx, &rows, `
		SELECT `+entryColumns+` FROM timesheet_entries
		WHERE user_id = ?
		ORDER BY entry_date`, ownerID)
	if err != nil {
		return nil, err
	}
	return toEntries(rows)
}

func (p *SQLProvider) LatestEntryDate(ctx context.Context, ownerID int64) (time.Time, bool, error) {
	var latest sql.NullString
	err := p.db.GetContext(ctx, &latest, `SELECT MAX(entry_date) FROM timesheet_entries WHERE user_id = ?`, ownerID)
	if err != nil {
		return time.Time{}, false, err
	}
	if !latest.Valid {
		return time.Time{}, false, nil
	}
	date, err := timesheet.ParseDate(latest.String)
	if err != nil {
		return time.Time{}, false, err
	}
	return date, true, nil
}

func (p *SQLProvider) DeleteEntries(ctx context.Context, ownerID int64) (int64, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM timesheet_entries WHERE user_id = ?`, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func toEntries(rows []entryRow) ([]timesheet.Entry, error) {
	entries := make([]timesheet.Entry, 0, len(rows))
	for _, r := range rows {
		e, err := r.toEntry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
