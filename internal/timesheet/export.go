package timesheet

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ExportHeader is the header row of exported timesheets.
var ExportHeader = []string{"Date", "Day", "Productive Hours", "Target Hours", "Comment"}

const xlsxSheet = "Timesheet"

// ExportRow is one exported entry.
type ExportRow struct {
	Date            time.Time
	DayOfWeek       string
	ProductiveHours decimal.Decimal
	TargetHours     decimal.Decimal
	Comment         string
}

// Record renders the row as CSV fields.
func (r ExportRow) Record() []string {
	return []string{
		r.Date.Format(DateLayout),
		r.DayOfWeek,
		r.ProductiveHours.StringFixed(2),
		r.TargetHours.StringFixed(2),
		r.Comment,
	}
}

// Export returns the owner's entries in ascending date order, limited to
// window when it is not nil.
func (s *Service) Export(ctx context.Context, caller Caller, ownerID int64, window *Window) ([]ExportRow, error) {
	if err := s.authorize(caller, ownerID, "export"); err != nil {
		return nil, err
	}

	var entries []Entry
	var err error
	if window != nil {
		entries, err = s.store.ListEntries(ctx, ownerID, window.Start, window.End)
	} else {
		entries, err = s.store.ListAllEntries(ctx, ownerID)
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.Before(entries[j].Date)
	})

	rows := make([]ExportRow, 0, len(entries))
	for _, e := range entries {
		if window != nil && !window.Contains(e.Date) {
			continue
		}
		rows = append(rows, ExportRow{
			Date:            e.Date,
			DayOfWeek:       e.DayOfWeek(),
			ProductiveHours: e.ProductiveHours,
			TargetHours:     e.TargetHours,
			Comment:         e.Comment,
		})
	}
	return rows, nil
}

// ExportFilename builds the download name, e.g. alice_timesheet_2024-03-11_to_2024-03-17.csv.
func ExportFilename(username string, window *Window, ext string) string {
	rng := "all"
	if window != nil {
		rng = fmt.Sprintf("%s_to_%s", window.Start.Format(DateLayout), window.End.Format(DateLayout))
	}
	return fmt.Sprintf("%s_timesheet_%s.%s", username, rng, strings.TrimPrefix(ext, "."))
}

// WriteCSV writes the header and rows. encoding "utf-16" produces UTF-16LE
// with a byte order mark; anything else is UTF-8.
func WriteCSV(w io.Writer, rows []ExportRow, encoding string) error {
	if !strings.EqualFold(encoding, "utf-16") {
		return writeCSV(w, rows)
	}

	tw := transform.NewWriter(w, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder())
	err := writeCSV(tw, rows)
	if cerr := tw.Close(); err == nil {
		err = cerr
	}
	return err
}

func writeCSV(w io.Writer, rows []ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.Record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the rows as a single sheet spreadsheet.
func WriteXLSX(w io.Writer, rows []ExportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return err
	}

	header := make([]any, len(ExportHeader))
	for i, h := range ExportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		return err
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{
			r.Date.Format(DateLayout),
			r.DayOfWeek,
			r.ProductiveHours.InexactFloat64(),
			r.TargetHours.InexactFloat64(),
			r.Comment,
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &values); err != nil {
			return err
		}
	}

	_, err := f.WriteTo(w)
	return err
}
