package routes

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"employee-timesheet/internal/storage"
	"employee-timesheet/internal/timesheet"
)

const hoursFieldPrefix = "hours_"

// maxListedDates bounds how many dates a message spells out.
const maxListedDates = 5

const (
	contentTypeCSV  = "text/csv"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// windowMessage is the user facing text for a rejected date filter.
func windowMessage(err error) string {
	var tooLarge *timesheet.RangeTooLargeError
	switch {
	case errors.As(err, &tooLarge):
		return fmt.Sprintf("Please choose a range shorter than %d days.", tooLarge.MaxDays)
	case errors.Is(err, timesheet.ErrInvalidRange):
		return "Start date cannot be after end date."
	case errors.Is(err, timesheet.ErrInvalidDateFormat):
		return "Invalid date format."
	default:
		return GetErrorMessage(err)
	}
}

// resolveWindow reads start_date and end_date from the query string.
func resolveWindow(c *gin.Context, maxSpanDays int) (timesheet.Window, error) {
	return timesheet.ResolveWindow(today(c), c.Query("start_date"), c.Query("end_date"), maxSpanDays)
}

// submittedHours collects the hours_<YYYY-MM-DD> fields of the posted form.
func submittedHours(c *gin.Context) (map[string]string, error) {
	if err := c.Request.ParseForm(); err != nil {
		return nil, err
	}
	submitted := make(map[string]string)
	for key, values := range c.Request.PostForm {
		if !strings.HasPrefix(key, hoursFieldPrefix) || len(values) == 0 {
			continue
		}
		submitted[strings.TrimPrefix(key, hoursFieldPrefix)] = values[0]
	}
	return submitted, nil
}

func joinDates(dates []time.Time) string {
	parts := make([]string, len(dates))
	for i, d := range dates {
		parts[i] = d.Format(timesheet.DateLayout)
	}
	return strings.Join(parts, ", ")
}

// listDates names the first few dates and counts the rest.
func listDates(dates []time.Time) string {
	if len(dates) <= maxListedDates {
		return joinDates(dates)
	}
	return fmt.Sprintf("%d dates: %s and %d more", len(dates), joinDates(dates[:maxListedDates]), len(dates)-maxListedDates)
}

func exportURL(c *gin.Context, base string, window timesheet.Window, format string) string {
	q := window.Query()
	if q == "" {
		q = "?format=" + format
	} else {
		q += "&format=" + format
	}
	return pathFor(c, base+"/export") + q
}

// renderTimesheet shows the weekly grid of owner.
func renderTimesheet(c *gin.Context, owner *storage.User, view timesheet.WeekView, base string, adminView bool) {
	if view.Reset {
		addFlash(c, FlashInfo, "Your last entries are older than this week, showing the current week.")
	}
	HTML(c, http.StatusOK, "timesheet.html.tmpl", gin.H{
		"Owner":         owner,
		"View":          view,
		"StartDate":     view.Window.Start.Format(timesheet.DateLayout),
		"EndDate":       view.Window.End.Format(timesheet.DateLayout),
		"FilterActive":  view.FilterActive(),
		"FormAction":    pathFor(c, base) + view.Window.Query(),
		"FilterAction":  pathFor(c, base),
		"ExportURL":     exportURL(c, base, view.Window, "csv"),
		"ExportXLSXURL": exportURL(c, base, view.Window, "xlsx"),
		"AdminView":     adminView,
	})
}

// saveWeek stores the posted grid and answers with JSON for script requests
// or a flash message and a redirect to back otherwise.
func saveWeek(c *gin.Context, owner *storage.User, window timesheet.Window, back string) {
	submitted, err := submittedHours(c)
	if err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}

	result, err := services(c).Timesheets.SaveWeek(c.Request.Context(), callerFrom(c), owner.ID, window, submitted)
	if err != nil {
		var invalid *timesheet.InvalidHoursError
		switch {
		case errors.As(err, &invalid):
			msg := "Invalid hours for " + listDates(invalid.Dates) + ". Nothing was saved."
			if isXHR(c) {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": msg})
				return
			}
			addFlash(c, FlashError, msg)
			redirect(c, back)
		case errors.Is(err, timesheet.ErrUnauthorized):
			AbortWithError(c, err)
		default:
			AbortWithError(c, fmt.Errorf("%w: %v", ErrDatabaseError, err))
		}
		return
	}

	msg := fmt.Sprintf("Saved %d entries successfully!", result.Changed)
	var warnings []string
	if len(result.Skipped) > 0 {
		warnings = append(warnings, "Skipped invalid hours for "+listDates(result.Skipped)+".")
	}
	if len(result.Failed) > 0 {
		warnings = append(warnings, "Could not save "+listDates(result.Failed)+".")
	}

	if isXHR(c) {
		c.JSON(http.StatusOK, gin.H{
			"success":  len(result.Failed) == 0,
			"message":  msg,
			"warnings": warnings,
			"changed":  result.Changed,
		})
		return
	}

	addFlash(c, FlashSuccess, msg)
	for _, w := range warnings {
		addFlash(c, FlashWarning, w)
	}
	redirect(c, back)
}

// exportWindow is nil unless both bounds are given.
func exportWindow(c *gin.Context) (*timesheet.Window, error) {
	start, end := strings.TrimSpace(c.Query("start_date")), strings.TrimSpace(c.Query("end_date"))
	if start == "" || end == "" {
		return nil, nil
	}
	s, err := timesheet.ParseDate(start)
	if err != nil {
		return nil, err
	}
	e, err := timesheet.ParseDate(end)
	if err != nil {
		return nil, err
	}
	w, err := timesheet.NewWindow(s, e, 0)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// exportTimesheet streams owner's entries as CSV or XLSX.
func exportTimesheet(c *gin.Context, owner *storage.User) {
	window, err := exportWindow(c)
	if err != nil {
		AbortWithHTTPError(c, http.StatusBadRequest, err, windowMessage(err))
		return
	}

	format := strings.ToLower(c.DefaultQuery("format", "csv"))
	if format != "csv" && format != "xlsx" {
		AbortWithError(c, ErrInvalidFormat)
		return
	}

	rows, err := services(c).Timesheets.Export(c.Request.Context(), callerFrom(c), owner.ID, window)
	if err != nil {
		if errors.Is(err, timesheet.ErrUnauthorized) {
			AbortWithError(c, err)
			return
		}
		AbortWithError(c, fmt.Errorf("%w: %v", ErrDatabaseError, err))
		return
	}

	var buf bytes.Buffer
	contentType := contentTypeXLSX
	if format == "csv" {
		encoding := services(c).Config.Export.Encoding
		if strings.EqualFold(encoding, "utf-16") {
			contentType = contentTypeCSV + "; charset=utf-16"
		} else {
			contentType = contentTypeCSV + "; charset=utf-8"
		}
		err = timesheet.WriteCSV(&buf, rows, encoding)
	} else {
		err = timesheet.WriteXLSX(&buf, rows)
	}
	if err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", ErrInternalServer, err))
		return
	}

	filename := timesheet.ExportFilename(owner.Username, window, format)
	slog.Info("Exported timesheet", "owner", owner.ID, "by", currentUser(c).ID, "rows", len(rows), "format", format)
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
