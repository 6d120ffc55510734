package routes

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"employee-timesheet/internal/access"
	"employee-timesheet/internal/timesheet"
)

// entryForm holds the raw values of the single entry form.
type entryForm struct {
	Date            string
	StartTime       string
	FinishTime      string
	ProductiveHours string
	Comment         string
}

func entryFormFrom(e *timesheet.Entry, date string) entryForm {
	form := entryForm{Date: date}
	if e == nil {
		return form
	}
	form.Date = e.Date.Format(timesheet.DateLayout)
	if e.StartTime != nil {
		form.StartTime = e.StartTime.String()
	}
	if e.FinishTime != nil {
		form.FinishTime = e.FinishTime.String()
	}
	form.ProductiveHours = e.ProductiveHours.StringFixed(2)
	form.Comment = e.Comment
	return form
}

// parse validates the form into an entry of owner. Blank hours are derived
// from the start and finish times when both are given.
func (f entryForm) parse(ownerID int64) (timesheet.Entry, error) {
	date, err := timesheet.ParseDate(f.Date)
	if err != nil {
		return timesheet.Entry{}, err
	}
	start, err := timesheet.ParseOptionalClock(f.StartTime)
	if err != nil {
		return timesheet.Entry{}, err
	}
	finish, err := timesheet.ParseOptionalClock(f.FinishTime)
	if err != nil {
		return timesheet.Entry{}, err
	}

	entry := timesheet.Entry{
		OwnerID:    ownerID,
		Date:       date,
		StartTime:  start,
		FinishTime: finish,
		Comment:    strings.TrimSpace(f.Comment),
	}
	if strings.TrimSpace(f.ProductiveHours) == "" {
		if total, ok := entry.TotalHours(); ok && total.IsPositive() {
			entry.ProductiveHours = total
		} else {
			entry.ProductiveHours = decimal.Zero
		}
	} else {
		hours, err := timesheet.ParseHours(f.ProductiveHours)
		if err != nil {
			return timesheet.Entry{}, err
		}
		entry.ProductiveHours = hours
	}
	return entry, nil
}

func entryErrorMessage(err error) string {
	switch {
	case errors.Is(err, timesheet.ErrInvalidDateFormat):
		return "Invalid date format."
	case errors.Is(err, timesheet.ErrInvalidHours):
		return fmt.Sprintf("Productive hours must be a number between 0 and %s.", timesheet.MaxDailyHours)
	case errors.Is(err, timesheet.ErrInvalidTimes):
		return "Finish time must be after start time, both as HH:MM."
	default:
		return GetErrorMessage(err)
	}
}

// DashboardRoutes are the signed-in user's own timesheet pages.
func DashboardRoutes(r *gin.RouterGroup) {
	r.GET("", RequirePermission(access.ResourceTimesheet, access.ActionView), func(c *gin.Context) {
		user := currentUser(c)
		window, err := resolveWindow(c, services(c).Config.Timesheet.EmployeeMaxRangeDays)
		if err != nil {
			addFlash(c, FlashError, windowMessage(err))
			redirect(c, "/dashboard")
			return
		}

		view, err := services(c).Timesheets.WeekView(c.Request.Context(), callerFrom(c), user.ID, window, today(c))
		if err != nil {
			AbortWithError(c, fmt.Errorf("%w: %v", ErrDatabaseError, err))
			return
		}
		renderTimesheet(c, user, view, "/dashboard", false)
	})

	r.POST("", RequirePermission(access.ResourceTimesheet, access.ActionEdit), func(c *gin.Context) {
		window, err := resolveWindow(c, services(c).Config.Timesheet.EmployeeMaxRangeDays)
		if err != nil {
			if isXHR(c) {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": windowMessage(err)})
				return
			}
			addFlash(c, FlashError, windowMessage(err))
			redirect(c, "/dashboard")
			return
		}
		saveWeek(c, currentUser(c), window, "/dashboard"+window.Query())
	})

	r.GET("/export", RequirePermission(access.ResourceTimesheet, access.ActionExport), func(c *gin.Context) {
		exportTimesheet(c, currentUser(c))
	})

	r.GET("/entry", RequirePermission(access.ResourceTimesheet, access.ActionEdit), func(c *gin.Context) {
		user := currentUser(c)
		date := today(c)
		if q := c.Query("date"); q != "" {
			d, err := timesheet.ParseDate(q)
			if err != nil {
				addFlash(c, FlashError, windowMessage(err))
				redirect(c, "/dashboard")
				return
			}
			date = d
		}

		entries, err := services(c).Storage.ListEntries(c.Request.Context(), user.ID, date, date)
		if err != nil {
			AbortWithError(c, fmt.Errorf("%w: %v", ErrDatabaseError, err))
			return
		}
		var existing *timesheet.Entry
		if len(entries) > 0 {
			existing = &entries[0]
		}

		HTML(c, http.StatusOK, "entry_form.html.tmpl", gin.H{
			"Form":     entryFormFrom(existing, date.Format(timesheet.DateLayout)),
			"Existing": existing != nil,
		})
	})

	r.POST("/entry", RequirePermission(access.ResourceTimesheet, access.ActionEdit), func(c *gin.Context) {
		user := currentUser(c)
		form := entryForm{
			Date:            c.PostForm("date"),
			StartTime:       c.PostForm("start_time"),
			FinishTime:      c.PostForm("finish_time"),
			ProductiveHours: c.PostForm("productive_hours"),
			Comment:         c.PostForm("comment"),
		}

		entry, err := form.parse(user.ID)
		if err == nil {
			err = services(c).Timesheets.SaveEntry(c.Request.Context(), callerFrom(c), entry)
		}
		if err != nil {
			status := GetErrorStatus(err)
			if status >= 500 {
				AbortWithError(c, fmt.Errorf("%w: %v", ErrDatabaseError, err))
				return
			}
			HTML(c, status, "entry_form.html.tmpl", gin.H{
				"Form":  form,
				"Error": entryErrorMessage(err),
			})
			return
		}

		addFlash(c, FlashSuccess, "Saved entry for "+entry.Date.Format(timesheet.DateLayout)+".")
		week := timesheet.DefaultWindow(entry.Date)
		week.FilterActive = true
		redirect(c, "/dashboard"+week.Query())
	})
}
