package routes

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"employee-timesheet/internal/access"
	"employee-timesheet/internal/storage"
)

// employeeParam loads the user named by the :user_id path parameter.
func employeeParam(c *gin.Context) (*storage.User, bool) {
	return lookupEmployee(c, c.Param("user_id"))
}

func lookupEmployee(c *gin.Context, raw string) (*storage.User, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		AbortWithError(c, fmt.Errorf("%w: user id %q", ErrInvalidParameter, raw))
		return nil, false
	}
	user, err := services(c).Storage.GetUser(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			AbortWithHTTPError(c, http.StatusNotFound, err, "Employee not found")
			return nil, false
		}
		AbortWithError(c, fmt.Errorf("%w: %v", ErrDatabaseError, err))
		return nil, false
	}
	return user, true
}

// AdminRoutes are the administrator pages over every employee.
func AdminRoutes(r *gin.RouterGroup) {
	r.GET("", func(c *gin.Context) {
		ctx := c.Request.Context()
		employees, err := services(c).Storage.ListEmployees(ctx)
		if err != nil {
			AbortWithError(c, fmt.Errorf("%w: %v", ErrDatabaseError, err))
			return
		}
		pending, err := services(c).Intake.Pending(ctx)
		if err != nil {
			AbortWithError(c, fmt.Errorf("%w: %v", ErrDatabaseError, err))
			return
		}
		HTML(c, http.StatusOK, "admin_users.html.tmpl", gin.H{
			"Employees":       employees,
			"PendingRequests": len(pending),
		})
	})

	r.GET("/delete-timesheet", func(c *gin.Context) {
		employees, err := services(c).Storage.ListEmployees(c.Request.Context())
		if err != nil {
			AbortWithError(c, fmt.Errorf("%w: %v", ErrDatabaseError, err))
			return
		}
		HTML(c, http.StatusOK, "delete_timesheet.html.tmpl", gin.H{
			"Employees": employees,
			"Selected":  c.Query("user_id"),
		})
	})

	r.POST("/delete-timesheet", func(c *gin.Context) {
		admin := currentUser(c)
		if !access.CheckPassword(admin.PasswordHash, c.PostForm("password")) {
			slog.Warn("Timesheet deletion with wrong password", "admin", admin.ID, "ip", c.ClientIP())
			addFlash(c, FlashError, GetErrorMessage(ErrIncorrectPassword))
			redirect(c, "/admin-dashboard/delete-timesheet")
			return
		}

		employee, ok := lookupEmployee(c, c.PostForm("user_id"))
		if !ok {
			return
		}

		deleted, err := services(c).Timesheets.DeleteTimesheet(c.Request.Context(), callerFrom(c), employee.ID)
		if err != nil {
			if GetErrorStatus(err) < 500 {
				AbortWithError(c, err)
				return
			}
			AbortWithError(c, fmt.Errorf("%w: %v", ErrDatabaseError, err))
			return
		}

		if deleted > 0 {
			addFlash(c, FlashSuccess, fmt.Sprintf("Deleted %d timesheet entries for %s.", deleted, employee.Username))
		} else {
			addFlash(c, FlashInfo, fmt.Sprintf("No timesheet entries found for %s.", employee.Username))
		}
		redirect(c, "/admin-dashboard")
	})

	requests := r.Group("/requests", RequirePermission(access.ResourceAccessRequests, access.ActionReview))
	requests.GET("", func(c *gin.Context) {
		all, err := services(c).Intake.All(c.Request.Context())
		if err != nil {
			AbortWithError(c, fmt.Errorf("%w: %v", ErrDatabaseError, err))
			return
		}
		HTML(c, http.StatusOK, "requests.html.tmpl", gin.H{
			"Requests": all,
		})
	})

	requests.POST("/:request_id/review", func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("request_id"), 10, 64)
		if err != nil {
			AbortWithError(c, fmt.Errorf("%w: request id %q", ErrInvalidParameter, c.Param("request_id")))
			return
		}
		if err := services(c).Intake.MarkReviewed(c.Request.Context(), id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				addFlash(c, FlashError, "Access request not found.")
				redirect(c, "/admin-dashboard/requests")
				return
			}
			AbortWithError(c, fmt.Errorf("%w: %v", ErrDatabaseError, err))
			return
		}
		addFlash(c, FlashSuccess, "Access request marked as reviewed.")
		redirect(c, "/admin-dashboard/requests")
	})

	r.GET("/:user_id", func(c *gin.Context) {
		employee, ok := employeeParam(c)
		if !ok {
			return
		}
		base := "/admin-dashboard/" + strconv.FormatInt(employee.ID, 10)

		window, err := resolveWindow(c, services(c).Config.Timesheet.MaxRangeDays)
		if err != nil {
			addFlash(c, FlashWarning, windowMessage(err))
			redirect(c, base)
			return
		}

		view, err := services(c).Timesheets.WeekView(c.Request.Context(), callerFrom(c), employee.ID, window, today(c))
		if err != nil {
			AbortWithError(c, fmt.Errorf("%w: %v", ErrDatabaseError, err))
			return
		}
		renderTimesheet(c, employee, view, base, true)
	})

	r.POST("/:user_id", func(c *gin.Context) {
		employee, ok := employeeParam(c)
		if !ok {
			return
		}
		base := "/admin-dashboard/" + strconv.FormatInt(employee.ID, 10)

		window, err := resolveWindow(c, services(c).Config.Timesheet.MaxRangeDays)
		if err != nil {
			addFlash(c, FlashWarning, windowMessage(err))
			redirect(c, base)
			return
		}
		saveWeek(c, employee, window, base+window.Query())
	})

	r.GET("/:user_id/export", func(c *gin.Context) {
		employee, ok := employeeParam(c)
		if !ok {
			return
		}
		exportTimesheet(c, employee)
	})
}
