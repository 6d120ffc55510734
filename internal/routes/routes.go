package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"employee-timesheet/internal/access"
	"employee-timesheet/internal/config"
	"employee-timesheet/internal/storage"
	"employee-timesheet/internal/timesheet"
	"employee-timesheet/internal/utils"
)

// Services are the dependencies shared by every handler.
type Services struct {
	Config     *config.Config
	Storage    storage.Provider
	RBAC       *access.RBAC
	Timesheets *timesheet.Service
	Intake     *access.RequestIntake
	// Now decides what "today" is. Defaults to time.Now.
	Now func() time.Time
}

// Inject stores the services and the base URL in the request context.
func Inject(s *Services) gin.HandlerFunc {
	if s.Now == nil {
		s.Now = time.Now
	}
	baseURL := strings.TrimSuffix(s.Config.BaseURL, "/")
	return func(c *gin.Context) {
		c.Set("Services", s)
		c.Set("BaseURL", baseURL)
		c.SetSameSite(http.SameSiteLaxMode)
		c.Next()
	}
}

func services(c *gin.Context) *Services {
	return c.MustGet("Services").(*Services)
}

// today is the current calendar date in the configured time zone.
func today(c *gin.Context) time.Time {
	s := services(c)
	return timesheet.DateOf(s.Now().In(s.Config.Timesheet.Location()))
}

// pathFor prefixes p with the configured base path.
func pathFor(c *gin.Context, p string) string {
	return c.GetString("BaseURL") + p
}

func redirect(c *gin.Context, p string) {
	c.Redirect(http.StatusSeeOther, pathFor(c, p))
	c.Abort()
}

// Merge into existing gin.H
func H(c *gin.Context, data gin.H) gin.H {
	if data == nil {
		data = gin.H{}
	}
	data["BaseURL"] = c.GetString("BaseURL")
	data["AppVersion"] = utils.GetVersion()
	data["Flashes"] = popFlashes(c)
	if user := currentUser(c); user != nil {
		data["User"] = user
		data["IsAdmin"] = callerFrom(c).Admin
	}
	if s, ok := c.Get("Services"); ok {
		data["SupportURL"] = s.(*Services).Config.SupportURL
	}
	return data
}

// Returns a HTML response with merged data
func HTML(c *gin.Context, code int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data = H(c, data)
	c.HTML(code, name, data)
}

// isXHR reports whether the request came from the page script rather than a
// form submission.
func isXHR(c *gin.Context) bool {
	return c.GetHeader("X-Requested-With") == "XMLHttpRequest" || c.GetHeader("Accept") == "application/json"
}

// Register mounts every page of the application on r.
func Register(r *gin.RouterGroup) {
	Health(r)
	AuthRoutes(r)
	AccessRequestRoutes(r.Group("/request-access"))

	r.GET("/", func(c *gin.Context) {
		switch {
		case currentUser(c) == nil:
			redirect(c, "/login")
		case can(c, access.ResourceTimesheets, access.ActionManage):
			redirect(c, "/admin-dashboard")
		default:
			redirect(c, "/dashboard")
		}
	})

	DashboardRoutes(r.Group("/dashboard", RequireAuth()))
	AdminRoutes(r.Group("/admin-dashboard", RequireAuth(), RequirePermission(access.ResourceTimesheets, access.ActionManage)))
}
