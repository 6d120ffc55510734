package routes

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

// can reports whether the signed-in user may perform action on resource.
// The stored admin flag grants everything.
func can(c *gin.Context, resource, action string) bool {
	user := currentUser(c)
	if user == nil {
		return false
	}
	if user.IsAdmin {
		return true
	}
	return services(c).RBAC.Can(user.Username, resource, action)
}

// RequirePermission creates middleware that checks for specific permission.
func RequirePermission(resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		if !can(c, resource, action) {
			slog.Warn("Permission denied",
				"userID", user.ID,
				"username", user.Username,
				"resource", resource,
				"action", action)
			AbortWithError(c, ErrInsufficientPermissions)
			return
		}

		slog.Debug("Permission granted",
			"userID", user.ID,
			"resource", resource,
			"action", action)

		c.Next()
	}
}
