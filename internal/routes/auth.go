// Session handling. A signed-in user carries a JWT in an HttpOnly cookie; the
// token ID is a nonce, so logging out or renewing revokes the old token.
package routes

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"employee-timesheet/internal/access"
	"employee-timesheet/internal/jwt"
	"employee-timesheet/internal/storage"
	"employee-timesheet/internal/timesheet"
)

const AUTH_COOKIE_NAME = "auth_token"

var ErrUserNotFound = errors.New("user not found in context")

// Get authentication TTL
func authTTL(c *gin.Context) time.Duration {
	days := services(c).Config.UserAuthTTL
	if days == 0 {
		days = 1
	}
	return time.Duration(days) * 24 * time.Hour
}

func secureRequest(c *gin.Context) bool {
	return c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https"
}

// Set authentication cookie
// The cookie is set to expire when the token expires
func setAuthCookie(c *gin.Context, token string, ttl time.Duration) {
	c.SetCookie(
		AUTH_COOKIE_NAME,
		token,
		int(ttl.Seconds()),
		"/",
		"",
		secureRequest(c), // Secure
		true,
	)
}

func clearAuthCookie(c *gin.Context) {
	c.SetCookie(AUTH_COOKIE_NAME, "", -1, "/", "", secureRequest(c), true)
}

// GetUser returns the signed-in user of the request.
func GetUser(c *gin.Context) (*storage.User, error) {
	v, exists := c.Get("user")
	if !exists {
		return nil, ErrUserNotFound
	}
	user, ok := v.(*storage.User)
	if !ok || user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func currentUser(c *gin.Context) *storage.User {
	user, _ := GetUser(c)
	return user
}

// isAdmin treats the stored admin flag as superuser and otherwise asks the policy.
func isAdmin(c *gin.Context, user *storage.User) bool {
	return user.IsAdmin || services(c).RBAC.IsAdmin(user.Username)
}

// callerFrom is the identity handed to the timesheet rules.
func callerFrom(c *gin.Context) timesheet.Caller {
	user := currentUser(c)
	if user == nil {
		return timesheet.Caller{}
	}
	return timesheet.Caller{UserID: user.ID, Admin: isAdmin(c, user)}
}

// NewAuth issues a session token for user.
func NewAuth(c *gin.Context, user *storage.User) error {
	ttl := authTTL(c)
	claims, err := jwt.NewAuthClaims(c.Request.Context(), user.ID, user.Username, ttl)
	if err != nil {
		return err
	}
	token, err := jwt.GenerateJWT(claims)
	if err != nil {
		return err
	}
	setAuthCookie(c, token, ttl)
	return nil
}

func verifyAuth(c *gin.Context) (*jwt.AuthClaims, error) {
	token, err := c.Cookie(AUTH_COOKIE_NAME)
	if err != nil {
		return nil, err
	}
	return jwt.DecodeAuthJWT(c.Request.Context(), token)
}

// renewAuth replaces the token once half of its lifetime has passed.
func renewAuth(c *gin.Context, claims *jwt.AuthClaims, user *storage.User) error {
	renewAge := authTTL(c) / 2
	if !claims.MustRenew && time.Until(claims.ExpiresAt.Time) >= renewAge {
		return nil
	}
	slog.Debug("Renewing auth token", "userID", user.ID)

	if err := jwt.Revoke(c.Request.Context(), claims); err != nil {
		slog.Warn("renewAuth: Failed to revoke old token", "userID", user.ID, "error", err)
	}
	return NewAuth(c, user)
}

// AuthLogout revokes the session token and clears the cookie.
func AuthLogout(c *gin.Context) {
	if claims, err := verifyAuth(c); err == nil {
		if err := jwt.Revoke(c.Request.Context(), claims); err != nil {
			slog.Warn("AuthLogout: Failed to revoke token", "error", err)
		}
	}
	clearAuthCookie(c)
}

// AuthMiddleware resolves the session cookie to an active user. Requests
// without a valid session continue anonymously; RequireAuth turns them away.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := verifyAuth(c)
		if err != nil {
			if !errors.Is(err, http.ErrNoCookie) {
				slog.Debug("AuthMiddleware: Invalid auth token", "error", err)
				clearAuthCookie(c)
			}
			c.Next()
			return
		}

		user, err := services(c).Storage.GetUser(c.Request.Context(), claims.UserID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			AbortWithError(c, fmt.Errorf("%w: %v", ErrDatabaseError, err))
			return
		}
		if user == nil || !user.IsActive || user.Username != claims.Username {
			slog.Warn("AuthMiddleware: Token for unknown or inactive user", "userID", claims.UserID, "username", claims.Username)
			_ = jwt.Revoke(c.Request.Context(), claims)
			clearAuthCookie(c)
			c.Next()
			return
		}

		c.Set("user", user)
		c.Set("userID", user.ID)

		if err := renewAuth(c, claims, user); err != nil {
			slog.Error("AuthMiddleware: Failed to renew auth token", "userID", user.ID, "error", err)
		}
		c.Next()
	}
}

func loginUrl(c *gin.Context) string {
	return pathFor(c, "/login") + "?next=" + url.QueryEscape(c.Request.URL.RequestURI())
}

// RequireAuth creates middleware that requires authentication.
// Redirects to login page if not authenticated.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil {
			if isXHR(c) {
				AbortWithError(c, ErrUnauthorized)
				return
			}
			slog.Debug("RequireAuth: No user in context", "path", c.Request.URL.Path)
			c.Redirect(http.StatusFound, loginUrl(c))
			c.Abort()
			return
		}
		c.Next()
	}
}

// safeNext accepts only local absolute paths as post-login destinations.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return ""
	}
	return next
}

// homePath is where a user lands after signing in.
func homePath(c *gin.Context, user *storage.User) string {
	if isAdmin(c, user) {
		return "/admin-dashboard"
	}
	return "/dashboard"
}

func AuthRoutes(r *gin.RouterGroup) {
	r.GET("/login", func(c *gin.Context) {
		if user := currentUser(c); user != nil {
			redirect(c, homePath(c, user))
			return
		}
		HTML(c, http.StatusOK, "login.html.tmpl", gin.H{
			"Next": safeNext(c.Query("next")),
		})
	})

	r.POST("/login", func(c *gin.Context) {
		username := strings.TrimSpace(c.PostForm("username"))
		password := c.PostForm("password")
		next := safeNext(c.PostForm("next"))

		user, err := services(c).Storage.GetUserByUsername(c.Request.Context(), username)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			AbortWithError(c, fmt.Errorf("%w: %v", ErrDatabaseError, err))
			return
		}

		hash := ""
		if user != nil && user.IsActive {
			hash = user.PasswordHash
		}
		if !access.CheckPassword(hash, password) {
			slog.Warn("Failed login attempt", "username", username, "ip", c.ClientIP())
			HTML(c, http.StatusUnauthorized, "login.html.tmpl", gin.H{
				"Error":    GetErrorMessage(ErrInvalidCredentials),
				"Username": username,
				"Next":     next,
			})
			return
		}

		if err := NewAuth(c, user); err != nil {
			AbortWithError(c, fmt.Errorf("%w: %v", ErrInternalServer, err))
			return
		}
		slog.Info("User logged in", "userID", user.ID, "username", user.Username)

		if next != "" {
			c.Redirect(http.StatusSeeOther, next)
			return
		}
		redirect(c, homePath(c, user))
	})

	r.POST("/logout", func(c *gin.Context) {
		if user := currentUser(c); user != nil {
			slog.Info("User logged out", "userID", user.ID)
		}
		AuthLogout(c)
		addFlash(c, FlashInfo, "You have been signed out.")
		redirect(c, "/login")
	})
}
