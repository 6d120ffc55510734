package routes

import (
	"crypto/sha256"
	"encoding/gob"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

const SESSION_COOKIE_NAME = "timesheet_session"

// Flash levels, used as CSS classes by the templates.
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashWarning = "warning"
	FlashError   = "error"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Level   string
	Message string
}

func init() {
	gob.Register(Flash{})
}

// Sessions keeps flash messages in a cookie signed with a key derived from secret.
func Sessions(secret string) gin.HandlerFunc {
	key := sha256.Sum256([]byte("session:" + secret))
	store := cookie.NewStore(key[:])
	return sessions.Sessions(SESSION_COOKIE_NAME, store)
}

func saveSession(c *gin.Context, s sessions.Session) {
	s.Options(sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   secureRequest(c),
		SameSite: http.SameSiteLaxMode,
	})
	if err := s.Save(); err != nil {
		slog.Error("Failed to save session", "error", err)
	}
}

// addFlash queues a message for the next rendered page.
func addFlash(c *gin.Context, level, message string) {
	s := sessions.Default(c)
	s.AddFlash(Flash{Level: level, Message: message})
	saveSession(c, s)
}

// popFlashes returns and clears every queued message, including the ones
// added earlier in this request.
func popFlashes(c *gin.Context) []Flash {
	s := sessions.Default(c)
	queued := s.Flashes()
	if len(queued) == 0 {
		return nil
	}
	flashes := make([]Flash, 0, len(queued))
	for _, v := range queued {
		if f, ok := v.(Flash); ok {
			flashes = append(flashes, f)
		}
	}
	saveSession(c, s)
	return flashes
}
