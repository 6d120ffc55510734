package routes

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"employee-timesheet/internal/utils"
)

func Health(r *gin.RouterGroup) {
	r.GET("/health", func(c *gin.Context) {
		msg := c.Query("ping")
		if msg == "" {
			msg = "pong"
		}

		version, err := services(c).Storage.GetSchemaVersion(c.Request.Context())
		if err != nil {
			slog.Error("Health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"message": msg,
				"status":  "unavailable",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":        msg,
			"status":         "ok",
			"version":        utils.GetVersion(),
			"schema_version": version,
		})
	})
}
