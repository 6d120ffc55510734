package app

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/gin-contrib/multitemplate"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"employee-timesheet/internal/routes"
	"employee-timesheet/web"
)

const layoutTemplate = "templates/layouts/base.html.tmpl"

func securityHeaders(c *gin.Context) {
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("X-Frame-Options", "DENY")
	c.Header("Referrer-Policy", "same-origin")
	c.Header("Content-Security-Policy", "default-src 'self'; img-src 'self' data:; frame-ancestors 'none'")

	// Disable caching
	c.Header("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Next()
}

// Middleware to check if the IP is allowed.
func IPAccessControl(allowedCIDRs []string) gin.HandlerFunc {
	// Parse allowed CIDRs
	var parsedCIDRs []*net.IPNet

	// Allow local networks in debug mode
	if gin.Mode() != gin.ReleaseMode {
		localhostCIDRs := []string{"127.0.0.1/8", "::1/128"}
		allowedCIDRs = append(allowedCIDRs, localhostCIDRs...)
	}

	for _, cidr := range allowedCIDRs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			slog.Warn("Invalid CIDR", "cidr", cidr)
			continue
		}
		slog.Debug("Allowed CIDR", "cidr", cidr)
		parsedCIDRs = append(parsedCIDRs, network)
	}

	return func(c *gin.Context) {
		clientIP := net.ParseIP(c.ClientIP())
		if clientIP == nil {
			// Should not happen
			slog.Warn("Invalid client IP", "ip", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}

		for _, cidr := range parsedCIDRs {
			if cidr.Contains(clientIP) {
				c.Next()
				return
			}
		}
		slog.Warn("IP not allowed", "ip", clientIP)
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	}
}

// requestID tags every request with an ID, reusing a sane incoming X-Request-ID.
func requestID(c *gin.Context) {
	id := c.GetHeader("X-Request-ID")
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	c.Set("RequestID", id)
	c.Header("X-Request-ID", id)
	c.Next()
}

// requestLogger writes one structured line per request.
func requestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()

	status := c.Writer.Status()
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	slog.Log(c.Request.Context(), level, "HTTP request",
		"component", "http",
		"request_id", c.GetString("RequestID"),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", status,
		"latency", time.Since(start),
		"ip", c.ClientIP(),
	)
}

// NewRenderer parses every page template together with the shared layout.
func NewRenderer() (multitemplate.Render, error) {
	renderer := multitemplate.New()

	pages, err := fs.Glob(web.Templates, "templates/*.html.tmpl")
	if err != nil {
		return nil, err
	}
	for _, page := range pages {
		name := path.Base(page)
		tmpl, err := template.New(name).Funcs(routes.TemplateFuncs()).ParseFS(web.Templates, layoutTemplate, page)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		renderer.Add(name, tmpl)
	}
	return renderer, nil
}

// basePath is the path component of the configured base URL, without a trailing slash.
func basePath(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		slog.Warn("Invalid base URL, serving from /", "base_url", baseURL, "error", err)
		return ""
	}
	return strings.TrimSuffix(u.Path, "/")
}

// HTTPServer builds the gin engine serving every page of the application.
func HTTPServer(services *routes.Services) (*gin.Engine, error) {
	cfg := services.Config

	r := gin.New()
	r.Use(gin.Recovery(), requestID, requestLogger)

	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	r.HTMLRender = renderer

	if cfg.AllowedNetworks != "" {
		slog.Debug("Enabling IP access control", "allowed_networks", cfg.AllowedNetworks)
		var allowedCIDRs []string

		for cidr := range strings.SplitSeq(cfg.AllowedNetworks, ",") {
			// Remove spaces and ignore empty sets
			if cidr := strings.TrimSpace(cidr); cidr != "" {
				allowedCIDRs = append(allowedCIDRs, cidr)
			}
		}

		r.Use(IPAccessControl(allowedCIDRs))
	}
	r.Use(securityHeaders)

	root := r.Group(basePath(cfg.BaseURL))

	static, err := fs.Sub(web.Static, "static")
	if err != nil {
		return nil, err
	}
	root.StaticFS("/static", http.FS(static))

	sessions := routes.Sessions(cfg.Secret)
	app := root.Group("", routes.Inject(services), sessions, routes.ErrorHandler(), routes.AuthMiddleware())
	routes.Register(app)

	r.NoRoute(routes.Inject(services), sessions, routes.ErrorHandler(), func(c *gin.Context) {
		routes.AbortWithHTTPError(c, http.StatusNotFound, nil, "Page not found")
	})

	return r, nil
}

// Serve runs srv until it fails or stop is closed, then shuts it down gracefully.
func Serve(srv *http.Server, stop <-chan os.Signal, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		slog.Info("Shutting down HTTP server", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
