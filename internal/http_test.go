package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"employee-timesheet/internal/access"
	"employee-timesheet/internal/config"
	"employee-timesheet/internal/routes"
	"employee-timesheet/internal/storage"
	"employee-timesheet/internal/timesheet"
)

func TestBasePath(t *testing.T) {
	cases := map[string]string{
		"/":                                  "",
		"":                                   "",
		"/timesheet/":                        "/timesheet",
		"/timesheet":                         "/timesheet",
		"https://hr.example.com/timesheet/":  "/timesheet",
		"https://hr.example.com":             "",
		"http://[::1]:namedport/broken-url/": "",
	}
	for in, want := range cases {
		assert.Equal(t, want, basePath(in), in)
	}
}

func TestNewRenderer_ParsesEveryPage(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	for _, name := range []string{
		"login.html.tmpl",
		"timesheet.html.tmpl",
		"entry_form.html.tmpl",
		"admin_users.html.tmpl",
		"delete_timesheet.html.tmpl",
		"requests.html.tmpl",
		"register.html.tmpl",
		"error.html.tmpl",
	} {
		assert.Contains(t, renderer, name)
	}
	assert.NotContains(t, renderer, "base.html.tmpl")
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(requestID, securityHeaders)
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("RequestID")) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := rec.Header().Get("X-Request-ID")
	_, err := uuid.Parse(generated)
	require.NoError(t, err)
	assert.Equal(t, generated, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", incoming)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, incoming, rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "<script>")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.NotEqual(t, "<script>", rec.Header().Get("X-Request-ID"))
}

func TestIPAccessControl(t *testing.T) {
	gin.SetMode(gin.ReleaseMode)
	t.Cleanup(func() { gin.SetMode(gin.TestMode) })

	r := gin.New()
	r.Use(IPAccessControl([]string{"10.0.0.0/8", "not-a-cidr"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for addr, want := range map[string]int{
		"10.1.2.3:5555":    http.StatusNoContent,
		"192.168.1.1:5555": http.StatusForbidden,
		"127.0.0.1:5555":   http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, addr)
	}
}

func TestHTTPServer_BasePath(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	cfg := &config.Config{
		Secret:          "test-secret",
		TokenExpirySkew: 1,
		UserAuthTTL:     1,
		BaseURL:         "/timesheet/",
		Timesheet:       config.TimesheetConfig{DefaultTargetHours: "8.00", Timezone: "UTC"},
	}
	prev := config.Cfg
	config.Cfg = cfg
	t.Cleanup(func() { config.Cfg = prev })

	store, err := storage.NewProvider(ctx, &config.Storage{SQLite: &config.SQLLiteStorage{Path: ":memory:"}})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	rbac := access.NewRBAC()
	require.NoError(t, rbac.LoadPolicy(""))
	intake, err := access.NewRequestIntake(store, nil, nil)
	require.NoError(t, err)

	srv, err := HTTPServer(&routes.Services{
		Config:     cfg,
		Storage:    store,
		RBAC:       rbac,
		Timesheets: timesheet.NewService(store, timesheet.Settings{}),
		Intake:     intake,
		Now:        time.Now,
	})
	require.NoError(t, err)

	get := func(target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		return rec
	}

	rec := get("/timesheet/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = get("/timesheet/static/style.css")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get("/timesheet/dashboard")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/timesheet/login?next=%2Ftimesheet%2Fdashboard", rec.Header().Get("Location"))

	rec = get("/timesheet/login")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `action="/timesheet/login"`))

	rec = get("/health")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
