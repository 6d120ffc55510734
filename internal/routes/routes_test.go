package routes

import (
	"context"
	"encoding/json"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/multitemplate"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"employee-timesheet/internal/access"
	"employee-timesheet/internal/config"
	"employee-timesheet/internal/nonce"
	"employee-timesheet/internal/storage"
	"employee-timesheet/internal/timesheet"
	"employee-timesheet/web"
)

const testPassword = "correct horse battery"

// Wednesday; the default week is 2024-03-11 .. 2024-03-17.
var testNow = time.Date(2024, time.March, 13, 12, 0, 0, 0, time.UTC)

type testApp struct {
	engine   *gin.Engine
	store    storage.Provider
	services *Services
}

func testRenderer(t *testing.T) multitemplate.Render {
	t.Helper()
	renderer := multitemplate.New()
	pages, err := fs.Glob(web.Templates, "templates/*.html.tmpl")
	require.NoError(t, err)
	for _, page := range pages {
		name := path.Base(page)
		tmpl, err := template.New(name).Funcs(TemplateFuncs()).ParseFS(web.Templates, "templates/layouts/base.html.tmpl", page)
		require.NoError(t, err, name)
		renderer.Add(name, tmpl)
	}
	return renderer
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	prevCfg, prevStore := config.Cfg, nonce.Store
	cfg := &config.Config{
		Secret:          "test-secret",
		TokenExpirySkew: 1,
		UserAuthTTL:     1,
		BaseURL:         "/",
		Timesheet: config.TimesheetConfig{
			DefaultTargetHours: "8.00",
			MaxRangeDays:       365,
			Timezone:           "UTC",
		},
		Export: config.ExportConfig{Encoding: "utf-8"},
	}
	config.Cfg = cfg
	nonces := nonce.NewMemoryStore()
	nonce.Store = nonces
	t.Cleanup(func() {
		nonces.Close()
		config.Cfg, nonce.Store = prevCfg, prevStore
	})

	store, err := storage.NewProvider(ctx, &config.Storage{SQLite: &config.SQLLiteStorage{Path: ":memory:"}})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	rbac := access.NewRBAC()
	require.NoError(t, rbac.LoadPolicy(""))

	intake, err := access.NewRequestIntake(store, nil, nil)
	require.NoError(t, err)

	services := &Services{
		Config:     cfg,
		Storage:    store,
		RBAC:       rbac,
		Timesheets: timesheet.NewService(store, timesheet.Settings{DefaultTargetHours: cfg.Timesheet.TargetHours()}),
		Intake:     intake,
		Now:        func() time.Time { return testNow },
	}

	engine := gin.New()
	engine.HTMLRender = testRenderer(t)
	Register(engine.Group("", Inject(services), Sessions(cfg.Secret), ErrorHandler(), AuthMiddleware()))

	return &testApp{engine: engine, store: store, services: services}
}

func (a *testApp) createUser(t *testing.T, username string, admin bool) *storage.User {
	t.Helper()
	hash, err := access.HashPassword(testPassword)
	require.NoError(t, err)
	u := &storage.User{
		Username:     username,
		Email:        username + "@example.com",
		FirstName:    strings.ToUpper(username[:1]) + username[1:],
		PasswordHash: hash,
		IsAdmin:      admin,
		IsActive:     true,
	}
	require.NoError(t, a.store.CreateUser(context.Background(), u))
	return u
}

func (a *testApp) seed(t *testing.T, owner *storage.User, date, hours string) {
	t.Helper()
	d, err := timesheet.ParseDate(date)
	require.NoError(t, err)
	require.NoError(t, a.store.UpsertHours(context.Background(), owner.ID, d, decimal.RequireFromString(hours), decimal.NewFromInt(8)))
}

func (a *testApp) entries(t *testing.T, owner *storage.User) []timesheet.Entry {
	t.Helper()
	entries, err := a.store.ListAllEntries(context.Background(), owner.ID)
	require.NoError(t, err)
	return entries
}

// client keeps cookies between requests like a browser would.
type client struct {
	t       *testing.T
	app     *testApp
	cookies map[string]*http.Cookie
}

func (a *testApp) client(t *testing.T) *client {
	return &client{t: t, app: a, cookies: make(map[string]*http.Cookie)}
}

func (cl *client) do(method, target string, form url.Values, headers ...string) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	for _, c := range cl.cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}

	rec := httptest.NewRecorder()
	cl.app.engine.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(cl.cookies, c.Name)
		} else {
			cl.cookies[c.Name] = c
		}
	}
	return rec
}

func (cl *client) get(target string, headers ...string) *httptest.ResponseRecorder {
	return cl.do(http.MethodGet, target, nil, headers...)
}

func (cl *client) post(target string, form url.Values, headers ...string) *httptest.ResponseRecorder {
	return cl.do(http.MethodPost, target, form, headers...)
}

func (cl *client) login(username string) {
	cl.t.Helper()
	rec := cl.post("/login", url.Values{"username": {username}, "password": {testPassword}})
	require.Equal(cl.t, http.StatusSeeOther, rec.Code, rec.Body.String())
	require.Contains(cl.t, cl.cookies, AUTH_COOKIE_NAME)
}

func userPath(u *storage.User, suffix string) string {
	return "/admin-dashboard/" + strconv.FormatInt(u.ID, 10) + suffix
}

func TestLogin_RedirectsByRole(t *testing.T) {
	a := newTestApp(t)
	a.createUser(t, "alice", false)
	a.createUser(t, "root", true)

	cl := a.client(t)
	rec := cl.post("/login", url.Values{"username": {"alice"}, "password": {testPassword}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	cl = a.client(t)
	rec = cl.post("/login", url.Values{"username": {"root"}, "password": {testPassword}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin-dashboard", rec.Header().Get("Location"))

	// Signed in users skip the form.
	rec = cl.get("/login")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin-dashboard", rec.Header().Get("Location"))
}

func TestLogin_Rejected(t *testing.T) {
	a := newTestApp(t)
	alice := a.createUser(t, "alice", false)

	cl := a.client(t)
	rec := cl.post("/login", url.Values{"username": {"alice"}, "password": {"wrong password"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid username or password")
	assert.NotContains(t, cl.cookies, AUTH_COOKIE_NAME)

	rec = cl.post("/login", url.Values{"username": {"nobody"}, "password": {testPassword}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	require.NoError(t, a.store.SetActive(context.Background(), alice.ID, false))
	rec = cl.post("/login", url.Values{"username": {"alice"}, "password": {testPassword}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_NextOnlyLocal(t *testing.T) {
	a := newTestApp(t)
	a.createUser(t, "alice", false)

	cl := a.client(t)
	rec := cl.post("/login", url.Values{"username": {"alice"}, "password": {testPassword}, "next": {"/dashboard/entry?date=2024-03-12"}})
	assert.Equal(t, "/dashboard/entry?date=2024-03-12", rec.Header().Get("Location"))

	cl = a.client(t)
	rec = cl.post("/login", url.Values{"username": {"alice"}, "password": {testPassword}, "next": {"//evil.example.com/"}})
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestRequireAuth_RedirectsToLogin(t *testing.T) {
	a := newTestApp(t)
	cl := a.client(t)

	rec := cl.get("/dashboard")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?next=%2Fdashboard", rec.Header().Get("Location"))

	rec = cl.get("/dashboard", "Accept", "application/json")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_RevokesSession(t *testing.T) {
	a := newTestApp(t)
	a.createUser(t, "alice", false)
	cl := a.client(t)
	cl.login("alice")
	token := cl.cookies[AUTH_COOKIE_NAME].Value

	rec := cl.post("/logout", url.Values{})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.NotContains(t, cl.cookies, AUTH_COOKIE_NAME)

	// Replaying the old token no longer works.
	cl.cookies[AUTH_COOKIE_NAME] = &http.Cookie{Name: AUTH_COOKIE_NAME, Value: token}
	rec = cl.get("/dashboard")
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestDashboard_ShowsCurrentWeek(t *testing.T) {
	a := newTestApp(t)
	alice := a.createUser(t, "alice", false)
	a.seed(t, alice, "2024-03-12", "7.5")
	a.seed(t, alice, "2024-03-04", "6") // previous week

	cl := a.client(t)
	cl.login("alice")
	rec := cl.get("/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `name="hours_2024-03-11"`)
	assert.Contains(t, body, `name="hours_2024-03-17"`)
	assert.NotContains(t, body, `name="hours_2024-03-04"`)
	assert.Contains(t, body, `value="7.50"`)
	assert.Contains(t, body, `<th id="total-hours">7.50</th>`)
}

func TestDashboard_Filter(t *testing.T) {
	a := newTestApp(t)
	alice := a.createUser(t, "alice", false)
	a.seed(t, alice, "2024-03-04", "6")
	a.seed(t, alice, "2024-03-12", "7.5")

	cl := a.client(t)
	cl.login("alice")
	rec := cl.get("/dashboard?start_date=2024-03-04&end_date=2024-03-12")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `name="hours_2024-03-04"`)
	assert.NotContains(t, body, `name="hours_2024-03-13"`)
	assert.Contains(t, body, `<th id="total-hours">13.50</th>`)
}

func TestDashboard_InvalidRangeFlashes(t *testing.T) {
	a := newTestApp(t)
	a.createUser(t, "alice", false)
	cl := a.client(t)
	cl.login("alice")

	rec := cl.get("/dashboard?start_date=2024-03-20&end_date=2024-03-10")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	rec = cl.get("/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Start date cannot be after end date.")

	// Shown once.
	rec = cl.get("/dashboard")
	assert.NotContains(t, rec.Body.String(), "Start date cannot be after end date.")

	cl.get("/dashboard?start_date=2024-13-01&end_date=2024-03-10")
	rec = cl.get("/dashboard")
	assert.Contains(t, rec.Body.String(), "Invalid date format.")
}

func TestDashboard_UnboundedRangeIsCapped(t *testing.T) {
	a := newTestApp(t)
	alice := a.createUser(t, "alice", false)
	cl := a.client(t)
	cl.login("alice")

	target := "/dashboard?start_date=1000-01-01&end_date=9999-12-31"
	rec := cl.get(target)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	assert.Contains(t, cl.get("/dashboard").Body.String(), "Please choose a range shorter than 3660 days.")

	rec = cl.post(target, url.Values{"hours_1000-01-01": {"8"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, a.entries(t, alice))
}

func TestDashboard_SaveXHR(t *testing.T) {
	a := newTestApp(t)
	alice := a.createUser(t, "alice", false)
	a.seed(t, alice, "2024-03-11", "2")

	cl := a.client(t)
	cl.login("alice")
	rec := cl.post("/dashboard", url.Values{
		"hours_2024-03-11": {"8"},
		"hours_2024-03-12": {"7.5"},
		"hours_2024-03-13": {""},
		"hours_2024-03-20": {"5"}, // outside the week
	}, "X-Requested-With", "XMLHttpRequest")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Changed int    `json:"changed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Saved 2 entries successfully!", resp.Message)
	assert.Equal(t, 2, resp.Changed)

	entries := a.entries(t, alice)
	require.Len(t, entries, 2)
	assert.Equal(t, "8.00", entries[0].ProductiveHours.StringFixed(2))
	assert.Equal(t, "7.50", entries[1].ProductiveHours.StringFixed(2))
}

func TestDashboard_SaveFormSkipsInvalid(t *testing.T) {
	a := newTestApp(t)
	alice := a.createUser(t, "alice", false)

	cl := a.client(t)
	cl.login("alice")
	rec := cl.post("/dashboard", url.Values{
		"hours_2024-03-11": {"8"},
		"hours_2024-03-12": {"lots"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	assert.Len(t, a.entries(t, alice), 1)

	body := cl.get("/dashboard").Body.String()
	assert.Contains(t, body, "Saved 1 entries successfully!")
	assert.Contains(t, body, "Skipped invalid hours for 2024-03-12.")
}

func TestDashboard_SaveKeepsFilter(t *testing.T) {
	a := newTestApp(t)
	alice := a.createUser(t, "alice", false)

	cl := a.client(t)
	cl.login("alice")
	rec := cl.post("/dashboard?start_date=2024-02-26&end_date=2024-03-03", url.Values{"hours_2024-02-29": {"4"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard?start_date=2024-02-26&end_date=2024-03-03", rec.Header().Get("Location"))

	entries := a.entries(t, alice)
	require.Len(t, entries, 1)
	assert.Equal(t, "Thursday", entries[0].DayOfWeek())
}

func TestDashboard_EntryForm(t *testing.T) {
	a := newTestApp(t)
	alice := a.createUser(t, "alice", false)
	cl := a.client(t)
	cl.login("alice")

	rec := cl.get("/dashboard/entry?date=2024-03-12")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="2024-03-12"`)

	rec = cl.post("/dashboard/entry", url.Values{
		"date":        {"2024-03-12"},
		"start_time":  {"09:00"},
		"finish_time": {"17:30"},
		"comment":     {"Release day"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard?start_date=2024-03-11&end_date=2024-03-17", rec.Header().Get("Location"))

	entries := a.entries(t, alice)
	require.Len(t, entries, 1)
	assert.Equal(t, "8.50", entries[0].ProductiveHours.StringFixed(2))
	assert.Equal(t, "Release day", entries[0].Comment)
	require.NotNil(t, entries[0].StartTime)
	assert.Equal(t, "09:00", entries[0].StartTime.String())

	rec = cl.get("/dashboard/entry?date=2024-03-12")
	assert.Contains(t, rec.Body.String(), "Release day")

	rec = cl.post("/dashboard/entry", url.Values{
		"date":        {"2024-03-12"},
		"start_time":  {"17:00"},
		"finish_time": {"09:00"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Finish time must be after start time")
}

func TestExport_CSV(t *testing.T) {
	a := newTestApp(t)
	alice := a.createUser(t, "alice", false)
	a.seed(t, alice, "2024-03-12", "7.5")
	a.seed(t, alice, "2024-03-11", "8")
	a.seed(t, alice, "2024-03-20", "3")

	cl := a.client(t)
	cl.login("alice")
	rec := cl.get("/dashboard/export?start_date=2024-03-11&end_date=2024-03-17")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "alice_timesheet_2024-03-11_to_2024-03-17.csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Date,Day,Productive Hours,Target Hours,Comment", lines[0])
	assert.Equal(t, "2024-03-11,Monday,8.00,8.00,", lines[1])
	assert.Equal(t, "2024-03-12,Tuesday,7.50,8.00,", lines[2])

	// Without a range everything is exported.
	rec = cl.get("/dashboard/export")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "alice_timesheet_all.csv")
	assert.Len(t, strings.Split(strings.TrimSpace(rec.Body.String()), "\n"), 4)
}

func TestExport_XLSXAndErrors(t *testing.T) {
	a := newTestApp(t)
	alice := a.createUser(t, "alice", false)
	a.seed(t, alice, "2024-03-12", "7.5")

	cl := a.client(t)
	cl.login("alice")
	rec := cl.get("/dashboard/export?format=xlsx")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contentTypeXLSX, rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"), "xlsx is a zip archive")

	rec = cl.get("/dashboard/export?format=pdf")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = cl.get("/dashboard/export?start_date=2024-03-20&end_date=2024-03-10")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Start date cannot be after end date.")

	rec = cl.get("/dashboard/export?start_date=yesterday&end_date=2024-03-10", "Accept", "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid date format.")
}

func TestAdmin_EmployeeForbidden(t *testing.T) {
	a := newTestApp(t)
	alice := a.createUser(t, "alice", false)
	cl := a.client(t)
	cl.login("alice")

	for _, target := range []string{"/admin-dashboard", userPath(alice, ""), userPath(alice, "/export"), "/admin-dashboard/requests"} {
		rec := cl.get(target)
		assert.Equal(t, http.StatusForbidden, rec.Code, target)
	}
}

func TestAdmin_ListAndView(t *testing.T) {
	a := newTestApp(t)
	alice := a.createUser(t, "alice", false)
	a.createUser(t, "root", true)
	a.seed(t, alice, "2024-03-13", "6.25")

	cl := a.client(t)
	cl.login("root")

	rec := cl.get("/admin-dashboard")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), userPath(alice, ""))

	rec = cl.get(userPath(alice, ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Timesheet of Alice")
	assert.Contains(t, rec.Body.String(), `value="6.25"`)

	rec = cl.get("/admin-dashboard/9999")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = cl.get("/admin-dashboard/abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdmin_RangeLimit(t *testing.T) {
	a := newTestApp(t)
	alice := a.createUser(t, "alice", false)
	a.createUser(t, "root", true)

	cl := a.client(t)
	cl.login("root")
	rec := cl.get(userPath(alice, "?start_date=2023-01-01&end_date=2024-03-01"))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, userPath(alice, ""), rec.Header().Get("Location"))

	rec = cl.get(userPath(alice, ""))
	assert.Contains(t, rec.Body.String(), "Please choose a range shorter than 365 days.")

	rec = cl.get(userPath(alice, "?start_date=2023-03-01&end_date=2024-02-29"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdmin_SaveAndExport(t *testing.T) {
	a := newTestApp(t)
	alice := a.createUser(t, "alice", false)
	a.createUser(t, "root", true)

	cl := a.client(t)
	cl.login("root")
	rec := cl.post(userPath(alice, ""), url.Values{"hours_2024-03-14": {"5.25"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, userPath(alice, ""), rec.Header().Get("Location"))

	entries := a.entries(t, alice)
	require.Len(t, entries, 1)
	assert.Equal(t, "5.25", entries[0].ProductiveHours.StringFixed(2))

	rec = cl.get(userPath(alice, "/export"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "2024-03-14,Thursday,5.25,8.00,")
}

func TestAdmin_SaveLargeInvalidWindowReportsSkipped(t *testing.T) {
	a := newTestApp(t)
	alice := a.createUser(t, "alice", false)
	a.createUser(t, "root", true)

	cl := a.client(t)
	cl.login("root")

	window, err := timesheet.NewWindow(timesheet.DateOf(time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC)),
		timesheet.DateOf(time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)), 365)
	require.NoError(t, err)
	form := url.Values{}
	for _, day := range window.Days() {
		form.Set("hours_"+day.Format(timesheet.DateLayout), "not a number")
	}
	require.Len(t, form, 366)

	target := userPath(alice, window.Query())
	rec := cl.post(target, form)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, target, rec.Header().Get("Location"))
	require.Contains(t, cl.cookies, SESSION_COOKIE_NAME)
	assert.Less(t, len(cl.cookies[SESSION_COOKIE_NAME].Value), 4096)
	assert.Empty(t, a.entries(t, alice))

	body := cl.get(target).Body.String()
	assert.Contains(t, body, "Saved 0 entries successfully!")
	assert.Contains(t, body, "Skipped invalid hours for 366 dates: 2023-03-01, 2023-03-02, 2023-03-03, 2023-03-04, 2023-03-05 and 361 more.")
}

func TestFlash_TamperedSessionIgnored(t *testing.T) {
	a := newTestApp(t)
	cl := a.client(t)
	cl.cookies[SESSION_COOKIE_NAME] = &http.Cookie{Name: SESSION_COOKIE_NAME, Value: "forged"}

	rec := cl.get("/login")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdmin_DeleteTimesheet(t *testing.T) {
	a := newTestApp(t)
	alice := a.createUser(t, "alice", false)
	a.createUser(t, "root", true)
	a.seed(t, alice, "2024-03-11", "8")
	a.seed(t, alice, "2024-03-12", "8")

	cl := a.client(t)
	cl.login("root")

	rec := cl.get("/admin-dashboard/delete-timesheet")
	require.Equal(t, http.StatusOK, rec.Code)

	target := strconv.FormatInt(alice.ID, 10)
	rec = cl.post("/admin-dashboard/delete-timesheet", url.Values{"user_id": {target}, "password": {"nope"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin-dashboard/delete-timesheet", rec.Header().Get("Location"))
	assert.Len(t, a.entries(t, alice), 2)
	assert.Contains(t, cl.get("/admin-dashboard/delete-timesheet").Body.String(), "Incorrect admin password.")

	rec = cl.post("/admin-dashboard/delete-timesheet", url.Values{"user_id": {target}, "password": {testPassword}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin-dashboard", rec.Header().Get("Location"))
	assert.Empty(t, a.entries(t, alice))
	assert.Contains(t, cl.get("/admin-dashboard").Body.String(), "Deleted 2 timesheet entries for alice.")

	cl.post("/admin-dashboard/delete-timesheet", url.Values{"user_id": {target}, "password": {testPassword}})
	assert.Contains(t, cl.get("/admin-dashboard").Body.String(), "No timesheet entries found for alice.")
}

func TestRequestAccess(t *testing.T) {
	a := newTestApp(t)
	cl := a.client(t)

	rec := cl.get("/request-access")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/request-access/qr.png")

	form := url.Values{"name": {"Dana"}, "email": {"dana@example.com"}, "message": {"New in accounting"}}
	rec = cl.post("/request-access", form)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Contains(t, cl.get("/login").Body.String(), "Your request has been submitted!")

	form.Set("email", "DANA@example.com")
	rec = cl.post("/request-access", form)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "already submitted a request")

	pending, err := a.store.ListAccessRequests(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	rec = cl.post("/request-access", url.Values{"name": {"Eve"}, "email": {"not-an-email"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please enter a valid email address.")
}

func TestRequestAccess_QRCode(t *testing.T) {
	a := newTestApp(t)
	rec := a.client(t).get("/request-access/qr.png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\x89PNG"))
}

func TestAdmin_ReviewRequests(t *testing.T) {
	a := newTestApp(t)
	a.createUser(t, "root", true)
	req, err := a.services.Intake.Submit(context.Background(), "Dana", "dana@example.com", "")
	require.NoError(t, err)

	cl := a.client(t)
	cl.login("root")
	rec := cl.get("/admin-dashboard")
	assert.Contains(t, rec.Body.String(), "1 pending access request(s)")

	rec = cl.get("/admin-dashboard/requests")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dana@example.com")

	rec = cl.post("/admin-dashboard/requests/"+strconv.FormatInt(req.ID, 10)+"/review", url.Values{})
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	pending, err := a.store.ListAccessRequests(context.Background(), true)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPolicyAdmin(t *testing.T) {
	a := newTestApp(t)
	a.createUser(t, "carol", false)
	a.services.RBAC.AssignRole("carol", access.RoleAdmin)

	cl := a.client(t)
	rec := cl.post("/login", url.Values{"username": {"carol"}, "password": {testPassword}})
	assert.Equal(t, "/admin-dashboard", rec.Header().Get("Location"))
	assert.Equal(t, http.StatusOK, cl.get("/admin-dashboard").Code)
}

func TestHealth(t *testing.T) {
	a := newTestApp(t)
	rec := a.client(t).get("/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pong", resp["message"])
	assert.EqualValues(t, 2, resp["schema_version"])
}

func TestHome_Redirects(t *testing.T) {
	a := newTestApp(t)
	a.createUser(t, "alice", false)
	cl := a.client(t)

	assert.Equal(t, "/login", cl.get("/").Header().Get("Location"))
	cl.login("alice")
	assert.Equal(t, "/dashboard", cl.get("/").Header().Get("Location"))
}
