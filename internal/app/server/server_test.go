package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emsys/internal/auth"
	"emsys/internal/domain/users"
	"emsys/internal/platform/chat"
	"emsys/internal/platform/config"
	"emsys/internal/platform/db"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Addr:                   ":0",
		Environment:            "test",
		FrontendDir:            t.TempDir(),
		PublicBaseURL:          "https://hr.example.com",
		CORSAllowedOrigins:     "https://hr.example.com",
		StorageDriver:          config.StorageDriverSQLite,
		SQLitePath:             filepath.Join(t.TempDir(), "emsys.db"),
		RunMigrations:          true,
		JWTSecret:              "journey-secret",
		SessionTTL:             30 * time.Minute,
		SessionCookieName:      "access_token_cookie",
		SSOSecret:              "journey-sso",
		SSOTokenTTL:            15 * time.Minute,
		ReplayBackend:          config.ReplayBackendStore,
		ReplayPurgeInterval:    time.Minute,
		ApprovalValidity:       30 * time.Minute,
		ApprovalGraceOverwrite: true,
		ScheduleLockLeadDays:   3,
		ScheduleLockTime:       "18:00",
		ScheduleWeeksAhead:     1,
		ScheduleTimezone:       "UTC",
		ChatOutgoingToken:      "outgoing",
		MaxBodyBytes:           1 << 20,
		RateLimitPerMinute:     120,
		MetricsEnabled:         true,
	}
}

func newApp(t *testing.T) *App {
	t.Helper()
	cfg := testConfig(t)
	app, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(app.Close)

	handle, err := db.OpenSQLite(context.Background(), cfg.SQLitePath)
	require.NoError(t, err)
	defer handle.Close()
	_, err = users.NewSQLiteStore(handle).Insert(context.Background(), users.User{
		UserCode: "E001", Username: "alice", Nickname: "Alice", RoleLevel: auth.RoleMember, Status: users.StatusActive,
	})
	require.NoError(t, err)
	return app
}

func serve(app *App, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.StorageDriver = "mysql"
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestHealthAndMetrics(t *testing.T) {
	app := newApp(t)

	rec := serve(app, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = serve(app, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(app, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "counters")
}

func TestLoginAndSubmitJourney(t *testing.T) {
	app := newApp(t)

	form := url.Values{"token": {"outgoing"}, "user_id": {"7"}, "username": {"alice"}, "text": {"/login"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := serve(app, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var reply chat.Reply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	require.Len(t, reply.Buttons, 1)
	link, err := url.Parse(reply.Buttons[0].Action.Value)
	require.NoError(t, err)
	token := link.Query().Get("token")
	require.NotEmpty(t, token)

	rec = serve(app, httptest.NewRequest(http.MethodHead, "/api/v1/sso?token="+url.QueryEscape(token), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	rec = serve(app, httptest.NewRequest(http.MethodGet, "/api/v1/sso?token="+url.QueryEscape(token), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "access_token_cookie" {
			session = c
		}
	}
	require.NotNil(t, session)

	rec = serve(app, httptest.NewRequest(http.MethodGet, "/api/v1/sso?token="+url.QueryEscape(token), nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	body := `{"leaveType":"annual","dates":{"start":"2025-06-10","end":"2025-06-11"},"time":"full","reason":"family trip","submitTime":"2025-06-02T09:00:00Z"}`
	req = httptest.NewRequest(http.MethodPost, "/api/v1/leave", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec = serve(app, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/leave", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(session)
	rec = serve(app, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"synologyChatSent":true`)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/schedules/lock-status/2025-06-10", nil)
	req.AddCookie(session)
	rec = serve(app, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"locked":true`)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/sso/purge", nil)
	req.AddCookie(session)
	rec = serve(app, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSPAFallback(t *testing.T) {
	app := newApp(t)

	rec := serve(app, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "no index.html yet")

	rec = serve(app, httptest.NewRequest(http.MethodPost, "/dashboard", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
