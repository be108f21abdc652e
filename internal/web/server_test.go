package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/jobtrack/internal/auth"
	"github.com/JonMunkholm/jobtrack/internal/config"
	"github.com/JonMunkholm/jobtrack/internal/rowstore/memory"
	"github.com/JonMunkholm/jobtrack/internal/sheet"
	"github.com/JonMunkholm/jobtrack/internal/store"
	"github.com/JonMunkholm/jobtrack/internal/tracker"
	"github.com/JonMunkholm/jobtrack/internal/web/middleware"
)

const testPassword = "let-me-in"

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{RequestTimeout: 5 * time.Second},
		Security: config.SecurityConfig{CORSOrigins: []string{"*"}},
	}
}

type testEnv struct {
	t      *testing.T
	server *Server
	token  string
}

type fakeSource struct {
	id string
}

func (f *fakeSource) SpreadsheetID() string { return f.id }

func (f *fakeSource) SetSpreadsheetID(id string) { f.id = id }

func newTestEnv(t *testing.T, cfg *config.Config, st tracker.Store, opts tracker.Options) *testEnv {
	t.Helper()
	if st == nil {
		fs, err := store.NewFileStore(t.TempDir(), nil)
		if err != nil {
			t.Fatalf("NewFileStore() error = %v", err)
		}
		st = fs
	}
	if opts.Backend == "" {
		opts.Backend = config.BackendFile
	}
	pw, err := auth.NewPassword(testPassword, "")
	if err != nil {
		t.Fatalf("NewPassword() error = %v", err)
	}
	tokens := auth.NewJWTManager("test-signing-secret-0123456789abcdef", "jobtrack-test", time.Hour)

	svc := tracker.NewService(st, opts)
	srv := NewServer(svc, tokens, pw, cfg)
	t.Cleanup(func() { srv.Shutdown(t.Context()) })

	token, _, err := tokens.Issue(auth.RoleAdmin)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	return &testEnv{t: t, server: srv, token: token}
}

// do sends an authenticated request. body may be nil, a string or any
// JSON-encodable value.
func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	return e.send(method, path, body, "Bearer "+e.token)
}

func (e *testEnv) send(method, path string, body any, authz string) *httptest.ResponseRecorder {
	e.t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			e.t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, r)
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) middleware.ErrorBody {
	t.Helper()
	return decode[middleware.ErrorEnvelope](t, rec).Error
}

func acme() map[string]any {
	return map[string]any{
		"companyName": "Acme",
		"title":       "Backend Engineer",
		"status":      "To-Do",
		"appliedDate": "2025-01-05",
		"platform":    "LinkedIn",
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil, tracker.Options{})
	rec := env.send(http.MethodGet, "/api/health", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[map[string]string](t, rec)
	if body["status"] != "OK" {
		t.Errorf("status = %q, want OK", body["status"])
	}
	if _, err := time.Parse(time.RFC3339Nano, body["timestamp"]); err != nil {
		t.Errorf("timestamp %q: %v", body["timestamp"], err)
	}
}

func TestLoginAndVerify(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil, tracker.Options{})

	rec := env.send(http.MethodPost, "/api/auth/login", map[string]string{"password": "wrong"}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d, want 401", rec.Code)
	}
	if got := errorBody(t, rec).Message; got != "Invalid password" {
		t.Errorf("message = %q", got)
	}

	rec = env.send(http.MethodPost, "/api/auth/login", map[string]string{"password": testPassword}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body)
	}
	login := decode[loginResponse](t, rec)
	if login.Token == "" || login.ExpiresAt.IsZero() {
		t.Fatalf("login response = %+v", login)
	}

	rec = env.send(http.MethodGet, "/api/auth/verify", nil, "Bearer "+login.Token)
	if rec.Code != http.StatusOK || !decode[map[string]bool](t, rec)["valid"] {
		t.Errorf("verify with token: %d %s", rec.Code, rec.Body)
	}

	rec = env.send(http.MethodGet, "/api/auth/verify", nil, "")
	if rec.Code != http.StatusUnauthorized || decode[map[string]bool](t, rec)["valid"] {
		t.Errorf("verify without token: %d %s", rec.Code, rec.Body)
	}

	rec = env.send(http.MethodGet, "/api/auth/verify", nil, "Bearer forged")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("verify forged token status = %d", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil, tracker.Options{})

	for _, path := range []string{"/api/applications", "/api/stats", "/api/config"} {
		rec := env.send(http.MethodGet, path, nil, "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s without token: status = %d", path, rec.Code)
			continue
		}
		if got := errorBody(t, rec).Message; got != "Authentication required" {
			t.Errorf("%s message = %q", path, got)
		}
	}

	rec := env.send(http.MethodGet, "/api/applications", nil, "Bearer expired.or.bad")
	if got := errorBody(t, rec).Message; got != "Invalid or expired token" {
		t.Errorf("bad token message = %q", got)
	}
}

func TestListEmptyIsArray(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil, tracker.Options{})
	rec := env.do(http.MethodGet, "/api/applications", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestApplicationLifecycle(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil, tracker.Options{})

	rec := env.do(http.MethodPost, "/api/applications", acme())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body)
	}
	created := decode[tracker.Application](t, rec)
	if created.ID == "" || !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("created = %+v", created)
	}
	path := "/api/applications/" + created.ID

	rec = env.do(http.MethodPatch, path+"/fields", map[string]any{"status": "Applied", "appliedDate": "2025-01-10"})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d: %s", rec.Code, rec.Body)
	}

	got := decode[tracker.Application](t, env.do(http.MethodGet, path, nil))
	if got.Status != tracker.StatusApplied || got.AppliedDate != "2025-01-10" || got.CompanyName != "Acme" {
		t.Errorf("after patch = %+v", got)
	}
	if !got.UpdatedAt.After(created.UpdatedAt) {
		t.Errorf("updatedAt did not advance: %v -> %v", created.UpdatedAt, got.UpdatedAt)
	}

	rec = env.do(http.MethodPatch, path+"/status", map[string]string{"status": "Interviewed"})
	if rec.Code != http.StatusOK || decode[tracker.Application](t, rec).Status != tracker.StatusInterviewed {
		t.Errorf("status change: %d %s", rec.Code, rec.Body)
	}

	rec = env.do(http.MethodPost, path+"/interviews", map[string]string{"date": "2025-01-20", "type": "Phone Screen"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add interview status = %d: %s", rec.Code, rec.Body)
	}
	if n := len(decode[tracker.Application](t, rec).Interviews); n != 1 {
		t.Errorf("interviews = %d, want 1", n)
	}

	update := acme()
	update["title"] = "Staff Engineer"
	rec = env.do(http.MethodPut, path, update)
	if rec.Code != http.StatusOK || decode[tracker.Application](t, rec).Title != "Staff Engineer" {
		t.Errorf("put: %d %s", rec.Code, rec.Body)
	}

	list := decode[[]tracker.Application](t, env.do(http.MethodGet, "/api/applications?companyName=acm", nil))
	if len(list) != 1 {
		t.Errorf("filtered list = %d, want 1", len(list))
	}

	rec = env.do(http.MethodDelete, path, nil)
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Fatalf("delete: %d %q", rec.Code, rec.Body)
	}

	rec = env.do(http.MethodGet, path, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", rec.Code)
	}
	body := errorBody(t, rec)
	if body.Message != "Application not found" || body.Status != http.StatusNotFound || body.Code != "APP001" {
		t.Errorf("not found body = %+v", body)
	}
}

func TestValidationErrors(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil, tracker.Options{})
	created := decode[tracker.Application](t, env.do(http.MethodPost, "/api/applications", acme()))
	fields := "/api/applications/" + created.ID + "/fields"

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantDetail string
	}{
		{"create missing fields", http.MethodPost, "/api/applications", map[string]any{"status": "To-Do"}, "companyName is required"},
		{"create bad status", http.MethodPost, "/api/applications", map[string]any{"companyName": "A", "title": "B", "status": "Hired", "appliedDate": "2025-01-01"}, "status must be one of"},
		{"malformed json", http.MethodPost, "/api/applications", `{"companyName":`, "body must be valid JSON"},
		{"empty body", http.MethodPost, "/api/applications", nil, "body is required"},
		{"wrong type", http.MethodPost, "/api/applications", `{"rating":"high"}`, "rating has the wrong type"},
		{"unknown patch field", http.MethodPatch, fields, map[string]any{"salaryBand": "L5"}, "salaryBand is not an editable field"},
		{"immutable patch field", http.MethodPatch, fields, map[string]any{"id": "x"}, "id is not an editable field"},
		{"empty patch", http.MethodPatch, fields, map[string]any{}, "fields must contain at least one field"},
		{"bad status filter", http.MethodGet, "/api/applications?status=Hired", nil, "status must be one of"},
		{"interview without date", http.MethodPost, "/api/applications/" + created.ID + "/interviews", map[string]any{"type": "Onsite"}, "date is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(tt.method, tt.path, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body)
			}
			body := errorBody(t, rec)
			if body.Message != "Validation failed" || body.Status != http.StatusBadRequest {
				t.Errorf("body = %+v", body)
			}
			found := false
			for _, d := range body.Details {
				if strings.Contains(d, tt.wantDetail) {
					found = true
				}
			}
			if !found {
				t.Errorf("details %v do not contain %q", body.Details, tt.wantDetail)
			}
		})
	}
}

func TestUnknownApplication(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil, tracker.Options{})
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/applications/nope"},
		{http.MethodDelete, "/api/applications/nope"},
	} {
		if rec := env.do(tc.method, tc.path, nil); rec.Code != http.StatusNotFound {
			t.Errorf("%s %s status = %d", tc.method, tc.path, rec.Code)
		}
	}
	rec := env.do(http.MethodPatch, "/api/applications/nope/status", map[string]string{"status": "Applied"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("patch status on unknown id = %d", rec.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil, tracker.Options{})
	rec := env.send(http.MethodGet, "/api/nothing-here", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := errorBody(t, rec).Message; got != "Route not found" {
		t.Errorf("message = %q", got)
	}

	rec = env.send(http.MethodGet, "/dashboard", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("non-api path without static dir: %d", rec.Code)
	}
}

func TestRefreshAndStats(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil, tracker.Options{})
	env.do(http.MethodPost, "/api/applications", acme())

	rec := env.do(http.MethodPost, "/api/applications/refresh", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d", rec.Code)
	}
	if got := decode[map[string]any](t, rec)["count"]; got != float64(1) {
		t.Errorf("refresh count = %v, want 1", got)
	}

	rec = env.do(http.MethodGet, "/api/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rec.Code)
	}
	stats := decode[tracker.Stats](t, rec)
	if stats.Summary.TotalJobs != 1 || stats.Summary.RemainingToApply != 1 {
		t.Errorf("summary = %+v", stats.Summary)
	}
}

func TestConfigEndpoints(t *testing.T) {
	t.Run("file backend cannot switch", func(t *testing.T) {
		env := newTestEnv(t, testConfig(), nil, tracker.Options{})
		cfg := decode[tracker.Config](t, env.do(http.MethodGet, "/api/config", nil))
		if cfg.Backend != config.BackendFile || cfg.SpreadsheetID != "" {
			t.Errorf("config = %+v", cfg)
		}
		rec := env.do(http.MethodPut, "/api/config/spreadsheet-id", map[string]string{"spreadsheetId": "abc"})
		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", rec.Code)
		}
	})

	t.Run("sheets backend switches", func(t *testing.T) {
		src := &fakeSource{id: "old-sheet"}
		settings := store.NewSettingsFile(t.TempDir())
		env := newTestEnv(t, testConfig(), nil, tracker.Options{Backend: config.BackendSheets, Source: src, Settings: settings})

		rec := env.do(http.MethodPut, "/api/config/spreadsheet-id", map[string]string{"spreadsheetId": "  "})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("blank id status = %d", rec.Code)
		}

		rec = env.do(http.MethodPut, "/api/config/spreadsheet-id", map[string]string{"spreadsheetId": "new-sheet"})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body)
		}
		change := decode[tracker.SpreadsheetChange](t, rec)
		if !change.Refreshed || change.SpreadsheetID != "new-sheet" {
			t.Errorf("change = %+v", change)
		}
		if src.id != "new-sheet" {
			t.Errorf("source id = %q", src.id)
		}
		saved, err := settings.LoadSettings(t.Context())
		if err != nil || saved.SpreadsheetID != "new-sheet" {
			t.Errorf("saved = %+v, %v", saved, err)
		}
	})
}

func TestUpstreamErrorHidesCause(t *testing.T) {
	remote := memory.New(sheet.DefaultSheet, sheet.Width)
	remote.FailOn(memory.OpGet, errors.New("dial tcp 10.0.0.7:443: secret-hostname unreachable"))
	rs := store.NewRowStore(remote, store.Options{CacheTTL: time.Minute})
	env := newTestEnv(t, testConfig(), rs, tracker.Options{Backend: config.BackendMemory})

	rec := env.do(http.MethodGet, "/api/applications", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	body := errorBody(t, rec)
	if body.Message != "failed to load applications in remote store" {
		t.Errorf("message = %q", body.Message)
	}
	if strings.Contains(rec.Body.String(), "secret-hostname") {
		t.Errorf("cause leaked: %s", rec.Body)
	}
}

func TestLoginRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, LoginLimit: 2}
	env := newTestEnv(t, cfg, nil, tracker.Options{})

	var last int
	for range 3 {
		last = env.send(http.MethodPost, "/api/auth/login", map[string]string{"password": "wrong"}, "").Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third login status = %d, want 429", last)
	}
	if rec := env.send(http.MethodGet, "/api/health", nil, ""); rec.Code != http.StatusOK {
		t.Errorf("health status after login limit = %d", rec.Code)
	}
}

func TestStaticFallback(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>dashboard</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "assets"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.Server.StaticDir = dir
	env := newTestEnv(t, cfg, nil, tracker.Options{})

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/", http.StatusOK, "dashboard"},
		{"/applications/123", http.StatusOK, "dashboard"},
		{"/assets/app.js", http.StatusOK, "console.log"},
		{"/assets/", http.StatusOK, "dashboard"},
		{"/api/unknown", http.StatusNotFound, "Route not found"},
	}
	for _, tt := range tests {
		rec := env.send(http.MethodGet, tt.path, nil, "")
		if rec.Code != tt.wantStatus || !strings.Contains(rec.Body.String(), tt.wantBody) {
			t.Errorf("GET %s = %d %q, want %d containing %q", tt.path, rec.Code, rec.Body, tt.wantStatus, tt.wantBody)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{tracker.ErrNotFound, http.StatusNotFound},
		{tracker.NewValidationError("title", "is required"), http.StatusBadRequest},
		{tracker.ErrUnauthorized, http.StatusUnauthorized},
		{auth.ErrInvalidToken, http.StatusUnauthorized},
		{tracker.ErrUnsupported, http.StatusConflict},
		{tracker.ErrTooManyWriters, http.StatusServiceUnavailable},
		{tracker.Upstream("load applications", errors.New("boom")), http.StatusInternalServerError},
		{errors.New("surprise"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
