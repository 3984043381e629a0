package admin_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"phonetic-name-match/internal/admin"
	"phonetic-name-match/internal/auth"
	"phonetic-name-match/internal/batch"
	"phonetic-name-match/internal/matcher"
	"phonetic-name-match/pkg/logging"
)

func loadTestTemplates(t *testing.T) {
	t.Helper()
	if err := admin.LoadTemplates(os.DirFS(filepath.Join("..", "..", "web", "templates"))); err != nil {
		t.Fatalf("LoadTemplates() error = %v", err)
	}
}

func testResolver(t *testing.T) *auth.EditorResolver {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "access.yaml")
	keys := "\"k-3f9a2b\": \"jane\"\n\"k-77cc01\": \"omar\"\n"
	if err := os.WriteFile(path, []byte(keys), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return auth.NewEditorResolver(path)
}

func TestLoginFlow(t *testing.T) {
	loadTestTemplates(t)
	resolver := testResolver(t)

	t.Run("login page renders", func(t *testing.T) {
		rec := httptest.NewRecorder()
		admin.LoginPageHandler()(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Editor Sign In") {
			t.Error("login page missing sign in form")
		}
	})

	t.Run("valid key sets session cookie", func(t *testing.T) {
		form := url.Values{"access_key": {"k-77cc01"}}
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()

		admin.LoginSubmitHandler(resolver)(rec, req)

		if rec.Code != http.StatusFound {
			t.Fatalf("status = %d, want 302", rec.Code)
		}
		var session *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == "access_key" {
				session = c
			}
		}
		if session == nil {
			t.Fatal("access_key cookie not set")
		}
		if session.Value != "k-77cc01" {
			t.Errorf("cookie value = %q, want the submitted key", session.Value)
		}
		if !session.HttpOnly {
			t.Error("cookie is not HttpOnly")
		}
	})

	t.Run("unknown key rejected", func(t *testing.T) {
		form := url.Values{"access_key": {"k-wrong"}}
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()

		admin.LoginSubmitHandler(resolver)(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Access key not recognized") {
			t.Error("rejection page missing error message")
		}
		if len(rec.Result().Cookies()) != 0 {
			t.Error("cookie set on failed login")
		}
	})
}

func TestLogoutClearsCookie(t *testing.T) {
	loadTestTemplates(t)

	rec := httptest.NewRecorder()
	admin.LogoutHandler()(rec, httptest.NewRequest(http.MethodGet, "/logout", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "access_key" || cookies[0].MaxAge >= 0 {
		t.Errorf("cookies = %v, want expired access_key", cookies)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}
}

func TestMatchPageShowsEditor(t *testing.T) {
	loadTestTemplates(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), auth.EditorKey, "omar"))
	rec := httptest.NewRecorder()

	admin.MatchPageHandler()(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Sign Out (omar)") {
		t.Error("match page missing signed-in editor")
	}
}

func TestDashboardHandler(t *testing.T) {
	loadTestTemplates(t)
	resolver := testResolver(t)

	m, err := matcher.NewDefault()
	if err != nil {
		t.Fatalf("NewDefault() error = %v", err)
	}
	logCfg := logging.DefaultLogConfig()
	logCfg.Level = logging.LevelError
	logger, err := logging.NewLogger(logCfg)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	t.Cleanup(func() { logger.Close() })
	eng := batch.New(m, batch.DefaultConfig(), logger)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req = req.WithContext(context.WithValue(req.Context(), auth.EditorKey, "jane"))
	rec := httptest.NewRecorder()

	admin.DashboardHandler(m, eng, resolver, time.Now().Add(-time.Minute))(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	for _, want := range []string{"Batch Throughput", "Engine Settings", "Access Keys (2)"} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
}

func TestRejectBrowser(t *testing.T) {
	loadTestTemplates(t)
	reject := admin.RejectBrowser()

	t.Run("no credential redirects to login", func(t *testing.T) {
		rec := httptest.NewRecorder()
		reject(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil), "10.0.0.9")
		if rec.Code != http.StatusFound {
			t.Fatalf("status = %d, want 302", rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/login" {
			t.Errorf("Location = %q, want /login", loc)
		}
	})

	t.Run("bad key shows unauthorized page", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req.AddCookie(&http.Cookie{Name: "access_key", Value: "k-bad"})
		rec := httptest.NewRecorder()
		reject(rec, req, "10.0.0.9")
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "10.0.0.9") {
			t.Error("unauthorized page missing client IP")
		}
	})
}
