package admin

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"phonetic-name-match/internal/auth"
	"phonetic-name-match/internal/batch"
	"phonetic-name-match/internal/matcher"
	"phonetic-name-match/pkg/events"
	"phonetic-name-match/pkg/metrics"
)

// sessionCookie carries the editor's access key between requests.
const sessionCookie = "access_key"

// sessionTTL bounds how long a login cookie stays valid.
const sessionTTL = 30 * 24 * time.Hour

// DashboardData represents data for the editor dashboard
type DashboardData struct {
	Editor       string
	Batch        batch.BatchStats
	Engine       map[string]interface{}
	AccessKeys   int
	Uptime       string
	SystemHealth SystemHealth
	Recent       []events.StoredEvent
	GeneratedAt  time.Time
}

type SystemHealth struct {
	EngineStatus    string
	WorkersStatus   string
	AccessKeyStatus string
	LastJobTime     time.Time
}

type LoginData struct {
	Error string
}

type MatchPageData struct {
	Editor string
}

// Event sink for the dashboard activity feed. Set from main.
var eventSink events.Store

func SetEventStore(es events.Store) { eventSink = es }

// metrics
var (
	mLoginSuccess = metrics.Default.Counter("admin_login_success_total", "Successful editor logins")
	mLoginFailure = metrics.Default.Counter("admin_login_failure_total", "Rejected editor logins")
	gEditorKeys   = metrics.Default.Gauge("editor_keys_loaded_gauge", "Access keys currently loaded")
)

// LoginPageHandler serves the access key form.
func LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ExecuteTemplate(w, "login.tmpl", LoginData{}); err != nil {
			http.Error(w, fmt.Sprintf("template error: %v", err), http.StatusInternalServerError)
		}
	}
}

// LoginSubmitHandler validates the submitted key and starts a session.
func LoginSubmitHandler(resolver *auth.EditorResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form data", http.StatusBadRequest)
			return
		}

		key := strings.TrimSpace(r.FormValue("access_key"))
		ip := resolver.GetClientIP(r)

		editor, ok := resolver.Authorize(key, ip)
		if key == "" || !ok {
			mLoginFailure.Inc(1)
			log.Printf("Rejected login attempt from %s", ip)
			w.WriteHeader(http.StatusUnauthorized)
			if err := ExecuteTemplate(w, "login.tmpl", LoginData{Error: "Access key not recognized"}); err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
			}
			return
		}

		mLoginSuccess.Inc(1)
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    key,
			Path:     "/",
			MaxAge:   int(sessionTTL.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		log.Printf("Editor %s logged in from %s", editor, ip)
		http.Redirect(w, r, basePath, http.StatusFound)
	}
}

// LogoutHandler clears the session cookie.
func LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, basePath+"login", http.StatusFound)
	}
}

// MatchPageHandler serves the interactive comparison page.
func MatchPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		editor, _ := auth.GetEditorFromContext(r.Context())
		if err := ExecuteTemplate(w, "match.tmpl", MatchPageData{Editor: editor}); err != nil {
			http.Error(w, fmt.Sprintf("template error: %v", err), http.StatusInternalServerError)
		}
	}
}

// DashboardHandler renders batch throughput and engine settings for editors.
func DashboardHandler(m *matcher.Matcher, eng *batch.Engine, resolver *auth.EditorResolver, startedAt time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		editor, _ := auth.GetEditorFromContext(r.Context())
		stats := eng.Stats()

		keyStatus := "Loaded"
		if !resolver.IsLoaded() {
			keyStatus = "Missing"
		}
		health := SystemHealth{
			EngineStatus:    "Running",
			WorkersStatus:   fmt.Sprintf("%d workers", stats.WorkerCount),
			AccessKeyStatus: keyStatus,
			LastJobTime:     stats.LastActivity,
		}

		gEditorKeys.SetFloat64(float64(resolver.Count()))

		var recent []events.StoredEvent
		if eventSink != nil {
			recent = eventSink.Recent(20)
		}

		dashboardData := DashboardData{
			Editor:       editor,
			Batch:        stats,
			Engine:       m.Summary(),
			AccessKeys:   resolver.Count(),
			Uptime:       time.Since(startedAt).Round(time.Second).String(),
			SystemHealth: health,
			Recent:       recent,
			GeneratedAt:  time.Now(),
		}

		if err := ExecuteTemplate(w, "dashboard.tmpl", dashboardData); err != nil {
			http.Error(w, fmt.Sprintf("template error: %v", err), http.StatusInternalServerError)
			return
		}
	}
}

// RejectBrowser is the reject func for HTML routes behind editor auth.
// Requests with no credential at all go to the login form; requests carrying
// a bad key get the unauthorized page.
func RejectBrowser() func(w http.ResponseWriter, r *http.Request, ip string) {
	return func(w http.ResponseWriter, r *http.Request, ip string) {
		_, cookieErr := r.Cookie(sessionCookie)
		hasAny := cookieErr == nil ||
			r.Header.Get("X-Access-Key") != "" ||
			r.URL.Query().Get("key") != ""
		if !hasAny {
			http.Redirect(w, r, basePath+"login", http.StatusFound)
			return
		}
		RenderUnauthorized(w, ip)
	}
}
