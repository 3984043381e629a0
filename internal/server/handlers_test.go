package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"phonetic-name-match/internal/batch"
	"phonetic-name-match/internal/matcher"
	"phonetic-name-match/internal/models"
	"phonetic-name-match/internal/report"
	"phonetic-name-match/internal/server"
	"phonetic-name-match/pkg/config"
	"phonetic-name-match/pkg/logging"
)

func testLogger(t testing.TB) *logging.Logger {
	t.Helper()
	cfg := logging.DefaultLogConfig()
	cfg.Level = logging.LevelError
	logger, err := logging.NewLogger(cfg)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	t.Cleanup(func() { logger.Close() })
	return logger
}

func testMatcher(t testing.TB) *matcher.Matcher {
	t.Helper()
	m, err := matcher.NewDefault()
	if err != nil {
		t.Fatalf("NewDefault() error = %v", err)
	}
	return m
}

func TestMatchHandler(t *testing.T) {
	h := server.MatchHandler(testMatcher(t))

	tcs := []struct {
		name           string
		body           string
		wantStatus     int
		wantPercentage int
		wantLabel      string
	}{
		{
			name:           "same name scores 100",
			body:           `{"name1": "Muhammad Ali", "name2": "Md Ali"}`,
			wantStatus:     http.StatusOK,
			wantPercentage: 100,
			wantLabel:      "Same Name",
		},
		{
			name:           "close variant scores high",
			body:           `{"name1": "Muhammad Ali", "name2": "Mohd Aly"}`,
			wantStatus:     http.StatusOK,
			wantPercentage: 99,
			wantLabel:      "Likely Same Name",
		},
		{
			name:       "invalid json rejected",
			body:       `{"name1": `,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "oversized name rejected",
			body:       `{"name1": "` + strings.Repeat("a", 600) + `", "name2": "b"}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/match", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			h(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.wantStatus, rec.Body.String())
			}
			if tc.wantStatus != http.StatusOK {
				var out map[string]interface{}
				if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
					t.Fatalf("error body is not JSON: %v", err)
				}
				if success, _ := out["success"].(bool); success {
					t.Error("error body reports success = true")
				}
				return
			}

			var result struct {
				SimilarityScore int                    `json:"similarity_score"`
				SimilarityLabel string                 `json:"similarity_label"`
				Pairs           []models.CandidatePair `json:"pairs"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if result.SimilarityScore != tc.wantPercentage {
				t.Errorf("similarity_score = %d, want %d", result.SimilarityScore, tc.wantPercentage)
			}
			if result.SimilarityLabel != tc.wantLabel {
				t.Errorf("similarity_label = %q, want %q", result.SimilarityLabel, tc.wantLabel)
			}
			if len(result.Pairs) == 0 {
				t.Error("pairs is empty in success response")
			}
		})
	}
}

func TestReportHandler(t *testing.T) {
	m := testMatcher(t)
	reports, err := report.NewManager()
	if err != nil {
		t.Fatalf("report.NewManager() error = %v", err)
	}
	h := server.ReportHandler(m, reports)

	req := httptest.NewRequest(http.MethodPost, "/api/match/report",
		strings.NewReader(`{"name1": "Muhammad Ali", "name2": "Mohd Aly"}`))
	rec := httptest.NewRecorder()
	h(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}
	for _, want := range []string{"NAME MATCH REPORT", "99%", "Likely Same Name"} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("report missing %q:\n%s", want, rec.Body.String())
		}
	}
}

func TestBatchHandlers(t *testing.T) {
	cfg := batch.DefaultConfig()
	cfg.WorkerCount = 2
	cfg.RatePerSec = 1000
	cfg.Burst = 100
	eng := batch.New(testMatcher(t), cfg, testLogger(t))
	eng.Start()
	t.Cleanup(func() { _ = eng.Stop(2 * time.Second) })

	router := mux.NewRouter()
	router.HandleFunc("/api/match/batch", server.BatchSubmitHandler(eng, 10, 512)).Methods(http.MethodPost)
	router.HandleFunc("/api/match/batch/{id}", server.BatchStatusHandler(eng)).Methods(http.MethodGet)

	submit := func(t *testing.T, body string) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(http.MethodPost, "/api/match/batch", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("submit and poll to completion", func(t *testing.T) {
		rec := submit(t, `{"pairs": [{"id": "p-1", "name1": "John Doe", "name2": "J Doe"}]}`)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("status = %d, want 202 (body %s)", rec.Code, rec.Body.String())
		}

		var accepted struct {
			JobID  string `json:"job_id"`
			Status string `json:"status"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &accepted); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if accepted.JobID == "" || accepted.Status != "queued" {
			t.Fatalf("accepted = %+v, want non-empty job_id in state queued", accepted)
		}

		deadline := time.Now().Add(2 * time.Second)
		for {
			req := httptest.NewRequest(http.MethodGet, "/api/match/batch/"+accepted.JobID, nil)
			poll := httptest.NewRecorder()
			router.ServeHTTP(poll, req)
			if poll.Code != http.StatusOK {
				t.Fatalf("poll status = %d (body %s)", poll.Code, poll.Body.String())
			}

			var result batch.JobResult
			if err := json.Unmarshal(poll.Body.Bytes(), &result); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if len(result.Results) > 0 {
				if result.Results[0].Request.ID != "p-1" {
					t.Errorf("Results[0].Request.ID = %q, want p-1", result.Results[0].Request.ID)
				}
				return
			}
			if time.Now().After(deadline) {
				t.Fatal("job did not complete in time")
			}
			time.Sleep(10 * time.Millisecond)
		}
	})

	t.Run("validation failure lists offending pairs", func(t *testing.T) {
		rec := submit(t, `{"pairs": [{"name1": "`+strings.Repeat("a", 600)+`", "name2": "b"}]}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
		}
		var out struct {
			Success bool              `json:"success"`
			Errors  map[string]string `json:"errors"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if out.Success {
			t.Error("Success = true, want false")
		}
		if _, ok := out.Errors["0"]; !ok {
			t.Errorf("Errors = %v, want entry for pair 0", out.Errors)
		}
	})

	t.Run("unknown job returns 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/match/batch/no-such-job", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("empty batch rejected", func(t *testing.T) {
		rec := submit(t, `{"pairs": []}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
		}
	})
}

func TestBatchSubmitBackpressureStatus(t *testing.T) {
	cfg := batch.DefaultConfig()
	cfg.RatePerSec = 1
	cfg.Burst = 1
	eng := batch.New(testMatcher(t), cfg, testLogger(t))
	h := server.BatchSubmitHandler(eng, 10, 512)

	body := `{"pairs": [{"name1": "a", "name2": "b"}]}`
	first := httptest.NewRecorder()
	h(first, httptest.NewRequest(http.MethodPost, "/api/match/batch", strings.NewReader(body)))
	if first.Code != http.StatusAccepted {
		t.Fatalf("first submit status = %d, want 202", first.Code)
	}

	second := httptest.NewRecorder()
	h(second, httptest.NewRequest(http.MethodPost, "/api/match/batch", strings.NewReader(body)))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second submit status = %d, want 429", second.Code)
	}
}

func TestStatsHandler(t *testing.T) {
	eng := batch.New(testMatcher(t), batch.DefaultConfig(), testLogger(t))
	cfg := &config.Config{Port: "8080", WorkerCount: 4, MaxInputLength: 512}
	h := server.StatsHandler(testMatcher(t), eng, nil, cfg)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	for _, key := range []string{"engine", "batch", "metrics", "config"} {
		if _, ok := out[key]; !ok {
			t.Errorf("stats missing %q key", key)
		}
	}
	summary, _ := out["config"].(map[string]interface{})
	if got, _ := summary["worker_count"].(float64); got != 4 {
		t.Errorf("config.worker_count = %v, want 4", summary["worker_count"])
	}
}

func TestPingHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	server.PingHandler()(rec, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s, want status ok", rec.Body.String())
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = r.Context().Value("request_id").(string)
	})
	h := server.RequestID(inner)

	t.Run("mints an id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if seen == "" {
			t.Error("request_id not set on context")
		}
		if got := rec.Header().Get("X-Request-ID"); got != seen {
			t.Errorf("X-Request-ID header = %q, want %q", got, seen)
		}
	})

	t.Run("honors caller supplied id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "caller-42")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if seen != "caller-42" {
			t.Errorf("request_id = %q, want caller-42", seen)
		}
		if got := rec.Header().Get("X-Request-ID"); got != "caller-42" {
			t.Errorf("X-Request-ID header = %q, want caller-42", got)
		}
	})
}

func TestCORSPreflight(t *testing.T) {
	h := server.CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler called on preflight")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/match", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Access-Control-Allow-Origin header missing")
	}
}
