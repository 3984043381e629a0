// Package server holds the JSON API handlers and HTTP middleware for the
// public matching endpoints.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"phonetic-name-match/internal/auth"
	"phonetic-name-match/internal/batch"
	"phonetic-name-match/internal/matcher"
	"phonetic-name-match/internal/models"
	"phonetic-name-match/internal/report"
	"phonetic-name-match/internal/validation"
	"phonetic-name-match/pkg/config"
	errs "phonetic-name-match/pkg/errors"
	"phonetic-name-match/pkg/events"
	"phonetic-name-match/pkg/metrics"
)

// Event sink for match activity. Set from main.
var eventSink events.Store

func SetEventStore(es events.Store) { eventSink = es }

// metrics
var (
	mMatchRequests = metrics.Default.Counter("match_requests_total", "Single match API requests")
	mMatchErrors   = metrics.Default.Counter("match_request_errors_total", "Single match API requests rejected")
	mBatchRequests = metrics.Default.Counter("batch_requests_total", "Batch submit API requests")
	hMatchScore    = metrics.Default.Histogram("match_percentage", "Distribution of returned match percentages", []float64{10, 25, 50, 75, 90, 95, 100})
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"message": msg,
	})
}

// matchStatus maps engine errors to HTTP status codes.
func matchStatus(err error) int {
	if errs.Is(err, errs.ErrInput) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// matchResponse is the wire shape of a single match call. The engine result
// stays internal; only the score, label and accepted pairs go out.
type matchResponse struct {
	SimilarityScore int                    `json:"similarity_score"`
	SimilarityLabel string                 `json:"similarity_label"`
	RequestID       string                 `json:"request_id,omitempty"`
	Pairs           []models.CandidatePair `json:"pairs"`
}

// MatchHandler scores one name pair. POST body: {"name1": ..., "name2": ...}
func MatchHandler(m *matcher.Matcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mMatchRequests.Inc(1)

		var req models.MatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			mMatchErrors.Inc(1)
			writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
			return
		}

		result, err := m.Match(req.Target, req.Reference)
		if err != nil {
			mMatchErrors.Inc(1)
			writeError(w, matchStatus(err), err.Error())
			return
		}

		hMatchScore.Observe(float64(result.Percentage))

		if eventSink != nil {
			var ed *string
			if editor, ok := auth.GetEditorFromContext(r.Context()); ok {
				ed = &editor
			}
			_ = eventSink.Append(r.Context(), events.MatchScored{
				Base:       events.Base{Ts: time.Now(), Ed: ed},
				Target:     result.Target,
				Reference:  result.Reference,
				Percentage: result.Percentage,
				Label:      result.Label,
			})
		}

		rid, _ := r.Context().Value("request_id").(string)
		writeJSON(w, http.StatusOK, matchResponse{
			SimilarityScore: result.Percentage,
			SimilarityLabel: result.Label,
			RequestID:       rid,
			Pairs:           result.Assignment.Pairs,
		})
	}
}

// ReportHandler scores one name pair and returns the plain-text breakdown.
func ReportHandler(m *matcher.Matcher, reports *report.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.MatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
			return
		}

		result, err := m.Match(req.Target, req.Reference)
		if err != nil {
			writeError(w, matchStatus(err), err.Error())
			return
		}

		out, err := reports.Report(result)
		if err != nil {
			log.Printf("Failed to render match report: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to render report")
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(out))
	}
}

// BatchSubmitHandler queues a batch of pairs. POST body: {"pairs": [...]}
func BatchSubmitHandler(eng *batch.Engine, maxPairs, maxLen int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mBatchRequests.Inc(1)

		var body struct {
			Pairs []models.MatchRequest `json:"pairs"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
			return
		}

		if problems := validation.ValidateBatch(body.Pairs, maxPairs, maxLen); len(problems) > 0 {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"success": false,
				"message": "Validation failed",
				"errors":  problems,
			})
			return
		}

		editor, _ := auth.GetEditorFromContext(r.Context())
		jobID, err := eng.Submit(body.Pairs, editor)
		if err != nil {
			switch {
			case errors.Is(err, batch.ErrEmptyBatch):
				writeError(w, http.StatusBadRequest, err.Error())
			case errors.Is(err, batch.ErrRateLimited):
				writeError(w, http.StatusTooManyRequests, err.Error())
			case errors.Is(err, batch.ErrQueueFull), errors.Is(err, batch.ErrShuttingDown):
				writeError(w, http.StatusServiceUnavailable, err.Error())
			default:
				log.Printf("Batch submit failed: %v", err)
				writeError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}

		writeJSON(w, http.StatusAccepted, map[string]interface{}{
			"job_id": jobID,
			"status": string(batch.StateQueued),
			"pairs":  len(body.Pairs),
		})
	}
}

// BatchStatusHandler reports a job's state, with results once done.
// GET /api/match/batch/{id}
func BatchStatusHandler(eng *batch.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		result, state := eng.Lookup(id)
		switch state {
		case batch.StateUnknown:
			writeError(w, http.StatusNotFound, "unknown job: "+id)
		case batch.StateDone:
			writeJSON(w, http.StatusOK, result)
		default:
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"job_id": id,
				"status": string(state),
			})
		}
	}
}

// StatsHandler exposes the active engine settings plus runtime counters.
func StatsHandler(m *matcher.Matcher, eng *batch.Engine, resolver *auth.EditorResolver, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := map[string]interface{}{
			"engine":  m.Summary(),
			"batch":   eng.Stats(),
			"metrics": metrics.Default.Snapshot(),
		}
		if resolver != nil {
			stats["access_keys"] = resolver.Count()
		}
		if cfg != nil {
			stats["config"] = cfg.GetConfigSummary()
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

// PingHandler is a trivial liveness endpoint; the health server probes it.
func PingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	}
}

// UnauthorizedJSON is the reject func for API routes behind editor auth.
func UnauthorizedJSON(w http.ResponseWriter, r *http.Request, ip string) {
	writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
		"success": false,
		"message": "valid access key required",
		"ip":      ip,
	})
}
