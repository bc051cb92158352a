package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"newsroom/internal/core"
	"newsroom/internal/schedule"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// HealthResponse is the /health payload
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// StatusResponse is the /api/status payload
type StatusResponse struct {
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// NewsletterResponse is returned by POST /api/users/{userID}/newsletters
type NewsletterResponse struct {
	UserID       int64    `json:"user_id"`
	Subject      string   `json:"subject"`
	HTML         string   `json:"html"`
	Fallback     bool     `json:"fallback"`
	ArticleCount int      `json:"article_count"`
	TrendCount   int      `json:"trend_count"`
	Topics       []string `json:"topics"`
	DurationMs   int64    `json:"duration_ms"`
}

// ScheduleRunResponse is returned by POST /api/schedules/run
type ScheduleRunResponse struct {
	Due       int    `json:"due"`
	Delivered int    `json:"delivered"`
	Failed    int    `json:"failed"`
	Error     string `json:"error,omitempty"`
}

// Version is reported by /api/status.
var Version = "dev"

var serverStartTime = time.Now()

// handleHealth handles the /health endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	if err := s.db.Ping(r.Context()); err != nil {
		checks["database"] = "error"
		s.respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unhealthy",
			Checks: checks,
		})
		return
	}

	checks["database"] = "ok"
	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Checks: checks,
	})
}

// handleStatus handles the /api/status endpoint
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, StatusResponse{
		Version: Version,
		Uptime:  time.Since(serverStartTime).Round(time.Second).String(),
	})
}

// handleGenerateNewsletter handles POST /api/users/{userID}/newsletters.
// Degraded results (fewer articles, raw fallback) are still 200; ?format=html
// returns the rendered page instead of JSON.
func (s *Server) handleGenerateNewsletter(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	newsletter, err := s.generator.Generate(r.Context(), userID)
	if err != nil {
		s.log.Error("Newsletter generation failed", "user_id", userID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to generate newsletter")
		return
	}

	if r.URL.Query().Get("format") == "html" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(newsletter.HTML))
		return
	}

	topics := make([]string, 0, len(newsletter.Topics))
	for _, t := range newsletter.Topics {
		topics = append(topics, t.TopicName)
	}

	s.respondJSON(w, http.StatusOK, NewsletterResponse{
		UserID:       userID,
		Subject:      newsletter.Subject,
		HTML:         newsletter.HTML,
		Fallback:     newsletter.Fallback,
		ArticleCount: newsletter.Stats.ArticlesFetched,
		TrendCount:   newsletter.Stats.TrendsFetched,
		Topics:       topics,
		DurationMs:   newsletter.Stats.ProcessingTime.Milliseconds(),
	})
}

// handleListDeliveries handles GET /api/users/{userID}/deliveries
func (s *Server) handleListDeliveries(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			s.respondError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	entries, err := s.db.DeliveryLogs().ListForUser(r.Context(), userID, limit)
	if err != nil {
		s.log.Error("Failed to list deliveries", "user_id", userID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to list deliveries")
		return
	}

	// Rendered newsletters can be large; the listing only carries metadata.
	for i := range entries {
		entries[i].Message = ""
	}
	s.respondJSON(w, http.StatusOK, map[string][]core.DeliveryLog{"data": entries})
}

// handleRunSchedules handles POST /api/schedules/run
func (s *Server) handleRunSchedules(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Scheduled delivery is not configured")
		return
	}

	// The pass outlives the request deadline; the runner bounds it with its own.
	summary, err := s.runner.RunDue(context.WithoutCancel(r.Context()))
	if errors.Is(err, schedule.ErrPassInProgress) {
		s.respondError(w, http.StatusConflict, "A schedule pass is already running")
		return
	}
	resp := ScheduleRunResponse{
		Due:       summary.Due,
		Delivered: summary.Delivered,
		Failed:    summary.Failed,
	}
	if err != nil {
		s.log.Error("Scheduled run failed", "error", err)
		resp.Error = err.Error()
		s.respondJSON(w, http.StatusInternalServerError, resp)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		s.respondError(w, http.StatusBadRequest, "Invalid user ID")
		return 0, false
	}
	return userID, true
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("Failed to encode JSON response", "error", err)
	}
}

// respondError writes a JSON error response
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"status":  status,
			"message": message,
		},
	})
}
