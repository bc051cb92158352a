package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"newsroom/internal/config"
	"newsroom/internal/core"
	"newsroom/internal/persistence"
	"newsroom/internal/pipeline"
	"newsroom/internal/schedule"
	"strings"
	"testing"
)

type fakeLogs struct {
	entries []core.DeliveryLog
	limit   int
}

func (f *fakeLogs) Create(ctx context.Context, entry *core.DeliveryLog) error { return nil }

func (f *fakeLogs) Get(ctx context.Context, id string) (*core.DeliveryLog, error) {
	return nil, persistence.ErrNotFound
}

func (f *fakeLogs) ListForUser(ctx context.Context, userID int64, limit int) ([]core.DeliveryLog, error) {
	f.limit = limit
	return f.entries, nil
}

type fakeDB struct {
	pingErr error
	logs    *fakeLogs
}

func (f *fakeDB) Ping(ctx context.Context) error                  { return f.pingErr }
func (f *fakeDB) DeliveryLogs() persistence.DeliveryLogRepository { return f.logs }

type fakeGenerator struct {
	newsletter *pipeline.Newsletter
	err        error
	userID     int64
}

func (f *fakeGenerator) Generate(ctx context.Context, userID int64) (*pipeline.Newsletter, error) {
	f.userID = userID
	return f.newsletter, f.err
}

type fakeRunner struct {
	summary schedule.Summary
	err     error
	calls   int
	ctxErr  error
}

func (f *fakeRunner) RunDue(ctx context.Context) (schedule.Summary, error) {
	f.calls++
	f.ctxErr = ctx.Err()
	return f.summary, f.err
}

func newTestServer(db *fakeDB, gen *fakeGenerator, runner *fakeRunner) *Server {
	if db.logs == nil {
		db.logs = &fakeLogs{}
	}
	return New(db, gen, runner, config.Server{AdminAPIKey: "secret"})
}

func do(s *Server, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(&fakeDB{}, &fakeGenerator{}, &fakeRunner{})
	rec := do(s, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"database":"ok"`) {
		t.Errorf("Unexpected health response %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("Expected security headers")
	}

	s = newTestServer(&fakeDB{pingErr: errors.New("down")}, &fakeGenerator{}, &fakeRunner{})
	if rec := do(s, http.MethodGet, "/health", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rec.Code)
	}
}

func TestGenerateNewsletter(t *testing.T) {
	gen := &fakeGenerator{newsletter: &pipeline.Newsletter{
		UserID:   7,
		Subject:  "Digest - March 10, 2025",
		HTML:     "<h1>Digest</h1>",
		Fallback: true,
		Topics:   []core.TopicContext{{TopicID: 1, TopicName: "AI"}},
		Stats:    pipeline.ProcessingStats{ArticlesFetched: 4, TrendsFetched: 2},
	}}
	s := newTestServer(&fakeDB{}, gen, &fakeRunner{})

	rec := do(s, http.MethodPost, "/api/users/7/newsletters", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gen.userID != 7 {
		t.Errorf("Expected user 7, got %d", gen.userID)
	}

	var resp NewsletterResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !resp.Fallback || resp.ArticleCount != 4 || resp.TrendCount != 2 || resp.HTML != "<h1>Digest</h1>" {
		t.Errorf("Unexpected response %+v", resp)
	}
	if len(resp.Topics) != 1 || resp.Topics[0] != "AI" {
		t.Errorf("Unexpected topics %v", resp.Topics)
	}

	rec = do(s, http.MethodPost, "/api/users/7/newsletters?format=html", nil)
	if rec.Body.String() != "<h1>Digest</h1>" || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") {
		t.Errorf("Unexpected HTML response %q", rec.Body.String())
	}
}

func TestGenerateNewsletterErrors(t *testing.T) {
	s := newTestServer(&fakeDB{}, &fakeGenerator{err: errors.New("gemini down")}, &fakeRunner{})

	if rec := do(s, http.MethodPost, "/api/users/abc/newsletters", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad id, got %d", rec.Code)
	}

	rec := do(s, http.MethodPost, "/api/users/1/newsletters", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "gemini down") {
		t.Error("Internal error details should not leak")
	}
}

func TestListDeliveries(t *testing.T) {
	logs := &fakeLogs{entries: []core.DeliveryLog{{ID: "a", Status: core.DeliveryStatusSuccess, Message: "<html>big</html>"}}}
	s := newTestServer(&fakeDB{logs: logs}, &fakeGenerator{}, &fakeRunner{})

	rec := do(s, http.MethodGet, "/api/users/3/deliveries?limit=5", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if logs.limit != 5 {
		t.Errorf("Expected limit 5, got %d", logs.limit)
	}
	if strings.Contains(rec.Body.String(), "big") {
		t.Error("Listing should omit rendered messages")
	}

	if rec := do(s, http.MethodGet, "/api/users/3/deliveries?limit=500", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for oversized limit, got %d", rec.Code)
	}
}

func TestRunSchedulesRequiresAdminKey(t *testing.T) {
	runner := &fakeRunner{summary: schedule.Summary{Due: 2, Delivered: 1, Failed: 1}}
	s := newTestServer(&fakeDB{}, &fakeGenerator{}, runner)

	if rec := do(s, http.MethodPost, "/api/schedules/run", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without header, got %d", rec.Code)
	}
	if rec := do(s, http.MethodPost, "/api/schedules/run", http.Header{"Authorization": {"Bearer wrong"}}); rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 with wrong key, got %d", rec.Code)
	}
	if runner.calls != 0 {
		t.Fatal("Runner must not run without a valid key")
	}

	rec := do(s, http.MethodPost, "/api/schedules/run", http.Header{"Authorization": {"Bearer secret"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp ScheduleRunResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if resp.Due != 2 || resp.Delivered != 1 || resp.Failed != 1 {
		t.Errorf("Unexpected summary %+v", resp)
	}

	disabled := New(&fakeDB{logs: &fakeLogs{}}, &fakeGenerator{}, runner, config.Server{})
	if rec := do(disabled, http.MethodPost, "/api/schedules/run", http.Header{"Authorization": {"Bearer "}}); rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403 when no key configured, got %d", rec.Code)
	}
}

func TestRunSchedulesFailure(t *testing.T) {
	runner := &fakeRunner{summary: schedule.Summary{Due: 1}, err: errors.New("commit failed")}
	s := newTestServer(&fakeDB{}, &fakeGenerator{}, runner)

	rec := do(s, http.MethodPost, "/api/schedules/run", http.Header{"Authorization": {"Bearer secret"}})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rec.Code)
	}
}

func TestRunSchedulesWithoutRunner(t *testing.T) {
	s := New(&fakeDB{logs: &fakeLogs{}}, &fakeGenerator{}, nil, config.Server{AdminAPIKey: "secret"})

	rec := do(s, http.MethodPost, "/api/schedules/run", http.Header{"Authorization": {"Bearer secret"}})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without a runner, got %d", rec.Code)
	}
}

func TestRunSchedulesOverlappingPass(t *testing.T) {
	runner := &fakeRunner{err: schedule.ErrPassInProgress}
	s := newTestServer(&fakeDB{}, &fakeGenerator{}, runner)

	rec := do(s, http.MethodPost, "/api/schedules/run", http.Header{"Authorization": {"Bearer secret"}})
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 while a pass is running, got %d", rec.Code)
	}
}

func TestRunSchedulesIgnoresRequestCancellation(t *testing.T) {
	runner := &fakeRunner{summary: schedule.Summary{Due: 1, Delivered: 1}}
	s := newTestServer(&fakeDB{}, &fakeGenerator{}, runner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/schedules/run", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	s.handleRunSchedules(rec, req)

	if runner.calls != 1 {
		t.Fatalf("Expected one pass, got %d", runner.calls)
	}
	if runner.ctxErr != nil {
		t.Errorf("Pass context was cancelled with the request: %v", runner.ctxErr)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}
