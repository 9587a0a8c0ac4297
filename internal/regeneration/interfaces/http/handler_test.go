package regenerationhttp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	regeneration "demo-data-generator/internal/regeneration/domain"
)

type stubRuns struct{ run *regeneration.Run }

func (s stubRuns) Last() *regeneration.Run { return s.run }

type stubScheduler struct{}

func (stubScheduler) State() regeneration.State { return regeneration.StateCooldown }
func (stubScheduler) Runs() int64               { return 3 }
func (stubScheduler) Dropped() int64            { return 1 }

func TestStatusHandlerReportsLastRun(t *testing.T) {
	run := regeneration.NewRun(regeneration.TriggerDaily, time.Date(2024, 6, 12, 3, 0, 0, 0, time.UTC), 1, 7, 42)
	run.Succeed(time.Date(2024, 6, 12, 3, 2, 0, 0, time.UTC))
	handler := NewStatusHandler(stubRuns{run: run}, stubScheduler{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}

	var body struct {
		State   string `json:"state"`
		Runs    int64  `json:"runs"`
		Dropped int64  `json:"dropped_triggers"`
		LastRun struct {
			ID     string `json:"id"`
			Status string `json:"status"`
			Seed   uint64 `json:"seed"`
		} `json:"last_run"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.State != "cooldown" || body.Runs != 3 || body.Dropped != 1 {
		t.Fatalf("unexpected scheduler fields: %+v", body)
	}
	if body.LastRun.ID != run.ID.String() || body.LastRun.Status != "succeeded" || body.LastRun.Seed != 42 {
		t.Fatalf("unexpected last run: %+v", body.LastRun)
	}
}

func TestStatusHandlerWithoutRun(t *testing.T) {
	handler := NewStatusHandler(stubRuns{}, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "{\"runs\":0,\"dropped_triggers\":0,\"last_run\":null}\n" {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestStatusHandlerRejectsPost(t *testing.T) {
	handler := NewStatusHandler(stubRuns{}, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
