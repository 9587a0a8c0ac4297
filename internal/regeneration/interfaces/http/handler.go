package regenerationhttp

import (
	"encoding/json"
	"net/http"

	regeneration "demo-data-generator/internal/regeneration/domain"
)

// RunSource exposes the most recent regeneration run.
type RunSource interface {
	Last() *regeneration.Run
}

// StateSource exposes the scheduler state.
type StateSource interface {
	State() regeneration.State
	Runs() int64
	Dropped() int64
}

// StatusHandler serves GET /status.
type StatusHandler struct {
	runs      RunSource
	scheduler StateSource
}

// NewStatusHandler constructs a StatusHandler. scheduler may be nil.
func NewStatusHandler(runs RunSource, scheduler StateSource) *StatusHandler {
	return &StatusHandler{runs: runs, scheduler: scheduler}
}

type statusResponse struct {
	State   regeneration.State `json:"state,omitempty"`
	Runs    int64              `json:"runs"`
	Dropped int64              `json:"dropped_triggers"`
	LastRun *regeneration.Run  `json:"last_run"`
}

// ServeHTTP handles GET /status.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.runs == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	resp := statusResponse{LastRun: h.runs.Last()}
	if h.scheduler != nil {
		resp.State = h.scheduler.State()
		resp.Runs = h.scheduler.Runs()
		resp.Dropped = h.scheduler.Dropped()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
