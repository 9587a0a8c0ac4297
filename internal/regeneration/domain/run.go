package regeneration

import (
	"time"

	"github.com/google/uuid"

	synthesis "demo-data-generator/internal/synthesis/domain"
)

// State is a scheduler state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateCooldown State = "cooldown"
)

// States lists every scheduler state.
var States = []State{StateIdle, StateRunning, StateCooldown}

// Status is the outcome of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Trigger names what started a run.
type Trigger string

const (
	TriggerStart  Trigger = "start"
	TriggerDaily  Trigger = "daily"
	TriggerManual Trigger = "manual"
)

// Run is one regeneration, kept in memory and logs only.
type Run struct {
	ID          uuid.UUID        `json:"id"`
	Trigger     Trigger          `json:"trigger"`
	StartedAt   time.Time        `json:"started_at"`
	FinishedAt  time.Time        `json:"finished_at,omitzero"`
	EnergyYears float64          `json:"energy_years"`
	PowerDays   int              `json:"power_days"`
	Seed        uint64           `json:"seed"`
	Window      synthesis.Window `json:"window"`
	Days        int              `json:"days"`
	Points      int              `json:"points"`
	Chunks      int              `json:"chunks"`
	Counts      map[string]int   `json:"counts,omitempty"`
	Status      Status           `json:"status"`
	ErrorKind   ErrorKind        `json:"error_kind,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// NewRun opens a run record.
func NewRun(trigger Trigger, startedAt time.Time, energyYears float64, powerDays int, seed uint64) *Run {
	return &Run{
		ID:          uuid.New(),
		Trigger:     trigger,
		StartedAt:   startedAt.UTC(),
		EnergyYears: energyYears,
		PowerDays:   powerDays,
		Seed:        seed,
		Status:      StatusRunning,
	}
}

// Succeed finalizes a successful run.
func (r *Run) Succeed(at time.Time) {
	r.FinishedAt = at.UTC()
	r.Status = StatusSucceeded
	r.ErrorKind = KindNone
	r.Error = ""
}

// Fail finalizes a failed run.
func (r *Run) Fail(at time.Time, err error) {
	r.FinishedAt = at.UTC()
	r.Status = StatusFailed
	r.ErrorKind = Kind(err)
	if err != nil {
		r.Error = err.Error()
	}
}

// Duration returns the run time, or zero while the run is active.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Clone returns a copy safe to hand to other goroutines.
func (r *Run) Clone() *Run {
	if r == nil {
		return nil
	}
	c := *r
	if r.Counts != nil {
		c.Counts = make(map[string]int, len(r.Counts))
		for k, v := range r.Counts {
			c.Counts[k] = v
		}
	}
	return &c
}
