package application

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"demo-data-generator/internal/observability/metrics"
	regeneration "demo-data-generator/internal/regeneration/domain"
)

const day = 24 * time.Hour

// Regenerator executes one regeneration.
type Regenerator interface {
	Run(ctx context.Context, trigger regeneration.Trigger) (*regeneration.Run, error)
}

// Scheduler drives regeneration runs on start and daily. At most one run is
// active; a trigger that arrives while running is dropped, never queued.
type Scheduler struct {
	runner Regenerator
	cfg    ScheduleConfig
	loc    *time.Location
	logger *log.Logger
	now    func() time.Time
	wait   func(ctx context.Context, d time.Duration) bool

	state   atomic.Value
	runs    atomic.Int64
	dropped atomic.Int64
}

// NewScheduler constructs a Scheduler.
func NewScheduler(runner Regenerator, cfg ScheduleConfig, loc *time.Location, logger *log.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &Scheduler{
		runner: runner,
		cfg:    cfg,
		loc:    loc,
		logger: logger,
		now:    time.Now,
		wait:   sleepContext,
	}
	s.setState(regeneration.StateIdle)
	return s
}

// State returns the current scheduler state.
func (s *Scheduler) State() regeneration.State {
	return s.state.Load().(regeneration.State)
}

// Runs returns the number of runs started.
func (s *Scheduler) Runs() int64 { return s.runs.Load() }

// Dropped returns the number of triggers dropped.
func (s *Scheduler) Dropped() int64 { return s.dropped.Load() }

// Start runs the scheduler until ctx is canceled. Run failures are logged
// and never stop the schedule.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil || s.runner == nil {
		return
	}
	if s.cfg.OnStart {
		s.Trigger(ctx, regeneration.TriggerStart)
	}
	if !s.cfg.Daily {
		s.logger.Printf("event=scheduler_idle daily=false")
		<-ctx.Done()
		return
	}
	hour, minute, err := ParseDailyAt(s.cfg.DailyAt)
	if err != nil {
		s.logger.Printf("event=scheduler_idle daily_at=%q error=%v", s.cfg.DailyAt, err)
		<-ctx.Done()
		return
	}

	for {
		if !s.state.CompareAndSwap(regeneration.StateIdle, regeneration.StateCooldown) {
			s.logger.Printf("event=scheduler_state_unexpected state=%s", s.State())
		}
		s.publishState()
		delay := NextDelay(s.now().In(s.loc), hour, minute)
		s.logger.Printf("event=scheduler_sleep delay=%s next=%s", delay, s.now().Add(delay).In(s.loc).Format(time.RFC3339))
		if !s.wait(ctx, delay) {
			s.setState(regeneration.StateIdle)
			s.logger.Printf("event=scheduler_stopped")
			return
		}
		s.setState(regeneration.StateIdle)
		s.Trigger(ctx, regeneration.TriggerDaily)
	}
}

// Trigger starts a run unless one is active. It blocks until the run ends
// and reports whether a run took place.
func (s *Scheduler) Trigger(ctx context.Context, trigger regeneration.Trigger) bool {
	if ctx.Err() != nil {
		return false
	}
	if !s.state.CompareAndSwap(regeneration.StateIdle, regeneration.StateRunning) {
		s.dropped.Add(1)
		metrics.IncTrigger(string(trigger), metrics.TriggerDropped)
		s.logger.Printf("event=scheduler_trigger_dropped trigger=%s state=%s", trigger, s.State())
		return false
	}
	s.publishState()
	defer s.setState(regeneration.StateIdle)
	s.runs.Add(1)
	metrics.IncTrigger(string(trigger), metrics.TriggerAccepted)

	deadline, hasDeadline := s.nextOccurrence()
	run, err := s.runner.Run(ctx, trigger)
	if err != nil && run == nil {
		s.logger.Printf("event=scheduler_run_error trigger=%s error=%v", trigger, err)
	}
	if hasDeadline && s.now().After(deadline) {
		// the run outlived the next daily slot, which is skipped
		s.dropped.Add(1)
		metrics.IncTrigger(string(regeneration.TriggerDaily), metrics.TriggerDropped)
		s.logger.Printf("event=scheduler_trigger_dropped trigger=%s reason=overrun missed=%s", regeneration.TriggerDaily, deadline.Format(time.RFC3339))
	}
	return true
}

func (s *Scheduler) nextOccurrence() (time.Time, bool) {
	if !s.cfg.Daily {
		return time.Time{}, false
	}
	hour, minute, err := ParseDailyAt(s.cfg.DailyAt)
	if err != nil {
		return time.Time{}, false
	}
	now := s.now().In(s.loc)
	return now.Add(NextDelay(now, hour, minute)), true
}

func (s *Scheduler) setState(state regeneration.State) {
	s.state.Store(state)
	s.publishState()
}

func (s *Scheduler) publishState() {
	all := make([]string, 0, len(regeneration.States))
	for _, st := range regeneration.States {
		all = append(all, string(st))
	}
	metrics.SetSchedulerState(string(s.State()), all)
}

// NextDelay returns the wait from now until the next wall clock hour:minute.
// A target equal to the current time wraps to tomorrow.
func NextDelay(now time.Time, hour, minute int) time.Duration {
	elapsed := time.Duration(now.Hour())*time.Hour +
		time.Duration(now.Minute())*time.Minute +
		time.Duration(now.Second())*time.Second +
		time.Duration(now.Nanosecond())
	target := time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute
	if target > elapsed {
		return target - elapsed
	}
	return day - elapsed + target
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
