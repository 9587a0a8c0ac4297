package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	catalog "demo-data-generator/internal/catalog/domain"
	"demo-data-generator/internal/observability/metrics"
	regeneration "demo-data-generator/internal/regeneration/domain"
	statsapp "demo-data-generator/internal/statistics/application"
	statistics "demo-data-generator/internal/statistics/domain"
	synthapp "demo-data-generator/internal/synthesis/application"
	synthesis "demo-data-generator/internal/synthesis/domain"
)

// Runner executes regeneration runs end to end.
type Runner struct {
	store   statistics.Store
	catalog *catalog.Catalog
	cfg     Config
	loc     *time.Location
	logger  *log.Logger
	now     func() time.Time

	mu   sync.Mutex
	last *regeneration.Run
}

// NewRunner constructs a Runner. cfg must have passed Validate.
func NewRunner(store statistics.Store, cat *catalog.Catalog, cfg Config, logger *log.Logger) *Runner {
	loc, err := cfg.Location()
	if err != nil {
		loc = time.Local
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		store:   store,
		catalog: cat,
		cfg:     cfg,
		loc:     loc,
		logger:  logger,
		now:     time.Now,
	}
}

// Run regenerates the whole window once.
func (r *Runner) Run(ctx context.Context, trigger regeneration.Trigger) (*regeneration.Run, error) {
	if r == nil || r.store == nil || r.catalog == nil {
		return nil, errors.New("regeneration runner: nil")
	}
	now := r.now()
	run := regeneration.NewRun(trigger, now, r.cfg.EnergyYears, r.cfg.PowerDays, r.cfg.Seed)
	r.remember(run)

	err := r.execute(ctx, run, now)
	finished := r.now()
	if err != nil {
		run.Fail(finished, err)
		metrics.ObserveRun(metrics.ResultError, string(run.ErrorKind), run.Duration())
		r.logger.Printf("event=regeneration_run_failed run_id=%s trigger=%s error_kind=%s duration=%s points=%d error=%v",
			run.ID, run.Trigger, run.ErrorKind, run.Duration().Round(time.Millisecond), run.Points, err)
	} else {
		run.Succeed(finished)
		metrics.ObserveRun(metrics.ResultSuccess, "", run.Duration())
		r.logger.Printf("event=regeneration_run_succeeded run_id=%s trigger=%s duration=%s days=%d points=%d chunks=%d",
			run.ID, run.Trigger, run.Duration().Round(time.Millisecond), run.Days, run.Points, run.Chunks)
	}
	r.remember(run)
	return run.Clone(), err
}

func (r *Runner) execute(ctx context.Context, run *regeneration.Run, now time.Time) error {
	window, err := synthesis.NewWindow(now, r.cfg.EnergyYears, r.cfg.PowerDays)
	if err != nil {
		return fmt.Errorf("%w: %w", regeneration.ErrConfig, err)
	}
	run.Window = window
	r.logger.Printf("event=regeneration_run_start run_id=%s trigger=%s energy_years=%g power_days=%d seed=%d energy_start=%s energy_end=%s power_start=%s power_end=%s timezone=%s",
		run.ID, run.Trigger, r.cfg.EnergyYears, r.cfg.PowerDays, r.cfg.Seed,
		window.EnergyStart.UTC().Format(time.RFC3339), window.EnergyEnd.UTC().Format(time.RFC3339),
		window.PowerStart.UTC().Format(time.RFC3339), window.PowerEnd.UTC().Format(time.RFC3339), r.loc)

	writer := statsapp.NewWriter(r.store, r.catalog,
		statsapp.WithChunkSize(r.cfg.Writer.ChunkSize),
		statsapp.WithCommitTimeout(r.cfg.Writer.CommitTimeout),
		statsapp.WithContinuousAggregates(r.cfg.Writer.ContinuousAggregates...),
		statsapp.WithLogger(r.logger),
	)
	if err := writer.Begin(ctx, window); err != nil {
		return err
	}

	pipeline := synthapp.NewPipeline(r.catalog, r.cfg.Synthesis, r.cfg.Seed,
		synthapp.WithWorkers(r.cfg.Workers),
		synthapp.WithLocation(r.loc),
	)
	summary, err := pipeline.Run(ctx, window, writer)
	run.Days = summary.Days
	run.Counts = summary.Counts
	if err != nil {
		return err
	}

	report, err := writer.Finish(ctx)
	run.Chunks = report.Chunks
	for _, n := range report.Rows {
		run.Points += n
	}
	if err != nil {
		return err
	}

	for _, s := range r.catalog.Sensors() {
		r.logger.Printf("event=regeneration_sensor_points run_id=%s sensor=%s domain=%s points=%d",
			run.ID, s.ID, s.Domain, summary.Counts[s.ID])
	}
	err = r.catalog.VerifyCounts(summary.Counts, func(s catalog.Sensor) int {
		if s.Domain == catalog.DomainPower {
			return window.PowerTicks()
		}
		return window.EnergyHours()
	})
	if err != nil {
		return fmt.Errorf("%w: %w", regeneration.ErrInvariant, err)
	}
	r.logger.Printf("event=regeneration_battery run_id=%s soc_percent=%.1f", run.ID, summary.BatterySoC)
	return nil
}

// Last returns the most recent run, or nil before the first one.
func (r *Runner) Last() *regeneration.Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last.Clone()
}

func (r *Runner) remember(run *regeneration.Run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = run.Clone()
}
