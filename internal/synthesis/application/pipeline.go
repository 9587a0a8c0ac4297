package application

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	catalog "demo-data-generator/internal/catalog/domain"
	"demo-data-generator/internal/observability/metrics"
	synthesis "demo-data-generator/internal/synthesis/domain"
)

// Sink receives generated points in time order. It is called from a single goroutine.
type Sink interface {
	Write(ctx context.Context, points []synthesis.SeriesPoint) error
}

// Summary describes a finished pipeline run.
type Summary struct {
	Days       int
	Points     int
	Counts     map[string]int
	BatterySoC float64
}

// Pipeline synthesizes days in parallel and sequences them in date order.
type Pipeline struct {
	catalog   *catalog.Catalog
	cfg       synthesis.Config
	seed      uint64
	loc       *time.Location
	workers   int
	lookahead int
}

// PipelineOption customizes a Pipeline.
type PipelineOption func(*Pipeline)

// WithWorkers bounds the number of days synthesized concurrently.
func WithWorkers(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithLookahead bounds how many synthesized days may wait for the sequencer.
func WithLookahead(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.lookahead = n
		}
	}
}

// WithLocation sets the timezone whose calendar days are synthesized.
func WithLocation(loc *time.Location) PipelineOption {
	return func(p *Pipeline) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// NewPipeline constructs a Pipeline.
func NewPipeline(cat *catalog.Catalog, cfg synthesis.Config, seed uint64, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		catalog: cat,
		cfg:     cfg,
		seed:    seed,
		loc:     time.UTC,
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.lookahead <= 0 {
		p.lookahead = 2 * p.workers
	}
	return p
}

// Run generates every point of the window and hands it to sink day by day.
// Output is identical for any worker count.
func (p *Pipeline) Run(ctx context.Context, window synthesis.Window, sink Sink) (Summary, error) {
	if p == nil || p.catalog == nil {
		return Summary{}, errors.New("synthesis pipeline: nil")
	}
	if sink == nil {
		return Summary{}, errors.New("synthesis pipeline: sink required")
	}
	days := window.Days(p.loc)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)
	// one slot is held by the dispatcher
	g.SetLimit(p.workers + 1)

	slots := make([]chan synthesis.DayLoads, len(days))
	for i := range slots {
		slots[i] = make(chan synthesis.DayLoads, 1)
	}
	tokens := make(chan struct{}, p.lookahead)

	g.Go(func() error {
		for i, day := range days {
			select {
			case tokens <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				slots[i] <- synthesis.SynthesizeDay(day, p.seed, p.cfg)
				return nil
			})
		}
		return nil
	})

	seq := synthesis.NewSequencer(p.catalog, window, p.cfg.Battery)
	summary := Summary{}
	consume := func() error {
		for i, day := range days {
			var loads synthesis.DayLoads
			select {
			case loads = <-slots[i]:
			case <-gctx.Done():
				return gctx.Err()
			}
			<-tokens

			points, err := seq.Day(loads)
			if err != nil {
				return fmt.Errorf("synthesize %s: %w", day.Format("2006-01-02"), err)
			}
			if err := p.emit(ctx, sink, points, &summary); err != nil {
				return err
			}
			summary.Days++
			metrics.IncSynthesisDay()
		}
		tail, err := seq.Close()
		if err != nil {
			return err
		}
		return p.emit(ctx, sink, tail, &summary)
	}

	err := consume()
	cancel()
	if werr := g.Wait(); err == nil && werr != nil && !errors.Is(werr, context.Canceled) {
		err = werr
	}
	if err == nil {
		if cerr := ctx.Err(); cerr != nil {
			err = cerr
		}
	}
	summary.Counts = seq.Counts()
	summary.BatterySoC = seq.Battery().SoCPercent()
	return summary, err
}

func (p *Pipeline) emit(ctx context.Context, sink Sink, points []synthesis.SeriesPoint, summary *Summary) error {
	if len(points) == 0 {
		return nil
	}
	if err := sink.Write(ctx, points); err != nil {
		return err
	}
	summary.Points += len(points)
	return nil
}
