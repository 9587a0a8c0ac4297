package main

import (
	"context"
	"log"
	"sync/atomic"

	catalog "demo-data-generator/internal/catalog/domain"
	regenapp "demo-data-generator/internal/regeneration/application"
	regeneration "demo-data-generator/internal/regeneration/domain"
	statistics "demo-data-generator/internal/statistics/domain"
)

// serviceStore is the statistics store the service runs against.
type serviceStore interface {
	statistics.Store
	EnsureSchema(ctx context.Context) error
}

// newService wires runner and scheduler. An unreachable store is logged and
// left to each run, which fails with store_unavailable until it recovers.
func newService(ctx context.Context, cfg regenapp.Config, store serviceStore, cat *catalog.Catalog, logger *log.Logger) (*regenapp.Runner, *regenapp.Scheduler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}
	if err := store.Ping(ctx); err != nil {
		logger.Printf("event=store_unavailable stage=startup error=%v", err)
	}

	runner := regenapp.NewRunner(store, cat, cfg, logger)
	var regenerator regenapp.Regenerator = runner
	if cfg.InitSchema {
		sg := &schemaGate{store: store, next: runner, logger: logger}
		sg.ensure(ctx)
		regenerator = sg
	}
	return runner, regenapp.NewScheduler(regenerator, cfg.Schedule, loc, logger), nil
}

// schemaGate creates the recorder tables before a run until that succeeds once.
type schemaGate struct {
	store  serviceStore
	next   regenapp.Regenerator
	logger *log.Logger
	ready  atomic.Bool
}

func (g *schemaGate) ensure(ctx context.Context) {
	if g.ready.Load() {
		return
	}
	if err := g.store.EnsureSchema(ctx); err != nil {
		g.logger.Printf("event=schema_init_failed error=%v", err)
		return
	}
	g.ready.Store(true)
	g.logger.Printf("event=schema_ready")
}

func (g *schemaGate) Run(ctx context.Context, trigger regeneration.Trigger) (*regeneration.Run, error) {
	g.ensure(ctx)
	return g.next.Run(ctx, trigger)
}
