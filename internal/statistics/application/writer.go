package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	catalog "demo-data-generator/internal/catalog/domain"
	"demo-data-generator/internal/observability/metrics"
	statistics "demo-data-generator/internal/statistics/domain"
	synthesis "demo-data-generator/internal/synthesis/domain"
)

const (
	// DefaultChunkSize matches the recorder batch size of the demo add-on.
	DefaultChunkSize = 5000
	// MaxChunkSize keeps a multi-row upsert under the Postgres parameter limit.
	MaxChunkSize = 7000

	defaultCommitTimeout = 2 * time.Minute
)

// Report summarizes what a writer session stored.
type Report struct {
	Rows   map[statistics.Table]int
	Pruned map[statistics.Table]int64
	Chunks int
}

// Writer loads generated points into the statistics store in chunks. Begin,
// Write and Finish must be called from one goroutine.
type Writer struct {
	store         statistics.Store
	catalog       *catalog.Catalog
	chunkSize     int
	commitTimeout time.Duration
	views         []string
	logger        *log.Logger

	started  bool
	window   synthesis.Window
	ids      map[string]int64
	tableIDs map[statistics.Table][]int64
	buffers  map[statistics.Table][]statistics.Row
	report   Report
}

// WriterOption customizes a Writer.
type WriterOption func(*Writer)

// WithChunkSize sets the rows per transaction, capped at MaxChunkSize.
func WithChunkSize(n int) WriterOption {
	return func(w *Writer) {
		if n > 0 {
			w.chunkSize = min(n, MaxChunkSize)
		}
	}
}

// WithCommitTimeout bounds how long an in-flight chunk may outlive cancellation.
func WithCommitTimeout(d time.Duration) WriterOption {
	return func(w *Writer) {
		if d > 0 {
			w.commitTimeout = d
		}
	}
}

// WithContinuousAggregates names TimescaleDB views refreshed over the window
// after a write. The store picks epoch or timestamptz bounds per view.
func WithContinuousAggregates(views ...string) WriterOption {
	return func(w *Writer) {
		for _, v := range views {
			if v != "" {
				w.views = append(w.views, v)
			}
		}
	}
}

// WithLogger sets the writer logger.
func WithLogger(logger *log.Logger) WriterOption {
	return func(w *Writer) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWriter constructs a Writer for the catalog's sensors.
func NewWriter(store statistics.Store, cat *catalog.Catalog, opts ...WriterOption) *Writer {
	w := &Writer{
		store:         store,
		catalog:       cat,
		chunkSize:     DefaultChunkSize,
		commitTimeout: defaultCommitTimeout,
		logger:        log.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Begin resolves metadata ids for every catalog sensor and opens a session.
func (w *Writer) Begin(ctx context.Context, window synthesis.Window) error {
	if w == nil || w.store == nil || w.catalog == nil {
		return errors.New("statistics writer: nil")
	}
	if err := w.store.Ping(ctx); err != nil {
		return err
	}
	sensors := w.catalog.Sensors()
	meta := make([]statistics.Metadata, 0, len(sensors))
	for _, s := range sensors {
		meta = append(meta, statistics.MetadataFor(s))
	}
	ids, err := w.store.EnsureMetadata(ctx, meta)
	if err != nil {
		return fmt.Errorf("statistics writer: metadata: %w", err)
	}

	w.tableIDs = make(map[statistics.Table][]int64)
	for _, s := range sensors {
		id, ok := ids[s.ID]
		if !ok {
			return fmt.Errorf("statistics writer: metadata id missing for %s", s.ID)
		}
		table := statistics.TableFor(s.Domain)
		w.tableIDs[table] = append(w.tableIDs[table], id)
	}
	w.ids = ids
	w.window = window
	w.buffers = make(map[statistics.Table][]statistics.Row)
	w.report = Report{
		Rows:   make(map[statistics.Table]int),
		Pruned: make(map[statistics.Table]int64),
	}
	w.started = true
	return nil
}

// Write buffers points and commits every full chunk.
func (w *Writer) Write(ctx context.Context, points []synthesis.SeriesPoint) error {
	if w == nil || !w.started {
		return statistics.ErrWriterState
	}
	for _, p := range points {
		id, ok := w.ids[p.SensorID]
		if !ok {
			return fmt.Errorf("%w: %s", statistics.ErrUnknownSensor, p.SensorID)
		}
		table := statistics.TableFor(p.Domain)
		w.buffers[table] = append(w.buffers[table], statistics.RowFromPoint(id, p))
		if len(w.buffers[table]) >= w.chunkSize {
			if err := w.flush(ctx, table); err != nil {
				return err
			}
		}
	}
	return nil
}

// Finish commits the remaining rows, prunes history that predates the window,
// verifies the cumulative sums and refreshes continuous aggregates.
func (w *Writer) Finish(ctx context.Context) (Report, error) {
	if w == nil || !w.started {
		return Report{}, statistics.ErrWriterState
	}
	w.started = false
	for _, table := range statistics.Tables {
		if err := w.flush(ctx, table); err != nil {
			return w.report, err
		}
	}

	for _, table := range statistics.Tables {
		cutoff := w.window.EnergyStart
		if table == statistics.TableShortTerm {
			cutoff = w.window.PowerStart
		}
		removed, err := w.store.PruneBefore(ctx, table, w.tableIDs[table], cutoff)
		if err != nil {
			return w.report, fmt.Errorf("statistics writer: prune %s: %w", table, err)
		}
		w.report.Pruned[table] = removed
		metrics.AddPruned(string(table), removed)
		if removed > 0 {
			w.logger.Printf("event=writer_pruned table=%s rows=%d before=%s", table, removed, cutoff.UTC().Format(time.RFC3339))
		}
	}

	violations, err := w.store.FindMonotonicViolations(ctx, w.tableIDs[statistics.TableHourly])
	if err != nil {
		return w.report, fmt.Errorf("statistics writer: validate: %w", err)
	}
	if len(violations) > 0 {
		first := violations[0]
		return w.report, fmt.Errorf("%w: %d violations, first %s at %s (%.6f < %.6f)",
			statistics.ErrNonMonotonic, len(violations), first.StatisticID,
			first.Start.UTC().Format(time.RFC3339), first.Sum, first.PrevSum)
	}

	if len(w.views) > 0 {
		if err := w.store.RefreshAggregates(ctx, w.views, w.window.Start(), w.window.End()); err != nil {
			return w.report, fmt.Errorf("statistics writer: refresh aggregates: %w", err)
		}
	}
	return w.report, nil
}

func (w *Writer) flush(ctx context.Context, table statistics.Table) error {
	rows := w.buffers[table]
	if len(rows) == 0 {
		return nil
	}
	// an in-flight chunk may finish after cancellation, a new one never starts
	if err := ctx.Err(); err != nil {
		return err
	}
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.commitTimeout)
	defer cancel()

	chunk := w.report.Chunks + 1
	started := time.Now()
	err := w.store.UpsertRows(commitCtx, table, rows)
	if err != nil {
		metrics.ObserveChunk(string(table), metrics.ResultError, len(rows), time.Since(started))
		w.logger.Printf("event=writer_chunk_failed table=%s chunk=%d rows=%d committed=%d error=%v",
			table, chunk, len(rows), w.committed(), err)
		if errors.Is(err, statistics.ErrStoreUnavailable) {
			return fmt.Errorf("table %s chunk %d: %w", table, chunk, err)
		}
		return fmt.Errorf("%w: table %s chunk %d after %d rows: %w", statistics.ErrPartialWrite, table, chunk, w.committed(), err)
	}
	metrics.ObserveChunk(string(table), metrics.ResultSuccess, len(rows), time.Since(started))
	w.report.Chunks = chunk
	w.report.Rows[table] += len(rows)
	w.buffers[table] = make([]statistics.Row, 0, w.chunkSize)
	return nil
}

func (w *Writer) committed() int {
	total := 0
	for _, n := range w.report.Rows {
		total += n
	}
	return total
}
