package application

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	catalog "demo-data-generator/internal/catalog/domain"
	statistics "demo-data-generator/internal/statistics/domain"
	"demo-data-generator/internal/statistics/infrastructure/memory"
	synthesis "demo-data-generator/internal/synthesis/domain"
)

var quietLogger = log.New(io.Discard, "", 0)

type failingStore struct {
	*memory.Store
	failAfter int
	calls     int
	err       error
}

func (s *failingStore) UpsertRows(ctx context.Context, table statistics.Table, rows []statistics.Row) error {
	s.calls++
	if s.calls > s.failAfter {
		return s.err
	}
	return s.Store.UpsertRows(ctx, table, rows)
}

func testWindow(t *testing.T) synthesis.Window {
	t.Helper()
	w, err := synthesis.NewWindow(time.Date(2024, 4, 2, 9, 20, 0, 0, time.UTC), 0.01, 1)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	return w
}

func generate(t *testing.T, w synthesis.Window, seed uint64) [][]synthesis.SeriesPoint {
	t.Helper()
	seq := synthesis.NewSequencer(catalog.Default(), w, synthesis.DefaultBatteryConfig())
	var batches [][]synthesis.SeriesPoint
	for _, day := range w.Days(time.UTC) {
		points, err := seq.Day(synthesis.SynthesizeDay(day, seed, synthesis.DefaultConfig()))
		if err != nil {
			t.Fatalf("day: %v", err)
		}
		batches = append(batches, points)
	}
	tail, err := seq.Close()
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	return append(batches, tail)
}

func writeAll(t *testing.T, writer *Writer, w synthesis.Window, batches [][]synthesis.SeriesPoint) (Report, error) {
	t.Helper()
	ctx := context.Background()
	if err := writer.Begin(ctx, w); err != nil {
		t.Fatalf("begin: %v", err)
	}
	for _, b := range batches {
		if err := writer.Write(ctx, b); err != nil {
			return Report{}, err
		}
	}
	return writer.Finish(ctx)
}

func TestWriterIdempotentRegeneration(t *testing.T) {
	store := memory.NewStore()
	w := testWindow(t)
	cat := catalog.Default()

	first, err := writeAll(t, NewWriter(store, cat, WithChunkSize(500), WithLogger(quietLogger)), w, generate(t, w, 1))
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	hourly, shortTerm := store.Count(statistics.TableHourly), store.Count(statistics.TableShortTerm)
	if hourly != 16*w.EnergyHours() || shortTerm != 13*w.PowerTicks() {
		t.Fatalf("unexpected row counts %d %d", hourly, shortTerm)
	}
	if first.Chunks < 2 {
		t.Fatalf("expected several chunks, got %d", first.Chunks)
	}

	if _, err := writeAll(t, NewWriter(store, cat, WithLogger(quietLogger)), w, generate(t, w, 2)); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if store.Count(statistics.TableHourly) != hourly || store.Count(statistics.TableShortTerm) != shortTerm {
		t.Fatalf("regeneration changed row counts")
	}

	// the latest run wins
	want := generate(t, w, 2)
	solar, _ := cat.ByRole(catalog.DomainEnergy, catalog.RoleSolarProduction)
	rows := store.Rows(statistics.TableHourly, solar.ID)
	var latest []synthesis.SeriesPoint
	for _, b := range want {
		for _, p := range b {
			if p.SensorID == solar.ID {
				latest = append(latest, p)
			}
		}
	}
	if len(rows) != len(latest) {
		t.Fatalf("expected %d rows, got %d", len(latest), len(rows))
	}
	for i, r := range rows {
		if *r.Sum != latest[i].Sum || *r.State != latest[i].Value {
			t.Fatalf("row %d not replaced by the latest run", i)
		}
	}
}

func TestWriterPrunesEarlierHistory(t *testing.T) {
	store := memory.NewStore()
	w := testWindow(t)
	cat := catalog.Default()
	writer := NewWriter(store, cat, WithLogger(quietLogger))
	if err := writer.Begin(context.Background(), w); err != nil {
		t.Fatalf("begin: %v", err)
	}
	solar, _ := cat.ByRole(catalog.DomainEnergy, catalog.RoleSolarProduction)
	ids, _ := store.EnsureMetadata(context.Background(), []statistics.Metadata{statistics.MetadataFor(solar)})
	old := 99.0
	store.Put(statistics.TableHourly, statistics.Row{MetadataID: ids[solar.ID], Start: w.EnergyStart.Add(-48 * time.Hour), Sum: &old, State: &old})

	for _, b := range generate(t, w, 1) {
		if err := writer.Write(context.Background(), b); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	report, err := writer.Finish(context.Background())
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if report.Pruned[statistics.TableHourly] != 1 {
		t.Fatalf("expected one pruned row, got %d", report.Pruned[statistics.TableHourly])
	}
	if rows := store.Rows(statistics.TableHourly, solar.ID); !rows[0].Start.Equal(w.EnergyStart) {
		t.Fatalf("history before the window survived: %s", rows[0].Start)
	}
}

func TestWriterChunkFailureStopsRun(t *testing.T) {
	boom := errors.New("constraint")
	store := &failingStore{Store: memory.NewStore(), failAfter: 1, err: boom}
	w := testWindow(t)
	_, err := writeAll(t, NewWriter(store, catalog.Default(), WithChunkSize(100), WithLogger(quietLogger)), w, generate(t, w, 1))
	if !errors.Is(err, statistics.ErrPartialWrite) || !errors.Is(err, boom) {
		t.Fatalf("expected partial write, got %v", err)
	}
	if store.calls != 2 {
		t.Fatalf("writer kept committing after failure: %d calls", store.calls)
	}

	unavailable := &failingStore{Store: memory.NewStore(), failAfter: 0, err: statistics.ErrStoreUnavailable}
	_, err = writeAll(t, NewWriter(unavailable, catalog.Default(), WithLogger(quietLogger)), w, generate(t, w, 1))
	if !errors.Is(err, statistics.ErrStoreUnavailable) || errors.Is(err, statistics.ErrPartialWrite) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
}

func TestWriterDetectsNonMonotonicSums(t *testing.T) {
	store := memory.NewStore()
	w := testWindow(t)
	cat := catalog.Default()
	writer := NewWriter(store, cat, WithLogger(quietLogger))
	if err := writer.Begin(context.Background(), w); err != nil {
		t.Fatalf("begin: %v", err)
	}
	batches := generate(t, w, 1)
	for _, b := range batches {
		if err := writer.Write(context.Background(), b); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	grid, _ := cat.ByRole(catalog.DomainEnergy, catalog.RoleGridImport)
	ids, _ := store.EnsureMetadata(context.Background(), []statistics.Metadata{statistics.MetadataFor(grid)})
	negative := -1.0
	store.Put(statistics.TableHourly, statistics.Row{MetadataID: ids[grid.ID], Start: w.EnergyEnd, Sum: &negative})

	_, err := writer.Finish(context.Background())
	if !errors.Is(err, statistics.ErrNonMonotonic) {
		t.Fatalf("expected non-monotonic error, got %v", err)
	}
}

func TestWriterRejectsUnknownSensorAndState(t *testing.T) {
	writer := NewWriter(memory.NewStore(), catalog.Default(), WithLogger(quietLogger))
	if err := writer.Write(context.Background(), nil); !errors.Is(err, statistics.ErrWriterState) {
		t.Fatalf("expected state error, got %v", err)
	}
	if err := writer.Begin(context.Background(), testWindow(t)); err != nil {
		t.Fatalf("begin: %v", err)
	}
	err := writer.Write(context.Background(), []synthesis.SeriesPoint{{SensorID: "sensor.other", Domain: catalog.DomainPower, Start: time.Now()}})
	if !errors.Is(err, statistics.ErrUnknownSensor) {
		t.Fatalf("expected unknown sensor, got %v", err)
	}
}

func TestWriterCanceledStartsNoChunk(t *testing.T) {
	store := &failingStore{Store: memory.NewStore(), failAfter: 1 << 30}
	w := testWindow(t)
	writer := NewWriter(store, catalog.Default(), WithChunkSize(10), WithLogger(quietLogger))
	ctx, cancel := context.WithCancel(context.Background())
	if err := writer.Begin(ctx, w); err != nil {
		t.Fatalf("begin: %v", err)
	}
	cancel()
	err := writer.Write(ctx, generate(t, w, 1)[0])
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if store.calls != 0 {
		t.Fatalf("chunk started after cancellation")
	}
}

func TestWriterRefreshesAggregates(t *testing.T) {
	store := memory.NewStore()
	w := testWindow(t)
	writer := NewWriter(store, catalog.Default(), WithContinuousAggregates("statistics_daily", ""), WithLogger(quietLogger))
	if _, err := writeAll(t, writer, w, generate(t, w, 3)); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := store.Refreshed(); len(got) != 1 || got[0] != "statistics_daily" {
		t.Fatalf("unexpected refreshed views %v", got)
	}
	if chunkSize := NewWriter(store, catalog.Default(), WithChunkSize(100000)).chunkSize; chunkSize != MaxChunkSize {
		t.Fatalf("chunk size not capped: %d", chunkSize)
	}
}
