package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	statistics "demo-data-generator/internal/statistics/domain"
)

func TestStoreHonoursCanceledContext(t *testing.T) {
	store := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.EnsureMetadata(ctx, []statistics.Metadata{{StatisticID: "sensor.demo_boneio_solar_production"}}); !errors.Is(err, context.Canceled) {
		t.Fatalf("ensure metadata: expected canceled, got %v", err)
	}
	if _, err := store.PruneBefore(ctx, statistics.TableHourly, []int64{1}, time.Now()); !errors.Is(err, context.Canceled) {
		t.Fatalf("prune: expected canceled, got %v", err)
	}
	if _, err := store.FindMonotonicViolations(ctx, []int64{1}); !errors.Is(err, context.Canceled) {
		t.Fatalf("violations: expected canceled, got %v", err)
	}
	if err := store.RefreshAggregates(ctx, []string{"stats_daily"}, time.Now(), time.Now()); !errors.Is(err, context.Canceled) {
		t.Fatalf("refresh: expected canceled, got %v", err)
	}
	if got := store.Refreshed(); len(got) != 0 {
		t.Fatalf("canceled refresh recorded views %v", got)
	}
}

func TestStorePruneBefore(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	ids, err := store.EnsureMetadata(ctx, []statistics.Metadata{{StatisticID: "sensor.demo_boneio_solar_production", HasSum: true}})
	if err != nil {
		t.Fatalf("ensure metadata: %v", err)
	}
	id := ids["sensor.demo_boneio_solar_production"]
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		at := start.Add(time.Duration(i) * time.Hour)
		sum := float64(i)
		store.Put(statistics.TableHourly, statistics.Row{MetadataID: id, Start: at, Created: at.Add(time.Hour), Sum: &sum, State: &sum})
	}

	removed, err := store.PruneBefore(ctx, statistics.TableHourly, []int64{id}, start.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 2 || store.Count(statistics.TableHourly) != 2 {
		t.Fatalf("expected 2 removed and 2 kept, got %d and %d", removed, store.Count(statistics.TableHourly))
	}
}
