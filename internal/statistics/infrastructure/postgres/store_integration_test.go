package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	catalog "demo-data-generator/internal/catalog/domain"
	statistics "demo-data-generator/internal/statistics/domain"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("homeassistant"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := NewStore(db)
	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.EnsureSchema(ctx), "schema must be idempotent")
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	cat := catalog.Default()
	meta := make([]statistics.Metadata, 0, cat.Len())
	for _, s := range cat.Sensors() {
		meta = append(meta, statistics.MetadataFor(s))
	}
	ids, err := store.EnsureMetadata(ctx, meta)
	require.NoError(t, err)
	require.Len(t, ids, cat.Len())

	again, err := store.EnsureMetadata(ctx, meta)
	require.NoError(t, err)
	require.Equal(t, ids, again, "metadata ids must be stable")

	solar := ids["sensor.demo_boneio_solar_production"]
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]statistics.Row, 0, 48)
	for i := 0; i < 48; i++ {
		state := float64(i % 3)
		sum := float64(i)
		rows = append(rows, statistics.Row{
			MetadataID: solar,
			Start:      start.Add(time.Duration(i) * time.Hour),
			Created:    start.Add(time.Duration(i+1) * time.Hour),
			State:      &state,
			Sum:        &sum,
		})
	}
	require.NoError(t, store.UpsertRows(ctx, statistics.TableHourly, rows))
	require.NoError(t, store.UpsertRows(ctx, statistics.TableHourly, rows), "upsert must be idempotent")

	var count int
	require.NoError(t, store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM statistics WHERE metadata_id = $1", solar).Scan(&count))
	require.Equal(t, 48, count)

	violations, err := store.FindMonotonicViolations(ctx, []int64{solar})
	require.NoError(t, err)
	require.Empty(t, violations)

	broken := -5.0
	rows[10].Sum = &broken
	require.NoError(t, store.UpsertRows(ctx, statistics.TableHourly, rows[10:11]))
	violations, err = store.FindMonotonicViolations(ctx, []int64{solar})
	require.NoError(t, err)
	require.Len(t, violations, 1)
	require.Equal(t, "sensor.demo_boneio_solar_production", violations[0].StatisticID)
	require.True(t, violations[0].Start.Equal(rows[10].Start))

	removed, err := store.PruneBefore(ctx, statistics.TableHourly, []int64{solar}, start.Add(24*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 24, removed)
}

func TestStoreShortTermRows(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	cat := catalog.Default()
	power, _ := cat.ByRole(catalog.DomainPower, catalog.RoleSolarProduction)
	ids, err := store.EnsureMetadata(ctx, []statistics.Metadata{statistics.MetadataFor(power)})
	require.NoError(t, err)

	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	var rows []statistics.Row
	for i := 0; i < 12; i++ {
		mean := 1000.0 + float64(i)
		lo, hi := mean*0.95, mean*1.05
		rows = append(rows, statistics.Row{
			MetadataID: ids[power.ID],
			Start:      start.Add(time.Duration(i) * 5 * time.Minute),
			Created:    start.Add(time.Duration(i+1) * 5 * time.Minute),
			Mean:       &mean,
			Min:        &lo,
			Max:        &hi,
		})
	}
	require.NoError(t, store.UpsertRows(ctx, statistics.TableShortTerm, rows))

	var mean float64
	var sum sql.NullFloat64
	require.NoError(t, store.db.QueryRowContext(ctx,
		"SELECT mean, sum FROM statistics_short_term WHERE metadata_id = $1 ORDER BY start_ts DESC LIMIT 1", ids[power.ID]).Scan(&mean, &sum))
	require.InDelta(t, 1011.0, mean, 1e-9)
	require.False(t, sum.Valid)
}
