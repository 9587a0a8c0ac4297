package statistics

import (
	"context"
	"time"
)

// Violation is a cumulative sum that decreased between consecutive hours.
type Violation struct {
	StatisticID string
	Start       time.Time
	PrevSum     float64
	Sum         float64
}

// Store persists recorder statistics.
type Store interface {
	Ping(ctx context.Context) error
	// EnsureMetadata upserts metadata rows and returns ids keyed by statistic id.
	EnsureMetadata(ctx context.Context, meta []Metadata) (map[string]int64, error)
	// UpsertRows writes rows in one transaction, replacing rows with the same key.
	UpsertRows(ctx context.Context, table Table, rows []Row) error
	// PruneBefore deletes rows of the given metadata ids that start before t.
	PruneBefore(ctx context.Context, table Table, ids []int64, before time.Time) (int64, error)
	// FindMonotonicViolations returns decreasing sums of the given metadata ids.
	FindMonotonicViolations(ctx context.Context, ids []int64) ([]Violation, error)
	// RefreshAggregates refreshes continuous aggregates over [start, end).
	RefreshAggregates(ctx context.Context, views []string, start, end time.Time) error
}
