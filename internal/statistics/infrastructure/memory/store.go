package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	statistics "demo-data-generator/internal/statistics/domain"
)

var _ statistics.Store = (*Store)(nil)

// Store is an in-memory statistics store for tests and dry runs.
type Store struct {
	mu       sync.RWMutex
	nextID   int64
	meta     map[string]int64
	metaRows map[int64]statistics.Metadata
	rows     map[statistics.Table]map[statistics.Key]statistics.Row
	refresh  []string
}

// NewStore constructs an empty store.
func NewStore() *Store {
	s := &Store{
		meta:     make(map[string]int64),
		metaRows: make(map[int64]statistics.Metadata),
		rows:     make(map[statistics.Table]map[statistics.Key]statistics.Row),
	}
	for _, t := range statistics.Tables {
		s.rows[t] = make(map[statistics.Key]statistics.Row)
	}
	return s
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// EnsureMetadata assigns ids to unseen statistic ids and updates the rest.
func (s *Store) EnsureMetadata(ctx context.Context, meta []statistics.Metadata) (map[string]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make(map[string]int64, len(meta))
	for _, m := range meta {
		if m.StatisticID == "" {
			return nil, errors.New("memory statistics store: empty statistic id")
		}
		id, ok := s.meta[m.StatisticID]
		if !ok {
			s.nextID++
			id = s.nextID
			s.meta[m.StatisticID] = id
		}
		s.metaRows[id] = m
		ids[m.StatisticID] = id
	}
	return ids, nil
}

// UpsertRows replaces rows by key. A chunk is applied entirely or not at all.
func (s *Store) UpsertRows(ctx context.Context, table statistics.Table, rows []statistics.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.rows[table]
	if !ok {
		return errors.New("memory statistics store: unknown table")
	}
	for _, r := range rows {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	for _, r := range rows {
		target[r.Key()] = r
	}
	return nil
}

// PruneBefore removes rows of ids starting before the cutoff.
func (s *Store) PruneBefore(ctx context.Context, table statistics.Table, ids []int64, before time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := idSet(ids)
	cutoff := before.Unix()
	var removed int64
	for k := range s.rows[table] {
		if _, ok := wanted[k.MetadataID]; ok && k.StartTS < cutoff {
			delete(s.rows[table], k)
			removed++
		}
	}
	return removed, nil
}

// FindMonotonicViolations scans hourly sums in start order.
func (s *Store) FindMonotonicViolations(ctx context.Context, ids []int64) ([]statistics.Violation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := idSet(ids)
	series := make(map[int64][]statistics.Row)
	for k, r := range s.rows[statistics.TableHourly] {
		if _, ok := wanted[k.MetadataID]; ok && r.Sum != nil {
			series[k.MetadataID] = append(series[k.MetadataID], r)
		}
	}
	var out []statistics.Violation
	for id, rows := range series {
		sort.Slice(rows, func(i, j int) bool { return rows[i].Start.Before(rows[j].Start) })
		for i := 1; i < len(rows); i++ {
			if *rows[i].Sum < *rows[i-1].Sum {
				out = append(out, statistics.Violation{
					StatisticID: s.metaRows[id].StatisticID,
					Start:       rows[i].Start,
					PrevSum:     *rows[i-1].Sum,
					Sum:         *rows[i].Sum,
				})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StatisticID != out[j].StatisticID {
			return out[i].StatisticID < out[j].StatisticID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}

// RefreshAggregates records the refreshed views.
func (s *Store) RefreshAggregates(ctx context.Context, views []string, _, _ time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh = append(s.refresh, views...)
	return nil
}

// Rows returns the rows of a statistic id in start order.
func (s *Store) Rows(table statistics.Table, statisticID string) []statistics.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.meta[statisticID]
	if !ok {
		return nil
	}
	var out []statistics.Row
	for k, r := range s.rows[table] {
		if k.MetadataID == id {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// Count returns the number of rows in a table.
func (s *Store) Count(table statistics.Table) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows[table])
}

// Refreshed returns the views refreshed so far.
func (s *Store) Refreshed() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.refresh...)
}

// Put stores a row directly, bypassing validation of the writer.
func (s *Store) Put(table statistics.Table, row statistics.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[table][row.Key()] = row
}

func idSet(ids []int64) map[int64]struct{} {
	out := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}
