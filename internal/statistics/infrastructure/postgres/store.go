package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	statistics "demo-data-generator/internal/statistics/domain"
)

const (
	defaultMetaTable = "statistics_meta"
	rowColumns       = 8
	violationLimit   = 100
)

var _ statistics.Store = (*Store)(nil)

// Store is the Postgres implementation of the recorder statistics store.
type Store struct {
	db        *sql.DB
	metaTable string
	tables    map[statistics.Table]string
}

// StoreOption configures the store.
type StoreOption func(*Store)

// WithTable maps a statistics table to another physical table name.
func WithTable(table statistics.Table, name string) StoreOption {
	return func(s *Store) {
		if name != "" {
			s.tables[table] = name
		}
	}
}

// WithMetaTable overrides the statistics_meta table name.
func WithMetaTable(name string) StoreOption {
	return func(s *Store) {
		if name != "" {
			s.metaTable = name
		}
	}
}

// NewStore constructs a store on an open database.
func NewStore(db *sql.DB, opts ...StoreOption) *Store {
	s := &Store{
		db:        db,
		metaTable: defaultMetaTable,
		tables: map[statistics.Table]string{
			statistics.TableHourly:    string(statistics.TableHourly),
			statistics.TableShortTerm: string(statistics.TableShortTerm),
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("statistics store: nil db")
	}
	return classify(s.db.PingContext(ctx))
}

// EnsureMetadata upserts statistics_meta rows on statistic_id.
func (s *Store) EnsureMetadata(ctx context.Context, meta []statistics.Metadata) (map[string]int64, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("statistics store: nil db")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	statistic_id,
	source,
	unit_of_measurement,
	has_mean,
	has_sum,
	name,
	mean_type
) VALUES (
	$1, $2, $3, $4, $5, $6, $7
)
ON CONFLICT (statistic_id)
DO UPDATE SET
	source = EXCLUDED.source,
	unit_of_measurement = EXCLUDED.unit_of_measurement,
	has_mean = EXCLUDED.has_mean,
	has_sum = EXCLUDED.has_sum,
	name = EXCLUDED.name,
	mean_type = EXCLUDED.mean_type
RETURNING id`, s.metaTable)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(err)
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return nil, classify(err)
	}
	defer stmt.Close()

	ids := make(map[string]int64, len(meta))
	for _, m := range meta {
		if m.StatisticID == "" {
			_ = tx.Rollback()
			return nil, errors.New("statistics store: empty statistic id")
		}
		var id int64
		if err := stmt.QueryRowContext(ctx, m.StatisticID, m.Source, m.UnitOfMeasurement, m.HasMean, m.HasSum, m.Name, m.MeanType).Scan(&id); err != nil {
			_ = tx.Rollback()
			return nil, classify(err)
		}
		ids[m.StatisticID] = id
	}
	if err := tx.Commit(); err != nil {
		return nil, classify(err)
	}
	return ids, nil
}

// UpsertRows writes one chunk as a single multi-row upsert in a transaction.
func (s *Store) UpsertRows(ctx context.Context, table statistics.Table, rows []statistics.Row) error {
	if s == nil || s.db == nil {
		return errors.New("statistics store: nil db")
	}
	if len(rows) == 0 {
		return nil
	}
	name, err := s.table(table)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (created_ts, metadata_id, start_ts, mean, min, max, state, sum) VALUES ", name)
	args := make([]any, 0, len(rows)*rowColumns)
	for i, r := range rows {
		if err := r.Validate(); err != nil {
			return err
		}
		if i > 0 {
			b.WriteString(", ")
		}
		n := i * rowColumns
		fmt.Fprintf(&b, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5, n+6, n+7, n+8)
		args = append(args,
			epoch(r.Created),
			r.MetadataID,
			epoch(r.Start),
			nullFloat(r.Mean),
			nullFloat(r.Min),
			nullFloat(r.Max),
			nullFloat(r.State),
			nullFloat(r.Sum),
		)
	}
	b.WriteString(`
ON CONFLICT (metadata_id, start_ts)
DO UPDATE SET
	created_ts = EXCLUDED.created_ts,
	mean = EXCLUDED.mean,
	min = EXCLUDED.min,
	max = EXCLUDED.max,
	state = EXCLUDED.state,
	sum = EXCLUDED.sum`)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	if _, err := tx.ExecContext(ctx, b.String(), args...); err != nil {
		_ = tx.Rollback()
		return classify(err)
	}
	return classify(tx.Commit())
}

// PruneBefore deletes rows of the given metadata ids starting before the cutoff.
func (s *Store) PruneBefore(ctx context.Context, table statistics.Table, ids []int64, before time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("statistics store: nil db")
	}
	if len(ids) == 0 {
		return 0, nil
	}
	name, err := s.table(table)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE metadata_id = ANY($1) AND start_ts < $2`, name), ids, epoch(before))
	if err != nil {
		return 0, classify(err)
	}
	return res.RowsAffected()
}

// FindMonotonicViolations compares every hourly sum with its predecessor.
func (s *Store) FindMonotonicViolations(ctx context.Context, ids []int64) ([]statistics.Violation, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("statistics store: nil db")
	}
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`
SELECT m.statistic_id, s.start_ts, s.prev_sum, s.sum
FROM (
	SELECT metadata_id, start_ts, sum,
		LAG(sum) OVER (PARTITION BY metadata_id ORDER BY start_ts) AS prev_sum
	FROM %s
	WHERE metadata_id = ANY($1) AND sum IS NOT NULL
) s
JOIN %s m ON m.id = s.metadata_id
WHERE s.sum < s.prev_sum
ORDER BY m.statistic_id, s.start_ts
LIMIT %d`, s.tables[statistics.TableHourly], s.metaTable, violationLimit)

	rows, err := s.db.QueryContext(ctx, query, ids)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []statistics.Violation
	for rows.Next() {
		var (
			v       statistics.Violation
			startTS float64
		)
		if err := rows.Scan(&v.StatisticID, &startTS, &v.PrevSum, &v.Sum); err != nil {
			return nil, err
		}
		v.Start = fromEpoch(startTS)
		out = append(out, v)
	}
	return out, classify(rows.Err())
}

// RefreshAggregates refreshes TimescaleDB continuous aggregates over the window.
// Views over an integer time dimension get epoch second bounds, all others
// timestamptz bounds.
func (s *Store) RefreshAggregates(ctx context.Context, views []string, start, end time.Time) error {
	if s == nil || s.db == nil {
		return errors.New("statistics store: nil db")
	}
	for _, view := range views {
		var columnType string
		err := s.db.QueryRowContext(ctx, aggregateTimeTypeQuery, view).Scan(&columnType)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("inspect %s: %w", view, classify(err))
		}
		query, args := refreshCall(view, columnType, start, end)
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("refresh %s: %w", view, classify(err))
		}
	}
	return nil
}

const aggregateTimeTypeQuery = `SELECT d.column_type::text
FROM timescaledb_information.continuous_aggregates c
JOIN timescaledb_information.dimensions d
	ON d.hypertable_schema = c.hypertable_schema AND d.hypertable_name = c.hypertable_name
WHERE format('%I.%I', c.view_schema, c.view_name)::regclass = $1::regclass
	AND d.dimension_number = 1`

func refreshCall(view, columnType string, start, end time.Time) (string, []any) {
	switch strings.ToLower(strings.TrimSpace(columnType)) {
	case "smallint", "integer", "bigint":
		return `CALL refresh_continuous_aggregate($1::regclass, $2::bigint, $3::bigint)`,
			[]any{view, start.Unix(), end.Unix()}
	}
	return `CALL refresh_continuous_aggregate($1::regclass, $2::timestamptz, $3::timestamptz)`,
		[]any{view, start.UTC(), end.UTC()}
}

func (s *Store) table(t statistics.Table) (string, error) {
	name, ok := s.tables[t]
	if !ok {
		return "", fmt.Errorf("statistics store: unknown table %q", t)
	}
	return name, nil
}

func epoch(t time.Time) float64 {
	return float64(t.Unix())
}

func fromEpoch(v float64) time.Time {
	return time.Unix(int64(v), 0).UTC()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
