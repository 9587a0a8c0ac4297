package postgres

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	statistics "demo-data-generator/internal/statistics/domain"
)

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("-- header; note\nCREATE TABLE a (id INT);\n\nCREATE INDEX b ON a (id);\n")
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(stmts), stmts)
	}
	if stmts[0] != "CREATE TABLE a (id INT)" {
		t.Fatalf("unexpected first statement %q", stmts[0])
	}
}

func TestEmbeddedSchema(t *testing.T) {
	data, err := schemaFS.ReadFile("schema/001_recorder_statistics.sql")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if got := len(splitStatements(string(data))); got != 6 {
		t.Fatalf("expected 6 schema statements, got %d", got)
	}
	for _, stmt := range splitStatements(string(data)) {
		if strings.Contains(strings.ToLower(stmt), "create_hypertable") {
			t.Fatalf("recorder tables must stay plain tables: %q", stmt)
		}
	}
}

func TestClassify(t *testing.T) {
	if classify(nil) != nil {
		t.Fatalf("nil must stay nil")
	}
	conn := &pgconn.PgError{Code: "08006", Message: "connection failure"}
	if err := classify(fmt.Errorf("exec: %w", conn)); !errors.Is(err, statistics.ErrStoreUnavailable) {
		t.Fatalf("connection failure not classified: %v", err)
	}
	unique := &pgconn.PgError{Code: "23505", Message: "duplicate key"}
	if err := classify(unique); errors.Is(err, statistics.ErrStoreUnavailable) {
		t.Fatalf("constraint error classified as unavailable")
	}
	wrapped := classify(classify(conn))
	if !errors.Is(wrapped, statistics.ErrStoreUnavailable) {
		t.Fatalf("double classification lost the sentinel")
	}
}

func TestRefreshCallBounds(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.FixedZone("CET", 3600))
	end := start.Add(48 * time.Hour)

	query, args := refreshCall("stats_daily", "bigint", start, end)
	if !strings.Contains(query, "$2::bigint") {
		t.Fatalf("expected epoch bounds, got %q", query)
	}
	if args[1] != start.Unix() || args[2] != end.Unix() {
		t.Fatalf("unexpected epoch args %v", args)
	}
	if _, args := refreshCall("stats_daily", " INTEGER ", start, end); args[1] != start.Unix() {
		t.Fatalf("integer dimension must use epoch bounds, got %v", args)
	}

	for _, columnType := range []string{"timestamp with time zone", ""} {
		query, args := refreshCall("stats_daily", columnType, start, end)
		if !strings.Contains(query, "$2::timestamptz") {
			t.Fatalf("%q: expected timestamptz bounds, got %q", columnType, query)
		}
		if got := args[1].(time.Time); !got.Equal(start) || got.Location() != time.UTC {
			t.Fatalf("%q: unexpected start %v", columnType, got)
		}
	}
}
