package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	regenapp "demo-data-generator/internal/regeneration/application"
	regeneration "demo-data-generator/internal/regeneration/domain"
	statistics "demo-data-generator/internal/statistics/domain"
)

func TestParseFlagsOverridesEnv(t *testing.T) {
	base := regenapp.DefaultConfig()
	base.DatabaseURL = "postgres://env@localhost/ha"

	cfg, err := parseFlags([]string{"--energy-years", "0.5", "--power-days", "3", "--seed", "99", "--chunk-size", "1000", "--workers", "2", "--init-schema"}, base, io.Discard)
	if err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if cfg.DatabaseURL != base.DatabaseURL {
		t.Fatalf("unset flag changed dsn: %q", cfg.DatabaseURL)
	}
	if cfg.EnergyYears != 0.5 || cfg.PowerDays != 3 || cfg.Seed != 99 {
		t.Fatalf("unexpected window flags: %+v", cfg)
	}
	if cfg.Writer.ChunkSize != 1000 || cfg.Workers != 2 || !cfg.InitSchema {
		t.Fatalf("unexpected writer flags: %+v", cfg)
	}
}

func TestParseFlagsRejectsUnknown(t *testing.T) {
	_, err := parseFlags([]string{"--energy-years", "one"}, regenapp.DefaultConfig(), io.Discard)
	if !errors.Is(err, regeneration.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
	_, err = parseFlags([]string{"extra"}, regenapp.DefaultConfig(), io.Discard)
	if !errors.Is(err, regeneration.ErrConfig) {
		t.Fatalf("expected config error for positional args, got %v", err)
	}
}

func TestRunExitsWithConfigCode(t *testing.T) {
	t.Setenv("DEMO_CONFIG", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PG_DSN", "")
	var logs bytes.Buffer
	logger := log.New(&logs, "", 0)

	cases := map[string][]string{
		"missing dsn":   nil,
		"malformed dsn": {"--db-url", "postgres://bad host:abc"},
		"bad flag":      {"--chunk-size", "huge"},
		"chunk too big": {"--db-url", "postgres://ha@localhost/ha", "--chunk-size", "8000"},
	}
	for name, args := range cases {
		if code := run(context.Background(), args, logger); code != exitConfig {
			t.Fatalf("%s: expected exit %d, got %d", name, exitConfig, code)
		}
	}
	if !strings.Contains(logs.String(), "event=config_error") {
		t.Fatalf("expected config error log, got %q", logs.String())
	}
}

func TestRunExitsWithConfigCodeOnCatalogMismatch(t *testing.T) {
	t.Setenv("DEMO_CONFIG", "")
	path := filepath.Join(t.TempDir(), "package.yaml")
	if err := os.WriteFile(path, []byte("template:\n  - sensor:\n      - unique_id: demo_other\n"), 0o600); err != nil {
		t.Fatalf("write package: %v", err)
	}
	logger := log.New(io.Discard, "", 0)
	args := []string{"--db-url", "postgres://ha@localhost/ha", "--sensor-package", path}
	if code := run(context.Background(), args, logger); code != exitConfig {
		t.Fatalf("expected exit %d, got %d", exitConfig, code)
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{fmt.Errorf("%w: bad", regeneration.ErrConfig), exitConfig},
		{fmt.Errorf("chunk: %w", statistics.ErrPartialWrite), exitFailed},
		{fmt.Errorf("ping: %w", statistics.ErrStoreUnavailable), exitFailed},
		{context.Canceled, exitFailed},
	}
	for _, tc := range cases {
		if got := exitCode(tc.err); got != tc.want {
			t.Fatalf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
