package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	catalog "demo-data-generator/internal/catalog/domain"
	regenapp "demo-data-generator/internal/regeneration/application"
	regeneration "demo-data-generator/internal/regeneration/domain"
	statspg "demo-data-generator/internal/statistics/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitConfig = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], log.New(os.Stdout, "", log.LstdFlags))
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, logger *log.Logger) int {
	cfg, err := regenapp.LoadConfig()
	if err != nil {
		logger.Printf("event=config_error error=%v", err)
		return exitConfig
	}
	cfg, err = parseFlags(args, cfg, logger.Writer())
	if err != nil {
		logger.Printf("event=config_error error=%v", err)
		return exitConfig
	}
	if err := cfg.Validate(); err != nil {
		logger.Printf("event=config_error error=%v", err)
		return exitConfig
	}
	cat := catalog.Default()
	if err := regenapp.VerifySensorPackage(cat, cfg.SensorPackagePath); err != nil {
		logger.Printf("event=catalog_mismatch path=%s error=%v", cfg.SensorPackagePath, err)
		return exitConfig
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Printf("event=config_error error=open db: %v", err)
		return exitConfig
	}
	defer db.Close()

	store := statspg.NewStore(db)
	if cfg.InitSchema {
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Printf("event=schema_error error=%v", err)
			return exitCode(err)
		}
	}

	runner := regenapp.NewRunner(store, cat, cfg, logger)
	if _, err := runner.Run(ctx, regeneration.TriggerManual); err != nil {
		return exitCode(err)
	}
	return exitOK
}

// parseFlags overlays command line flags on cfg. Unset flags keep the env value.
func parseFlags(args []string, cfg regenapp.Config, output io.Writer) (regenapp.Config, error) {
	fs := flag.NewFlagSet("regenerate", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&cfg.DatabaseURL, "db-url", cfg.DatabaseURL, "Postgres DSN of the recorder database")
	fs.Float64Var(&cfg.EnergyYears, "energy-years", cfg.EnergyYears, "years of hourly energy history")
	fs.IntVar(&cfg.PowerDays, "power-days", cfg.PowerDays, "days of 5-minute power history")
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "base seed of the synthesis")
	fs.IntVar(&cfg.Writer.ChunkSize, "chunk-size", cfg.Writer.ChunkSize, "rows per committed chunk")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "parallel day synthesizers (0 = GOMAXPROCS)")
	fs.BoolVar(&cfg.InitSchema, "init-schema", cfg.InitSchema, "create recorder statistics tables if absent")
	fs.StringVar(&cfg.Timezone, "timezone", cfg.Timezone, "IANA timezone of calendar days")
	fs.StringVar(&cfg.SensorPackagePath, "sensor-package", cfg.SensorPackagePath, "sensor package yaml to verify against the catalog")
	if err := fs.Parse(args); err != nil {
		return cfg, fmt.Errorf("%w: %w", regeneration.ErrConfig, err)
	}
	if fs.NArg() > 0 {
		return cfg, fmt.Errorf("%w: unexpected arguments %v", regeneration.ErrConfig, fs.Args())
	}
	return cfg, nil
}

func exitCode(err error) int {
	switch regeneration.Kind(err) {
	case regeneration.KindNone:
		return exitOK
	case regeneration.KindConfig:
		return exitConfig
	default:
		return exitFailed
	}
}
