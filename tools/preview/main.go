package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	catalog "demo-data-generator/internal/catalog/domain"
	"demo-data-generator/internal/preview"
	regenapp "demo-data-generator/internal/regeneration/application"
)

type config struct {
	date     string
	seed     uint64
	timezone string
	format   string
	outDir   string
}

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)
	base, err := regenapp.LoadConfig()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	cfg, err := parseConfig(os.Args[1:], base, os.Stderr)
	if err != nil {
		logger.Fatalf("invalid flags: %v", err)
	}
	base.Timezone = cfg.timezone
	loc, err := base.Location()
	if err != nil {
		logger.Fatalf("invalid timezone: %v", err)
	}
	date, err := parseDate(cfg.date, loc, time.Now())
	if err != nil {
		logger.Fatalf("invalid date: %v", err)
	}

	paths, err := export(catalog.Default(), date, cfg, base)
	if err != nil {
		logger.Fatalf("preview %s: %v", date.Format("2006-01-02"), err)
	}
	for _, p := range paths {
		logger.Printf("wrote %s", p)
	}
}

func parseConfig(args []string, base regenapp.Config, output io.Writer) (config, error) {
	cfg := config{}
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&cfg.date, "date", "", "local day to preview (YYYY-MM-DD, default yesterday)")
	fs.Uint64Var(&cfg.seed, "seed", base.Seed, "base seed of the synthesis")
	fs.StringVar(&cfg.timezone, "timezone", base.Timezone, "IANA timezone of the day")
	fs.StringVar(&cfg.format, "format", "both", "output format: xlsx, pdf or both")
	fs.StringVar(&cfg.outDir, "out-dir", ".", "directory for the generated files")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	switch cfg.format {
	case "xlsx", "pdf", "both":
	default:
		return cfg, fmt.Errorf("unknown format %q", cfg.format)
	}
	return cfg, nil
}

func parseDate(value string, loc *time.Location, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		y, m, d := now.In(loc).AddDate(0, 0, -1).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
	}
	return time.ParseInLocation("2006-01-02", value, loc)
}

func export(cat *catalog.Catalog, date time.Time, cfg config, base regenapp.Config) ([]string, error) {
	day, err := preview.BuildDay(cat, date, cfg.seed, base.Synthesis)
	if err != nil {
		return nil, err
	}
	name := "demo-preview-" + date.Format("2006-01-02")
	var written []string
	if cfg.format == "xlsx" || cfg.format == "both" {
		data, err := preview.BuildXLSX(cat, day)
		if err != nil {
			return written, err
		}
		path := filepath.Join(cfg.outDir, name+".xlsx")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	if cfg.format == "pdf" || cfg.format == "both" {
		data, err := preview.BuildPDF(cat, day)
		if err != nil {
			return written, err
		}
		path := filepath.Join(cfg.outDir, name+".pdf")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}
