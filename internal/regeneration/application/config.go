package application

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"gopkg.in/yaml.v3"

	catalog "demo-data-generator/internal/catalog/domain"
	regeneration "demo-data-generator/internal/regeneration/domain"
	statsapp "demo-data-generator/internal/statistics/application"
	synthesis "demo-data-generator/internal/synthesis/domain"
)

// Config is the immutable configuration of the generator.
type Config struct {
	DatabaseURL       string           `yaml:"database_url"`
	EnergyYears       float64          `yaml:"energy_years"`
	PowerDays         int              `yaml:"power_days"`
	Seed              uint64           `yaml:"seed"`
	Timezone          string           `yaml:"timezone"`
	Workers           int              `yaml:"workers"`
	HTTPAddr          string           `yaml:"http_addr"`
	SensorPackagePath string           `yaml:"sensor_package_path"`
	InitSchema        bool             `yaml:"init_schema"`
	Schedule          ScheduleConfig   `yaml:"schedule"`
	Writer            WriterConfig     `yaml:"writer"`
	Synthesis         synthesis.Config `yaml:"synthesis"`
}

// ScheduleConfig defines when regeneration runs.
type ScheduleConfig struct {
	OnStart bool   `yaml:"on_start"`
	Daily   bool   `yaml:"daily"`
	DailyAt string `yaml:"daily_at"`
}

// WriterConfig tunes the statistics writer.
type WriterConfig struct {
	ChunkSize            int           `yaml:"chunk_size"`
	CommitTimeout        time.Duration `yaml:"commit_timeout"`
	ContinuousAggregates []string      `yaml:"continuous_aggregates"`
}

// DefaultConfig returns the add-on defaults.
func DefaultConfig() Config {
	return Config{
		EnergyYears: 1,
		PowerDays:   7,
		Seed:        1,
		Schedule: ScheduleConfig{
			OnStart: true,
			Daily:   true,
			DailyAt: "03:00",
		},
		Writer: WriterConfig{
			ChunkSize:     statsapp.DefaultChunkSize,
			CommitTimeout: 2 * time.Minute,
		},
		Synthesis: synthesis.DefaultConfig(),
	}
}

// LoadConfig loads config from env with an optional yaml overlay named by DEMO_CONFIG.
func LoadConfig() (Config, error) {
	env := &envReader{}
	def := DefaultConfig()
	cfg := def
	cfg.DatabaseURL = getenvDefault("DATABASE_URL", os.Getenv("PG_DSN"))
	cfg.EnergyYears = env.getFloat("ENERGY_YEARS", def.EnergyYears)
	cfg.PowerDays = env.getInt("POWER_DAYS", def.PowerDays)
	cfg.Seed = env.getUint("SEED", def.Seed)
	cfg.Timezone = getenvDefault("TIMEZONE", os.Getenv("TZ"))
	cfg.Workers = env.getInt("SYNTHESIS_WORKERS", 0)
	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	cfg.SensorPackagePath = os.Getenv("SENSOR_PACKAGE_PATH")
	cfg.InitSchema = env.getBool("INIT_SCHEMA", false)
	cfg.Schedule.OnStart = env.getBool("REGENERATE_ON_START", def.Schedule.OnStart)
	cfg.Schedule.Daily = env.getBool("REGENERATE_DAILY", def.Schedule.Daily)
	cfg.Schedule.DailyAt = getenvDefault("REGENERATE_TIME", def.Schedule.DailyAt)
	cfg.Writer.ChunkSize = env.getInt("WRITER_CHUNK_SIZE", def.Writer.ChunkSize)
	cfg.Writer.CommitTimeout = env.getDuration("WRITER_COMMIT_TIMEOUT", def.Writer.CommitTimeout)
	cfg.Writer.ContinuousAggregates = splitCSV(os.Getenv("CONTINUOUS_AGGREGATES"))
	if err := env.err(); err != nil {
		return cfg, err
	}

	if path := os.Getenv("DEMO_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("%w: read %s: %w", regeneration.ErrConfig, path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("%w: parse %s: %w", regeneration.ErrConfig, path, err)
		}
	}
	return cfg, nil
}

// Validate checks the configuration once before any store activity.
func (c Config) Validate() error {
	var problems []string
	if c.DatabaseURL == "" {
		problems = append(problems, "database url required")
	} else if _, err := pgx.ParseConfig(c.DatabaseURL); err != nil {
		problems = append(problems, "malformed database url: "+err.Error())
	}
	if int(c.EnergyYears*365) < 1 {
		problems = append(problems, fmt.Sprintf("energy years %.3f covers no whole day", c.EnergyYears))
	}
	if c.PowerDays < 1 {
		problems = append(problems, fmt.Sprintf("power days %d must be positive", c.PowerDays))
	}
	if c.Workers < 0 {
		problems = append(problems, fmt.Sprintf("workers %d must not be negative", c.Workers))
	}
	if c.Writer.ChunkSize < 1 || c.Writer.ChunkSize > statsapp.MaxChunkSize {
		problems = append(problems, fmt.Sprintf("chunk size %d outside 1..%d", c.Writer.ChunkSize, statsapp.MaxChunkSize))
	}
	if c.Schedule.Daily {
		if _, _, err := ParseDailyAt(c.Schedule.DailyAt); err != nil {
			problems = append(problems, fmt.Sprintf("daily time %q: want HH:MM", c.Schedule.DailyAt))
		}
	}
	if _, err := c.Location(); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", regeneration.ErrConfig, strings.Join(problems, "; "))
}

// Location resolves the timezone used for calendar days and the daily time.
func (c Config) Location() (*time.Location, error) {
	switch c.Timezone {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// VerifySensorPackage checks the sensor package file against the catalog.
// An empty path skips the check.
func VerifySensorPackage(cat *catalog.Catalog, path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: sensor package: %w", regeneration.ErrConfig, err)
	}
	defer f.Close()
	if err := cat.VerifyPackage(f); err != nil {
		return fmt.Errorf("%w: %w", regeneration.ErrConfig, err)
	}
	return nil
}

// ParseDailyAt parses an HH:MM wall clock time.
func ParseDailyAt(value string) (int, int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

// envReader parses typed env values and remembers every malformed one.
type envReader struct {
	problems []string
}

func (r *envReader) lookup(key string) (string, bool) {
	value := strings.TrimSpace(os.Getenv(key))
	return value, value != ""
}

func (r *envReader) fail(key, value string) {
	r.problems = append(r.problems, fmt.Sprintf("%s=%q", key, value))
}

func (r *envReader) getInt(key string, fallback int) int {
	value, ok := r.lookup(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		r.fail(key, value)
		return fallback
	}
	return parsed
}

func (r *envReader) getUint(key string, fallback uint64) uint64 {
	value, ok := r.lookup(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		r.fail(key, value)
		return fallback
	}
	return parsed
}

func (r *envReader) getFloat(key string, fallback float64) float64 {
	value, ok := r.lookup(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		r.fail(key, value)
		return fallback
	}
	return parsed
}

func (r *envReader) getBool(key string, fallback bool) bool {
	value, ok := r.lookup(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		r.fail(key, value)
		return fallback
	}
	return parsed
}

func (r *envReader) getDuration(key string, fallback time.Duration) time.Duration {
	value, ok := r.lookup(key)
	if !ok {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		r.fail(key, value)
		return fallback
	}
	return parsed
}

func (r *envReader) err() error {
	if len(r.problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: malformed env %s", regeneration.ErrConfig, strings.Join(r.problems, ", "))
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var result []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
