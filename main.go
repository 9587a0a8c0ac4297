package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	catalog "demo-data-generator/internal/catalog/domain"
	"demo-data-generator/internal/observability/metrics"
	regenapp "demo-data-generator/internal/regeneration/application"
	regenhttp "demo-data-generator/internal/regeneration/interfaces/http"
	statspg "demo-data-generator/internal/statistics/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	cfg, err := regenapp.LoadConfig()
	if err != nil {
		logger.Fatalf("event=config_error error=%v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("event=config_error error=%v", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Fatalf("event=config_error error=%v", err)
	}

	cat := catalog.Default()
	if err := regenapp.VerifySensorPackage(cat, cfg.SensorPackagePath); err != nil {
		logger.Fatalf("event=catalog_mismatch path=%s error=%v", cfg.SensorPackagePath, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	metrics.Init(db, logger)

	runner, scheduler, err := newService(ctx, cfg, statspg.NewStore(db), cat, logger)
	if err != nil {
		logger.Fatalf("event=config_error error=%v", err)
	}

	var server *http.Server
	if cfg.HTTPAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		mux.Handle("/status", regenhttp.NewStatusHandler(runner, scheduler))

		server = &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(mux, logger)}
		go func() {
			logger.Printf("http listening on %s", cfg.HTTPAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Printf("event=http_error error=%v", err)
				stop()
			}
		}()
	}

	logger.Printf("event=service_start energy_years=%g power_days=%d seed=%d on_start=%v daily=%v daily_at=%s timezone=%s",
		cfg.EnergyYears, cfg.PowerDays, cfg.Seed, cfg.Schedule.OnStart, cfg.Schedule.Daily, cfg.Schedule.DailyAt, loc)
	scheduler.Start(ctx)

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Printf("event=http_shutdown_error error=%v", err)
		}
	}
	logger.Printf("event=service_stopped runs=%d dropped_triggers=%d", scheduler.Runs(), scheduler.Dropped())
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			return
		}
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
