package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "demo_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	lastRunTS   *prometheus.GaugeVec

	chunksTotal   *prometheus.CounterVec
	chunkLatency  *prometheus.HistogramVec
	pointsWritten *prometheus.CounterVec
	rowsPruned    *prometheus.CounterVec

	synthesisDays prometheus.Counter

	triggersTotal  *prometheus.CounterVec
	schedulerState *prometheus.GaugeVec
)

// Init registers regeneration metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		runsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "regeneration_runs_total",
				Help: "Total regeneration runs by result and error kind",
			},
			[]string{"result", "kind"},
		)
		runDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "regeneration_run_duration_seconds",
				Help:    "Regeneration run duration in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
			},
			[]string{"result"},
		)
		lastRunTS = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "regeneration_last_run_timestamp_seconds",
				Help: "Unix time of the last finished regeneration run by result",
			},
			[]string{"result"},
		)

		chunksTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "writer_chunks_total",
				Help: "Total committed statistics chunks by table and result",
			},
			[]string{"table", "result"},
		)
		chunkLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "writer_chunk_latency_seconds",
				Help:    "Statistics chunk commit latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"table"},
		)
		pointsWritten = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "writer_points_total",
				Help: "Total statistics rows upserted by table",
			},
			[]string{"table"},
		)
		rowsPruned = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "writer_rows_pruned_total",
				Help: "Total statistics rows removed before the window start",
			},
			[]string{"table"},
		)

		synthesisDays = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "synthesis_days_total",
				Help: "Total synthesized calendar days",
			},
		)

		triggersTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "scheduler_triggers_total",
				Help: "Scheduler triggers by source and outcome",
			},
			[]string{"source", "outcome"},
		)
		schedulerState = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "scheduler_state",
				Help: "1 for the current scheduler state, 0 otherwise",
			},
			[]string{"state"},
		)

		prometheus.MustRegister(
			runsTotal,
			runDuration,
			lastRunTS,
			chunksTotal,
			chunkLatency,
			pointsWritten,
			rowsPruned,
			synthesisDays,
			triggersTotal,
			schedulerState,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveRun records a finished regeneration run.
func ObserveRun(result, kind string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if kind == "" {
		kind = "none"
	}
	if runsTotal != nil {
		runsTotal.WithLabelValues(result, kind).Inc()
	}
	if runDuration != nil {
		runDuration.WithLabelValues(result).Observe(duration.Seconds())
	}
	if lastRunTS != nil {
		lastRunTS.WithLabelValues(result).SetToCurrentTime()
	}
}

// ObserveChunk records one chunk commit.
func ObserveChunk(table, result string, rows int, duration time.Duration) {
	if table == "" {
		table = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if chunksTotal != nil {
		chunksTotal.WithLabelValues(table, result).Inc()
	}
	if chunkLatency != nil {
		chunkLatency.WithLabelValues(table).Observe(duration.Seconds())
	}
	if result == resultSuccess && rows > 0 && pointsWritten != nil {
		pointsWritten.WithLabelValues(table).Add(float64(rows))
	}
}

// AddPruned increments the pruned row counter.
func AddPruned(table string, rows int64) {
	if rows <= 0 {
		return
	}
	if rowsPruned != nil {
		rowsPruned.WithLabelValues(table).Add(float64(rows))
	}
}

// IncSynthesisDay counts one synthesized day.
func IncSynthesisDay() {
	if synthesisDays != nil {
		synthesisDays.Inc()
	}
}

// IncTrigger counts a scheduler trigger.
func IncTrigger(source, outcome string) {
	if source == "" {
		source = "unknown"
	}
	if triggersTotal != nil {
		triggersTotal.WithLabelValues(source, outcome).Inc()
	}
}

// SetSchedulerState marks state as the current scheduler state.
func SetSchedulerState(state string, all []string) {
	if schedulerState == nil {
		return
	}
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		schedulerState.WithLabelValues(s).Set(v)
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError

	TriggerAccepted = "accepted"
	TriggerDropped  = "dropped"
)
