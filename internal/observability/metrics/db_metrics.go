package metrics

import (
	"database/sql"
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

// demoFilter restricts row counts to the generator's own sensors.
const demoFilter = "JOIN statistics_meta m ON m.id = s.metadata_id WHERE m.statistic_id LIKE 'sensor.demo\\_boneio\\_%'"

func registerDBMetrics(db *sql.DB, logger *log.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "statistics_rows",
			Help: "Hourly statistics rows of demo sensors",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM statistics s "+demoFilter)
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "statistics_short_term_rows",
			Help: "Short-term statistics rows of demo sensors",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM statistics_short_term s "+demoFilter)
		},
	))
}

func queryCount(db *sql.DB, logger *log.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		if logger != nil {
			logger.Printf("metrics query failed: %v", err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}
