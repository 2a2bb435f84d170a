package metrics

import (
	"database/sql"
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

func registerDBMetrics(db *sql.DB, logger *log.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "fleet_buoys_active",
			Help: "Moored buoys currently flagged active",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM buoys WHERE status")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "qualified_rows_last_24h",
			Help: "Qualified observations received in the last 24 hours",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM qualified_data WHERE date_time >= NOW() - INTERVAL '24 hours'")
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
