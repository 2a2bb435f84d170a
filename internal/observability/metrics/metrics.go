package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "buoycloud_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	queryRequests *prometheus.CounterVec
	queryLatency  *prometheus.HistogramVec

	redactedValues *prometheus.CounterVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec

	httpRequests *prometheus.CounterVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		queryRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "query_requests_total",
				Help: "Total repository queries by table, operation and result",
			},
			[]string{"table", "op", "result"},
		)
		queryLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "query_latency_seconds",
				Help:    "Repository query latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"table", "op"},
		)

		redactedValues = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "redacted_values_total",
				Help: "Measurement values nulled by quality-flag redaction",
			},
			[]string{"table"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total observation exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Observation export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total HTTP requests by path and status class",
			},
			[]string{"path", "class"},
		)

		prometheus.MustRegister(
			queryRequests,
			queryLatency,
			redactedValues,
			exportTotal,
			exportLatency,
			httpRequests,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveQuery records one repository query by table and operation.
func ObserveQuery(table, op string, err error, duration time.Duration) {
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	if queryRequests != nil {
		queryRequests.WithLabelValues(table, op, result).Inc()
	}
	if queryLatency != nil {
		queryLatency.WithLabelValues(table, op).Observe(duration.Seconds())
	}
}

// AddRedactedValues counts measurement values nulled at read time.
func AddRedactedValues(table string, count int) {
	if count <= 0 {
		return
	}
	if redactedValues != nil {
		redactedValues.WithLabelValues(table).Add(float64(count))
	}
}

// ObserveExport records export latency by format and result.
func ObserveExport(format string, err error, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// ObserveHTTP records one served request by path and status class.
func ObserveHTTP(path string, status int) {
	if httpRequests == nil {
		return
	}
	class := "2xx"
	switch {
	case status >= 500:
		class = "5xx"
	case status >= 400:
		class = "4xx"
	case status >= 300:
		class = "3xx"
	}
	httpRequests.WithLabelValues(path, class).Inc()
}
