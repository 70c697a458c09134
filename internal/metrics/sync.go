package metrics

import "github.com/prometheus/client_golang/prometheus"

// Sync pipeline Prometheus metrics.
var (
	SyncJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hoteldex",
			Name:      "sync_jobs_total",
			Help:      "Finished sync jobs by kind and terminal status",
		},
		[]string{"kind", "status"},
	)

	SyncJobsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hoteldex",
			Name:      "sync_jobs_in_flight",
			Help:      "Sync jobs currently queued or running",
		},
	)

	SyncStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hoteldex",
			Name:      "sync_stage_duration_seconds",
			Help:      "Duration of each sync stage",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"stage", "outcome"},
	)

	SyncRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hoteldex",
			Name:      "sync_records_total",
			Help:      "Dump records by pipeline outcome",
		},
		[]string{"kind", "outcome"}, // seen, matched, malformed, loaded, load_error
	)

	SyncDownloadBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hoteldex",
			Name:      "sync_download_bytes_total",
			Help:      "Total bytes downloaded from dump URLs",
		},
	)

	SyncBatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hoteldex",
			Name:      "sync_batch_duration_seconds",
			Help:      "Pipelined JSON.SET batch duration",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"index"},
	)
)

// Query Prometheus metrics.
var (
	QueryRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hoteldex",
			Name:      "query_requests_total",
			Help:      "Lookups by operation and serving path",
		},
		[]string{"op", "source"}, // source: index / live / error
	)

	QueryFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hoteldex",
			Name:      "query_fallback_total",
			Help:      "Index misses that triggered a live provider call",
		},
		[]string{"op", "reason"}, // reason: error / absent / empty
	)
)

var syncMetricsRegistered bool

// RegisterSyncMetrics registers sync and query metrics. Must be called once from main.
func RegisterSyncMetrics() {
	if syncMetricsRegistered {
		return
	}
	prometheus.MustRegister(SyncJobsTotal)
	prometheus.MustRegister(SyncJobsInFlight)
	prometheus.MustRegister(SyncStageDuration)
	prometheus.MustRegister(SyncRecordsTotal)
	prometheus.MustRegister(SyncDownloadBytes)
	prometheus.MustRegister(SyncBatchDuration)
	prometheus.MustRegister(QueryRequestsTotal)
	prometheus.MustRegister(QueryFallbackTotal)
	syncMetricsRegistered = true
}
