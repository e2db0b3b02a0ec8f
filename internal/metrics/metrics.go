package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SearchRequests *prometheus.CounterVec
	RequestSeconds *prometheus.HistogramVec
	Records        *prometheus.CounterVec
	Batches        *prometheus.CounterVec
	RowsPersisted  prometheus.Counter
	LastRun        prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		SearchRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "forager_search_requests_total",
			Help: "Total number of places search requests by response status.",
		}, []string{"status"}),
		RequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "forager_search_request_duration_seconds",
			Help:    "Duration of requests to the places search API.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		Records: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "forager_records_total",
			Help: "Total number of search records seen by the loader, by outcome.",
		}, []string{"outcome"}),
		Batches: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "forager_upsert_batches_total",
			Help: "Total number of upsert batches by status.",
		}, []string{"status"}),
		RowsPersisted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "forager_rows_persisted_total",
			Help: "Total number of rows in confirmed upsert batches.",
		}),
		LastRun: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "forager_last_run_timestamp_seconds",
			Help: "Unix time of the last completed harvesting run.",
		}),
	}
}
