package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the worker pool.
type Metrics struct {
	JobsProcessed *prometheus.CounterVec
	JobsFailed    *prometheus.CounterVec
	JobsRejected  *prometheus.CounterVec
	JobDuration   *prometheus.HistogramVec
}

// New creates and registers pool metrics against the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		JobsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agrigate_jobs_processed_total",
			Help: "Jobs completed successfully, by topic",
		}, []string{"topic"}),
		JobsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agrigate_jobs_failed_total",
			Help: "Job attempts that failed and were returned for retry, by topic",
		}, []string{"topic"}),
		JobsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agrigate_jobs_rejected_total",
			Help: "Jobs dead-lettered without retry due to permanent failures, by topic",
		}, []string{"topic"}),
		JobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agrigate_job_duration_seconds",
			Help:    "Handler execution time, by topic",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"}),
	}
}
