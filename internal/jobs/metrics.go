package jobs

import "github.com/prometheus/client_golang/prometheus"

const (
	namespace = "acadify"
	subsystem = "job"
)

var (
	jobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystem,
		Name: "runs_total",
		Help: "Background job runs",
	}, []string{"job"})

	jobErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystem,
		Name: "errors_total",
		Help: "Background job runs that failed or panicked",
	}, []string{"job"})

	jobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: subsystem,
		Name:    "duration_seconds",
		Help:    "Background job duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})

	jobLastSuccess = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: subsystem,
		Name: "last_success_timestamp_seconds",
		Help: "Unix time of the last successful run",
	}, []string{"job"})
)

func init() {
	prometheus.MustRegister(jobRuns, jobErrors, jobDuration, jobLastSuccess)
}
