package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "acadify", Name: "http_requests_total", Help: "Handled API requests",
	}, []string{"route", "status"})
	GradeRows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "acadify", Name: "grade_rows_total", Help: "Grade rows processed by batch writes",
	}, []string{"result"})
	Transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "acadify", Name: "grade_transitions_total", Help: "Grade rows moved by lifecycle operations",
	}, []string{"op"})
	WindowDenials = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "acadify", Name: "encoding_window_denials_total", Help: "Grade writes refused by the encoding window",
	}, []string{"reason"})
	Eligibility = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "acadify", Name: "eligibility_evaluations_total", Help: "Dean's List evaluations",
	}, []string{"result"})
	EventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "acadify", Name: "events_published_total", Help: "Lifecycle events handed to sinks",
	}, []string{"sink", "status"})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "acadify", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(HTTPRequests, GradeRows, Transitions, WindowDenials, Eligibility, EventsPublished, DBPing)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }

func ObserveEligibility(qualified bool) {
	if qualified {
		Eligibility.WithLabelValues("qualified").Inc()
		return
	}
	Eligibility.WithLabelValues("rejected").Inc()
}

func ObserveTransition(op string, rows int) {
	Transitions.WithLabelValues(op).Add(float64(rows))
}
