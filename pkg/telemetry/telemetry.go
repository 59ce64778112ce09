// Package telemetry holds the Prometheus collectors and the HTTP
// middleware that feeds the request-level ones. Domain counters are
// incremented where the events happen (orchestrator, store).
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TurnsTotal counts completed chat turns (user message + model reply
	// persisted).
	TurnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatrelay_turns_total",
		Help: "Completed chat turns.",
	})

	// ModelFailures counts external model calls that returned an error.
	ModelFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatrelay_model_failures_total",
		Help: "External model call failures.",
	})

	// HistoryClears counts explicit conversation clears, by trigger.
	HistoryClears = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatrelay_history_clears_total",
		Help: "Conversation clears by trigger (api, retention).",
	}, []string{"trigger"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chatrelay_http_request_duration_seconds",
		Help:    "HTTP request latency by method and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request durations and status codes. Paths are not
// used as a label to keep cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		requestDuration.
			WithLabelValues(r.Method, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}
