// Package metrics exports command and sequence counters to Prometheus.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	stepOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "atlink",
			Subsystem: "step",
			Name:      "outcomes_total",
			Help:      "Sequence step outcomes by class.",
		},
		[]string{"script", "step", "outcome"},
	)
	stepAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "atlink",
			Subsystem: "step",
			Name:      "attempts_total",
			Help:      "Command attempts issued by sequence steps, retries included.",
		},
		[]string{"script", "step"},
	)
	stepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "atlink",
			Subsystem: "step",
			Name:      "duration_seconds",
			Help:      "Sequence step duration in seconds.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10, 30, 60, 120},
		},
		[]string{"script", "step"},
	)
	sequenceHalts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "atlink",
			Subsystem: "sequence",
			Name:      "halts_total",
			Help:      "Sequences that entered the halted state.",
		},
		[]string{"script"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "atlink",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(stepOutcomes, stepAttempts, stepDuration, sequenceHalts, httpRequests)
	})
}

func RecordStep(script, step, outcome string, attempts int, duration time.Duration) {
	RegisterMetrics()
	stepOutcomes.WithLabelValues(script, step, outcome).Inc()
	stepAttempts.WithLabelValues(script, step).Add(float64(attempts))
	stepDuration.WithLabelValues(script, step).Observe(duration.Seconds())
}

func RecordHalt(script string) {
	RegisterMetrics()
	sequenceHalts.WithLabelValues(script).Inc()
}

func RecordHTTPRequest(method, path string, status int) {
	RegisterMetrics()
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}
