package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsRecorder exports command latency and outcome counters.
type PrometheusMetricsRecorder struct {
	duration        *prometheus.HistogramVec
	total           *prometheus.CounterVec
	persistFailures *prometheus.CounterVec
}

// NewPrometheusMetricsRecorder registers the service collectors with reg.
// A nil registerer uses prometheus.DefaultRegisterer.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &PrometheusMetricsRecorder{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "zenstay",
			Name:      "command_duration_seconds",
			Help:      "Front desk command latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"operation", "status"}),
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zenstay",
			Name:      "commands_total",
			Help:      "Front desk commands by operation and status.",
		}, []string{"operation", "status"}),
		persistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zenstay",
			Name:      "persist_failures_total",
			Help:      "Committed commands whose snapshot could not be written.",
		}, []string{"operation"}),
	}
	for _, c := range []prometheus.Collector{r.duration, r.total, r.persistFailures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Observe records a service operation outcome.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.duration.WithLabelValues(operation, status).Observe(duration.Seconds())
	r.total.WithLabelValues(operation, status).Inc()
}

// PersistFailed counts a snapshot write failure for operation.
func (r *PrometheusMetricsRecorder) PersistFailed(_ context.Context, operation string) {
	r.persistFailures.WithLabelValues(operation).Inc()
}
