// Package metrics provides Prometheus-based metrics recording for LLM operations.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder records the outcome of completed LLM requests.
type Recorder interface {
	ObserveRequest(model, sessionID, variant string, promptTokens, completionTokens int, success bool, errorType string, duration time.Duration)
}

// PrometheusRecorder implements the Recorder interface using Prometheus metrics.
type PrometheusRecorder struct {
	requestsTotal   *prometheus.CounterVec
	tokensTotal     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

//nolint:gochecknoglobals // promauto collectors must be registered exactly once
var (
	prometheusInstance *PrometheusRecorder
	prometheusOnce     sync.Once
)

// NewPrometheusRecorder returns the singleton Prometheus-based metrics recorder.
func NewPrometheusRecorder() *PrometheusRecorder {
	prometheusOnce.Do(func() {
		prometheusInstance = &PrometheusRecorder{
			requestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "llm_requests_total",
					Help: "Total number of LLM requests by model, session, variant, and status",
				},
				[]string{"model", "session_id", "variant", "status", "error_type"},
			),
			tokensTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "llm_tokens_total",
					Help: "Total number of tokens used in LLM requests",
				},
				[]string{"model", "session_id", "variant", "type"},
			),
			requestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "llm_request_duration_seconds",
					Help:    "Duration of LLM requests in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"model", "session_id", "variant"},
			),
		}
	})
	return prometheusInstance
}

// ObserveRequest records metrics for a completed LLM request.
func (p *PrometheusRecorder) ObserveRequest(
	model, sessionID, variant string,
	promptTokens, completionTokens int,
	success bool,
	errorType string,
	duration time.Duration,
) {
	status := "success"
	if !success {
		status = "error"
	}

	p.requestsTotal.WithLabelValues(model, sessionID, variant, status, errorType).Inc()

	if success {
		p.tokensTotal.WithLabelValues(model, sessionID, variant, "prompt").Add(float64(promptTokens))
		p.tokensTotal.WithLabelValues(model, sessionID, variant, "completion").Add(float64(completionTokens))
	}

	p.requestDuration.WithLabelValues(model, sessionID, variant).Observe(duration.Seconds())
}
