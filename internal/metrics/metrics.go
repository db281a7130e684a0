// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "todo_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	authAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_auth_attempts_total",
			Help: "Register and login attempts by outcome",
		},
		[]string{"event", "success"},
	)
	tokenOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_token_validations_total",
			Help: "Bearer token validations by outcome",
		},
		[]string{"outcome"},
	)
	storeBootstrapAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_store_bootstrap_attempts_total",
			Help: "Store connection bootstrap attempts by result",
		},
		[]string{"result"},
	)
)

func RecordAuthAttempt(event string, success bool) {
	authAttempts.WithLabelValues(event, strconv.FormatBool(success)).Inc()
}

func RecordTokenOutcome(outcome string) {
	tokenOutcomes.WithLabelValues(outcome).Inc()
}

// RecordBootstrapAttempt takes "success", "transient" or "fatal".
func RecordBootstrapAttempt(result string) {
	storeBootstrapAttempts.WithLabelValues(result).Inc()
}
