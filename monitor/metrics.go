package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// SettlementSteps counts executed batch steps by name and status
	SettlementSteps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "settlement",
			Name:      "steps_total",
			Help:      "Settlement steps executed by step and status.",
		},
		[]string{"step", "status"},
	)

	// SettlementStepAttempts counts attempts including retries
	SettlementStepAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "settlement",
			Name:      "step_attempts_total",
			Help:      "Settlement step attempts including retries.",
		},
		[]string{"step"},
	)

	// SettlementRunDuration is the duration of the last run by terminal state
	SettlementRunDuration = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "settlement",
			Name:      "last_run_duration_seconds",
			Help:      "Duration of the last settlement run.",
		},
		[]string{"state"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"route", "method", "status"},
	)
)

func init() {
	prometheus.MustRegister(SettlementSteps, SettlementStepAttempts, SettlementRunDuration, APIRequestDuration)
}
