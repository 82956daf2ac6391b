package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopchat_turns_total",
			Help: "Completed conversation turns by outcome.",
		},
		[]string{"outcome"},
	)
	validationRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopchat_validation_rejections_total",
			Help: "SQL candidates rejected by the safety validator, by check.",
		},
		[]string{"check"},
	)
	stageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopchat_stage_duration_seconds",
			Help:    "Pipeline stage latency.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)
	contextEvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopchat_context_evictions_total",
			Help: "Conversation entries evicted from the context window, by cause.",
		},
		[]string{"cause"},
	)
	rowTruncationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shopchat_row_truncations_total",
			Help: "Query results truncated at the row cap.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		turnsTotal,
		validationRejectionsTotal,
		stageDurationSeconds,
		contextEvictionsTotal,
		rowTruncationsTotal,
	)
}

func ObserveTurn(outcome string) {
	turnsTotal.WithLabelValues(outcome).Inc()
}

func ObserveValidationRejection(check string) {
	validationRejectionsTotal.WithLabelValues(check).Inc()
}

func ObserveStageDuration(stage string, elapsed time.Duration) {
	stageDurationSeconds.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func ObserveContextEviction(cause string) {
	contextEvictionsTotal.WithLabelValues(cause).Inc()
}

func ObserveRowTruncation() {
	rowTruncationsTotal.Inc()
}
