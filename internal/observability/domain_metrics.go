package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	translationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querydesk_translations_total",
			Help: "Total number of natural-language translations by provenance.",
		},
		[]string{"provenance"},
	)
	safetyRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "querydesk_safety_rejections_total",
			Help: "Total number of generated queries rejected by the safety validator.",
		},
	)
	queryExecutionSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "querydesk_query_execution_seconds",
			Help:    "Statement execution latency by statement class.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"mode"},
	)
	queryFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querydesk_query_failures_total",
			Help: "Total number of statement executions that returned an error.",
		},
		[]string{"mode"},
	)
	historyWriteFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "querydesk_history_write_failures_total",
			Help: "Total number of history append attempts that failed.",
		},
	)
	schemaRefreshesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "querydesk_schema_refreshes_total",
			Help: "Total number of schema context refreshes.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		translationsTotal,
		safetyRejectionsTotal,
		queryExecutionSeconds,
		queryFailuresTotal,
		historyWriteFailuresTotal,
		schemaRefreshesTotal,
	)
}

func IncrementTranslation(provenance string) {
	translationsTotal.WithLabelValues(provenance).Inc()
}

func IncrementSafetyRejection() {
	safetyRejectionsTotal.Inc()
}

func ObserveQueryExecution(mode string, duration time.Duration) {
	queryExecutionSeconds.WithLabelValues(mode).Observe(duration.Seconds())
}

func IncrementQueryFailure(mode string) {
	queryFailuresTotal.WithLabelValues(mode).Inc()
}

func IncrementHistoryWriteFailure() {
	historyWriteFailuresTotal.Inc()
}

func IncrementSchemaRefresh() {
	schemaRefreshesTotal.Inc()
}
