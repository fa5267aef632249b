package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the prediction service

var (
	// Sports API metrics
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchpredict_api_calls_total",
			Help: "Total number of sports API calls",
		},
		[]string{"endpoint", "status"},
	)

	APICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matchpredict_api_call_duration_seconds",
			Help:    "Duration of sports API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Language model metrics
	LLMCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchpredict_llm_calls_total",
			Help: "Total number of language model calls",
		},
		[]string{"provider", "outcome"},
	)

	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matchpredict_llm_call_duration_seconds",
			Help:    "Duration of language model calls in seconds",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"provider"},
	)

	ParseFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchpredict_parse_fallbacks_total",
			Help: "Total number of prediction fields that fell back to a default",
		},
		[]string{"field"},
	)

	// Database metrics
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchpredict_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "table", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matchpredict_db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "matchpredict_db_connections_active",
			Help: "Number of active database connections",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "matchpredict_db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	// Cache metrics
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchpredict_cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchpredict_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	CacheOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matchpredict_cache_operation_duration_seconds",
			Help:    "Duration of cache operations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// Pipeline run metrics
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchpredict_runs_total",
			Help: "Total number of ingestion runs",
		},
		[]string{"function", "status"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matchpredict_run_duration_seconds",
			Help:    "Duration of ingestion runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"function"},
	)

	EventsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchpredict_events_skipped_total",
			Help: "Total number of fetched events skipped by the pipeline",
		},
		[]string{"reason"},
	)

	PredictionsInsertedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchpredict_predictions_inserted_total",
			Help: "Total number of prediction records inserted",
		},
	)

	PredictionsPurgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchpredict_predictions_purged_total",
			Help: "Total number of prediction records removed by retention",
		},
	)

	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchpredict_analyses_total",
			Help: "Total number of on-demand analyses",
		},
		[]string{"status"},
	)

	PredictionsStored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "matchpredict_predictions_stored",
			Help: "Number of prediction records currently stored",
		},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchpredict_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "matchpredict_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)

	LastSuccessfulRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "matchpredict_last_successful_run_timestamp",
			Help: "Timestamp of last successful ingestion run",
		},
	)
)

// RecordAPICall records a sports API call metric
func RecordAPICall(endpoint, status string, duration float64) {
	APICallsTotal.WithLabelValues(endpoint, status).Inc()
	APICallDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordLLMCall records a language model call
func RecordLLMCall(provider, outcome string, duration float64) {
	LLMCallsTotal.WithLabelValues(provider, outcome).Inc()
	LLMCallDuration.WithLabelValues(provider).Observe(duration)
}

// RecordParseFallbacks records every field that fell back to its default
func RecordParseFallbacks(fields []string) {
	for _, f := range fields {
		ParseFallbacksTotal.WithLabelValues(f).Inc()
	}
}

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table, status string, duration float64) {
	DBQueriesTotal.WithLabelValues(operation, table, status).Inc()
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration)
}

// RecordCacheHit records a cache hit
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}

// RecordCacheOperation records a cache operation duration
func RecordCacheOperation(operation string, duration float64) {
	CacheOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordRun records a finished ingestion run
func RecordRun(function, status string, duration float64) {
	RunsTotal.WithLabelValues(function, status).Inc()
	RunDuration.WithLabelValues(function).Observe(duration)

	if status == "success" {
		LastSuccessfulRun.SetToCurrentTime()
	}
}

// RecordSkip records an event the pipeline did not predict
func RecordSkip(reason string) {
	EventsSkippedTotal.WithLabelValues(reason).Inc()
}

// RecordInserted records newly inserted prediction records
func RecordInserted(n int) {
	PredictionsInsertedTotal.Add(float64(n))
}

// RecordPurged records prediction records removed by retention
func RecordPurged(n int64) {
	PredictionsPurgedTotal.Add(float64(n))
}

// RecordAnalysis records an on-demand analysis outcome
func RecordAnalysis(status string) {
	AnalysesTotal.WithLabelValues(status).Inc()
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// UpdateDBConnectionStats updates database connection pool statistics
func UpdateDBConnectionStats(active, idle int32) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}

// UpdatePredictionStats updates the stored prediction gauge
func UpdatePredictionStats(total int64) {
	PredictionsStored.Set(float64(total))
}
