// Discovault - Discogs Dump Ingestion and Collection Sync
// Copyright 2026 Discovault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/discovault/discovault

// Package metrics provides Prometheus instrumentation for ingestion
// throughput, API client behavior, and collection sync outcomes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion Metrics
	IngestRecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_records_processed_total",
			Help: "Total number of dump records processed, by entity kind",
		},
		[]string{"kind"},
	)

	IngestRecordsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_records_skipped_total",
			Help: "Total number of dump records skipped, by entity kind and reason",
		},
		[]string{"kind", "reason"}, // "malformed", "policy", "write_error"
	)

	IngestBatchFlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_batch_flush_duration_seconds",
			Help:    "Duration of batch transaction commits during ingestion",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	IngestBatchRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_batch_retries_total",
			Help: "Total number of batch transactions retried after conflicts",
		},
	)

	IngestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ingest_duration_seconds",
			Help:    "Wall-clock duration of full dump ingestion runs",
			Buckets: []float64{1, 10, 60, 300, 600, 1800, 3600, 7200},
		},
		[]string{"kind"},
	)

	// Materialization Metrics
	MaterializeReleasesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "materialize_releases_processed_total",
			Help: "Total number of releases whose join tables were rebuilt",
		},
	)

	MaterializeRowsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "materialize_rows_written_total",
			Help: "Total derived rows written, by target table",
		},
		[]string{"table"}, // "release_artists", "release_labels", "tracks"
	)

	// Discogs API Client Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discogs_api_requests_total",
			Help: "Total number of Discogs API requests",
		},
		[]string{"endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "discogs_api_request_duration_seconds",
			Help:    "Discogs API request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	APIThrottleWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "discogs_api_throttle_wait_seconds",
			Help:    "Time spent waiting on the client-side rate limiter",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 15, 60},
		},
	)

	APIRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discogs_api_retries_total",
			Help: "Total number of retried Discogs API requests",
		},
		[]string{"reason"}, // "rate_limited", "server_error", "network"
	)

	CircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "discogs_api_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// Collection Sync Metrics
	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "collection_sync_duration_seconds",
			Help:    "Duration of collection sync operations in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	SyncItemsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "collection_sync_items_processed_total",
			Help: "Total number of collection items processed during sync",
		},
	)

	SyncOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collection_sync_outcomes_total",
			Help: "Total number of finished syncs, by outcome",
		},
		[]string{"outcome"}, // "success", "partial", "failed"
	)

	SyncLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "collection_sync_last_success_timestamp",
			Help: "Unix timestamp of last successful collection sync",
		},
	)

	// Database Metrics
	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)
)

// RecordIngestRecord counts one processed dump record.
func RecordIngestRecord(kind string) {
	IngestRecordsProcessed.WithLabelValues(kind).Inc()
}

// RecordIngestSkip counts one skipped dump record.
func RecordIngestSkip(kind, reason string) {
	IngestRecordsSkipped.WithLabelValues(kind, reason).Inc()
}

// RecordBatchFlush records one committed ingestion batch.
func RecordBatchFlush(duration time.Duration) {
	IngestBatchFlushDuration.Observe(duration.Seconds())
}

// RecordIngestRun records the wall-clock duration of a finished ingestion.
func RecordIngestRun(kind string, duration time.Duration) {
	IngestDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordAPIRequest records one Discogs API request with its outcome.
func RecordAPIRequest(endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordThrottleWait records time spent blocked on the rate limiter.
func RecordThrottleWait(duration time.Duration) {
	APIThrottleWaitDuration.Observe(duration.Seconds())
}

// RecordAPIRetry counts one retried request.
func RecordAPIRetry(reason string) {
	APIRetries.WithLabelValues(reason).Inc()
}

// SetCircuitBreakerState publishes the breaker state as a gauge.
func SetCircuitBreakerState(state int) {
	CircuitBreakerState.Set(float64(state))
}

// RecordSyncOutcome records one finished collection sync.
func RecordSyncOutcome(outcome string, duration time.Duration, items int) {
	SyncOutcomes.WithLabelValues(outcome).Inc()
	SyncDuration.Observe(duration.Seconds())
	SyncItemsProcessed.Add(float64(items))
	if outcome == "success" {
		SyncLastSuccess.SetToCurrentTime()
	}
}
