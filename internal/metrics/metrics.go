package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AI provider
	AIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matching_ai_request_duration_seconds",
			Help:    "Duration of AI provider calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	AIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_ai_requests_total",
			Help: "Total number of AI provider calls by outcome",
		},
		[]string{"operation", "outcome"}, // "ok", "error", "circuit_open"
	)

	AICircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "matching_ai_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Embedding cache
	EmbeddingCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_embedding_cache_hits_total",
			Help: "Total number of embedding cache hits",
		},
	)

	EmbeddingCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_embedding_cache_misses_total",
			Help: "Total number of embedding cache misses",
		},
	)

	EmbeddingCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "matching_embedding_cache_entries",
			Help: "Current number of cached embeddings",
		},
	)

	// Match rounds
	RoundRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matching_round_run_duration_seconds",
			Help:    "Duration of match round executions in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
	)

	RoundRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_round_runs_total",
			Help: "Total number of match round executions by outcome",
		},
		[]string{"outcome"}, // "completed", "failed", "rejected"
	)

	MatchesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_matches_created_total",
			Help: "Total number of matches persisted",
		},
	)

	ParticipantsExcluded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_participants_excluded_total",
			Help: "Total number of participants excluded from a round",
		},
		[]string{"reason"},
	)

	PairsFiltered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_pairs_filtered_total",
			Help: "Total number of candidate pairs dropped by hard filters",
		},
		[]string{"filter"},
	)

	ExplanationFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_explanation_fallbacks_total",
			Help: "Total number of matches stored with a placeholder explanation",
		},
	)

	// Votes
	VotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_votes_total",
			Help: "Total number of recorded votes",
		},
		[]string{"vote"},
	)

	MutualMatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_mutual_matches_total",
			Help: "Total number of votes that made a match mutual",
		},
	)

	// API
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matching_api_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)
)

// ErrCircuitOpen lets callers report calls rejected by an open breaker.
var ErrCircuitOpen = errors.New("circuit open")

func RecordAIRequest(operation string, duration time.Duration, err error) {
	AIRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
	outcome := "ok"
	switch {
	case errors.Is(err, ErrCircuitOpen):
		outcome = "circuit_open"
	case err != nil:
		outcome = "error"
	}
	AIRequestsTotal.WithLabelValues(operation, outcome).Inc()
}

func RecordRoundRun(outcome string, duration time.Duration, matches int) {
	RoundRunsTotal.WithLabelValues(outcome).Inc()
	if duration > 0 {
		RoundRunDuration.Observe(duration.Seconds())
	}
	if matches > 0 {
		MatchesCreated.Add(float64(matches))
	}
}

func RecordAPIRequest(method, endpoint, status string, duration time.Duration) {
	APIRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
}
