// Package metrics defines the Prometheus collectors shared across the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache Metrics
var (
	// CacheHits tracks cache reads served from Redis
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total cache reads served from the cache",
		},
	)

	// CacheMisses tracks cache reads that fell through to the durable store
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total cache reads that missed (including expired entries)",
		},
	)

	// CacheErrors tracks cache operations absorbed as degraded, by operation
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_errors_total",
			Help: "Total cache operations that failed and were absorbed, by operation",
		},
		[]string{"operation"},
	)

	// CacheKeysInvalidated tracks keys removed by delete and pattern invalidation
	CacheKeysInvalidated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_keys_invalidated_total",
			Help: "Total cache keys removed by invalidation",
		},
	)

	// CircuitBreakerStateChanges tracks circuit breaker state transitions
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by component and new state",
		},
		[]string{"component", "state"},
	)
)

// Dispatcher Metrics
var (
	// EventsDispatched tracks events run through the dispatch pipeline, by type
	EventsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_dispatched_total",
			Help: "Total events run through the dispatch pipeline by event type",
		},
		[]string{"type"},
	)

	// DispatchStepFailures tracks absorbed per-step failures in the pipeline
	DispatchStepFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_step_failures_total",
			Help: "Dispatch pipeline step failures absorbed without failing the mutation, by step",
		},
		[]string{"step"},
	)

	// NotificationsCreated tracks notification rows created, by kind
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Total notifications created by kind",
		},
		[]string{"kind"},
	)

	// NotificationsDeduplicated tracks notification inserts suppressed by the dedup key
	NotificationsDeduplicated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_deduplicated_total",
			Help: "Total notification inserts suppressed as duplicates of an already delivered event",
		},
	)

	// EmailsSent tracks outbound notification emails by outcome
	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_emails_total",
			Help: "Outbound notification emails by outcome (sent/failed/skipped)",
		},
		[]string{"outcome"},
	)
)

// Connection Registry Metrics
var (
	// ConnectedClients tracks the number of live subscriber connections
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_connected_clients",
			Help: "Number of live subscriber connections across all users",
		},
	)

	// ConnectedUsers tracks the number of distinct users with at least one connection
	ConnectedUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_connected_users",
			Help: "Number of distinct users with at least one live connection",
		},
	)

	// BroadcastDeliveries tracks payloads handed to connection send queues
	BroadcastDeliveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_broadcast_deliveries_total",
			Help: "Total payloads handed to per-connection send queues",
		},
	)

	// BroadcastDrops tracks slow connections evicted during delivery
	BroadcastDrops = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_broadcast_drops_total",
			Help: "Total connections dropped because their send queue was full",
		},
	)

	// WSConnectionsRejected tracks websocket upgrades refused before registration
	WSConnectionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_connections_rejected_total",
			Help: "Total websocket connections rejected, by reason",
		},
		[]string{"reason"},
	)
)

// Database Metrics
var (
	// DBQueryDuration tracks database query duration by query name
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"query"},
	)

	// DBErrorsTotal tracks database query errors by query name
	DBErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_errors_total",
			Help: "Total database query errors by query name",
		},
		[]string{"query"},
	)
)

// Overdue Sweep Metrics
var (
	// SweepRuns tracks sweep ticks by outcome (completed/skipped/deadline)
	SweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_runs_total",
			Help: "Sweep ticks by outcome",
		},
		[]string{"outcome"},
	)

	// SweepTasksMarked tracks tasks transitioned to overdue by the sweep
	SweepTasksMarked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sweep_tasks_marked_overdue_total",
			Help: "Total tasks the sweep transitioned to overdue",
		},
	)

	// SweepTasksSkipped tracks candidates skipped because the transition no longer applied
	SweepTasksSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sweep_tasks_skipped_total",
			Help: "Total sweep candidates skipped after a concurrent state change",
		},
	)

	// SweepDuration tracks sweep tick duration in seconds
	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sweep_duration_seconds",
			Help:    "Sweep tick duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)
)
