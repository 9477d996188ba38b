// Package metrics defines the Prometheus instruments exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Polling metrics
var (
	// PollsTotal counts poll cycles by kind (main/commentary) and result.
	PollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanverse_polls_total",
			Help: "Total poll cycles by kind (main/commentary) and result (success/failure)",
		},
		[]string{"kind", "result"},
	)

	// PollDuration tracks fetch-persist cycle duration by kind.
	PollDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fanverse_poll_duration_seconds",
			Help:    "Fetch-and-persist cycle duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"kind"},
	)

	// FeedRequestsTotal counts outbound feed requests by result.
	FeedRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanverse_feed_requests_total",
			Help: "Outbound feed HTTP requests by result (ok/http_error/network_error)",
		},
		[]string{"result"},
	)

	// SnapshotWriteErrors counts snapshot store write failures.
	SnapshotWriteErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fanverse_snapshot_write_errors_total",
			Help: "Total snapshot store write failures",
		},
	)
)

// Registry and broadcast metrics
var (
	// ActiveMatches tracks the number of matches currently being watched.
	ActiveMatches = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fanverse_active_matches",
			Help: "Number of matches with at least one viewer",
		},
	)

	// ConnectedViewers tracks viewer connections across all matches.
	ConnectedViewers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fanverse_connected_viewers",
			Help: "Total connected viewers across all matches",
		},
	)

	// BroadcastMessagesTotal counts messages fanned out by payload type.
	BroadcastMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanverse_broadcast_messages_total",
			Help: "Broadcast messages sent by payload type",
		},
		[]string{"type"},
	)

	// SlowViewersEvicted counts viewers dropped because their send buffer filled.
	SlowViewersEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fanverse_slow_viewers_evicted_total",
			Help: "Viewers disconnected because their send buffer was full",
		},
	)

	// EnginePanicsTotal counts engine loop panic recoveries.
	EnginePanicsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fanverse_engine_panics_total",
			Help: "Engine loop panic recoveries",
		},
	)

	// EventPublishErrors counts failed mirror publishes to Redis.
	EventPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fanverse_event_publish_errors_total",
			Help: "Failed broadcast mirror publishes",
		},
	)
)
