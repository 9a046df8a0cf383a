package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the Euphorie backend.
//
// Naming convention: namespace_subsystem_name
// - namespace: euphorie (application-level grouping)
// - subsystem: realtime, assistant (binary-level grouping)
// - name: specific metric (connections_active, messages_received_total, etc.)
//
// Metric Types:
// - Gauge: Current state (connections, rooms, screen shares)
// - Counter: Cumulative events (messages processed, rejections, drops)
// - Histogram: Latency distributions (dispatch time)

var (
	// ActiveConnections tracks the current number of open WebSocket connections (Gauge - current state)
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "euphorie",
		Subsystem: "realtime",
		Name:      "connections_active",
		Help:      "Current number of open WebSocket connections",
	})

	// ConnectionsTotal counts every accepted WebSocket connection (Counter - cumulative)
	ConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "euphorie",
		Subsystem: "realtime",
		Name:      "connections_total",
		Help:      "Total WebSocket connections accepted",
	})

	// ConnectionsRejected counts upgrades refused at the connection cap (Counter - cumulative)
	ConnectionsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "euphorie",
		Subsystem: "realtime",
		Name:      "connections_rejected_total",
		Help:      "Total WebSocket connections refused at the connection cap",
	})

	// ActiveRooms tracks the current number of live rooms (Gauge - current state)
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "euphorie",
		Subsystem: "realtime",
		Name:      "rooms_active",
		Help:      "Current number of live rooms",
	})

	// RoomUsers tracks the number of users in each room (GaugeVec with room_id label - current state per room)
	RoomUsers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "euphorie",
		Subsystem: "realtime",
		Name:      "room_users_count",
		Help:      "Number of users in each room",
	}, []string{"room_id"})

	// MessagesReceived counts inbound messages by kind (CounterVec - cumulative)
	MessagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "euphorie",
		Subsystem: "realtime",
		Name:      "messages_received_total",
		Help:      "Total inbound messages by type",
	}, []string{"type"})

	// MessagesSent counts frames enqueued for delivery (Counter - cumulative)
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "euphorie",
		Subsystem: "realtime",
		Name:      "messages_sent_total",
		Help:      "Total frames enqueued for delivery",
	})

	// MessagesDropped counts frames dropped on full send queues (Counter - cumulative)
	MessagesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "euphorie",
		Subsystem: "realtime",
		Name:      "messages_dropped_total",
		Help:      "Total frames dropped because a send queue was full",
	})

	// RateLimited counts messages denied by the per-connection limiter (Counter - cumulative)
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "euphorie",
		Subsystem: "realtime",
		Name:      "rate_limited_total",
		Help:      "Total messages denied by the rate limiter",
	})

	// ActiveScreenShares tracks the current number of live screen shares (Gauge - current state)
	ActiveScreenShares = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "euphorie",
		Subsystem: "realtime",
		Name:      "screen_shares_active",
		Help:      "Current number of live screen shares",
	})

	// AuthFailures counts rejected authentication attempts (Counter - cumulative)
	AuthFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "euphorie",
		Subsystem: "realtime",
		Name:      "auth_failures_total",
		Help:      "Total rejected authentication attempts",
	})

	// MessageProcessingDuration tracks dispatch time per message kind (HistogramVec - latency distribution)
	MessageProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "euphorie",
		Subsystem: "realtime",
		Name:      "message_processing_seconds",
		Help:      "Time spent dispatching inbound messages",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"type"})

	// AssistantRequests counts assistant API requests by endpoint (CounterVec - cumulative)
	AssistantRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "euphorie",
		Subsystem: "assistant",
		Name:      "requests_total",
		Help:      "Total assistant API requests by endpoint",
	}, []string{"endpoint"})

	// UpstreamFailures counts failed calls to assistant upstreams (CounterVec - cumulative)
	UpstreamFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "euphorie",
		Subsystem: "assistant",
		Name:      "upstream_failures_total",
		Help:      "Total failed calls to assistant upstream services",
	}, []string{"upstream"})

	// CircuitBreakerState reports breaker state per upstream: 0 closed, 1 open, 2 half-open (GaugeVec - current state)
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "euphorie",
		Subsystem: "assistant",
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state per upstream (0 closed, 1 half-open, 2 open)",
	}, []string{"upstream"})
)

func IncConnection() {
	ActiveConnections.Inc()
	ConnectionsTotal.Inc()
}

func DecConnection() {
	ActiveConnections.Dec()
}
