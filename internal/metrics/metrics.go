package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry / fan-out metrics
var (
	// ConnectedClients tracks live delivery targets by transport (websocket/sse)
	ConnectedClients = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "registry_connected_clients",
			Help: "Live delivery targets by transport",
		},
		[]string{"transport"},
	)

	// BroadcastEventsTotal counts fan-out passes by event type
	BroadcastEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_events_total",
			Help: "Fan-out passes by event type",
		},
		[]string{"type"},
	)

	// BroadcastDroppedTotal counts per-recipient deliveries dropped by transport
	BroadcastDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_dropped_deliveries_total",
			Help: "Per-recipient deliveries dropped (full buffer or dead connection)",
		},
		[]string{"transport"},
	)

	// BroadcastDuration tracks one full fan-out pass in seconds
	BroadcastDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "broadcast_duration_seconds",
			Help:    "Duration of one fan-out pass across all registered connections",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
		},
	)

	// KeepalivePingFailures counts keepalive pings that failed to write
	KeepalivePingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "keepalive_ping_failures_total",
			Help: "Keepalive pings that failed to write",
		},
	)
)

// Message ingress metrics
var (
	// MessagesCreatedTotal counts successfully persisted messages
	MessagesCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "messages_created_total",
			Help: "Messages validated, persisted and handed to the broadcaster",
		},
	)

	// MessagesRejectedTotal counts drafts rejected before persistence
	MessagesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_rejected_total",
			Help: "Message drafts rejected before persistence, by reason",
		},
		[]string{"reason"},
	)
)

// External collaborator metrics
var (
	// IdentityVerifyDuration tracks auth provider verification latency
	IdentityVerifyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "identity_verify_duration_seconds",
			Help:    "Auth provider verification latency",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	// IdentityCacheHits counts verification results served from cache
	IdentityCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_cache_total",
			Help: "Verification cache lookups by outcome (hit/miss)",
		},
		[]string{"outcome"},
	)

	// BlobUploadBytes tracks uploaded image sizes
	BlobUploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "blob_upload_bytes",
			Help:    "Uploaded image sizes in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		},
	)
)
