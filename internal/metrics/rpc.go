package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RPCOutcomes tracks outbound /invoke outcomes by result.
	RPCOutcomes = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "outcomes_total",
			Help:      "Total number of outbound RPC calls by outcome",
		},
		[]string{"outcome"}, // success, failure
	)

	// RPCLatency tracks outbound RPC round-trip latency in seconds.
	RPCLatency = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "latency_seconds",
			Help:      "Outbound RPC round-trip latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
	)

	// RPCAuthFailures tracks inbound /invoke requests rejected before dispatch.
	RPCAuthFailures = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "auth_failures_total",
			Help:      "Total number of inbound RPC requests rejected for malformed envelope, unresolved sender, or bad signature",
		},
		[]string{"reason"}, // decode, unresolved_sender, bad_signature, stale_timestamp
	)

	// RPCHandlerErrors tracks inbound handler failures.
	RPCHandlerErrors = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "handler_errors_total",
			Help:      "Total number of inbound requests that reached the handler and failed",
		},
	)
)
