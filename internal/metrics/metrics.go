// Package metrics exposes Prometheus instrumentation for the identity,
// indexing, ranking, and RPC subsystems.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "agentweb"

// Registry is the process-wide metrics registry. Every collector in this
// package is registered against it via promauto.With(Registry).
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
}
