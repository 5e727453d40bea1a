package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IndexedCapabilities tracks the number of distinct capability keys known to the indexer.
	IndexedCapabilities = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "capabilities",
			Help:      "Number of distinct capability names currently indexed",
		},
	)

	// ReputationReports tracks reported transaction outcomes.
	ReputationReports = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "reports_total",
			Help:      "Total number of transaction reports received by the indexer",
		},
		[]string{"success"}, // true, false
	)

	// RecordCacheSize tracks the fallback record cache's entry count.
	RecordCacheSize = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "record_cache_size",
			Help:      "Number of AgentRecords held in the fallback cache",
		},
	)
)
