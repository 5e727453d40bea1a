package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RankingDuration tracks the wall time of a full gather/score/select pass.
	RankingDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ranking",
			Name:      "duration_seconds",
			Help:      "Time to gather, verify, score, and select a candidate for a capability",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"result"}, // winner, no_candidates, no_verified_candidates, discovery_error
	)

	// RankingCandidatesVerified tracks how many candidates survive record verification.
	RankingCandidatesVerified = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ranking",
			Name:      "candidates_verified",
			Help:      "Number of candidates whose AgentRecord verified, per ranking call",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
	)

	// IdentityMismatches tracks records discarded for a digest/identifier mismatch.
	IdentityMismatches = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "record",
			Name:      "identity_mismatches_total",
			Help:      "Total number of fetched records discarded for a public-key digest mismatch",
		},
	)
)
