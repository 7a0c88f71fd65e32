// Package metrics exposes the prometheus collectors scraped at
// GET /metrics: an additive observability surface, not the
// human-facing "live dashboard" the specification's Non-goals exclude.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles every collector this service reports. Constructed
// once at process start and passed explicitly into the components that
// record against it.
type Registry struct {
	TokensMinted         prometheus.Counter
	SubmissionsAccepted  prometheus.Counter
	SubmissionsRejected  *prometheus.CounterVec
	ConsensusRunDuration prometheus.Histogram
	ConsensusIterations  prometheus.Histogram
}

// New constructs and registers every collector against reg.
func New(reg prometheus.Registerer) *Registry {
	m := &Registry{
		TokensMinted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "peereval_tokens_minted_total",
			Help: "Total evaluation tokens minted.",
		}),
		SubmissionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "peereval_submissions_accepted_total",
			Help: "Total submissions accepted.",
		}),
		SubmissionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peereval_submissions_rejected_total",
			Help: "Total submissions rejected, by reason.",
		}, []string{"reason"}),
		ConsensusRunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "peereval_consensus_run_duration_seconds",
			Help:    "Wall-clock duration of a full Consensus run.",
			Buckets: prometheus.DefBuckets,
		}),
		ConsensusIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "peereval_consensus_iterations",
			Help:    "Configured iteration count of a Consensus run.",
			Buckets: []float64{5, 10, 15, 20, 25, 30, 50, 100},
		}),
	}

	reg.MustRegister(
		m.TokensMinted,
		m.SubmissionsAccepted,
		m.SubmissionsRejected,
		m.ConsensusRunDuration,
		m.ConsensusIterations,
	)
	return m
}
