// Package metrics exposes Prometheus instrumentation for the scan,
// reconcile, and dispatch loops.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the gauges/counters the core updates during each outer
// iteration.
type Metrics struct {
	ScannedL1Height     prometheus.Gauge
	FinalizedL1Height   prometheus.Gauge
	L1LagBlocks         prometheus.Gauge
	CommitmentsSeen     prometheus.Counter
	SoftBatchesApplied  prometheus.Counter
	ProofsDispatched    prometheus.Counter
	ProofsSkippedSample prometheus.Counter
	ProofsSkippedWindow prometheus.Counter
	IterationErrors     prometheus.Counter
}

// New registers and returns a Metrics bundle against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScannedL1Height: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "prover",
			Name:      "scanned_l1_height",
			Help:      "Last L1 height whose commitments were fully reconciled and dispatched.",
		}),
		FinalizedL1Height: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "prover",
			Name:      "finalized_l1_height",
			Help:      "Last finalized DA height observed by the scan loop.",
		}),
		L1LagBlocks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "prover",
			Name:      "l1_lag_blocks",
			Help:      "finalized_l1_height minus the L1 height the scan loop is about to process.",
		}),
		CommitmentsSeen: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prover",
			Name:      "commitments_seen_total",
			Help:      "Sequencer commitments classified off DA blobs.",
		}),
		SoftBatchesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prover",
			Name:      "soft_batches_applied_total",
			Help:      "Soft batches successfully applied and committed.",
		}),
		ProofsDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prover",
			Name:      "proofs_dispatched_total",
			Help:      "Transition witnesses submitted to the prover service.",
		}),
		ProofsSkippedSample: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prover",
			Name:      "proofs_skipped_sample_total",
			Help:      "Eligible L1 blocks skipped by the sampling policy.",
		}),
		ProofsSkippedWindow: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prover",
			Name:      "proofs_skipped_window_total",
			Help:      "L1 blocks skipped by SKIP_PROOF_SUBMISSION_UNTIL_L1.",
		}),
		IterationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prover",
			Name:      "iteration_errors_total",
			Help:      "Outer-loop iterations aborted by an iteration-fatal error.",
		}),
	}

	reg.MustRegister(
		m.ScannedL1Height,
		m.FinalizedL1Height,
		m.L1LagBlocks,
		m.CommitmentsSeen,
		m.SoftBatchesApplied,
		m.ProofsDispatched,
		m.ProofsSkippedSample,
		m.ProofsSkippedWindow,
		m.IterationErrors,
	)

	return m
}
