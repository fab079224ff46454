// Package scan implements the Scan Loop: advances the L1 cursor, classifies
// blobs per DA block, and drives the Reconcile Loop and Prover Dispatch for
// blocks carrying commitments (spec.md §4.1).
package scan

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nkysggsy/citrea/pkg/da"
	"github.com/nkysggsy/citrea/pkg/dispatch"
	"github.com/nkysggsy/citrea/pkg/ledger"
	"github.com/nkysggsy/citrea/pkg/metrics"
	"github.com/nkysggsy/citrea/pkg/reconcile"
	"github.com/nkysggsy/citrea/pkg/retry"
	"github.com/nkysggsy/citrea/pkg/rollup"
	"github.com/nkysggsy/citrea/pkg/witness"
)

// IdleSleep is the pause observed when the L1 cursor outruns DA finality
// (spec.md §4.1 step (a), §8 scenario 1 "Idle tail").
const IdleSleep = time.Second

// Loop drives the L1 cursor across DA blocks.
type Loop struct {
	da         da.Service
	ledger     *ledger.Store
	reconciler *reconcile.Reconciler
	dispatcher *dispatch.Dispatcher

	keys                 da.Keys
	sequencerPublicKey   []byte
	sequencerDaPublicKey []byte

	retryPolicy retry.Policy
	metric      *metrics.Metrics
	logger      *log.Logger

	// currentStateRoot and currentL2Height track the reconstructed rollup
	// state across outer iterations; they are seeded from the ledger (or
	// STF genesis) before the first call to RunOnce (SPEC_FULL §5.1).
	currentStateRoot rollup.Hash
	currentL2Height  rollup.L2Height

	// ZKProofObserved is called for every ZKProof blob classified from the
	// prover DA key in a scanned block. It is observation-only: nothing in
	// this core verifies or consumes these proofs further (SPEC_FULL §6
	// "zk-proof ingestion from DA" open question). May be nil.
	ZKProofObserved func(l1 rollup.L1Height, proofs []*rollup.Proof)
}

// New constructs a scan Loop.
func New(daSvc da.Service, ledgerStore *ledger.Store, reconciler *reconcile.Reconciler, dispatcher *dispatch.Dispatcher, keys da.Keys, sequencerPublicKey, sequencerDaPublicKey []byte, retryPolicy retry.Policy, metric *metrics.Metrics, logger *log.Logger, genesisStateRoot rollup.Hash, genesisL2Height rollup.L2Height) *Loop {
	return &Loop{
		da:                   daSvc,
		ledger:               ledgerStore,
		reconciler:           reconciler,
		dispatcher:           dispatcher,
		keys:                 keys,
		sequencerPublicKey:   sequencerPublicKey,
		sequencerDaPublicKey: sequencerDaPublicKey,
		retryPolicy:          retryPolicy,
		metric:               metric,
		logger:               logger,
		currentStateRoot:     genesisStateRoot,
		currentL2Height:      genesisL2Height,
	}
}

// Seed overrides the rollup state the loop starts reconciling from. It
// must be called before Run, typically from genesis/resume bootstrap
// logic that runs after New but needs information (e.g. a recovered state
// root) not yet available at construction time (SPEC_FULL §5.1).
func (l *Loop) Seed(stateRoot rollup.Hash, l2Height rollup.L2Height) {
	l.currentStateRoot = stateRoot
	l.currentL2Height = l2Height
}

// Run drives the scan loop from h until ctx is cancelled (spec.md §5
// "Cancellation"). Each outer iteration is cooperative: ctx is checked
// before every suspension point.
func (l *Loop) Run(ctx context.Context, h rollup.L1Height) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		next, err := l.RunOnce(ctx, h)
		if err != nil {
			if l.metric != nil {
				l.metric.IterationErrors.Inc()
			}
			return fmt.Errorf("scan: iteration at l1 %d: %w", h, err)
		}
		h = next
	}
}

// RunOnce executes one outer-loop iteration at L1 height h and returns the
// next height to scan (spec.md §4.1).
func (l *Loop) RunOnce(ctx context.Context, h rollup.L1Height) (rollup.L1Height, error) {
	var finalized rollup.DABlockHeader
	if err := l.retryPolicy.Do(ctx, func() error {
		f, err := l.da.LastFinalizedHeader(ctx)
		if err != nil {
			return err
		}
		finalized = f
		return nil
	}); err != nil {
		return h, fmt.Errorf("fetch last finalized header: %w", err)
	}
	if l.metric != nil {
		l.metric.FinalizedL1Height.Set(float64(finalized.Height))
		l.metric.L1LagBlocks.Set(float64(finalized.Height) - float64(h))
	}

	if h > finalized.Height {
		select {
		case <-ctx.Done():
			return h, ctx.Err()
		case <-time.After(IdleSleep):
		}
		return h, nil
	}

	var block rollup.DABlockHeader
	if err := l.retryPolicy.Do(ctx, func() error {
		b, err := l.da.BlockAt(ctx, h)
		if err != nil {
			return err
		}
		block = b
		return nil
	}); err != nil {
		return h, fmt.Errorf("fetch block at %d: %w", h, err)
	}

	// Spec invariant 4: the hash is recorded before contents are processed.
	if err := l.ledger.SetL1HashByHeight(h, block.Hash); err != nil {
		return h, fmt.Errorf("record l1 hash at %d: %w", h, err)
	}

	var blobs []da.Blob
	if err := l.retryPolicy.Do(ctx, func() error {
		b, err := l.da.ExtractRelevantBlobs(ctx, block)
		if err != nil {
			return err
		}
		blobs = b
		return nil
	}); err != nil {
		return h, fmt.Errorf("extract blobs at %d: %w", h, err)
	}

	classified := da.Classify(l.keys, blobs, l.logger)

	if len(classified.ZKProofs) > 0 && l.ZKProofObserved != nil {
		l.ZKProofObserved(h, classified.ZKProofs)
	}

	if len(classified.Commitments) == 0 {
		if l.metric != nil {
			l.metric.ScannedL1Height.Set(float64(h))
		}
		if err := l.ledger.SetLastScannedL1Height(h); err != nil {
			return h, fmt.Errorf("advance cursor past empty block %d: %w", h, err)
		}
		return h + 1, nil
	}

	if l.metric != nil {
		l.metric.CommitmentsSeen.Add(float64(len(classified.Commitments)))
	}

	materialized := make([][]byte, len(blobs))
	for i, b := range blobs {
		materialized[i] = b.Data
	}

	var inclusionProof, completenessProof []byte
	if err := l.retryPolicy.Do(ctx, func() error {
		incl, compl, err := l.da.ExtractionProof(ctx, block, blobs)
		if err != nil {
			return err
		}
		inclusionProof, completenessProof = incl, compl
		return nil
	}); err != nil {
		return h, fmt.Errorf("extraction proof at %d: %w", h, err)
	}

	builder := witness.NewBuilder(l.currentStateRoot, block, materialized, inclusionProof, completenessProof, l.sequencerPublicKey, l.sequencerDaPublicKey)

	var ranges []dispatch.CommitmentRange
	for _, commitment := range classified.Commitments {
		result, newRoot, newL2, err := l.reconciler.Reconcile(ctx, commitment, l.currentStateRoot, l.currentL2Height)
		if err != nil {
			return h, fmt.Errorf("reconcile commitment at %d: %w", h, err)
		}
		l.currentStateRoot, l.currentL2Height = newRoot, newL2

		builder.PushCommitment(result.SoftConfirmations, result.Witnesses, result.Headers)
		ranges = append(ranges, dispatch.CommitmentRange{Commitment: commitment, StartL1: result.StartL1, EndL1: result.EndL1})
	}

	data := builder.Seal(l.currentStateRoot)

	if err := l.dispatcher.Dispatch(ctx, h, block.Hash, data, ranges); err != nil {
		return h, fmt.Errorf("dispatch at %d: %w", h, err)
	}

	if l.metric != nil {
		l.metric.ScannedL1Height.Set(float64(h))
	}

	return h + 1, nil
}
