// Package reconcile implements the Reconcile Loop: for each sequencer
// commitment from one scanned L1 block, walk L2 heights with the sequencer
// client, applying the STF, until the commitment's L1 end-height is
// reached (spec.md §4.2).
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/nkysggsy/citrea/pkg/da"
	"github.com/nkysggsy/citrea/pkg/ledger"
	"github.com/nkysggsy/citrea/pkg/metrics"
	"github.com/nkysggsy/citrea/pkg/retry"
	"github.com/nkysggsy/citrea/pkg/rollup"
	"github.com/nkysggsy/citrea/pkg/sequencerclient"
	"github.com/nkysggsy/citrea/pkg/stf"
	"github.com/nkysggsy/citrea/pkg/storagemanager"
	"github.com/nkysggsy/citrea/pkg/witness"
)

// ErrStateRootMismatch is iteration-fatal (spec.md §7 "State-root
// mismatch"): the core aborts the current L1-block iteration without
// advancing the L1 cursor.
var ErrStateRootMismatch = errors.New("reconcile: next state root does not match soft batch's claimed post state root")

// Result is the per-commitment bookkeeping the outer scan loop folds into
// the witness builder and the dispatch commitment ranges (spec.md §4.2
// "Post-commitment bookkeeping").
type Result struct {
	StartL1           rollup.L1Height
	EndL1             rollup.L1Height
	SoftConfirmations []*rollup.SoftBatch
	Witnesses         [][]byte
	Headers           []rollup.DABlockHeader
}

// Reconciler wires the DA adapter, sequencer client, storage manager, STF
// and ledger together to run one commitment's inner walk.
type Reconciler struct {
	da      da.Service
	seq     sequencerclient.Client
	storage storagemanager.Manager
	stf     stf.Function
	ledger  *ledger.Store

	sequencerPublicKey []byte
	retryPolicy        retry.Policy
	metric             *metrics.Metrics // nil disables metrics updates
	logger             *log.Logger
}

// New constructs a Reconciler. metric may be nil.
func New(daSvc da.Service, seq sequencerclient.Client, storage storagemanager.Manager, stfFn stf.Function, ledgerStore *ledger.Store, sequencerPublicKey []byte, retryPolicy retry.Policy, metric *metrics.Metrics, logger *log.Logger) *Reconciler {
	return &Reconciler{
		da:                 daSvc,
		seq:                seq,
		storage:            storage,
		stf:                stfFn,
		ledger:             ledgerStore,
		sequencerPublicKey: sequencerPublicKey,
		retryPolicy:        retryPolicy,
		metric:             metric,
		logger:             logger,
	}
}

// Reconcile runs steps 1-3 of spec.md §4.2 for one commitment, starting at
// l2Height and the given pre-commitment state root. It returns the
// per-commitment Result, the state root and L2 height after the last
// applied batch, ready to feed the next commitment or seal the witness.
func (r *Reconciler) Reconcile(ctx context.Context, commitment *rollup.SequencerCommitment, stateRoot rollup.Hash, l2Height rollup.L2Height) (Result, rollup.Hash, rollup.L2Height, error) {
	var startL1, endL1 rollup.L1Height

	if err := r.retryPolicy.Do(ctx, func() error {
		hdr, err := r.da.BlockByHash(ctx, commitment.L1StartBlockHash)
		if err != nil {
			return err
		}
		startL1 = hdr.Height
		return nil
	}); err != nil {
		return Result{}, stateRoot, l2Height, fmt.Errorf("reconcile: resolve start l1 height: %w", err)
	}

	if err := r.retryPolicy.Do(ctx, func() error {
		hdr, err := r.da.BlockByHash(ctx, commitment.L1EndBlockHash)
		if err != nil {
			return err
		}
		endL1 = hdr.Height
		return nil
	}); err != nil {
		return Result{}, stateRoot, l2Height, fmt.Errorf("reconcile: resolve end l1 height: %w", err)
	}

	// Mark the commitment's L1 range Pending before the walk begins, so an
	// external observer can see in-flight ranges rather than only the
	// terminal Finalized state written after dispatch (SPEC_FULL §5 item 3).
	for h := startL1; h <= endL1; h++ {
		if err := r.ledger.PutSoftConfirmationStatus(h, ledger.StatusPending); err != nil {
			return Result{}, stateRoot, l2Height, fmt.Errorf("reconcile: mark pending l1 %d: %w", h, err)
		}
	}

	result := Result{StartL1: startL1, EndL1: endL1}

	for {
		var batch *rollup.SoftBatch
		if err := r.retryPolicy.Do(ctx, func() error {
			b, err := r.seq.GetSoftBatch(ctx, l2Height)
			if err != nil {
				return err
			}
			batch = b
			return nil
		}); err != nil {
			return Result{}, stateRoot, l2Height, fmt.Errorf("reconcile: fetch soft batch at l2 %d: %w", l2Height, err)
		}

		if batch == nil {
			// Sequencer has not yet produced this height -- caught up,
			// break the inner loop (spec.md §4.2 step 3, §7 "Absent data").
			break
		}
		if batch.DaSlotHeight > endL1 {
			// Stop without consuming; this batch belongs to a later
			// commitment (spec.md §3 invariant 5).
			break
		}

		newStateRoot, newL2Height, err := r.applyOne(ctx, batch, stateRoot, l2Height, &result)
		if err != nil {
			return Result{}, stateRoot, l2Height, err
		}
		stateRoot, l2Height = newStateRoot, newL2Height
	}

	return result, stateRoot, l2Height, nil
}

func (r *Reconciler) applyOne(ctx context.Context, batch *rollup.SoftBatch, stateRoot rollup.Hash, l2Height rollup.L2Height, result *Result) (rollup.Hash, rollup.L2Height, error) {
	var daHeader rollup.DABlockHeader
	if err := r.retryPolicy.Do(ctx, func() error {
		h, err := r.da.BlockAt(ctx, batch.DaSlotHeight)
		if err != nil {
			return err
		}
		daHeader = h
		return nil
	}); err != nil {
		return stateRoot, l2Height, fmt.Errorf("reconcile: fetch da block at slot height %d: %w", batch.DaSlotHeight, err)
	}
	result.Headers = witness.PushHeader(result.Headers, daHeader)

	preState, err := r.storage.CreateStorageOnL2Height(l2Height)
	if err != nil {
		return stateRoot, l2Height, fmt.Errorf("reconcile: create storage at l2 %d: %w", l2Height, err)
	}

	batchCopy := *batch
	out, err := r.stf.ApplySoftBatch(ctx, stf.ApplyInput{
		SequencerPublicKey: r.sequencerPublicKey,
		PreStateRoot:       stateRoot,
		PreState:           preState,
		DaBlockHeader:      daHeader,
		ValidityCondition:  daHeader.ValidityCondition,
		SoftBatch:          &batchCopy,
	})
	if err != nil {
		return stateRoot, l2Height, fmt.Errorf("reconcile: apply soft batch at l2 %d: %w", l2Height, err)
	}

	if out.StateRoot != batch.PostStateRoot {
		return stateRoot, l2Height, fmt.Errorf("%w: l2=%d computed=%x claimed=%x", ErrStateRootMismatch, l2Height, out.StateRoot, batch.PostStateRoot)
	}

	if err := r.storage.SaveChangeSetL2(l2Height, out.ChangeSet); err != nil {
		return stateRoot, l2Height, fmt.Errorf("reconcile: save change set at l2 %d: %w", l2Height, err)
	}

	receipt := &rollup.SoftBatchReceipt{
		PreStateRoot:        stateRoot,
		PostStateRoot:       out.StateRoot,
		BatchHash:           batch.Hash,
		DaSlotHash:          batch.DaSlotHash,
		DaSlotHeight:        batch.DaSlotHeight,
		DaSlotTxsCommitment: daHeader.TxsCommitment,
		Signature:           batch.Signature,
		PubKey:              r.sequencerPublicKey,
		DepositData:         batch.DepositData,
		L1FeeRate:           batch.L1FeeRate,
		Timestamp:           batch.Timestamp,
		TxReceipts:          out.BatchReceipts,
	}

	if err := r.ledger.CommitSoftBatch(l2Height, receipt); err != nil {
		return stateRoot, l2Height, fmt.Errorf("reconcile: commit soft batch at l2 %d: %w", l2Height, err)
	}
	if err := r.ledger.ExtendL2RangeOfL1Slot(batch.DaSlotHeight, l2Height); err != nil {
		return stateRoot, l2Height, fmt.Errorf("reconcile: extend l2 range of l1 slot at l2 %d: %w", l2Height, err)
	}
	if err := r.storage.FinalizeL2(l2Height); err != nil {
		return stateRoot, l2Height, fmt.Errorf("reconcile: finalize l2 %d: %w", l2Height, err)
	}

	result.SoftConfirmations = append(result.SoftConfirmations, &batchCopy)
	result.Witnesses = append(result.Witnesses, out.Witness)

	if r.metric != nil {
		r.metric.SoftBatchesApplied.Inc()
	}

	return out.StateRoot, l2Height + 1, nil
}
