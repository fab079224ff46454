// Package dispatch implements the Prover Dispatch step: sampling/skip-window
// policy, submit→prove→verify→persist against the prover service, and the
// after-dispatch ledger bookkeeping shared by every L1 block that carried a
// commitment (spec.md §4.4).
package dispatch

import (
	"context"
	"fmt"
	"log"
	"math/rand"

	"github.com/nkysggsy/citrea/pkg/ledger"
	"github.com/nkysggsy/citrea/pkg/metrics"
	"github.com/nkysggsy/citrea/pkg/prover"
	"github.com/nkysggsy/citrea/pkg/rollup"
)

// CommitmentRange pairs a reconciled commitment with the L1 height range
// its soft batches span (spec.md §4.2 step 2 "Record the (start_L1,
// end_L1) tuple for post-processing").
type CommitmentRange struct {
	Commitment *rollup.SequencerCommitment
	StartL1    rollup.L1Height
	EndL1      rollup.L1Height
}

// RelationalMirror optionally inserts proof artifacts into an external
// relational store (spec.md §4.4 step 7, §6 "External relational schema").
// Failures are logged but never fail the iteration (spec.md §7 "Optional
// subsystem failures").
type RelationalMirror interface {
	InsertProofData(ctx context.Context, l1 rollup.L1Height, txID []byte, proof []byte, proofType ledger.ProofType, stored rollup.StoredStateTransition) error
}

// Dispatcher runs the sampling policy and submit→prove→verify→persist
// pipeline against one eligible L1 block.
type Dispatcher struct {
	ledger   *ledger.Store
	prover   prover.Service
	verifier *prover.Verifier // nil disables Full-variant verification
	mirror   RelationalMirror // nil disables the relational mirror

	proofSamplingNumber        int
	skipProofSubmissionUntilL1 rollup.L1Height

	rng    *rand.Rand
	logger *log.Logger
	metric *metrics.Metrics // nil disables metrics updates
}

// New constructs a Dispatcher. rng may be nil, in which case a new source
// with the fixed seed 1 is used -- the sampling RNG is
// non-security-critical (spec.md §9 "RNG").
func New(ledgerStore *ledger.Store, proverSvc prover.Service, verifier *prover.Verifier, mirror RelationalMirror, proofSamplingNumber int, skipUntilL1 rollup.L1Height, metric *metrics.Metrics, logger *log.Logger, rng *rand.Rand) *Dispatcher {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Dispatcher{
		ledger:                     ledgerStore,
		prover:                     proverSvc,
		verifier:                   verifier,
		mirror:                     mirror,
		proofSamplingNumber:        proofSamplingNumber,
		skipProofSubmissionUntilL1: skipUntilL1,
		rng:                        rng,
		logger:                     logger,
		metric:                     metric,
	}
}

// Eligible implements the sampling/skip-window policy (spec.md §4.4
// "Policy"): N==0 proves every block; otherwise dispatch with probability
// 1/N. SKIP_PROOF_SUBMISSION_UNTIL_L1 unconditionally suppresses dispatch
// below the threshold, regardless of sampling outcome.
func (d *Dispatcher) Eligible(l1Height rollup.L1Height) bool {
	if l1Height < d.skipProofSubmissionUntilL1 {
		if d.metric != nil {
			d.metric.ProofsSkippedWindow.Inc()
		}
		return false
	}
	if d.proofSamplingNumber == 0 {
		return true
	}
	sampled := d.rng.Intn(d.proofSamplingNumber) == 0
	if !sampled && d.metric != nil {
		d.metric.ProofsSkippedSample.Inc()
	}
	return sampled
}

// Dispatch runs the full Prover Dispatch contract for one scanned L1 block:
// conditionally submit/prove/verify/persist (if Eligible), then -- always
// -- the after-dispatch bookkeeping and final cursor advance (spec.md §4.4
// "After dispatch (regardless of whether eligible)").
func (d *Dispatcher) Dispatch(ctx context.Context, l1Height rollup.L1Height, daBlockHash rollup.Hash, data *rollup.StateTransitionData, ranges []CommitmentRange) error {
	if d.Eligible(l1Height) {
		if err := d.submitProveVerifyPersist(ctx, l1Height, daBlockHash, data); err != nil {
			return err
		}
		if d.metric != nil {
			d.metric.ProofsDispatched.Inc()
		}
	}

	for _, r := range ranges {
		if err := d.ledger.UpdateCommitmentsOnDaSlot(l1Height, []*rollup.SequencerCommitment{r.Commitment}); err != nil {
			return fmt.Errorf("dispatch: update commitments on da slot: %w", err)
		}
		for h := r.StartL1; h <= r.EndL1; h++ {
			if err := d.ledger.PutSoftConfirmationStatus(h, ledger.StatusFinalized); err != nil {
				return fmt.Errorf("dispatch: put soft confirmation status at %d: %w", h, err)
			}
		}
	}

	if err := d.ledger.SetLastScannedL1Height(l1Height); err != nil {
		return fmt.Errorf("dispatch: advance last scanned l1 height: %w", err)
	}
	return nil
}

func (d *Dispatcher) submitProveVerifyPersist(ctx context.Context, l1Height rollup.L1Height, daBlockHash rollup.Hash, data *rollup.StateTransitionData) error {
	if err := d.prover.SubmitWitness(ctx, data); err != nil {
		return fmt.Errorf("dispatch: submit witness: %w", err)
	}
	if err := d.prover.Prove(ctx, daBlockHash); err != nil {
		return fmt.Errorf("dispatch: initiate proving: %w", err)
	}
	txID, proof, err := d.prover.WaitForProvingAndSendToDA(ctx, daBlockHash)
	if err != nil {
		return fmt.Errorf("dispatch: wait for proving and send to da: %w", err)
	}

	out, err := prover.ExtractTransitionOutput(proof)
	if err != nil {
		return fmt.Errorf("dispatch: extract transition output: %w", err)
	}

	var verifiedOutput []byte
	proofType := ledger.ProofTypePublicInput
	if proof.Variant == rollup.ProofVariantFull {
		proofType = ledger.ProofTypeFull
		if d.verifier != nil {
			verifiedOutput, err = d.verifier.VerifyFull(out)
			if err != nil {
				return fmt.Errorf("dispatch: verify full proof: %w", err)
			}
			d.logger.Printf("verified full proof for da block %x, output %d bytes", daBlockHash, len(verifiedOutput))
		}
	}

	stored := rollup.StoredStateTransition{
		InitialStateRoot:     data.InitialStateRoot,
		FinalStateRoot:       data.FinalStateRoot,
		StateDiff:            out.PublicWitnessBytes,
		DaSlotHash:           daBlockHash,
		SequencerPublicKey:   data.SequencerPublicKey,
		SequencerDaPublicKey: data.SequencerDaPublicKey,
		ValidityCondition:    data.DaBlockHeaderOfCommitments.ValidityCondition,
	}

	if d.mirror != nil {
		if err := d.mirror.InsertProofData(ctx, l1Height, txID, proof.Payload, proofType, stored); err != nil {
			d.logger.Printf("relational mirror insert failed (non-fatal): %v", err)
		}
	}

	if err := d.ledger.PutProofData(l1Height, ledger.ProofData{
		TxID:             txID,
		Proof:            proof.Payload,
		ProofType:        proofType,
		StoredTransition: stored,
	}); err != nil {
		return fmt.Errorf("dispatch: persist proof data: %w", err)
	}

	return nil
}
