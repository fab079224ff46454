// Package node wires the scan, reconcile, dispatch, ledger, and storage
// manager components into a single runnable prover core, and owns genesis
// bootstrap and cooperative shutdown (SPEC_FULL §5.1).
package node

import (
	"context"
	"fmt"
	"log"
	"math/rand"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nkysggsy/citrea/pkg/config"
	"github.com/nkysggsy/citrea/pkg/da"
	"github.com/nkysggsy/citrea/pkg/dispatch"
	"github.com/nkysggsy/citrea/pkg/ledger"
	"github.com/nkysggsy/citrea/pkg/metrics"
	"github.com/nkysggsy/citrea/pkg/prover"
	"github.com/nkysggsy/citrea/pkg/reconcile"
	"github.com/nkysggsy/citrea/pkg/retry"
	"github.com/nkysggsy/citrea/pkg/rollup"
	"github.com/nkysggsy/citrea/pkg/scan"
	"github.com/nkysggsy/citrea/pkg/sequencerclient"
	"github.com/nkysggsy/citrea/pkg/stf"
	"github.com/nkysggsy/citrea/pkg/storagemanager"
)

// Collaborators bundles the external adapters this core is built around.
// Their concrete implementations (a DA client, a sequencer RPC client, an
// STF host/guest pair, a zkVM prover client) are deliberately out of scope
// here (spec.md §1) -- the caller supplies them.
type Collaborators struct {
	DA         da.Service
	Sequencer  sequencerclient.Client
	STF        stf.Function
	Prover     prover.Service
	Verifier   *prover.Verifier          // nil disables Full-variant proof verification
	Mirror     dispatch.RelationalMirror // nil disables the relational mirror
	KV         ledger.KV
	Storage    storagemanager.Manager
	Registerer prometheus.Registerer // nil disables metrics registration
}

// Node owns the wired pipeline and the cursors that survive a restart.
type Node struct {
	cfg     *config.Config
	ledger  *ledger.Store
	storage storagemanager.Manager
	da      da.Service
	seq     sequencerclient.Client
	stf     stf.Function

	scanLoop *scan.Loop
	metric   *metrics.Metrics
	logger   *log.Logger
}

// New wires every collaborator into the pipeline. It does not perform
// genesis bootstrap or start scanning; call Bootstrap then Run.
func New(cfg *config.Config, collab Collaborators, logger *log.Logger) (*Node, error) {
	if logger == nil {
		logger = log.New(log.Writer(), "[Node] ", log.LstdFlags)
	}

	var metric *metrics.Metrics
	if collab.Registerer != nil {
		metric = metrics.New(collab.Registerer)
	}

	ledgerStore := ledger.New(collab.KV)
	retryPolicy := retry.DefaultPolicy()

	reconciler := reconcile.New(
		collab.DA,
		collab.Sequencer,
		collab.Storage,
		collab.STF,
		ledgerStore,
		cfg.SequencerPublicKey,
		retryPolicy,
		metric,
		log.New(log.Writer(), "[Reconcile] ", log.LstdFlags),
	)

	dispatcher := dispatch.New(
		ledgerStore,
		collab.Prover,
		collab.Verifier,
		collab.Mirror,
		cfg.ProofSamplingNumber,
		rollup.L1Height(cfg.SkipProofSubmissionUntilL1),
		metric,
		log.New(log.Writer(), "[Dispatch] ", log.LstdFlags),
		rand.New(rand.NewSource(1)),
	)

	scanLoop := scan.New(
		collab.DA,
		ledgerStore,
		reconciler,
		dispatcher,
		da.Keys{SequencerDAKey: cfg.SequencerDAPublicKey, ProverDAKey: cfg.ProverDAPublicKey},
		cfg.SequencerPublicKey,
		cfg.SequencerDAPublicKey,
		retryPolicy,
		metric,
		log.New(log.Writer(), "[Scan] ", log.LstdFlags),
		rollup.Hash{}, // overwritten by Bootstrap below
		0,
	)

	scanLoop.ZKProofObserved = func(l1 rollup.L1Height, proofs []*rollup.Proof) {
		logger.Printf("observed %d zk proof blob(s) posted by the prover at l1 %d (not consumed further)", len(proofs), l1)
	}

	return &Node{
		cfg:      cfg,
		ledger:   ledgerStore,
		storage:  collab.Storage,
		da:       collab.DA,
		seq:      collab.Sequencer,
		stf:      collab.STF,
		scanLoop: scanLoop,
		metric:   metric,
		logger:   logger,
	}, nil
}

// Bootstrap resolves the L1 height to resume scanning from and seeds the
// scan loop's rollup state (SPEC_FULL §5.1):
//   - if the ledger already has a last-scanned L1 height (spec.md §8
//     invariant 1: the height of the last L1 block that finished
//     processing), resume at the height after it, with the state root
//     recovered from the last committed soft-batch receipt;
//   - otherwise this is a fresh start (or a restart before the first L1
//     block has finished processing): ask the sequencer for its genesis DA
//     block hash, resolve it to an L1 height via the DA adapter, and run
//     the STF's one-time init_chain over an empty L2-height-0 snapshot to
//     obtain the genesis state root. Unlike the cursor, genesis is never
//     persisted: init_chain is deterministic, so re-deriving it on every
//     restart until the first soft batch commits is cheap and avoids a
//     window where a persisted-but-unbacked cursor would resume with the
//     wrong (zero) state root (SPEC_FULL §5.1, original_source/crates/
//     prover/src/runner.rs genesis handling).
func (n *Node) Bootstrap(ctx context.Context) (rollup.L1Height, error) {
	if h, ok, err := n.ledger.LastScannedL1Height(); err != nil {
		return 0, fmt.Errorf("node: bootstrap: %w", err)
	} else if ok {
		l2, err := n.ledger.NextL2Height()
		if err != nil {
			return 0, fmt.Errorf("node: bootstrap: resume l2 height: %w", err)
		}
		var genesisRoot rollup.Hash
		if l2 == 0 {
			// No soft batch has committed yet: the state root is still genesis.
			snapshot, err := n.storage.CreateStorageOnL2Height(0)
			if err != nil {
				return 0, fmt.Errorf("node: bootstrap: create genesis storage snapshot: %w", err)
			}
			if genesisRoot, err = n.stf.InitChain(ctx, snapshot, stf.GenesisParams{SequencerPublicKey: n.cfg.SequencerPublicKey}); err != nil {
				return 0, fmt.Errorf("node: bootstrap: init chain: %w", err)
			}
		}
		root, err := n.ledger.CurrentStateRoot(genesisRoot)
		if err != nil {
			return 0, fmt.Errorf("node: bootstrap: resume state root: %w", err)
		}
		n.scanLoop.Seed(root, l2)
		n.logger.Printf("resuming from persisted ledger at l1=%d l2=%d", h+1, l2)
		return h + 1, nil
	}

	n.logger.Printf("no completed l1 scan found, deriving genesis")

	genesisHash, err := n.seq.GenesisHash(ctx)
	if err != nil {
		return 0, fmt.Errorf("node: bootstrap: fetch sequencer genesis hash: %w", err)
	}

	genesisHeader, err := n.da.BlockByHash(ctx, genesisHash)
	if err != nil {
		return 0, fmt.Errorf("node: bootstrap: resolve genesis l1 height: %w", err)
	}

	genesisSnapshot, err := n.storage.CreateStorageOnL2Height(0)
	if err != nil {
		return 0, fmt.Errorf("node: bootstrap: create genesis storage snapshot: %w", err)
	}

	genesisStateRoot, err := n.stf.InitChain(ctx, genesisSnapshot, stf.GenesisParams{SequencerPublicKey: n.cfg.SequencerPublicKey})
	if err != nil {
		return 0, fmt.Errorf("node: bootstrap: init chain: %w", err)
	}

	n.scanLoop.Seed(genesisStateRoot, 0)
	n.logger.Printf("genesis bootstrap complete: l1=%d state_root=%x", genesisHeader.Height, genesisStateRoot)
	return genesisHeader.Height, nil
}

// Run drives the scan loop from startL1 until ctx is cancelled.
func (n *Node) Run(ctx context.Context, startL1 rollup.L1Height) error {
	return n.scanLoop.Run(ctx, startL1)
}
