// Package stf declares the State Transition Function contract (spec.md
// §4.5). The STF itself (host and guest) is out of scope here (spec.md
// §1) -- only the init_chain and apply_soft_batch contracts are specified.
package stf

import (
	"context"

	"github.com/nkysggsy/citrea/pkg/rollup"
	"github.com/nkysggsy/citrea/pkg/storagemanager"
)

// GenesisParams configures the one-time genesis state transition.
type GenesisParams struct {
	SequencerPublicKey []byte
}

// ApplyInput bundles the inputs to apply_soft_batch: the sequencer's
// public key, the current state root, a pre-state snapshot, the DA block
// header the batch references, its validity condition, and the soft batch
// itself. It carries no validity tracker. The soft batch is
// passed as a pointer because the STF may mutate it in place (e.g. to fill
// in derived fields) before returning.
type ApplyInput struct {
	SequencerPublicKey []byte
	PreStateRoot       rollup.Hash
	PreState           storagemanager.Snapshot
	DaBlockHeader      rollup.DABlockHeader
	ValidityCondition  []byte
	SoftBatch          *rollup.SoftBatch
}

// ApplyOutput is what apply_soft_batch returns: the resulting state root,
// the change-set to persist via the storage manager, the witness for the
// zk circuit, and the per-transaction batch receipts.
type ApplyOutput struct {
	StateRoot     rollup.Hash
	ChangeSet     rollup.ChangeSet
	Witness       rollup.Witness
	BatchReceipts [][]byte
}

// Function is the State Transition Function contract.
type Function interface {
	InitChain(ctx context.Context, storage storagemanager.Snapshot, params GenesisParams) (rollup.Hash, error)
	ApplySoftBatch(ctx context.Context, input ApplyInput) (*ApplyOutput, error)
}
