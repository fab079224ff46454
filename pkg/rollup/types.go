// Package rollup holds the data model shared by the prover node core: the
// two monotonic cursors, the sequencer commitment and soft-batch records,
// and the transition-witness bundle handed to the prover service.
package rollup

import (
	"github.com/ethereum/go-ethereum/common"
)

// L1Height is the DA chain's block height. It only ever increases across
// one scan run; the core never rewinds it (see the reorg open question).
type L1Height uint64

// L2Height is the rollup's soft-batch sequence number, 0-indexed and
// gap-free by construction (spec invariant: receipts commit in strict
// increasing order).
type L2Height uint64

// Hash is the opaque 32-byte domain used for state roots, batch hashes and
// DA block hashes. Treated as a clonable, comparable-by-bytes value.
type Hash = common.Hash

// SequencerCommitment is an immutable record posted on DA by the sequencer,
// binding an L1 range to a Merkle commitment over the L2 soft-batches it
// claims to cover.
type SequencerCommitment struct {
	L1StartBlockHash Hash
	L1EndBlockHash   Hash
	MerkleRoot       Hash
}

// SoftBatch is the unit of L2 execution published by the sequencer before
// DA finalization.
type SoftBatch struct {
	DaSlotHeight  L1Height
	DaSlotHash    Hash
	Hash          Hash
	PostStateRoot Hash
	Signature     []byte
	DepositData   [][]byte
	L1FeeRate     uint64
	Timestamp     uint64
	Txs           [][]byte
}

// SoftBatchReceipt is the persisted outcome after applying a SoftBatch.
type SoftBatchReceipt struct {
	PreStateRoot        Hash
	PostStateRoot       Hash
	BatchHash           Hash
	DaSlotHash          Hash
	DaSlotHeight        L1Height
	DaSlotTxsCommitment Hash
	TxReceipts          [][]byte
	Signature           []byte
	PubKey              []byte
	DepositData         [][]byte
	L1FeeRate           uint64
	Timestamp           uint64
}

// DABlockHeader is the minimal DA block header the core threads through
// witness construction: its hash, height, transaction-commitment and an
// opaque validity condition the STF adapter consumes but the core never
// inspects.
type DABlockHeader struct {
	Hash              Hash
	Height            L1Height
	TxsCommitment     Hash
	ValidityCondition []byte
}

// StateTransitionData is the prover-input bundle for one L1 block that
// contained at least one sequencer commitment.
type StateTransitionData struct {
	InitialStateRoot Hash
	FinalStateRoot   Hash

	// DaData holds every blob the DA adapter extracted from the scanned
	// block, with bodies fully materialized (spec invariant 4).
	DaData [][]byte

	DaBlockHeaderOfCommitments DABlockHeader
	InclusionProof             []byte
	CompletenessProof          []byte

	// The three queues below are commitment-ordered and must have equal
	// length, one entry per commitment in the scanned block.
	SoftConfirmations                 [][]*SoftBatch
	StateTransitionWitnesses          [][][]byte
	DaBlockHeadersOfSoftConfirmations [][]DABlockHeader

	SequencerPublicKey   []byte
	SequencerDaPublicKey []byte
}

// StoredStateTransition is the post-proof record written to the ledger
// (and optionally to a relational mirror).
type StoredStateTransition struct {
	InitialStateRoot     Hash
	FinalStateRoot       Hash
	StateDiff            []byte
	DaSlotHash           Hash
	SequencerPublicKey   []byte
	SequencerDaPublicKey []byte
	ValidityCondition    []byte
}

// ChangeSet is the opaque, byte-convertible state delta an STF apply
// produces; the storage manager persists it keyed by L2Height.
type ChangeSet []byte

// Witness is the opaque, byte-convertible auxiliary data an STF apply
// produces for the zk circuit to re-derive the post-state.
type Witness []byte

// BytesToHash right-aligns b in a Hash, matching common.BytesToHash.
func BytesToHash(b []byte) Hash {
	return common.BytesToHash(b)
}
