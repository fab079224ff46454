// Package ledger persists the prover core's cursors, soft-batch receipts,
// commitments, soft-confirmation statuses, and proof data.
//
// CONCURRENCY: Store assumes single-writer access and is designed to be
// called from the scan/reconcile/dispatch pipeline only (spec.md §5 "one
// writer"). If you need to use it from multiple goroutines, wrap it with
// your own synchronization.
package ledger

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/nkysggsy/citrea/pkg/rollup"
)

// KV defines the key-value store interface the ledger is built on.
type KV interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
}

// Store provides high-level access to ledger data in the KV store.
type Store struct {
	kv KV
}

// New creates a new Store instance.
func New(kv KV) *Store {
	return &Store{kv: kv}
}

// SoftConfirmationStatus is the finalization state of an L1 height's
// soft-confirmation coverage (spec.md §6).
type SoftConfirmationStatus string

const (
	StatusPending   SoftConfirmationStatus = "Pending"
	StatusFinalized SoftConfirmationStatus = "Finalized"
)

// ProofType tags a stored proof payload as Full or PublicInput (spec.md §6).
type ProofType string

const (
	ProofTypeFull        ProofType = "Full"
	ProofTypePublicInput ProofType = "PublicInput"
)

// ProofData is the ledger-persisted record for proof_data[l1] (spec.md §6).
type ProofData struct {
	TxID             []byte
	Proof            []byte
	ProofType        ProofType
	StoredTransition rollup.StoredStateTransition
}

// ====== KV key layout ======

var (
	keyLastScannedL1 = []byte("prover:last_scanned_l1_height")

	keyL1HashByHeightPrefix   = []byte("prover:l1_hash_by_height:")
	keySoftBatchReceiptPrefix = []byte("prover:soft_batch_receipt:")
	keyL2RangeOfL1SlotPrefix  = []byte("prover:l2_range_of_l1_slot:")
	keyCommitmentsOnL1Prefix  = []byte("prover:commitments_on_l1:")
	keySoftConfStatusPrefix   = []byte("prover:soft_conf_status:")
	keyProofDataPrefix        = []byte("prover:proof_data:")
)

func l1Key(prefix []byte, h rollup.L1Height) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(h))
	return append(append([]byte{}, prefix...), b...)
}

func l2Key(prefix []byte, h rollup.L2Height) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(h))
	return append(append([]byte{}, prefix...), b...)
}

// ====== Cursors ======

// LastScannedL1Height returns prover_last_scanned_l1_height -- the height of
// the last L1 block that finished processing, not the next height to scan
// (spec.md §8 invariant 1) -- or (0, false) if the ledger has never been
// written (fresh start).
func (s *Store) LastScannedL1Height() (rollup.L1Height, bool, error) {
	b, err := s.kv.Get(keyLastScannedL1)
	if err != nil {
		return 0, false, fmt.Errorf("ledger: get last scanned l1 height: %w", err)
	}
	if len(b) == 0 {
		return 0, false, nil
	}
	if len(b) != 8 {
		return 0, false, fmt.Errorf("ledger: corrupt last scanned l1 height (%d bytes)", len(b))
	}
	return rollup.L1Height(binary.BigEndian.Uint64(b)), true, nil
}

// SetLastScannedL1Height records h as the last L1 height fully processed
// (spec.md §4.1 step (e), §7 "Cursor advancement is the atomic-commit
// boundary", §8 invariant 1). Callers resume scanning at h+1, not h.
func (s *Store) SetLastScannedL1Height(h rollup.L1Height) error {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(h))
	if err := s.kv.Set(keyLastScannedL1, b); err != nil {
		return fmt.Errorf("ledger: set last scanned l1 height: %w", err)
	}
	return nil
}

// NextL2Height derives next_l2_height from the count of committed
// soft-batch receipts (spec.md §3 "Cursors (persistent)"). It is tracked
// as an explicit counter rather than re-scanned on every call.
func (s *Store) NextL2Height() (rollup.L2Height, error) {
	b, err := s.kv.Get(keyNextL2Height)
	if err != nil {
		return 0, fmt.Errorf("ledger: get next l2 height: %w", err)
	}
	if len(b) == 0 {
		return 0, nil
	}
	if len(b) != 8 {
		return 0, fmt.Errorf("ledger: corrupt next l2 height (%d bytes)", len(b))
	}
	return rollup.L2Height(binary.BigEndian.Uint64(b)), nil
}

func (s *Store) setNextL2Height(h rollup.L2Height) error {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(h))
	return s.kv.Set(keyNextL2Height, b)
}

var keyNextL2Height = []byte("prover:next_l2_height")

// CurrentStateRoot resumes the reconstructed rollup state root across
// restarts: the post-state-root of the last committed soft-batch receipt,
// or genesisStateRoot if no soft batch has ever been committed.
func (s *Store) CurrentStateRoot(genesisStateRoot rollup.Hash) (rollup.Hash, error) {
	next, err := s.NextL2Height()
	if err != nil {
		return rollup.Hash{}, err
	}
	if next == 0 {
		return genesisStateRoot, nil
	}
	receipt, ok, err := s.SoftBatchReceiptAt(next - 1)
	if err != nil {
		return rollup.Hash{}, err
	}
	if !ok {
		return genesisStateRoot, nil
	}
	return receipt.PostStateRoot, nil
}

// ====== L1 hash index ======

// SetL1HashByHeight records an L1 block's hash by height (spec.md §3
// invariant 4: "Each L1 block's hash is recorded by height before its
// contents are processed").
func (s *Store) SetL1HashByHeight(h rollup.L1Height, hash rollup.Hash) error {
	if err := s.kv.Set(l1Key(keyL1HashByHeightPrefix, h), hash.Bytes()); err != nil {
		return fmt.Errorf("ledger: set l1 hash by height: %w", err)
	}
	return nil
}

// L1HashByHeight returns the recorded hash for an L1 height, if any.
func (s *Store) L1HashByHeight(h rollup.L1Height) (rollup.Hash, bool, error) {
	b, err := s.kv.Get(l1Key(keyL1HashByHeightPrefix, h))
	if err != nil {
		return rollup.Hash{}, false, fmt.Errorf("ledger: get l1 hash by height: %w", err)
	}
	if len(b) == 0 {
		return rollup.Hash{}, false, nil
	}
	return rollup.BytesToHash(b), true, nil
}

// ====== Soft-batch receipts ======

// CommitSoftBatch persists a SoftBatchReceipt at L2 height `h` and advances
// next_l2_height to h+1. Callers must ensure strictly increasing,
// gap-free L2 order (spec.md §3 invariant 1); this is the commit step of
// the atomic apply→commit→finalize trio (spec.md §9), and the storage
// manager's FinalizeL2 follows it.
func (s *Store) CommitSoftBatch(h rollup.L2Height, receipt *rollup.SoftBatchReceipt) error {
	b, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("ledger: marshal soft batch receipt: %w", err)
	}
	if err := s.kv.Set(l2Key(keySoftBatchReceiptPrefix, h), b); err != nil {
		return fmt.Errorf("ledger: set soft batch receipt: %w", err)
	}
	return s.setNextL2Height(h + 1)
}

// SoftBatchReceiptAt returns the receipt committed at L2 height h.
func (s *Store) SoftBatchReceiptAt(h rollup.L2Height) (*rollup.SoftBatchReceipt, bool, error) {
	b, err := s.kv.Get(l2Key(keySoftBatchReceiptPrefix, h))
	if err != nil {
		return nil, false, fmt.Errorf("ledger: get soft batch receipt: %w", err)
	}
	if len(b) == 0 {
		return nil, false, nil
	}
	var r rollup.SoftBatchReceipt
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, false, fmt.Errorf("ledger: unmarshal soft batch receipt: %w", err)
	}
	return &r, true, nil
}

// ====== L2 range of L1 slot ======

// L2Range is the [lo, hi] (inclusive) L2 height range a given L1 slot's
// soft batches fall in.
type L2Range struct {
	Lo rollup.L2Height
	Hi rollup.L2Height
}

// ExtendL2RangeOfL1Slot widens l2_range_of_l1_slot[l1] to include l2Height,
// creating the entry with lo=hi=l2Height if absent.
func (s *Store) ExtendL2RangeOfL1Slot(l1 rollup.L1Height, l2Height rollup.L2Height) error {
	key := l1Key(keyL2RangeOfL1SlotPrefix, l1)
	existing, err := s.kv.Get(key)
	if err != nil {
		return fmt.Errorf("ledger: get l2 range of l1 slot: %w", err)
	}
	rng := L2Range{Lo: l2Height, Hi: l2Height}
	if len(existing) > 0 {
		var prev L2Range
		if err := json.Unmarshal(existing, &prev); err != nil {
			return fmt.Errorf("ledger: unmarshal l2 range of l1 slot: %w", err)
		}
		if prev.Lo < rng.Lo {
			rng.Lo = prev.Lo
		}
		if prev.Hi > rng.Hi {
			rng.Hi = prev.Hi
		}
	}
	b, err := json.Marshal(rng)
	if err != nil {
		return fmt.Errorf("ledger: marshal l2 range of l1 slot: %w", err)
	}
	if err := s.kv.Set(key, b); err != nil {
		return fmt.Errorf("ledger: set l2 range of l1 slot: %w", err)
	}
	return nil
}

// L2RangeOfL1Slot returns the L2 range recorded for an L1 slot, if any.
func (s *Store) L2RangeOfL1Slot(l1 rollup.L1Height) (L2Range, bool, error) {
	b, err := s.kv.Get(l1Key(keyL2RangeOfL1SlotPrefix, l1))
	if err != nil {
		return L2Range{}, false, fmt.Errorf("ledger: get l2 range of l1 slot: %w", err)
	}
	if len(b) == 0 {
		return L2Range{}, false, nil
	}
	var rng L2Range
	if err := json.Unmarshal(b, &rng); err != nil {
		return L2Range{}, false, fmt.Errorf("ledger: unmarshal l2 range of l1 slot: %w", err)
	}
	return rng, true, nil
}

// ====== Commitments on DA slot ======

// UpdateCommitmentsOnDaSlot appends commitments to the list indexed under
// the L1 scan height (spec.md §4.4 step "After dispatch").
func (s *Store) UpdateCommitmentsOnDaSlot(l1 rollup.L1Height, commitments []*rollup.SequencerCommitment) error {
	key := l1Key(keyCommitmentsOnL1Prefix, l1)
	existing, err := s.kv.Get(key)
	if err != nil {
		return fmt.Errorf("ledger: get commitments on da slot: %w", err)
	}
	var all []*rollup.SequencerCommitment
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &all); err != nil {
			return fmt.Errorf("ledger: unmarshal commitments on da slot: %w", err)
		}
	}
	all = append(all, commitments...)
	b, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("ledger: marshal commitments on da slot: %w", err)
	}
	if err := s.kv.Set(key, b); err != nil {
		return fmt.Errorf("ledger: set commitments on da slot: %w", err)
	}
	return nil
}

// CommitmentsOnDaSlot returns the commitments recorded under an L1 height.
func (s *Store) CommitmentsOnDaSlot(l1 rollup.L1Height) ([]*rollup.SequencerCommitment, error) {
	b, err := s.kv.Get(l1Key(keyCommitmentsOnL1Prefix, l1))
	if err != nil {
		return nil, fmt.Errorf("ledger: get commitments on da slot: %w", err)
	}
	if len(b) == 0 {
		return nil, nil
	}
	var all []*rollup.SequencerCommitment
	if err := json.Unmarshal(b, &all); err != nil {
		return nil, fmt.Errorf("ledger: unmarshal commitments on da slot: %w", err)
	}
	return all, nil
}

// ====== Soft-confirmation status ======

// PutSoftConfirmationStatus sets soft_confirmation_status[l1] (spec.md §6).
func (s *Store) PutSoftConfirmationStatus(l1 rollup.L1Height, status SoftConfirmationStatus) error {
	if err := s.kv.Set(l1Key(keySoftConfStatusPrefix, l1), []byte(status)); err != nil {
		return fmt.Errorf("ledger: put soft confirmation status: %w", err)
	}
	return nil
}

// SoftConfirmationStatusAt returns the recorded status for an L1 height,
// defaulting to Pending if never written.
func (s *Store) SoftConfirmationStatusAt(l1 rollup.L1Height) (SoftConfirmationStatus, error) {
	b, err := s.kv.Get(l1Key(keySoftConfStatusPrefix, l1))
	if err != nil {
		return "", fmt.Errorf("ledger: get soft confirmation status: %w", err)
	}
	if len(b) == 0 {
		return StatusPending, nil
	}
	return SoftConfirmationStatus(b), nil
}

// ====== Proof data ======

// PutProofData persists proof_data[l1] (spec.md §6, §4.4 step 8).
func (s *Store) PutProofData(l1 rollup.L1Height, data ProofData) error {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("ledger: marshal proof data: %w", err)
	}
	if err := s.kv.Set(l1Key(keyProofDataPrefix, l1), b); err != nil {
		return fmt.Errorf("ledger: set proof data: %w", err)
	}
	return nil
}

// ProofDataAt returns the proof data recorded at an L1 height, if any.
func (s *Store) ProofDataAt(l1 rollup.L1Height) (*ProofData, bool, error) {
	b, err := s.kv.Get(l1Key(keyProofDataPrefix, l1))
	if err != nil {
		return nil, false, fmt.Errorf("ledger: get proof data: %w", err)
	}
	if len(b) == 0 {
		return nil, false, nil
	}
	var data ProofData
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, false, fmt.Errorf("ledger: unmarshal proof data: %w", err)
	}
	return &data, true, nil
}
