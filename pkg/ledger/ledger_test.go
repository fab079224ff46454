package ledger

import (
	"github.com/nkysggsy/citrea/pkg/rollup"
	"testing"
)

type memKV struct {
	data map[string][]byte
}

func newMemKV() *memKV { return &memKV{data: make(map[string][]byte)} }

func (m *memKV) Get(key []byte) ([]byte, error) { return m.data[string(key)], nil }
func (m *memKV) Set(key, value []byte) error {
	m.data[string(key)] = append([]byte{}, value...)
	return nil
}

func TestLastScannedL1HeightFreshStart(t *testing.T) {
	s := New(newMemKV())
	_, ok, err := s.LastScannedL1Height()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected no cursor on fresh ledger")
	}
}

func TestCommitSoftBatchAdvancesNextL2Height(t *testing.T) {
	s := New(newMemKV())

	if err := s.CommitSoftBatch(0, &rollup.SoftBatchReceipt{}); err != nil {
		t.Fatalf("commit soft batch: %v", err)
	}
	next, err := s.NextL2Height()
	if err != nil {
		t.Fatalf("next l2 height: %v", err)
	}
	if next != 1 {
		t.Fatalf("expected next l2 height 1, got %d", next)
	}

	receipt, ok, err := s.SoftBatchReceiptAt(0)
	if err != nil || !ok {
		t.Fatalf("expected receipt at l2 0, err=%v ok=%v", err, ok)
	}
	if receipt == nil {
		t.Fatal("expected non-nil receipt")
	}
}

func TestExtendL2RangeOfL1SlotWidensBounds(t *testing.T) {
	s := New(newMemKV())

	if err := s.ExtendL2RangeOfL1Slot(5, 2); err != nil {
		t.Fatalf("extend: %v", err)
	}
	if err := s.ExtendL2RangeOfL1Slot(5, 0); err != nil {
		t.Fatalf("extend: %v", err)
	}
	if err := s.ExtendL2RangeOfL1Slot(5, 4); err != nil {
		t.Fatalf("extend: %v", err)
	}

	rng, ok, err := s.L2RangeOfL1Slot(5)
	if err != nil || !ok {
		t.Fatalf("expected range, err=%v ok=%v", err, ok)
	}
	if rng.Lo != 0 || rng.Hi != 4 {
		t.Fatalf("expected range [0,4], got [%d,%d]", rng.Lo, rng.Hi)
	}
}

func TestSoftConfirmationStatusDefaultsToPending(t *testing.T) {
	s := New(newMemKV())
	status, err := s.SoftConfirmationStatusAt(42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusPending {
		t.Fatalf("expected default status Pending, got %s", status)
	}

	if err := s.PutSoftConfirmationStatus(42, StatusFinalized); err != nil {
		t.Fatalf("put status: %v", err)
	}
	status, err = s.SoftConfirmationStatusAt(42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusFinalized {
		t.Fatalf("expected status Finalized, got %s", status)
	}
}

func TestUpdateCommitmentsOnDaSlotAppends(t *testing.T) {
	s := New(newMemKV())

	c1 := &rollup.SequencerCommitment{L1StartBlockHash: rollup.Hash{1}}
	c2 := &rollup.SequencerCommitment{L1StartBlockHash: rollup.Hash{2}}

	if err := s.UpdateCommitmentsOnDaSlot(7, []*rollup.SequencerCommitment{c1}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.UpdateCommitmentsOnDaSlot(7, []*rollup.SequencerCommitment{c2}); err != nil {
		t.Fatalf("update: %v", err)
	}

	all, err := s.CommitmentsOnDaSlot(7)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 commitments, got %d", len(all))
	}
}
