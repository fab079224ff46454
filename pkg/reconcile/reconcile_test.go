package reconcile

import (
	"context"
	"errors"
	"log"
	"os"
	"testing"

	"github.com/nkysggsy/citrea/pkg/da"
	"github.com/nkysggsy/citrea/pkg/ledger"
	"github.com/nkysggsy/citrea/pkg/retry"
	"github.com/nkysggsy/citrea/pkg/rollup"
	"github.com/nkysggsy/citrea/pkg/stf"
	"github.com/nkysggsy/citrea/pkg/storagemanager"
)

type memKV struct{ data map[string][]byte }

func newMemKV() *memKV { return &memKV{data: make(map[string][]byte)} }

func (m *memKV) Get(key []byte) ([]byte, error) { return m.data[string(key)], nil }
func (m *memKV) Set(key, value []byte) error {
	m.data[string(key)] = append([]byte{}, value...)
	return nil
}

type fakeDA struct {
	heights map[rollup.Hash]rollup.L1Height
	headers map[rollup.L1Height]rollup.DABlockHeader
}

func (f *fakeDA) LastFinalizedHeader(ctx context.Context) (rollup.DABlockHeader, error) {
	return rollup.DABlockHeader{}, nil
}
func (f *fakeDA) BlockAt(ctx context.Context, height rollup.L1Height) (rollup.DABlockHeader, error) {
	return f.headers[height], nil
}
func (f *fakeDA) BlockByHash(ctx context.Context, hash rollup.Hash) (rollup.DABlockHeader, error) {
	h := f.heights[hash]
	return f.headers[h], nil
}
func (f *fakeDA) ExtractRelevantBlobs(ctx context.Context, block rollup.DABlockHeader) ([]da.Blob, error) {
	return nil, nil
}
func (f *fakeDA) ExtractionProof(ctx context.Context, block rollup.DABlockHeader, blobs []da.Blob) ([]byte, []byte, error) {
	return nil, nil, nil
}

type fakeSeq struct {
	batches map[rollup.L2Height]*rollup.SoftBatch
}

func (f *fakeSeq) GetSoftBatch(ctx context.Context, height rollup.L2Height) (*rollup.SoftBatch, error) {
	return f.batches[height], nil
}
func (f *fakeSeq) GenesisHash(ctx context.Context) (rollup.Hash, error) { return rollup.Hash{}, nil }

type fakeSTF struct{}

func (fakeSTF) InitChain(ctx context.Context, storage storagemanager.Snapshot, params stf.GenesisParams) (rollup.Hash, error) {
	return rollup.Hash{}, nil
}
func (fakeSTF) ApplySoftBatch(ctx context.Context, input stf.ApplyInput) (*stf.ApplyOutput, error) {
	return &stf.ApplyOutput{
		StateRoot:     input.SoftBatch.PostStateRoot,
		ChangeSet:     []byte("cs"),
		Witness:       []byte("w"),
		BatchReceipts: [][]byte{[]byte("r")},
	}, nil
}

func testLogger() *log.Logger { return log.New(os.Stderr, "[test] ", 0) }

func TestReconcileSingleCommitmentOneSoftBatch(t *testing.T) {
	startHash := rollup.Hash{5}
	endHash := rollup.Hash{5}

	da := &fakeDA{
		heights: map[rollup.Hash]rollup.L1Height{startHash: 5, endHash: 5},
		headers: map[rollup.L1Height]rollup.DABlockHeader{5: {Height: 5, Hash: rollup.Hash{5}}},
	}

	postRoot := rollup.Hash{0xAA}
	seq := &fakeSeq{batches: map[rollup.L2Height]*rollup.SoftBatch{
		0: {DaSlotHeight: 5, PostStateRoot: postRoot, Hash: rollup.Hash{0xBB}},
	}}

	storage := storagemanager.NewMemory()
	ledgerStore := ledger.New(newMemKV())

	r := New(da, seq, storage, fakeSTF{}, ledgerStore, []byte("seqpub"), retry.DefaultPolicy(), nil, testLogger())

	commitment := &rollup.SequencerCommitment{L1StartBlockHash: startHash, L1EndBlockHash: endHash}
	result, finalRoot, l2, err := r.Reconcile(context.Background(), commitment, rollup.Hash{}, 0)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if finalRoot != postRoot {
		t.Fatalf("expected final root %x, got %x", postRoot, finalRoot)
	}
	if l2 != 1 {
		t.Fatalf("expected next l2 height 1, got %d", l2)
	}
	if len(result.SoftConfirmations) != 1 {
		t.Fatalf("expected 1 soft confirmation, got %d", len(result.SoftConfirmations))
	}

	receipt, ok, err := ledgerStore.SoftBatchReceiptAt(0)
	if err != nil || !ok {
		t.Fatalf("expected committed receipt, err=%v ok=%v", err, ok)
	}
	if receipt.PostStateRoot != postRoot {
		t.Fatalf("unexpected committed post state root: %x", receipt.PostStateRoot)
	}

	rng, ok, err := ledgerStore.L2RangeOfL1Slot(5)
	if err != nil || !ok {
		t.Fatalf("expected l2 range, err=%v ok=%v", err, ok)
	}
	if rng.Lo != 0 || rng.Hi != 0 {
		t.Fatalf("unexpected l2 range: %+v", rng)
	}
}

func TestReconcileStopsWithoutConsumingBatchPastEndL1(t *testing.T) {
	startHash := rollup.Hash{5}
	endHash := rollup.Hash{5}

	da := &fakeDA{
		heights: map[rollup.Hash]rollup.L1Height{startHash: 5, endHash: 5},
		headers: map[rollup.L1Height]rollup.DABlockHeader{5: {Height: 5}, 6: {Height: 6}},
	}
	seq := &fakeSeq{batches: map[rollup.L2Height]*rollup.SoftBatch{
		0: {DaSlotHeight: 6, PostStateRoot: rollup.Hash{1}},
	}}

	storage := storagemanager.NewMemory()
	ledgerStore := ledger.New(newMemKV())
	r := New(da, seq, storage, fakeSTF{}, ledgerStore, nil, retry.DefaultPolicy(), nil, testLogger())

	commitment := &rollup.SequencerCommitment{L1StartBlockHash: startHash, L1EndBlockHash: endHash}
	result, _, l2, err := r.Reconcile(context.Background(), commitment, rollup.Hash{}, 0)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if l2 != 0 {
		t.Fatalf("expected l2 height unconsumed at 0, got %d", l2)
	}
	if len(result.SoftConfirmations) != 0 {
		t.Fatal("expected no soft confirmations consumed past end_L1")
	}
}

func TestReconcileStateRootMismatchIsFatal(t *testing.T) {
	startHash := rollup.Hash{5}
	endHash := rollup.Hash{5}
	da := &fakeDA{
		heights: map[rollup.Hash]rollup.L1Height{startHash: 5, endHash: 5},
		headers: map[rollup.L1Height]rollup.DABlockHeader{5: {Height: 5}},
	}
	seq := &fakeSeq{batches: map[rollup.L2Height]*rollup.SoftBatch{
		0: {DaSlotHeight: 5, PostStateRoot: rollup.Hash{0xFF}},
	}}

	storage := storagemanager.NewMemory()
	ledgerStore := ledger.New(newMemKV())
	r := New(da, seq, storage, mismatchSTF{}, ledgerStore, nil, retry.DefaultPolicy(), nil, testLogger())

	commitment := &rollup.SequencerCommitment{L1StartBlockHash: startHash, L1EndBlockHash: endHash}
	_, _, _, err := r.Reconcile(context.Background(), commitment, rollup.Hash{}, 0)
	if !errors.Is(err, ErrStateRootMismatch) {
		t.Fatalf("expected ErrStateRootMismatch, got %v", err)
	}

	if _, ok, _ := ledgerStore.SoftBatchReceiptAt(0); ok {
		t.Fatal("expected no receipt committed on state-root mismatch")
	}
}

type mismatchSTF struct{}

func (mismatchSTF) InitChain(ctx context.Context, storage storagemanager.Snapshot, params stf.GenesisParams) (rollup.Hash, error) {
	return rollup.Hash{}, nil
}
func (mismatchSTF) ApplySoftBatch(ctx context.Context, input stf.ApplyInput) (*stf.ApplyOutput, error) {
	return &stf.ApplyOutput{StateRoot: rollup.Hash{0x01}}, nil
}
