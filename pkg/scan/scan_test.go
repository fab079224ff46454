package scan

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/nkysggsy/citrea/pkg/da"
	"github.com/nkysggsy/citrea/pkg/dispatch"
	"github.com/nkysggsy/citrea/pkg/ledger"
	"github.com/nkysggsy/citrea/pkg/reconcile"
	"github.com/nkysggsy/citrea/pkg/retry"
	"github.com/nkysggsy/citrea/pkg/rollup"
	"github.com/nkysggsy/citrea/pkg/sequencerclient"
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
	finalized rollup.DABlockHeader
	headers   map[rollup.L1Height]rollup.DABlockHeader
	blobs     map[rollup.L1Height][]da.Blob
}

func (f *fakeDA) LastFinalizedHeader(ctx context.Context) (rollup.DABlockHeader, error) {
	return f.finalized, nil
}
func (f *fakeDA) BlockAt(ctx context.Context, height rollup.L1Height) (rollup.DABlockHeader, error) {
	return f.headers[height], nil
}
func (f *fakeDA) BlockByHash(ctx context.Context, hash rollup.Hash) (rollup.DABlockHeader, error) {
	for _, h := range f.headers {
		if h.Hash == hash {
			return h, nil
		}
	}
	return rollup.DABlockHeader{}, nil
}
func (f *fakeDA) ExtractRelevantBlobs(ctx context.Context, block rollup.DABlockHeader) ([]da.Blob, error) {
	return f.blobs[block.Height], nil
}
func (f *fakeDA) ExtractionProof(ctx context.Context, block rollup.DABlockHeader, blobs []da.Blob) ([]byte, []byte, error) {
	return []byte("incl"), []byte("compl"), nil
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
	return &stf.ApplyOutput{StateRoot: input.SoftBatch.PostStateRoot, ChangeSet: []byte("cs"), Witness: []byte("w")}, nil
}

type fakeProver struct{ submitted bool }

func (f *fakeProver) SubmitWitness(ctx context.Context, data *rollup.StateTransitionData) error {
	f.submitted = true
	return nil
}
func (f *fakeProver) Prove(ctx context.Context, daBlockHash rollup.Hash) error { return nil }
func (f *fakeProver) WaitForProvingAndSendToDA(ctx context.Context, daBlockHash rollup.Hash) ([]byte, *rollup.Proof, error) {
	return []byte("tx"), &rollup.Proof{Variant: rollup.ProofVariantPublicInput, Payload: []byte("pi")}, nil
}

func testLogger() *log.Logger { return log.New(os.Stderr, "[test] ", 0) }

var _ sequencerclient.Client = (*fakeSeq)(nil)

func TestRunOnceIdlesWhenCursorOutrunsFinality(t *testing.T) {
	d := &fakeDA{finalized: rollup.DABlockHeader{Height: 3}}
	ledgerStore := ledger.New(newMemKV())
	r := reconcile.New(d, &fakeSeq{}, storagemanager.NewMemory(), fakeSTF{}, ledgerStore, nil, retry.DefaultPolicy(), nil, testLogger())
	disp := dispatch.New(ledgerStore, &fakeProver{}, nil, nil, 0, 0, nil, testLogger(), nil)
	l := New(d, ledgerStore, r, disp, da.Keys{}, nil, nil, retry.DefaultPolicy(), nil, testLogger(), rollup.Hash{}, 0)

	// The idle path sleeps IdleSleep and then returns the same height.
	next, err := l.RunOnce(context.Background(), 5)
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if next != 5 {
		t.Fatalf("expected idle tail to stay at height 5, got %d", next)
	}
}

func TestRunOnceEmptyBlockAdvancesCursor(t *testing.T) {
	d := &fakeDA{
		finalized: rollup.DABlockHeader{Height: 10},
		headers:   map[rollup.L1Height]rollup.DABlockHeader{5: {Height: 5, Hash: rollup.Hash{5}}},
	}
	ledgerStore := ledger.New(newMemKV())
	r := reconcile.New(d, &fakeSeq{}, storagemanager.NewMemory(), fakeSTF{}, ledgerStore, nil, retry.DefaultPolicy(), nil, testLogger())
	disp := dispatch.New(ledgerStore, &fakeProver{}, nil, nil, 0, 0, nil, testLogger(), nil)
	l := New(d, ledgerStore, r, disp, da.Keys{}, nil, nil, retry.DefaultPolicy(), nil, testLogger(), rollup.Hash{}, 0)

	next, err := l.RunOnce(context.Background(), 5)
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if next != 6 {
		t.Fatalf("expected cursor to advance past empty block, got %d", next)
	}

	got, ok, err := ledgerStore.LastScannedL1Height()
	if err != nil || !ok || got != 5 {
		t.Fatalf("expected persisted cursor 5, got %d ok=%v err=%v", got, ok, err)
	}
}

func TestRunOnceWithCommitmentReconcilesAndDispatches(t *testing.T) {
	startHash := rollup.Hash{5}
	commitment := &rollup.SequencerCommitment{L1StartBlockHash: startHash, L1EndBlockHash: startHash}
	raw, err := rollup.EncodeDaData(&rollup.DaData{Kind: rollup.DaDataKindSequencerCommitment, Commitment: commitment})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	d := &fakeDA{
		finalized: rollup.DABlockHeader{Height: 10},
		headers:   map[rollup.L1Height]rollup.DABlockHeader{5: {Height: 5, Hash: startHash}},
		blobs:     map[rollup.L1Height][]da.Blob{5: {{Sender: []byte("seq-key"), Data: raw}}},
	}

	postRoot := rollup.Hash{0xAA}
	seq := &fakeSeq{batches: map[rollup.L2Height]*rollup.SoftBatch{0: {DaSlotHeight: 5, PostStateRoot: postRoot}}}

	ledgerStore := ledger.New(newMemKV())
	r := reconcile.New(d, seq, storagemanager.NewMemory(), fakeSTF{}, ledgerStore, []byte("seqpub"), retry.DefaultPolicy(), nil, testLogger())
	prover := &fakeProver{}
	disp := dispatch.New(ledgerStore, prover, nil, nil, 0, 0, nil, testLogger(), nil)
	keys := da.Keys{SequencerDAKey: []byte("seq-key"), ProverDAKey: []byte("prover-key")}
	l := New(d, ledgerStore, r, disp, keys, []byte("seqpub"), nil, retry.DefaultPolicy(), nil, testLogger(), rollup.Hash{}, 0)

	next, err := l.RunOnce(context.Background(), 5)
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if next != 6 {
		t.Fatalf("expected cursor to advance to 6, got %d", next)
	}
	if !prover.submitted {
		t.Fatal("expected witness to be submitted for the commitment")
	}

	status, err := ledgerStore.SoftConfirmationStatusAt(5)
	if err != nil || status != ledger.StatusFinalized {
		t.Fatalf("expected Finalized status at 5, got %s err=%v", status, err)
	}
}

func TestZKProofObservedHookFires(t *testing.T) {
	raw, err := rollup.EncodeDaData(&rollup.DaData{Kind: rollup.DaDataKindZKProof, ZKProof: &rollup.Proof{Variant: rollup.ProofVariantPublicInput, Payload: []byte("pi")}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	d := &fakeDA{
		finalized: rollup.DABlockHeader{Height: 10},
		headers:   map[rollup.L1Height]rollup.DABlockHeader{5: {Height: 5}},
		blobs:     map[rollup.L1Height][]da.Blob{5: {{Sender: []byte("prover-key"), Data: raw}}},
	}
	ledgerStore := ledger.New(newMemKV())
	r := reconcile.New(d, &fakeSeq{}, storagemanager.NewMemory(), fakeSTF{}, ledgerStore, nil, retry.DefaultPolicy(), nil, testLogger())
	disp := dispatch.New(ledgerStore, &fakeProver{}, nil, nil, 0, 0, nil, testLogger(), nil)
	keys := da.Keys{SequencerDAKey: []byte("seq-key"), ProverDAKey: []byte("prover-key")}
	l := New(d, ledgerStore, r, disp, keys, nil, nil, retry.DefaultPolicy(), nil, testLogger(), rollup.Hash{}, 0)

	var observed int
	l.ZKProofObserved = func(l1 rollup.L1Height, proofs []*rollup.Proof) { observed = len(proofs) }

	if _, err := l.RunOnce(context.Background(), 5); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if observed != 1 {
		t.Fatalf("expected hook to observe 1 zk proof, got %d", observed)
	}
}
