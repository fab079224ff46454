package da

import (
	"log"
	"os"
	"testing"

	"github.com/nkysggsy/citrea/pkg/rollup"
)

func testLogger() *log.Logger {
	return log.New(os.Stderr, "[test] ", 0)
}

func TestClassifyAcceptsCommitmentFromSequencerKey(t *testing.T) {
	keys := Keys{SequencerDAKey: []byte("seq-key"), ProverDAKey: []byte("prover-key")}

	raw, err := rollup.EncodeDaData(&rollup.DaData{
		Kind:       rollup.DaDataKindSequencerCommitment,
		Commitment: &rollup.SequencerCommitment{L1StartBlockHash: rollup.Hash{1}},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	out := Classify(keys, []Blob{{Sender: []byte("seq-key"), Data: raw}}, testLogger())
	if len(out.Commitments) != 1 {
		t.Fatalf("expected 1 commitment, got %d", len(out.Commitments))
	}
}

func TestClassifyDropsMalformedBlob(t *testing.T) {
	keys := Keys{SequencerDAKey: []byte("seq-key"), ProverDAKey: []byte("prover-key")}
	out := Classify(keys, []Blob{{Sender: []byte("seq-key"), Data: []byte{0xff, 0xff}}}, testLogger())
	if len(out.Commitments) != 0 {
		t.Fatalf("expected malformed blob to be dropped, got %d commitments", len(out.Commitments))
	}
}

func TestClassifyIgnoresUnknownSender(t *testing.T) {
	keys := Keys{SequencerDAKey: []byte("seq-key"), ProverDAKey: []byte("prover-key")}
	out := Classify(keys, []Blob{{Sender: []byte("someone-else"), Data: []byte("whatever")}}, testLogger())
	if len(out.Commitments) != 0 || len(out.ZKProofs) != 0 {
		t.Fatalf("expected blob from unknown sender to be ignored entirely")
	}
}

func TestClassifyAcceptsZKProofFromProverKey(t *testing.T) {
	keys := Keys{SequencerDAKey: []byte("seq-key"), ProverDAKey: []byte("prover-key")}
	raw, err := rollup.EncodeDaData(&rollup.DaData{
		Kind:    rollup.DaDataKindZKProof,
		ZKProof: &rollup.Proof{Variant: rollup.ProofVariantPublicInput, Payload: []byte("pi")},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out := Classify(keys, []Blob{{Sender: []byte("prover-key"), Data: raw}}, testLogger())
	if len(out.ZKProofs) != 1 {
		t.Fatalf("expected 1 zk proof, got %d", len(out.ZKProofs))
	}
}
