package prover

import (
	"testing"

	"github.com/nkysggsy/citrea/pkg/rollup"
)

func TestExtractTransitionOutputPublicInput(t *testing.T) {
	p := &rollup.Proof{Variant: rollup.ProofVariantPublicInput, Payload: []byte("public-witness-bytes")}
	out, err := ExtractTransitionOutput(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.ProofBytes) != 0 {
		t.Fatalf("expected no proof bytes for PublicInput variant, got %d", len(out.ProofBytes))
	}
	if string(out.PublicWitnessBytes) != "public-witness-bytes" {
		t.Fatalf("unexpected public witness bytes: %q", out.PublicWitnessBytes)
	}
}

func TestExtractTransitionOutputFull(t *testing.T) {
	proofBytes := []byte("groth16-proof")
	witnessBytes := []byte("public-witness")

	n := len(proofBytes)
	payload := []byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	payload = append(payload, proofBytes...)
	payload = append(payload, witnessBytes...)

	p := &rollup.Proof{Variant: rollup.ProofVariantFull, Payload: payload}
	out, err := ExtractTransitionOutput(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out.ProofBytes) != "groth16-proof" {
		t.Fatalf("unexpected proof bytes: %q", out.ProofBytes)
	}
	if string(out.PublicWitnessBytes) != "public-witness" {
		t.Fatalf("unexpected witness bytes: %q", out.PublicWitnessBytes)
	}
}

func TestExtractTransitionOutputTruncated(t *testing.T) {
	p := &rollup.Proof{Variant: rollup.ProofVariantFull, Payload: []byte{0, 0}}
	if _, err := ExtractTransitionOutput(p); err == nil {
		t.Fatal("expected error for truncated full proof payload")
	}
}

func TestExtractTransitionOutputUnknownVariant(t *testing.T) {
	p := &rollup.Proof{Variant: rollup.ProofVariant(99), Payload: []byte("x")}
	if _, err := ExtractTransitionOutput(p); err == nil {
		t.Fatal("expected error for unknown proof variant")
	}
}
