// Package prover declares the ProverService contract (spec.md §4.5) and
// provides the Groth16 verification helper used on the Full proof variant
// (spec.md §4.4 step 5).
package prover

import (
	"bytes"
	"context"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"

	"github.com/nkysggsy/citrea/pkg/rollup"
)

// Service is the external prover collaborator: it takes a transition
// witness, drives proof generation in the zkVM, submits the proof to DA,
// and returns the resulting transaction id and proof.
type Service interface {
	SubmitWitness(ctx context.Context, data *rollup.StateTransitionData) error
	Prove(ctx context.Context, daBlockHash rollup.Hash) error
	WaitForProvingAndSendToDA(ctx context.Context, daBlockHash rollup.Hash) (txID []byte, proof *rollup.Proof, err error)
}

// CodeCommitment pins the guest program the Full proof variant is checked
// against.
type CodeCommitment struct {
	VerifyingKey groth16.VerifyingKey
	Curve        ecc.ID
}

// Verifier verifies a Full-variant proof payload against the configured
// code commitment (spec.md §4.4 step 5).
type Verifier struct {
	commitment CodeCommitment
}

// NewVerifier builds a Verifier bound to one code commitment.
func NewVerifier(commitment CodeCommitment) *Verifier {
	return &Verifier{commitment: commitment}
}

// TransitionOutput is the decoded output a proof's payload carries. A Full
// payload is a 4-byte big-endian length prefix, that many groth16 proof
// bytes, and then the public witness as the remainder.
type TransitionOutput struct {
	ProofBytes         []byte
	PublicWitnessBytes []byte
}

// ExtractTransitionOutput deserializes a Proof payload into its raw proof
// and public-witness halves (spec.md §4.4 step 4: "extract the transition
// output from the proof"). A Full payload is split at its length prefix;
// a PublicInput payload is taken whole as the public witness, with no
// prefix parsed and ProofBytes left empty.
func ExtractTransitionOutput(p *rollup.Proof) (TransitionOutput, error) {
	if p == nil {
		return TransitionOutput{}, fmt.Errorf("prover: nil proof")
	}
	switch p.Variant {
	case rollup.ProofVariantPublicInput:
		return TransitionOutput{PublicWitnessBytes: p.Payload}, nil
	case rollup.ProofVariantFull:
		return decodeFullPayload(p.Payload)
	default:
		return TransitionOutput{}, fmt.Errorf("prover: unknown proof variant %d", p.Variant)
	}
}

func decodeFullPayload(payload []byte) (TransitionOutput, error) {
	if len(payload) < 4 {
		return TransitionOutput{}, fmt.Errorf("prover: truncated full proof payload")
	}
	n := int(payload[0])<<24 | int(payload[1])<<16 | int(payload[2])<<8 | int(payload[3])
	if n < 0 || 4+n > len(payload) {
		return TransitionOutput{}, fmt.Errorf("prover: corrupt full proof length prefix")
	}
	return TransitionOutput{
		ProofBytes:         payload[4 : 4+n],
		PublicWitnessBytes: payload[4+n:],
	}, nil
}

// VerifyFull decodes the proof/public-witness halves of a Full proof and
// runs groth16.Verify against the configured code commitment, returning
// the verified public witness bytes for logging/audit.
func (v *Verifier) VerifyFull(out TransitionOutput) ([]byte, error) {
	proof := groth16.NewProof(v.commitment.Curve)
	if _, err := proof.ReadFrom(bytes.NewReader(out.ProofBytes)); err != nil {
		return nil, fmt.Errorf("prover: decode full proof: %w", err)
	}

	pub, err := witness.New(v.commitment.Curve.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("prover: init public witness: %w", err)
	}
	if _, err := pub.ReadFrom(bytes.NewReader(out.PublicWitnessBytes)); err != nil {
		return nil, fmt.Errorf("prover: decode public witness: %w", err)
	}

	if err := groth16.Verify(proof, v.commitment.VerifyingKey, pub); err != nil {
		return nil, fmt.Errorf("prover: verify full proof: %w", err)
	}

	verified, err := pub.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("prover: marshal verified public witness: %w", err)
	}
	return verified, nil
}
