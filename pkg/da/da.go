// Package da declares the DA Adapter contract (spec.md §4.5). It is
// interface-only: the DA client itself is an external collaborator, out of
// scope for this core (spec.md §1).
package da

import (
	"context"

	"github.com/nkysggsy/citrea/pkg/rollup"
)

// Blob is one payload extracted from a DA block, together with the sender
// key that posted it.
type Blob struct {
	Sender []byte
	Data   []byte
}

// Service is the DA Adapter contract: fetch blocks, extract blobs with
// their senders, and provide inclusion/completeness proofs over the blobs
// relevant to one block.
type Service interface {
	LastFinalizedHeader(ctx context.Context) (rollup.DABlockHeader, error)
	BlockAt(ctx context.Context, height rollup.L1Height) (rollup.DABlockHeader, error)
	BlockByHash(ctx context.Context, hash rollup.Hash) (rollup.DABlockHeader, error)
	ExtractRelevantBlobs(ctx context.Context, block rollup.DABlockHeader) ([]Blob, error)
	ExtractionProof(ctx context.Context, block rollup.DABlockHeader, blobs []Blob) (inclusion, completeness []byte, err error)
}

// SequencerDAKey and ProverDAKey identify the senders whose blobs the core
// classifies as SequencerCommitment / ZKProof respectively (spec.md §4.1).
type Keys struct {
	SequencerDAKey []byte
	ProverDAKey    []byte
}
