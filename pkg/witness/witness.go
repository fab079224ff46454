// Package witness accumulates one StateTransitionData per scanned L1 block
// that contained at least one sequencer commitment (spec.md §4.3).
package witness

import (
	"github.com/nkysggsy/citrea/pkg/rollup"
)

// Builder accumulates the commitment-ordered queues across one L1 block's
// reconciliation before being sealed into a StateTransitionData.
type Builder struct {
	initialStateRoot rollup.Hash

	daData                     [][]byte
	daBlockHeaderOfCommitments rollup.DABlockHeader
	inclusionProof             []byte
	completenessProof          []byte

	softConfirmations                 [][]*rollup.SoftBatch
	stateTransitionWitnesses          [][][]byte
	daBlockHeadersOfSoftConfirmations [][]rollup.DABlockHeader

	sequencerPublicKey   []byte
	sequencerDaPublicKey []byte
}

// NewBuilder starts a witness accumulation for one L1 block, recording the
// state root at the start of the scan iteration (spec.md §4.3
// "initial_state_root = the state root at the start of the scan
// iteration").
func NewBuilder(initialStateRoot rollup.Hash, daBlockHeaderOfCommitments rollup.DABlockHeader, daData [][]byte, inclusionProof, completenessProof []byte, sequencerPublicKey, sequencerDaPublicKey []byte) *Builder {
	return &Builder{
		initialStateRoot:           initialStateRoot,
		daData:                     daData,
		daBlockHeaderOfCommitments: daBlockHeaderOfCommitments,
		inclusionProof:             inclusionProof,
		completenessProof:          completenessProof,
		sequencerPublicKey:         sequencerPublicKey,
		sequencerDaPublicKey:       sequencerDaPublicKey,
	}
}

// PushCommitment appends one commitment's soft-confirmations, per-batch
// witnesses and DA-header list to the outer, commitment-ordered queues
// (spec.md §4.2 "Post-commitment bookkeeping").
func (b *Builder) PushCommitment(softConfirmations []*rollup.SoftBatch, witnesses [][]byte, headers []rollup.DABlockHeader) {
	b.softConfirmations = append(b.softConfirmations, softConfirmations)
	b.stateTransitionWitnesses = append(b.stateTransitionWitnesses, witnesses)
	b.daBlockHeadersOfSoftConfirmations = append(b.daBlockHeadersOfSoftConfirmations, headers)
}

// Seal produces the final StateTransitionData, recording the state root
// after the last applied batch as final_state_root (spec.md §4.3).
func (b *Builder) Seal(finalStateRoot rollup.Hash) *rollup.StateTransitionData {
	return &rollup.StateTransitionData{
		InitialStateRoot:                  b.initialStateRoot,
		FinalStateRoot:                    finalStateRoot,
		DaData:                            b.daData,
		DaBlockHeaderOfCommitments:        b.daBlockHeaderOfCommitments,
		InclusionProof:                    b.inclusionProof,
		CompletenessProof:                 b.completenessProof,
		SoftConfirmations:                 b.softConfirmations,
		StateTransitionWitnesses:          b.stateTransitionWitnesses,
		DaBlockHeadersOfSoftConfirmations: b.daBlockHeadersOfSoftConfirmations,
		SequencerPublicKey:                b.sequencerPublicKey,
		SequencerDaPublicKey:              b.sequencerDaPublicKey,
	}
}

// PushHeader appends header to headers if it is not already the last
// element by height equality (spec.md §4.2 "DA header dedup is by height
// equality with the last pushed header, not hash").
func PushHeader(headers []rollup.DABlockHeader, header rollup.DABlockHeader) []rollup.DABlockHeader {
	if len(headers) > 0 && headers[len(headers)-1].Height == header.Height {
		return headers
	}
	return append(headers, header)
}
