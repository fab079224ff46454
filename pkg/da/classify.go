package da

import (
	"bytes"
	"log"

	"github.com/nkysggsy/citrea/pkg/rollup"
)

// ClassifiedBlock is the outcome of classifying every blob in one DA block
// (spec.md §4.1 "Blob classification").
type ClassifiedBlock struct {
	Commitments []*rollup.SequencerCommitment
	ZKProofs    []*rollup.Proof
}

// Classify inspects every blob in a DA block and sorts it per spec.md §4.1:
//   - sender == sequencer DA key: only SequencerCommitment payloads are
//     accepted, everything else from that sender is logged and dropped.
//   - sender == prover DA key: only ZKProof payloads are accepted (collected
//     but otherwise unused -- see the zk-proof-ingestion open question).
//   - any other sender: warned and ignored (reserved for future
//     force-transaction processing, out of scope here).
//
// Parse errors never fail the scan: they are logged and the blob dropped
// (spec.md §4.1 "Edge policy", §7 "Protocol decode").
func Classify(keys Keys, blobs []Blob, logger *log.Logger) ClassifiedBlock {
	var out ClassifiedBlock

	for _, blob := range blobs {
		switch {
		case bytes.Equal(blob.Sender, keys.SequencerDAKey):
			d, err := rollup.DecodeDaData(blob.Data)
			if err != nil {
				logger.Printf("dropping malformed blob from sequencer DA key: %v", err)
				continue
			}
			if d.Kind != rollup.DaDataKindSequencerCommitment {
				logger.Printf("dropping unexpected DaData kind %d from sequencer DA key", d.Kind)
				continue
			}
			out.Commitments = append(out.Commitments, d.Commitment)

		case bytes.Equal(blob.Sender, keys.ProverDAKey):
			d, err := rollup.DecodeDaData(blob.Data)
			if err != nil {
				logger.Printf("dropping malformed blob from prover DA key: %v", err)
				continue
			}
			if d.Kind != rollup.DaDataKindZKProof {
				logger.Printf("dropping unexpected DaData kind %d from prover DA key", d.Kind)
				continue
			}
			out.ZKProofs = append(out.ZKProofs, d.ZKProof)

		default:
			logger.Printf("ignoring blob from unrecognized sender (reserved for force-transactions)")
		}
	}

	return out
}
