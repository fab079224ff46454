// Package sequencerclient declares the Sequencer Client contract
// (spec.md §4.5). The sequencer itself is an external collaborator, out of
// scope here (spec.md §1) -- only the fetch-by-height contract is specified.
package sequencerclient

import (
	"context"

	"github.com/nkysggsy/citrea/pkg/rollup"
)

// Client fetches soft batches by L2 height.
type Client interface {
	// GetSoftBatch returns the soft batch at the given height, or
	// (nil, nil) if the sequencer has not yet produced it. A nil batch
	// with a nil error is a break condition in the reconcile loop's inner
	// walk, never an error (spec.md §4.2, §7 "Absent data").
	GetSoftBatch(ctx context.Context, height rollup.L2Height) (*rollup.SoftBatch, error)

	// GenesisHash returns the DA block hash the sequencer considers
	// genesis, used to bootstrap the L1 cursor on first run (SPEC_FULL §5.1).
	GenesisHash(ctx context.Context) (rollup.Hash, error)
}
