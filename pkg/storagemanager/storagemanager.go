// Package storagemanager declares the Storage Manager contract (spec.md
// §4.5): versioned pre-state snapshots keyed by L2 height, with
// snapshot-isolated apply/commit/finalize semantics.
package storagemanager

import (
	"github.com/nkysggsy/citrea/pkg/rollup"
)

// Snapshot is an opaque pre-state view at one L2 height. The STF adapter
// reads through it; the core never inspects its contents.
type Snapshot interface {
	L2Height() rollup.L2Height
}

// Manager owns per-L2-height snapshot isolation. The atomic-commit
// boundary in spec.md §5/§9 is: CreateStorageOnL2Height → (apply via STF)
// → SaveChangeSetL2 → FinalizeL2. A crash between apply and
// SaveChangeSetL2 must leave no partial state visible on restart -- the
// in-memory and cometbft-db-backed implementations both satisfy this by
// never writing a change-set until SaveChangeSetL2 is called explicitly.
type Manager interface {
	CreateStorageOnL2Height(height rollup.L2Height) (Snapshot, error)
	SaveChangeSetL2(height rollup.L2Height, cs rollup.ChangeSet) error
	FinalizeL2(height rollup.L2Height) error
}
