package storagemanager

import (
	"encoding/binary"
	"fmt"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/nkysggsy/citrea/pkg/rollup"
)

type dbSnapshot struct {
	height rollup.L2Height
}

func (s *dbSnapshot) L2Height() rollup.L2Height { return s.height }

// CometBFT is a StorageManager backed by a cometbft-db database, namespaced
// by L2 height the same way pkg/ledger namespaces its keys -- each
// change-set is staged under a "pending:" key and only copied under
// "finalized:" on FinalizeL2, so a crash between SaveChangeSetL2 and
// FinalizeL2 leaves nothing visible on restart.
type CometBFT struct {
	db dbm.DB
}

// NewCometBFT wraps a cometbft-db database as a Manager.
func NewCometBFT(db dbm.DB) *CometBFT {
	return &CometBFT{db: db}
}

func pendingKey(h rollup.L2Height) []byte {
	b := make([]byte, len("storage:pending:")+8)
	copy(b, "storage:pending:")
	binary.BigEndian.PutUint64(b[len("storage:pending:"):], uint64(h))
	return b
}

func finalizedKey(h rollup.L2Height) []byte {
	b := make([]byte, len("storage:finalized:")+8)
	copy(b, "storage:finalized:")
	binary.BigEndian.PutUint64(b[len("storage:finalized:"):], uint64(h))
	return b
}

// CreateStorageOnL2Height returns a handle to the pre-state at height. The
// handle carries only the height: no state bytes are copied into it, and
// neither it nor CometBFT exposes a method to read stored change-sets.
func (c *CometBFT) CreateStorageOnL2Height(height rollup.L2Height) (Snapshot, error) {
	return &dbSnapshot{height: height}, nil
}

// SaveChangeSetL2 stages the change-set without making it durable under the
// finalized namespace.
func (c *CometBFT) SaveChangeSetL2(height rollup.L2Height, cs rollup.ChangeSet) error {
	if err := c.db.SetSync(pendingKey(height), cs); err != nil {
		return fmt.Errorf("storagemanager: save change set l2 %d: %w", height, err)
	}
	return nil
}

// FinalizeL2 promotes the staged change-set at height to the finalized
// namespace and clears the staging slot.
func (c *CometBFT) FinalizeL2(height rollup.L2Height) error {
	cs, err := c.db.Get(pendingKey(height))
	if err != nil {
		return fmt.Errorf("storagemanager: finalize l2 %d: read staged change set: %w", height, err)
	}
	if cs == nil {
		return fmt.Errorf("storagemanager: finalize l2 height %d with no staged change-set", height)
	}
	if err := c.db.SetSync(finalizedKey(height), cs); err != nil {
		return fmt.Errorf("storagemanager: finalize l2 %d: write finalized change set: %w", height, err)
	}
	if err := c.db.Delete(pendingKey(height)); err != nil {
		return fmt.Errorf("storagemanager: finalize l2 %d: clear staging: %w", height, err)
	}
	return nil
}
