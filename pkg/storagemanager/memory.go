package storagemanager

import (
	"fmt"
	"sync"

	"github.com/nkysggsy/citrea/pkg/rollup"
)

type memSnapshot struct {
	height rollup.L2Height
	state  map[string][]byte
}

func (s *memSnapshot) L2Height() rollup.L2Height { return s.height }

// Memory is an in-memory reference Manager, used by tests and as the
// documentation of the snapshot-isolation contract every other
// implementation must satisfy.
type Memory struct {
	mu sync.Mutex

	// finalized is the last state visible to CreateStorageOnL2Height; it
	// only advances on FinalizeL2, never on SaveChangeSetL2 alone -- this
	// is what makes a crash between apply and finalize safe to discard on
	// restart (spec.md §9 "Atomic commit boundary").
	finalized map[string][]byte

	pending map[rollup.L2Height]rollup.ChangeSet
}

// NewMemory constructs an empty Memory manager.
func NewMemory() *Memory {
	return &Memory{
		finalized: make(map[string][]byte),
		pending:   make(map[rollup.L2Height]rollup.ChangeSet),
	}
}

// CreateStorageOnL2Height returns a snapshot of the last finalized state,
// regardless of any unsaved change-set pending at higher heights.
func (m *Memory) CreateStorageOnL2Height(height rollup.L2Height) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make(map[string][]byte, len(m.finalized))
	for k, v := range m.finalized {
		cp[k] = v
	}
	return &memSnapshot{height: height, state: cp}, nil
}

// SaveChangeSetL2 stages a change-set for height without making it visible
// to future snapshots -- that only happens on FinalizeL2.
func (m *Memory) SaveChangeSetL2(height rollup.L2Height, cs rollup.ChangeSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[height] = cs
	return nil
}

// FinalizeL2 makes the change-set staged at height durable. Finalizing a
// height with no staged change-set is an error -- it indicates the
// apply→save→finalize trio was broken.
func (m *Memory) FinalizeL2(height rollup.L2Height) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cs, ok := m.pending[height]
	if !ok {
		return fmt.Errorf("storagemanager: finalize l2 height %d with no staged change-set", height)
	}
	m.finalized[changeSetKey(height)] = cs
	delete(m.pending, height)
	return nil
}

func changeSetKey(h rollup.L2Height) string {
	return fmt.Sprintf("changeset:%d", h)
}
