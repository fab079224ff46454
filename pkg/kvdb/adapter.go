// Package kvdb wraps CometBFT's dbm.DB interface to implement the
// ledger.KV contract.
package kvdb

import (
	dbm "github.com/cometbft/cometbft-db"
)

// Adapter wraps a CometBFT dbm.DB and exposes the ledger.KV interface.
type Adapter struct {
	db dbm.DB
}

// NewAdapter creates a new Adapter for the given underlying DB.
func NewAdapter(db dbm.DB) *Adapter {
	return &Adapter{db: db}
}

// Get implements ledger.KV.Get.
func (a *Adapter) Get(key []byte) ([]byte, error) {
	if a.db == nil {
		return nil, nil
	}

	if v, err := a.db.Get(key); err != nil {
		return nil, err
	} else {
		// v may be nil if key not found -- that's fine, callers treat nil
		// as "not present".
		return v, nil
	}
}

// Set implements ledger.KV.Set.
func (a *Adapter) Set(key, value []byte) error {
	if a.db == nil {
		return nil
	}

	// Use SetSync for durable writes at commit time.
	if err := a.db.SetSync(key, value); err != nil {
		return err
	}
	return nil
}

// DB exposes the underlying dbm.DB for components needing direct iteration
// or prefix scans.
func (a *Adapter) DB() dbm.DB {
	return a.db
}
