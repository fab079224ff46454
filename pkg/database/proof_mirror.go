package database

import (
	"context"
	"fmt"

	"github.com/nkysggsy/citrea/pkg/ledger"
	"github.com/nkysggsy/citrea/pkg/rollup"
)

// ProofMirror persists proof_data rows to PostgreSQL, implementing
// dispatch.RelationalMirror (spec.md §6 "External relational schema").
type ProofMirror struct {
	client *Client
}

// NewProofMirror wraps an open Client as a proof_data mirror.
func NewProofMirror(client *Client) *ProofMirror {
	return &ProofMirror{client: client}
}

// InsertProofData upserts the proof_data row for one L1 height.
func (m *ProofMirror) InsertProofData(ctx context.Context, l1 rollup.L1Height, txID []byte, proof []byte, proofType ledger.ProofType, stored rollup.StoredStateTransition) error {
	const query = `
		INSERT INTO proof_data (
			l1_height, tx_id, proof, proof_type,
			initial_state_root, final_state_root, state_diff, da_slot_hash,
			sequencer_public_key, sequencer_da_public_key, validity_condition
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (l1_height) DO UPDATE SET
			tx_id = EXCLUDED.tx_id,
			proof = EXCLUDED.proof,
			proof_type = EXCLUDED.proof_type,
			initial_state_root = EXCLUDED.initial_state_root,
			final_state_root = EXCLUDED.final_state_root,
			state_diff = EXCLUDED.state_diff,
			da_slot_hash = EXCLUDED.da_slot_hash,
			sequencer_public_key = EXCLUDED.sequencer_public_key,
			sequencer_da_public_key = EXCLUDED.sequencer_da_public_key,
			validity_condition = EXCLUDED.validity_condition`

	_, err := m.client.ExecContext(ctx, query,
		uint64(l1), txID, proof, string(proofType),
		stored.InitialStateRoot.Bytes(), stored.FinalStateRoot.Bytes(), stored.StateDiff, stored.DaSlotHash.Bytes(),
		stored.SequencerPublicKey, stored.SequencerDaPublicKey, stored.ValidityCondition,
	)
	if err != nil {
		return fmt.Errorf("database: insert proof data at l1 %d: %w", l1, err)
	}
	return nil
}
