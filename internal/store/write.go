package store

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/actorlab/qdb/internal/msg"
	"github.com/actorlab/qdb/internal/snapshot"
)

// RecordExecution appends one executed message, its authoritative
// transaction, and the resulting state to the journal.
//
// Implements engine.Journal. Idempotent per (session, message): re-recording
// an already journaled message is a no-op, which makes crash-and-rerun
// sessions safe to journal into the same database.
func (s *Store) RecordExecution(ctx context.Context, sessionToken string, m *msg.Message, tx msg.Transaction, state msg.ContractState) error {
	stateJSON, err := snapshot.EncodeState(state)
	if err != nil {
		return fmt.Errorf("encode state for journal: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO executions (
			session_token, message_id, kind, sender, label, payload,
			status, exit_code, lt, tx_hash, state_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_token, message_id) DO NOTHING
	`,
		sessionToken,
		m.ID,
		m.Kind.String(),
		m.Sender,
		m.Label,
		m.Payload,
		tx.Status.String(),
		tx.ExitCode,
		strconv.FormatUint(tx.Ref.LT, 10),
		hex.EncodeToString(tx.Ref.Hash),
		string(stateJSON),
	)
	if err != nil {
		return fmt.Errorf("insert execution %d: %w", m.ID, err)
	}
	return nil
}
