package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// TraceRow is one journaled execution, in execution order.
type TraceRow struct {
	Seq          int64
	SessionToken string
	MessageID    int64
	Kind         string
	Sender       string
	Label        string
	Status       string
	ExitCode     int32
	LT           string
	TxHash       string
	StateJSON    string
	CreatedAt    string
}

// ReadTrace returns the journaled executions of one session in execution
// order.
func (s *Store) ReadTrace(ctx context.Context, sessionToken string) ([]TraceRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, session_token, message_id, kind, sender, label,
		       status, exit_code, lt, tx_hash, state_json, created_at
		FROM executions
		WHERE session_token = ?
		ORDER BY seq
	`, sessionToken)
	if err != nil {
		return nil, fmt.Errorf("query trace: %w", err)
	}
	defer rows.Close()

	return scanTraceRows(rows)
}

// Sessions returns every session token present in the journal, oldest
// first.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_token
		FROM executions
		GROUP BY session_token
		ORDER BY MIN(seq)
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scan session token: %w", err)
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

// LastState returns the state JSON of the most recent journaled execution
// in a session. ok is false when the session has no journaled executions.
func (s *Store) LastState(ctx context.Context, sessionToken string) (stateJSON string, ok bool, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT state_json
		FROM executions
		WHERE session_token = ?
		ORDER BY seq DESC
		LIMIT 1
	`, sessionToken)

	switch err := row.Scan(&stateJSON); {
	case err == nil:
		return stateJSON, true, nil
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	default:
		return "", false, fmt.Errorf("query last state: %w", err)
	}
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanTraceRows(rows rowScanner) ([]TraceRow, error) {
	var out []TraceRow
	for rows.Next() {
		var r TraceRow
		if err := rows.Scan(
			&r.Seq, &r.SessionToken, &r.MessageID, &r.Kind, &r.Sender,
			&r.Label, &r.Status, &r.ExitCode, &r.LT, &r.TxHash,
			&r.StateJSON, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan trace row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
