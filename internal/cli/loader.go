package cli

import (
	"fmt"
	"os"

	"github.com/actorlab/qdb/internal/msg"
	"github.com/actorlab/qdb/internal/snapshot"
)

// LoadStateFile reads and decodes a state JSON file. Schema violations come
// back as MALFORMED_STATE errors from the snapshot package.
func LoadStateFile(path string) (msg.ContractState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return msg.ContractState{}, fmt.Errorf("read state file %s: %w", path, err)
	}
	st, err := snapshot.DecodeState(data)
	if err != nil {
		return msg.ContractState{}, fmt.Errorf("%s: %w", path, err)
	}
	return st, nil
}

// LoadQueueFile reads and decodes a queue JSON file.
func LoadQueueFile(path string) ([]*msg.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read queue file %s: %w", path, err)
	}
	msgs, err := snapshot.DecodeMessages(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return msgs, nil
}

// SaveStateFile encodes and writes the current state.
func SaveStateFile(path string, st msg.ContractState) error {
	data, err := snapshot.EncodeState(st)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write state file %s: %w", path, err)
	}
	return nil
}

// SaveQueueFile encodes and writes a message sequence.
func SaveQueueFile(path string, msgs []*msg.Message) error {
	data, err := snapshot.EncodeMessages(msgs)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write queue file %s: %w", path, err)
	}
	return nil
}
