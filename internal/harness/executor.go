package harness

import (
	"context"
	"crypto/sha256"
	"encoding/binary"

	"github.com/actorlab/qdb/internal/engine"
	"github.com/actorlab/qdb/internal/msg"
)

// DeterministicExecutor is a pure in-process executor for scenarios and
// tests. Every message succeeds: internal message values are credited to the
// balance, the logical time advances by a fixed step, and the resulting
// state is active with the executed payload as data. Identical inputs in
// identical order always produce the identical trace.
type DeterministicExecutor struct {
	lt uint64
}

// NewDeterministicExecutor returns an executor starting at logical time zero.
func NewDeterministicExecutor() *DeterministicExecutor {
	return &DeterministicExecutor{}
}

// Execute implements engine.Executor.
func (e *DeterministicExecutor) Execute(_ context.Context, m *msg.Message, state msg.ContractState) (*engine.ExecResult, error) {
	e.lt += 10

	balance := state.Balance()
	if m.Kind == msg.KindInternal {
		balance.Add(balance, m.Amount())
	}

	tx := msg.Transaction{
		Status: msg.TxSuccess,
		Ref:    msg.TxRef{LT: e.lt, Hash: refHash(m.ID, e.lt)},
	}
	return &engine.ExecResult{
		Transactions: []msg.Transaction{tx},
		State:        msg.NewActiveState(balance, []byte{0x01}, append([]byte(nil), m.Payload...)),
	}, nil
}

// refHash derives a stable pseudo transaction hash from the message id and
// logical time.
func refHash(id int64, lt uint64) []byte {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(id))
	binary.BigEndian.PutUint64(buf[8:], lt)
	sum := sha256.Sum256(buf[:])
	return sum[:8]
}
