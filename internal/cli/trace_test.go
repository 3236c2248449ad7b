package cli

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actorlab/qdb/internal/msg"
	"github.com/actorlab/qdb/internal/store"
)

func seedJournal(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "qdb.db")

	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	m := &msg.Message{
		ID:     1,
		Kind:   msg.KindInternal,
		Sender: "w1",
		Value:  &msg.CurrencyValue{Amount: big.NewInt(10)},
	}
	tx := msg.Transaction{
		MessageID: 1,
		Status:    msg.TxSuccess,
		Ref:       msg.TxRef{LT: 7, Hash: []byte{0x01}},
	}
	state := msg.NewUninitializedState(big.NewInt(110))
	require.NoError(t, st.RecordExecution(context.Background(), "tok-cli", m, tx, state))

	return path
}

func TestTraceCommand_ListSessions(t *testing.T) {
	db := seedJournal(t)

	out, err := executeCommand(t, "", "trace", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "tok-cli")
}

func TestTraceCommand_ShowSession(t *testing.T) {
	db := seedJournal(t)

	out, err := executeCommand(t, "", "trace", "--db", db, "--session", "tok-cli")
	require.NoError(t, err)
	assert.Contains(t, out, "message=1")
	assert.Contains(t, out, "status=success")
	assert.Contains(t, out, "lt=7")
}

func TestTraceCommand_UnknownSession(t *testing.T) {
	db := seedJournal(t)

	out, err := executeCommand(t, "", "trace", "--db", db, "--session", "nope")
	require.NoError(t, err)
	assert.Contains(t, out, "no executions journaled")
}
