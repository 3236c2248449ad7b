package engine

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actorlab/qdb/internal/msg"
	"github.com/actorlab/qdb/internal/reorder"
)

func TestSession_EnqueueMintsIDs(t *testing.T) {
	s := newTestSession()
	a := internalMsg("w1", 1)
	b := internalMsg("w2", 1)

	require.NoError(t, s.Enqueue(a))
	require.NoError(t, s.Enqueue(b))

	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)
}

func TestSession_ExplicitIDCollisionRejected(t *testing.T) {
	s := newTestSession()
	a := internalMsg("w1", 1)
	a.ID = 7
	require.NoError(t, s.Enqueue(a))

	dup := internalMsg("w2", 1)
	dup.ID = 7
	assert.Error(t, s.Enqueue(dup))
	assert.Equal(t, 1, s.PendingLen())
}

// Ids are never reassigned within a session, even after the message that
// carried them has been executed.
func TestSession_IDsNeverReused(t *testing.T) {
	s := newTestSession()
	require.NoError(t, s.Enqueue(internalMsg("w1", 1))) // id 1

	d := NewDriver(s, newFakeExecutor())
	_, err := d.RunNext(context.Background())
	require.NoError(t, err)

	later := internalMsg("w2", 1)
	require.NoError(t, s.Enqueue(later))
	assert.Equal(t, int64(2), later.ID, "executed message's id stays burned")

	stale := internalMsg("w3", 1)
	stale.ID = 1
	assert.Error(t, s.Enqueue(stale), "executed ids cannot be re-enqueued explicitly")
}

func TestSession_LoadQueue_AssignsSequentialIDs(t *testing.T) {
	s := newTestSession()
	explicit := internalMsg("w1", 1)
	explicit.ID = 5

	require.NoError(t, s.LoadQueue([]*msg.Message{
		explicit,
		internalMsg("w2", 1),
		internalMsg("w3", 1),
	}))

	assert.Equal(t, []int64{5, 6, 7}, qids(s.PendingMessages()),
		"auto-assigned ids continue past the highest explicit id")
}

func TestSession_Reorder(t *testing.T) {
	s := newTestSession()
	require.NoError(t, s.Enqueue(internalMsg("w1", 1)))
	require.NoError(t, s.Enqueue(internalMsg("w2", 1)))
	require.NoError(t, s.Enqueue(internalMsg("w3", 1)))

	require.NoError(t, s.Reorder(reorder.Reverse{}))
	assert.Equal(t, []int64{3, 2, 1}, qids(s.PendingMessages()))
}

func TestSession_SetScript_FailureLeavesActiveScript(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.sh")
	require.NoError(t, os.WriteFile(good, []byte("#!/bin/sh\necho 1\n"), 0o755))

	s := newTestSession()
	require.NoError(t, s.SetScript(good))
	require.Equal(t, good, s.ScriptPath())

	err := s.SetScript(filepath.Join(dir, "missing.sh"))
	require.Error(t, err)
	assert.True(t, reorder.IsScriptLoadFailure(err))
	assert.Equal(t, good, s.ScriptPath(), "failed load leaves the existing script untouched")
}

func TestSession_ApplyScript_NoneSet(t *testing.T) {
	s := newTestSession()
	assert.Error(t, s.ApplyScript())
}

type recordingJournal struct {
	tokens   []string
	messages []int64
}

func (j *recordingJournal) RecordExecution(_ context.Context, token string, m *msg.Message, _ msg.Transaction, _ msg.ContractState) error {
	j.tokens = append(j.tokens, token)
	j.messages = append(j.messages, m.ID)
	return nil
}

func TestSession_JournalObservesExecutions(t *testing.T) {
	j := &recordingJournal{}
	s := NewSession(msg.NewUninitializedState(big.NewInt(0)), WithJournal(j))
	require.NoError(t, s.Enqueue(internalMsg("w1", 1)))
	require.NoError(t, s.Enqueue(internalMsg("w2", 1)))

	d := NewDriver(s, newFakeExecutor())
	_, err := d.RunAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2}, j.messages)
	for _, tok := range j.tokens {
		assert.Equal(t, s.Token(), tok)
	}
}

func TestBase64Codec_RoundTrip(t *testing.T) {
	codec := Base64Codec{}
	payloads := [][]byte{
		{},
		{0x00},
		{0xde, 0xad, 0xbe, 0xef},
		[]byte("arbitrary payload bytes \x00\x01\x02"),
	}
	for _, p := range payloads {
		got, err := codec.Decode(codec.Encode(p))
		require.NoError(t, err)
		assert.Equal(t, p, got, "encode/decode must round-trip bit for bit")
	}
}
