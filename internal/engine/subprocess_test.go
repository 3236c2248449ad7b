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
)

// writeSandbox writes an executable shell script standing in for the
// external sandbox binary.
func writeSandbox(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sandbox.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestSubprocessExecutor_Success(t *testing.T) {
	script := writeSandbox(t, `cat > /dev/null
cat <<'EOF'
{
  "transactions": [
    {"status": "success", "exit_code": 0, "lt": "42", "hash": "beef"}
  ],
  "state": {"balance": "150", "status": "uninit"}
}
EOF
`)
	exec, err := NewSubprocessExecutor([]string{script})
	require.NoError(t, err)

	m := &msg.Message{ID: 1, Kind: msg.KindExternalIn, Payload: []byte{0x01}}
	result, err := exec.Execute(context.Background(), m, msg.NewUninitializedState(big.NewInt(100)))
	require.NoError(t, err)

	require.Len(t, result.Transactions, 1)
	assert.Equal(t, msg.TxSuccess, result.Transactions[0].Status)
	assert.Equal(t, uint64(42), result.Transactions[0].Ref.LT)
	assert.Equal(t, []byte{0xbe, 0xef}, result.Transactions[0].Ref.Hash)
	assert.Equal(t, "150", result.State.Balance().String())
	assert.Empty(t, result.NewMessages)
}

func TestSubprocessExecutor_SpawnedMessages(t *testing.T) {
	script := writeSandbox(t, `cat > /dev/null
cat <<'EOF'
{
  "transactions": [
    {"status": "success", "exit_code": 0, "lt": "43", "hash": "01"}
  ],
  "messages": [
    {"kind": "external-out", "payload": "YQ=="}
  ],
  "state": {"balance": "90", "status": "uninit"}
}
EOF
`)
	exec, err := NewSubprocessExecutor([]string{script})
	require.NoError(t, err)

	m := &msg.Message{ID: 1, Kind: msg.KindExternalIn, Payload: []byte{0x01}}
	result, err := exec.Execute(context.Background(), m, msg.NewUninitializedState(big.NewInt(100)))
	require.NoError(t, err)

	require.Len(t, result.NewMessages, 1)
	assert.Equal(t, msg.KindExternalOut, result.NewMessages[0].Kind)
	assert.Equal(t, []byte("a"), result.NewMessages[0].Payload)
}

func TestSubprocessExecutor_NonZeroExit(t *testing.T) {
	script := writeSandbox(t, `cat > /dev/null
echo "sandbox crashed" >&2
exit 3
`)
	exec, err := NewSubprocessExecutor([]string{script})
	require.NoError(t, err)

	m := &msg.Message{ID: 1, Kind: msg.KindExternalIn}
	_, err = exec.Execute(context.Background(), m, msg.NewUninitializedState(big.NewInt(0)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sandbox crashed")
}

func TestSubprocessExecutor_MalformedResponseState(t *testing.T) {
	script := writeSandbox(t, `cat > /dev/null
cat <<'EOF'
{
  "transactions": [
    {"status": "success", "exit_code": 0, "lt": "1", "hash": "01"}
  ],
  "state": {"balance": "1", "status": "uninit", "bogus": true}
}
EOF
`)
	exec, err := NewSubprocessExecutor([]string{script})
	require.NoError(t, err)

	m := &msg.Message{ID: 1, Kind: msg.KindExternalIn}
	_, err = exec.Execute(context.Background(), m, msg.NewUninitializedState(big.NewInt(0)))
	require.Error(t, err, "a response state with unknown fields is rejected")
}

func TestSubprocessExecutor_EmptyCommandRejected(t *testing.T) {
	_, err := NewSubprocessExecutor(nil)
	assert.Error(t, err)
}

func TestSubprocessCompiler_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "cc.sh")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\nprintf 'OUT:%s' \"$1\"\n"), 0o755))
	src := filepath.Join(dir, "actor.src")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	c, err := NewSubprocessCompiler([]string{bin})
	require.NoError(t, err)

	code, err := c.Compile(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "OUT:"+src, string(code), "source path is appended to the command line")
}

func TestSubprocessCompiler_Rejection(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "cc.sh")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\necho 'bad token' >&2\nexit 1\n"), 0o755))
	src := filepath.Join(dir, "actor.src")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	c, err := NewSubprocessCompiler([]string{bin})
	require.NoError(t, err)

	_, err = c.Compile(context.Background(), src)
	require.Error(t, err)

	var ce *CompilationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, src, ce.Path)
	assert.Equal(t, "bad token", ce.Output)
}
