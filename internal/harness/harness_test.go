package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ResolvesRelativePaths(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "reverse_drain.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "reverse-drain", s.Name)
	assert.FileExists(t, s.State)
	assert.FileExists(t, s.Queue)
}

func TestLoadScenario_UnknownFieldRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo.yaml")
	content := `name: typo
description: the assertion key is misspelled
state: state.json
queue: queue.json
steps:
  - run: all
assertion:
  - type: executed_count
    count: 1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assertion")
}

func TestLoadScenario_StepMustBeSingleCommand(t *testing.T) {
	dir := t.TempDir()
	state := filepath.Join(dir, "state.json")
	queue := filepath.Join(dir, "queue.json")
	require.NoError(t, os.WriteFile(state, []byte(`{}`), 0o644))
	require.NoError(t, os.WriteFile(queue, []byte(`[]`), 0o644))

	path := filepath.Join(dir, "bad.yaml")
	content := `name: bad
description: a step naming both run and reorder is ambiguous
state: state.json
queue: queue.json
steps:
  - run: all
    reorder: reverse
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one")
}

func TestRun_SortPartial(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "sort_partial.yaml"))
	require.NoError(t, err)

	result, err := Run(s, NewDeterministicExecutor())
	require.NoError(t, err)

	assert.True(t, result.Pass, "assertion failures: %v", result.Errors)
	require.Len(t, result.Trace, 2)
	assert.Equal(t, int64(2), result.Trace[0].MessageID, "sorted head is the inbound external message")
	assert.Equal(t, int64(3), result.Trace[1].MessageID)
	assert.Equal(t, "150", result.FinalBalance)
	assert.Equal(t, 1, result.PendingLen)
}

func TestRun_FailedAssertionIsCollectedNotFatal(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "reverse_drain.yaml"))
	require.NoError(t, err)
	s.Assertions = append(s.Assertions, Assertion{Type: AssertFinalBalance, Balance: "999"})

	result, err := Run(s, NewDeterministicExecutor())
	require.NoError(t, err, "assertion failures never abort the run")

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "final_balance")
}

func TestRunWithGolden_ReverseDrain(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "reverse_drain.yaml"))
	require.NoError(t, err)

	result, err := RunWithGolden(t, s, NewDeterministicExecutor())
	require.NoError(t, err)
	assert.True(t, result.Pass, "assertion failures: %v", result.Errors)
}
