package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommand_ValidState(t *testing.T) {
	out, err := executeCommand(t, "", "validate", "testdata/state_uninit.json")
	require.NoError(t, err)
	assert.Contains(t, out, "valid")
}

func TestValidateCommand_UnknownFieldFails(t *testing.T) {
	out, err := executeCommand(t, "", "validate", "testdata/state_bad.json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "MALFORMED_STATE")
}

func TestValidateCommand_QueueKind(t *testing.T) {
	out, err := executeCommand(t, "", "validate", "--kind", "queue", "testdata/queue.json")
	require.NoError(t, err)
	assert.Contains(t, out, "valid")
}

func TestValidateCommand_StateKindRejectsQueueFile(t *testing.T) {
	_, err := executeCommand(t, "", "validate", "testdata/queue.json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestValidateCommand_MissingFile(t *testing.T) {
	_, err := executeCommand(t, "", "validate", "testdata/nope.json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateCommand_JSONFormat(t *testing.T) {
	out, err := executeCommand(t, "", "--format", "json", "validate", "testdata/state_uninit.json")
	require.NoError(t, err)
	assert.Contains(t, out, `"valid": true`)
}
