package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeCompilerConfig writes a config whose compiler is a shell script.
func writeCompilerConfig(t *testing.T, script string) (configPath, sourcePath string) {
	t.Helper()
	dir := t.TempDir()

	bin := filepath.Join(dir, "cc.sh")
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))

	sourcePath = filepath.Join(dir, "actor.src")
	require.NoError(t, os.WriteFile(sourcePath, []byte("source"), 0o644))

	configPath = filepath.Join(dir, "qdb.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("compiler: [\""+bin+"\"]\n"), 0o644))
	return configPath, sourcePath
}

func TestCompileCommand_Success(t *testing.T) {
	cfg, src := writeCompilerConfig(t, "#!/bin/sh\nprintf 'CODE'\n")

	out, err := executeCommand(t, "", "--config", cfg, "compile", src)
	require.NoError(t, err)
	assert.Contains(t, out, "compiled")
	assert.Contains(t, out, "4 byte(s)")
	assert.Contains(t, out, "434f4445", "stdout bytes come back hex encoded")
}

func TestCompileCommand_WritesOutputFile(t *testing.T) {
	cfg, src := writeCompilerConfig(t, "#!/bin/sh\nprintf 'CODE'\n")
	outPath := filepath.Join(t.TempDir(), "actor.code")

	_, err := executeCommand(t, "", "--config", cfg, "compile", src, "-o", outPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "434f4445\n", string(data))
}

func TestCompileCommand_CompilerRejection(t *testing.T) {
	cfg, src := writeCompilerConfig(t, "#!/bin/sh\necho 'syntax error' >&2\nexit 1\n")

	out, err := executeCommand(t, "", "--config", cfg, "compile", src)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "COMPILATION_FAILURE")
	assert.Contains(t, out, "syntax error")
}

func TestCompileCommand_NoCompilerConfigured(t *testing.T) {
	src := filepath.Join(t.TempDir(), "actor.src")
	require.NoError(t, os.WriteFile(src, []byte("source"), 0o644))

	_, err := executeCommand(t, "", "--config", filepath.Join(t.TempDir(), "absent.yaml"), "compile", src)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no compiler configured")
}
