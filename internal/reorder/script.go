package reorder

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/actorlab/qdb/internal/msg"
)

// Script error codes.
const (
	// ErrCodeScriptLoad means the script could not be loaded at all:
	// missing file, not executable, not a regular file.
	ErrCodeScriptLoad = "SCRIPT_LOAD_FAILURE"
	// ErrCodeScriptRuntime means the script ran but misbehaved: non-zero
	// exit, unparseable output, out-of-range positions.
	ErrCodeScriptRuntime = "SCRIPT_RUNTIME_FAILURE"
)

// ScriptError reports a reorder-script failure. Script failures never crash
// the session; the command boundary reports them and the previously active
// script stays configured.
type ScriptError struct {
	Code    string
	Path    string
	Message string
	Err     error
}

func (e *ScriptError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Code, e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Path, e.Message)
}

func (e *ScriptError) Unwrap() error { return e.Err }

// IsScriptLoadFailure reports whether err is a script load failure.
func IsScriptLoadFailure(err error) bool {
	var se *ScriptError
	return errors.As(err, &se) && se.Code == ErrCodeScriptLoad
}

// IsScriptRuntimeFailure reports whether err is a script runtime failure.
func IsScriptRuntimeFailure(err error) bool {
	var se *ScriptError
	return errors.As(err, &se) && se.Code == ErrCodeScriptRuntime
}

// Script runs an operator-supplied executable to reorder the queue.
//
// Protocol: the script is invoked with one argument, the queue length n, and
// prints a whitespace-separated sequence of 1-based queue positions on
// stdout. The message at each printed position is taken in turn to build the
// new order. A well-behaved script prints a permutation of 1..n; a script
// that drops or repeats positions changes the multiset, which is accepted as
// an operator error and surfaced by the session, not here. Positions outside
// 1..n are a runtime failure.
//
// The script runs as a child process. This is the trust boundary: operator
// code never executes inside the debugger process.
type Script struct {
	path string
}

// LoadScript checks that path names an executable regular file and returns
// the policy. Load failures leave any previously configured script in place
// at the call site.
func LoadScript(path string) (*Script, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &ScriptError{Code: ErrCodeScriptLoad, Path: path, Message: "script not found", Err: err}
	}
	if info.IsDir() {
		return nil, &ScriptError{Code: ErrCodeScriptLoad, Path: path, Message: "script is a directory"}
	}
	if info.Mode()&0o111 == 0 {
		return nil, &ScriptError{Code: ErrCodeScriptLoad, Path: path, Message: "script is not executable"}
	}
	return &Script{path: path}, nil
}

func (s *Script) Name() string { return "script:" + s.path }

// Path returns the script location.
func (s *Script) Path() string { return s.path }

func (s *Script) Apply(msgs []*msg.Message) ([]*msg.Message, error) {
	if len(msgs) == 0 {
		return []*msg.Message{}, nil
	}

	cmd := exec.Command(s.path, strconv.Itoa(len(msgs)))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &ScriptError{
			Code:    ErrCodeScriptRuntime,
			Path:    s.path,
			Message: fmt.Sprintf("script failed: %s", strings.TrimSpace(stderr.String())),
			Err:     err,
		}
	}

	positions, err := parsePositions(stdout.String(), len(msgs))
	if err != nil {
		return nil, &ScriptError{Code: ErrCodeScriptRuntime, Path: s.path, Message: err.Error()}
	}

	out := make([]*msg.Message, 0, len(positions))
	for _, pos := range positions {
		out = append(out, msgs[pos-1])
	}
	return out, nil
}

// parsePositions parses the script output into 1-based positions, each
// within [1, n]. Duplicates and omissions pass through; range violations do
// not.
func parsePositions(output string, n int) ([]int, error) {
	fields := strings.Fields(output)
	if len(fields) == 0 {
		return nil, fmt.Errorf("script produced no positions")
	}
	positions := make([]int, 0, len(fields))
	for _, f := range fields {
		pos, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("script output %q is not an integer", f)
		}
		if pos < 1 || pos > n {
			return nil, fmt.Errorf("script position %d out of range 1..%d", pos, n)
		}
		positions = append(positions, pos)
	}
	return positions, nil
}
