package engine

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/actorlab/qdb/internal/msg"
	"github.com/actorlab/qdb/internal/snapshot"
)

// SubprocessExecutor runs the actor sandbox as a child process.
//
// Protocol: one JSON request on stdin, one JSON response on stdout.
//
// Request:
//
//	{"message": [<queue entry>], "state": <state object>}
//
// Response:
//
//	{"transactions": [{"status": "success"|"failed", "exit_code": N,
//	                   "lt": "<decimal>", "hash": "<hex>"}],
//	 "messages": [<queue entries>],
//	 "state": <state object>}
//
// The entry and state objects use the persisted file layouts, so a sandbox
// binary can reuse its file tooling verbatim. A non-zero exit or an empty
// transactions array surfaces as the fatal NO_EXECUTION_RESULT upstream.
type SubprocessExecutor struct {
	command []string
}

// NewSubprocessExecutor wraps the given command line. The first element is
// the binary, the rest are fixed arguments.
func NewSubprocessExecutor(command []string) (*SubprocessExecutor, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("executor command is empty")
	}
	return &SubprocessExecutor{command: command}, nil
}

type subprocessTx struct {
	Status   string `json:"status"`
	ExitCode int32  `json:"exit_code"`
	LT       string `json:"lt"`
	Hash     string `json:"hash"`
}

type subprocessResponse struct {
	Transactions []subprocessTx  `json:"transactions"`
	Messages     json.RawMessage `json:"messages"`
	State        json.RawMessage `json:"state"`
}

func (e *SubprocessExecutor) Execute(ctx context.Context, m *msg.Message, state msg.ContractState) (*ExecResult, error) {
	msgJSON, err := snapshot.EncodeMessages([]*msg.Message{m})
	if err != nil {
		return nil, fmt.Errorf("encode message %d: %w", m.ID, err)
	}
	stateJSON, err := snapshot.EncodeState(state)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}

	request, err := json.Marshal(map[string]json.RawMessage{
		"message": msgJSON,
		"state":   stateJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.command[0], e.command[1:]...)
	cmd.Stdin = bytes.NewReader(request)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("executor %s: %s: %w",
			e.command[0], strings.TrimSpace(stderr.String()), err)
	}

	var resp subprocessResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("decode executor response: %w", err)
	}

	result := &ExecResult{}
	for i, tx := range resp.Transactions {
		status, err := msg.ParseTxStatus(tx.Status)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		lt, err := strconv.ParseUint(tx.LT, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: lt %q is not a decimal integer", i, tx.LT)
		}
		hash, err := hex.DecodeString(tx.Hash)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: hash is not valid hex: %w", i, err)
		}
		result.Transactions = append(result.Transactions, msg.Transaction{
			Status:   status,
			ExitCode: tx.ExitCode,
			Ref:      msg.TxRef{LT: lt, Hash: hash},
		})
	}

	if len(resp.Messages) > 0 {
		spawned, err := snapshot.DecodeMessages(resp.Messages)
		if err != nil {
			return nil, fmt.Errorf("decode spawned messages: %w", err)
		}
		result.NewMessages = spawned
	}

	if len(resp.State) == 0 {
		return nil, fmt.Errorf("executor response is missing state")
	}
	st, err := snapshot.DecodeState(resp.State)
	if err != nil {
		return nil, fmt.Errorf("decode result state: %w", err)
	}
	result.State = st

	return result, nil
}

// SubprocessCompiler wraps an external actor-source compiler. The source
// path is appended to the command line; stdout is the loadable code blob.
type SubprocessCompiler struct {
	command []string
}

// NewSubprocessCompiler wraps the given compiler command line.
func NewSubprocessCompiler(command []string) (*SubprocessCompiler, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("compiler command is empty")
	}
	return &SubprocessCompiler{command: command}, nil
}

func (c *SubprocessCompiler) Compile(ctx context.Context, sourcePath string) ([]byte, error) {
	args := append(append([]string(nil), c.command[1:]...), sourcePath)
	cmd := exec.CommandContext(ctx, c.command[0], args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &CompilationError{
			Path:   sourcePath,
			Output: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return stdout.Bytes(), nil
}
