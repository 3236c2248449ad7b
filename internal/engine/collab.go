package engine

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/actorlab/qdb/internal/msg"
)

// ExecResult is what the executor returns for one submitted message.
type ExecResult struct {
	// Transactions holds at least one entry on any interpretable message;
	// the first is authoritative for the consumed message. An actor-level
	// rejection comes back as a transaction with failed status, not as an
	// empty slice.
	Transactions []msg.Transaction

	// NewMessages are contract-originated replies and bounces. Ids are
	// left zero; the session mints fresh ones on enqueue.
	NewMessages []*msg.Message

	// State is the actor state after the execution.
	State msg.ContractState
}

// Executor runs one message against the actor's current state.
//
// A returned error or an empty Transactions slice means the executor could
// not run the message at all, which the driver treats as the fatal
// NO_EXECUTION_RESULT. Anything interpretable, even if the actor's own
// logic rejects it, yields a failed transaction plus a diagnostic code.
type Executor interface {
	Execute(ctx context.Context, m *msg.Message, state msg.ContractState) (*ExecResult, error)
}

// Compiler turns actor source into loadable code.
type Compiler interface {
	Compile(ctx context.Context, sourcePath string) ([]byte, error)
}

// CompilationError reports a compiler rejection, with whatever diagnostics
// the compiler printed.
type CompilationError struct {
	Path   string
	Output string
	Err    error
}

func (e *CompilationError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("%s: %s: %s", ErrCodeCompilationFailure, e.Path, e.Output)
	}
	return fmt.Sprintf("%s: %s: %v", ErrCodeCompilationFailure, e.Path, e.Err)
}

func (e *CompilationError) Unwrap() error { return e.Err }

// Codec translates between opaque payload blobs and their external string
// encoding. Round-trips are exact: Encode(Decode(x)) == x bit for bit.
type Codec interface {
	Encode(payload []byte) string
	Decode(external string) ([]byte, error)
}

// Base64Codec is the default payload codec, matching the queue-file payload
// encoding.
type Base64Codec struct{}

func (Base64Codec) Encode(payload []byte) string {
	return base64.StdEncoding.EncodeToString(payload)
}

func (Base64Codec) Decode(external string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(external)
}
