package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/actorlab/qdb/internal/msg"
	"github.com/actorlab/qdb/internal/snapshot"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // successful execution
	ExitFailure      = 1 // debugger-level failure (fatal fault, states differ, malformed file)
	ExitCommandError = 2 // command error (bad flags, missing files, database errors)
)

// ExitError carries a process exit code out of a command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError creates an ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure when the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostic output, defaults to Writer
	Verbose   bool
}

// CLIResponse is the standard JSON response envelope.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error structure for JSON responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		encoder := json.NewEncoder(f.Writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(CLIResponse{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		encoder := json.NewEncoder(f.Writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only in verbose mode. Goes to ErrWriter so
// JSON output never gets corrupted.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// balancePrinter groups digits for human-readable balances (1,000,000).
var balancePrinter = message.NewPrinter(language.English)

// formatBalance renders a balance with grouped digits. Balances beyond the
// uint64 range fall back to the plain decimal string.
func formatBalance(b *big.Int) string {
	if b.IsUint64() {
		return balancePrinter.Sprintf("%d", b.Uint64())
	}
	return b.String()
}

// FormatState renders a contract state for the operator.
func FormatState(st msg.ContractState) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "status:  %s\n", st.Status())
	fmt.Fprintf(&sb, "balance: %s\n", formatBalance(st.Balance()))
	if code, ok := st.Code(); ok {
		fmt.Fprintf(&sb, "code:    %d byte(s)\n", len(code))
	}
	if data, ok := st.Data(); ok {
		fmt.Fprintf(&sb, "data:    %d byte(s)\n", len(data))
	}
	if hash, ok := st.StateHash(); ok {
		fmt.Fprintf(&sb, "stateHash: %x\n", hash)
	}
	if ref, ok := st.Last(); ok {
		fmt.Fprintf(&sb, "last:    lt=%d hash=%x\n", ref.LT, ref.Hash)
	}
	return sb.String()
}

// FormatQueue renders the pending queue, head first.
func FormatQueue(msgs []*msg.Message) string {
	if len(msgs) == 0 {
		return "(queue empty)\n"
	}
	var sb strings.Builder
	for i, m := range msgs {
		fmt.Fprintf(&sb, "%3d  %s\n", i, m.Describe())
	}
	return sb.String()
}

// FormatTransaction renders one transaction log line.
func FormatTransaction(tx msg.Transaction) string {
	return fmt.Sprintf("message=%d %s exit=%d lt=%d hash=%x",
		tx.MessageID, tx.Status, tx.ExitCode, tx.Ref.LT, tx.Ref.Hash)
}

// FormatDiff renders a state diff, one line per difference.
func FormatDiff(diffs []snapshot.Difference) string {
	if len(diffs) == 0 {
		return "(states are equivalent)\n"
	}
	var sb strings.Builder
	for _, d := range diffs {
		fmt.Fprintf(&sb, "%s\n", d.String())
	}
	return sb.String()
}
