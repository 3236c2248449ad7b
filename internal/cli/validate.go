package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/actorlab/qdb/internal/snapshot"
)

// ValidationResult holds validation results for the JSON format.
type ValidationResult struct {
	File  string `json:"file"`
	Kind  string `json:"kind"` // "state" or "queue"
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Kind string
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a state or queue JSON file",
		Long: `Validate a snapshot file against its strict schema without loading it
into a session. Unknown fields, bad encodings, and fields inconsistent
with the declared status are all rejected.

Example:
  qdb validate wallet.json
  qdb validate --kind queue pending.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidateFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "state", "file kind (state|queue)")
	return cmd
}

func runValidateFile(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		_ = formatter.Error("READ_FAILED", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read file", err)
	}

	var decodeErr error
	switch opts.Kind {
	case "state":
		_, decodeErr = snapshot.DecodeState(data)
	case "queue":
		_, decodeErr = snapshot.DecodeMessages(data)
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown kind %q: must be state or queue", opts.Kind))
	}

	if decodeErr != nil {
		code := "MALFORMED_FILE"
		var me *snapshot.MalformedError
		if errors.As(decodeErr, &me) {
			code = me.Code
		}
		if formatter.Format == "json" {
			_ = formatter.Success(ValidationResult{
				File:  path,
				Kind:  opts.Kind,
				Valid: false,
				Error: decodeErr.Error(),
			})
		} else {
			fmt.Fprintf(formatter.Writer, "✗ %s invalid\n  %s: %v\n", path, code, decodeErr)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", code, path))
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{File: path, Kind: opts.Kind, Valid: true})
	}
	fmt.Fprintf(formatter.Writer, "✓ %s valid (%s)\n", path, opts.Kind)
	return nil
}
