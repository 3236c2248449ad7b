package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/actorlab/qdb/internal/snapshot"
)

// DiffResult is the JSON payload for a state diff.
type DiffResult struct {
	From        string   `json:"from"`
	To          string   `json:"to"`
	Equivalent  bool     `json:"equivalent"`
	Differences []string `json:"differences,omitempty"`
}

// NewDiffCommand creates the diff command.
func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <state-a.json> <state-b.json>",
		Short: "Compare two state snapshot files",
		Long: `Compare two serialized states structurally, field by field.

A status change suppresses value comparison of status-dependent fields:
the fields are reported as added or removed with the status, not as
changed values. Side-ledger differences are flagged as incomparable and
never decide equivalence.

Exit code 0 when the states are equivalent, 1 when they differ.

Example:
  qdb diff before.json after.json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(rootOpts, args[0], args[1], cmd)
		},
	}
	return cmd
}

func runDiff(opts *RootOptions, pathA, pathB string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	dataA, err := os.ReadFile(pathA)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read state file", err)
	}
	dataB, err := os.ReadFile(pathB)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read state file", err)
	}

	diffs, err := snapshot.Diff(dataA, dataB)
	if err != nil {
		_ = formatter.Error("MALFORMED_STATE", err.Error(), nil)
		return WrapExitError(ExitFailure, "diff failed", err)
	}

	equivalent, err := snapshot.Equivalent(dataA, dataB)
	if err != nil {
		return WrapExitError(ExitFailure, "diff failed", err)
	}

	if formatter.Format == "json" {
		result := DiffResult{From: pathA, To: pathB, Equivalent: equivalent}
		for _, d := range diffs {
			result.Differences = append(result.Differences, d.String())
		}
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		fmt.Fprint(formatter.Writer, FormatDiff(diffs))
	}

	if !equivalent {
		return NewExitError(ExitFailure, fmt.Sprintf("states differ (%d difference(s))", len(diffs)))
	}
	return nil
}
