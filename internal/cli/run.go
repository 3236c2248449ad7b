package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/actorlab/qdb/internal/engine"
	"github.com/actorlab/qdb/internal/harness"
)

// RunResult is the JSON payload for a scenario run.
type RunResult struct {
	Scenario     string               `json:"scenario"`
	Pass         bool                 `json:"pass"`
	Trace        []harness.TraceEvent `json:"trace"`
	Errors       []string             `json:"errors,omitempty"`
	FinalStatus  string               `json:"final_status"`
	FinalBalance string               `json:"final_balance"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scripted debugging scenario",
		Long: `Run a yaml scenario: load its state and queue files, apply its steps
in order, and evaluate its assertions.

Exit code 0 when every assertion holds, 1 when any fails.

Example:
  qdb run scenarios/reverse_drain.yaml
  qdb run scenarios/reverse_drain.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runScenario(opts *RootOptions, path string, cmd *cobra.Command) error {
	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})))

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		_ = formatter.Error("SCENARIO_LOAD", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	cfg, err := LoadConfig(opts.Config, true)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	var exec engine.Executor
	if len(cfg.Executor) > 0 {
		exec, err = engine.NewSubprocessExecutor(cfg.Executor)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to build executor", err)
		}
	} else {
		exec = harness.NewDeterministicExecutor()
	}

	formatter.VerboseLog("running scenario %s (%d steps)", scenario.Name, len(scenario.Steps))

	result, err := harness.Run(scenario, exec)
	if err != nil {
		_ = formatter.Error("SCENARIO_RUN", err.Error(), nil)
		return WrapExitError(ExitFailure, "scenario execution failed", err)
	}

	if formatter.Format == "json" {
		if err := formatter.Success(RunResult{
			Scenario:     scenario.Name,
			Pass:         result.Pass,
			Trace:        result.Trace,
			Errors:       result.Errors,
			FinalStatus:  result.FinalStatus,
			FinalBalance: result.FinalBalance,
		}); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, ev := range result.Trace {
			fmt.Fprintf(w, "  message=%d %s %s lt=%d balance=%s\n",
				ev.MessageID, ev.Kind, ev.Status, ev.LT, ev.Balance)
		}
		fmt.Fprintf(w, "final: %s balance=%s pending=%d\n",
			result.FinalStatus, result.FinalBalance, result.PendingLen)
		if result.Pass {
			fmt.Fprintf(w, "✓ %s passed\n", scenario.Name)
		} else {
			fmt.Fprintf(w, "✗ %s failed\n", scenario.Name)
			for _, e := range result.Errors {
				fmt.Fprintf(w, "  %s\n", e)
			}
		}
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario failed with %d assertion error(s)", len(result.Errors)))
	}
	return nil
}
