package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/actorlab/qdb/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Query the execution journal of a past session",
		Long: `Query the durable execution journal.

Without --session, lists every journaled session token. With --session,
prints that session's executions in order: message, transaction outcome,
and logical time.

Example:
  qdb trace --db ./qdb.db
  qdb trace --db ./qdb.db --session 2f1c...
  qdb trace --db ./qdb.db --session 2f1c... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session token to trace")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	if opts.Session == "" {
		return listSessions(ctx, st, formatter)
	}
	return showTrace(ctx, st, opts.Session, formatter)
}

func listSessions(ctx context.Context, st *store.Store, formatter *OutputFormatter) error {
	sessions, err := st.Sessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{"sessions": sessions})
	}
	if len(sessions) == 0 {
		fmt.Fprintln(formatter.Writer, "(journal is empty)")
		return nil
	}
	for _, token := range sessions {
		fmt.Fprintln(formatter.Writer, token)
	}
	return nil
}

func showTrace(ctx context.Context, st *store.Store, session string, formatter *OutputFormatter) error {
	rows, err := st.ReadTrace(ctx, session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{
			"session": session,
			"trace":   rows,
		})
	}

	if len(rows) == 0 {
		fmt.Fprintf(formatter.Writer, "no executions journaled for session %s\n", session)
		return nil
	}
	fmt.Fprintf(formatter.Writer, "session %s: %d execution(s)\n", session, len(rows))
	for _, r := range rows {
		fmt.Fprintf(formatter.Writer, "  [%d] message=%d kind=%s status=%s exit=%d lt=%s\n",
			r.Seq, r.MessageID, r.Kind, r.Status, r.ExitCode, r.LT)
		if formatter.Verbose {
			fmt.Fprintf(formatter.Writer, "       sender=%q label=%q hash=%s at=%s\n",
				r.Sender, r.Label, r.TxHash, r.CreatedAt)
		}
	}
	return nil
}
