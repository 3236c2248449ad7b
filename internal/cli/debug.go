package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/actorlab/qdb/internal/engine"
	"github.com/actorlab/qdb/internal/harness"
	"github.com/actorlab/qdb/internal/reorder"
	"github.com/actorlab/qdb/internal/snapshot"
	"github.com/actorlab/qdb/internal/store"
)

// DebugOptions holds flags for the debug command.
type DebugOptions struct {
	*RootOptions
	State string
	Queue string
}

// NewDebugCommand creates the interactive debug command.
func NewDebugCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DebugOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "debug",
		Short: "Start an interactive debugging session",
		Long: `Start an interactive debugging session over an initial state and an
optional queue file. Commands are read line by line from stdin; a failed
command reports its error and the loop continues.

Commands:
  queue                     show the pending queue
  state                     show the current actor state
  executed                  show the executed-message log
  txs                       show the transaction log
  next                      execute the head of the queue
  run <id>                  execute a pending message by id
  all                       drain the queue
  reorder <policy> [seed]   identity | reverse | sort | shuffle
  script <path>             load and apply a reorder script
  script                    re-apply the active reorder script
  save state <path>         snapshot the current state
  save queue <path>         snapshot the pending queue
  diff <path>               diff the current state against a state file
  exit                      end the session

Example:
  qdb debug --state wallet.json --queue pending.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDebug(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.State, "state", "", "initial state JSON file (required)")
	_ = cmd.MarkFlagRequired("state")
	cmd.Flags().StringVar(&opts.Queue, "queue", "", "queue JSON file to load")

	return cmd
}

func runDebug(opts *DebugOptions, cmd *cobra.Command) error {
	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfg, err := LoadConfig(opts.Config, true)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	state, err := LoadStateFile(opts.State)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to load state", err)
	}

	var sessionOpts []engine.SessionOption
	if cfg.Journal != "" {
		st, err := store.Open(cfg.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer st.Close()
		sessionOpts = append(sessionOpts, engine.WithJournal(st))
	}

	session := engine.NewSession(state, sessionOpts...)

	if opts.Queue != "" {
		msgs, err := LoadQueueFile(opts.Queue)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to load queue", err)
		}
		if err := session.LoadQueue(msgs); err != nil {
			return WrapExitError(ExitFailure, "failed to enqueue messages", err)
		}
	}
	if cfg.Script != "" {
		if err := session.SetScript(cfg.Script); err != nil {
			return WrapExitError(ExitCommandError, "failed to load reorder script", err)
		}
	}

	var exec engine.Executor
	if len(cfg.Executor) > 0 {
		exec, err = engine.NewSubprocessExecutor(cfg.Executor)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to build executor", err)
		}
	} else {
		// No sandbox configured: fall back to the built-in deterministic
		// executor so the queue tooling stays usable standalone.
		exec = harness.NewDeterministicExecutor()
	}

	var driverOpts []engine.DriverOption
	if cfg.RunLimit > 0 {
		driverOpts = append(driverOpts, engine.WithRunLimit(cfg.RunLimit))
	}
	driver := engine.NewDriver(session, exec, driverOpts...)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "session %s  pending=%d\n", session.Token(), session.PendingLen())
	fmt.Fprintln(out, "type \"help\" for commands, \"exit\" to quit")

	repl := &debugLoop{session: session, driver: driver, out: out}
	return repl.run(cmd.InOrStdin())
}

// debugLoop is the interactive command loop. Every command error is
// reported and the loop continues; only EOF or exit ends the session.
type debugLoop struct {
	session *engine.Session
	driver  *engine.Driver
	out     io.Writer
}

func (l *debugLoop) run(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(l.out, "qdb> ")
		if !scanner.Scan() {
			fmt.Fprintln(l.out)
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "exit" || fields[0] == "quit" {
			return nil
		}
		if err := l.dispatch(fields); err != nil {
			fmt.Fprintf(l.out, "error: %v\n", err)
		}
	}
}

func (l *debugLoop) dispatch(fields []string) error {
	ctx := context.Background()

	switch fields[0] {
	case "help":
		fmt.Fprintln(l.out, "queue state executed txs next run all reorder script save diff exit")
		return nil

	case "queue":
		fmt.Fprint(l.out, FormatQueue(l.session.PendingMessages()))
		return nil

	case "state":
		fmt.Fprint(l.out, FormatState(l.session.CurrentState()))
		return nil

	case "executed":
		executed := l.session.ExecutedMessages()
		if len(executed) == 0 {
			fmt.Fprintln(l.out, "(nothing executed)")
			return nil
		}
		for _, m := range executed {
			fmt.Fprintln(l.out, m.Describe())
		}
		return nil

	case "txs":
		txs := l.session.Transactions()
		if len(txs) == 0 {
			fmt.Fprintln(l.out, "(no transactions)")
			return nil
		}
		for _, tx := range txs {
			fmt.Fprintln(l.out, FormatTransaction(tx))
		}
		return nil

	case "next":
		tx, err := l.driver.RunNext(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(l.out, FormatTransaction(*tx))
		return nil

	case "run":
		if len(fields) != 2 {
			return fmt.Errorf("usage: run <id>")
		}
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return fmt.Errorf("bad message id %q", fields[1])
		}
		tx, err := l.driver.RunByID(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintln(l.out, FormatTransaction(*tx))
		return nil

	case "all":
		executed, err := l.driver.RunAll(ctx)
		fmt.Fprintf(l.out, "executed %d message(s)\n", executed)
		return err

	case "reorder":
		if len(fields) < 2 {
			return fmt.Errorf("usage: reorder <identity|reverse|sort|shuffle> [seed]")
		}
		policy, err := parsePolicy(fields[1:])
		if err != nil {
			return err
		}
		if err := l.session.Reorder(policy); err != nil {
			return err
		}
		fmt.Fprint(l.out, FormatQueue(l.session.PendingMessages()))
		return nil

	case "script":
		if len(fields) == 2 {
			if err := l.session.SetScript(fields[1]); err != nil {
				return err
			}
		} else if l.session.ScriptPath() == "" {
			return fmt.Errorf("no reorder script is set; usage: script <path>")
		}
		if err := l.session.ApplyScript(); err != nil {
			return err
		}
		fmt.Fprint(l.out, FormatQueue(l.session.PendingMessages()))
		return nil

	case "save":
		if len(fields) != 3 {
			return fmt.Errorf("usage: save <state|queue> <path>")
		}
		switch fields[1] {
		case "state":
			if err := SaveStateFile(fields[2], l.session.CurrentState()); err != nil {
				return err
			}
		case "queue":
			if err := SaveQueueFile(fields[2], l.session.PendingMessages()); err != nil {
				return err
			}
		default:
			return fmt.Errorf("usage: save <state|queue> <path>")
		}
		fmt.Fprintf(l.out, "saved %s\n", fields[2])
		return nil

	case "diff":
		if len(fields) != 2 {
			return fmt.Errorf("usage: diff <state-file>")
		}
		current, err := snapshot.EncodeState(l.session.CurrentState())
		if err != nil {
			return err
		}
		other, err := os.ReadFile(fields[1])
		if err != nil {
			return fmt.Errorf("read state file: %w", err)
		}
		diffs, err := snapshot.Diff(current, other)
		if err != nil {
			return err
		}
		fmt.Fprint(l.out, FormatDiff(diffs))
		return nil

	default:
		return fmt.Errorf("unknown command %q (try \"help\")", fields[0])
	}
}

// parsePolicy builds a reorder policy from its command form.
func parsePolicy(fields []string) (reorder.Policy, error) {
	switch fields[0] {
	case "identity":
		return reorder.Identity{}, nil
	case "reverse":
		return reorder.Reverse{}, nil
	case "sort":
		return reorder.PrioritySort{}, nil
	case "shuffle":
		seed := time.Now().UnixNano()
		if len(fields) > 1 {
			s, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("bad shuffle seed %q", fields[1])
			}
			seed = s
		}
		return reorder.NewShuffle(seed), nil
	default:
		return nil, fmt.Errorf("unknown reorder policy %q", fields[0])
	}
}
