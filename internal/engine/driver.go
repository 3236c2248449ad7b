package engine

import (
	"context"
	"log/slog"

	"github.com/actorlab/qdb/internal/msg"
)

// DefaultRunLimit caps how many messages a single drain may execute. A
// feedback loop (every execution spawning a replacement message) would
// otherwise never terminate.
const DefaultRunLimit = 1000

// Driver feeds pending messages to the executor one at a time and records
// the outcomes in the session.
//
// State machine: Idle -> (RunNext | RunByID) -> Executing -> Idle. RunAll is
// a loop of RunNext, observable as repeated Idle/Executing transitions, not
// a distinct state. An execution is atomic from the operator's point of
// view: once started it runs to completion or to an executor-level fault.
type Driver struct {
	session *Session
	exec    Executor
	limit   int
}

// DriverOption configures a driver.
type DriverOption func(*Driver)

// WithRunLimit overrides the drain step limit.
func WithRunLimit(limit int) DriverOption {
	return func(d *Driver) {
		d.limit = limit
	}
}

// NewDriver builds a driver over a session and an executor.
func NewDriver(session *Session, exec Executor, opts ...DriverOption) *Driver {
	d := &Driver{
		session: session,
		exec:    exec,
		limit:   DefaultRunLimit,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Session returns the driven session.
func (d *Driver) Session() *Session { return d.session }

// RunLimit returns the configured drain step limit.
func (d *Driver) RunLimit() int { return d.limit }

// RunNext executes the head of the pending queue (FIFO, position 0).
//
// Fails with EMPTY_QUEUE when nothing is pending; the failure is
// side-effect free: no log entries, no state change.
func (d *Driver) RunNext(ctx context.Context) (*msg.Transaction, error) {
	m, ok := d.session.queue.PopHead()
	if !ok {
		return nil, NewEmptyQueueError()
	}
	return d.runMessage(ctx, m, 0)
}

// RunByID executes the pending message with the given id regardless of its
// position; the operator may skip ahead of the FIFO order.
//
// Fails with MESSAGE_NOT_FOUND when no pending message has the id, leaving
// the queue unmodified.
func (d *Driver) RunByID(ctx context.Context, id int64) (*msg.Transaction, error) {
	m, idx, ok := d.session.queue.RemoveByID(id)
	if !ok {
		return nil, NewMessageNotFoundError(id)
	}
	return d.runMessage(ctx, m, idx)
}

// RunAll repeats RunNext until the queue drains, stopping (not erroring) on
// empty. Failed transactions are recorded outcomes and iteration continues;
// only an executor-level fault (NO_EXECUTION_RESULT) aborts the drain,
// leaving the remaining queue untouched. Returns the number of messages
// executed.
func (d *Driver) RunAll(ctx context.Context) (int, error) {
	executed := 0
	for {
		if executed >= d.limit {
			return executed, NewRunLimitError(executed, d.limit)
		}

		tx, err := d.RunNext(ctx)
		if err != nil {
			if IsEmptyQueue(err) {
				slog.Info("queue drained", "session", d.session.token, "executed", executed)
				return executed, nil
			}
			return executed, err
		}

		// Log-and-continue on failed transactions: a rejection is an
		// outcome, not a fault.
		if tx.Status == msg.TxFailed {
			slog.Warn("message execution failed",
				"session", d.session.token,
				"message_id", tx.MessageID,
				"exit_code", tx.ExitCode,
			)
		}
		executed++
	}
}

// runMessage hands one removed message to the executor and records the
// outcome. restoreIdx is the queue position to put the message back at if
// the executor faults before producing any transaction, so the fatal path
// leaves the queue exactly as the command found it.
func (d *Driver) runMessage(ctx context.Context, m *msg.Message, restoreIdx int) (*msg.Transaction, error) {
	slog.Debug("executing message",
		"session", d.session.token,
		"message_id", m.ID,
		"kind", m.Kind.String(),
		"pending", d.session.queue.Len(),
	)

	result, err := d.exec.Execute(ctx, m, d.session.current)
	if err != nil {
		d.session.queue.InsertAt(restoreIdx, m)
		return nil, NewNoExecutionResultError(m.ID, err)
	}
	if len(result.Transactions) == 0 {
		d.session.queue.InsertAt(restoreIdx, m)
		return nil, NewNoExecutionResultError(m.ID, nil)
	}

	// The first transaction is authoritative for the consumed message.
	txs := make([]msg.Transaction, len(result.Transactions))
	copy(txs, result.Transactions)
	txs[0].MessageID = m.ID
	stateIdx := len(d.session.states)
	for i := range txs {
		txs[i].StateIndex = stateIdx
	}

	// Spawned messages join the tail with freshly minted ids and become
	// subject to future reorders like any other pending message.
	for _, spawned := range result.NewMessages {
		spawned.ID = 0
		if err := d.session.Enqueue(spawned); err != nil {
			slog.Error("dropping invalid spawned message",
				"session", d.session.token,
				"parent_id", m.ID,
				"error", err,
			)
		}
	}

	state := result.State.WithLast(txs[0].Ref)
	d.session.recordExecution(ctx, m, txs, state)

	slog.Info("message executed",
		"session", d.session.token,
		"message_id", m.ID,
		"status", txs[0].Status.String(),
		"exit_code", txs[0].ExitCode,
		"lt", txs[0].Ref.LT,
		"spawned", len(result.NewMessages),
		"pending", d.session.queue.Len(),
	)

	return &txs[0], nil
}
