// Package engine holds the debugger core: the session that owns the pending
// queue and the append-only logs, and the driver that feeds messages to the
// executor one at a time.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/actorlab/qdb/internal/msg"
	"github.com/actorlab/qdb/internal/reorder"
)

// Journal observes executions for durable trace storage. The in-memory
// session logs stay authoritative; journal failures are logged and never
// fail a command.
type Journal interface {
	RecordExecution(ctx context.Context, sessionToken string, m *msg.Message, tx msg.Transaction, state msg.ContractState) error
}

// Session is the process-wide mutable debugging context: the pending queue,
// the three append-only logs (executed messages, transactions, state
// history), and the active reorder script.
//
// The session exclusively owns its queue and logs. Messages move (never
// copy) from the pending queue into the executed log on execution. Nothing
// here persists across sessions; only explicit snapshots and the optional
// journal are durable.
//
// Commands run one at a time: the caller issues the next command only after
// the previous one returned. There is no concurrent execution of two
// messages against the same actor state.
type Session struct {
	token string
	clock *IDClock
	queue *pendingQueue

	executed []*msg.Message
	txs      []msg.Transaction
	states   []msg.ContractState
	current  msg.ContractState

	// usedIDs tracks every id ever seen, pending or executed, so ids are
	// never reused within the session.
	usedIDs map[int64]bool

	script  *reorder.Script
	journal Journal
}

// SessionOption configures a session.
type SessionOption func(*Session)

// WithJournal attaches a durable execution journal.
func WithJournal(j Journal) SessionOption {
	return func(s *Session) {
		s.journal = j
	}
}

// NewSession creates a session over the given initial actor state.
func NewSession(initial msg.ContractState, opts ...SessionOption) *Session {
	s := &Session{
		token:   uuid.NewString(),
		clock:   NewIDClock(),
		queue:   newPendingQueue(),
		current: initial,
		usedIDs: make(map[int64]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Token returns the session correlation token used by the journal.
func (s *Session) Token() string { return s.token }

// Enqueue adds one message to the tail of the pending queue. A zero id gets
// a freshly minted one; an explicit id must not collide with any id already
// seen this session.
func (s *Session) Enqueue(m *msg.Message) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if m.ID == 0 {
		m.ID = s.clock.Next()
	} else {
		if s.usedIDs[m.ID] {
			return fmt.Errorf("message id %d already used in this session", m.ID)
		}
		s.clock.Advance(m.ID)
	}
	s.usedIDs[m.ID] = true
	s.queue.Enqueue(m)
	return nil
}

// LoadQueue enqueues a decoded queue file. Entries without an id are
// assigned sequential ids after all explicit ids are reserved, so loading
// [{id:5}, {}] yields ids 5 and 6. All-or-nothing: a collision leaves the
// queue untouched.
func (s *Session) LoadQueue(msgs []*msg.Message) error {
	for _, m := range msgs {
		if m.ID != 0 {
			if s.usedIDs[m.ID] {
				return fmt.Errorf("message id %d already used in this session", m.ID)
			}
			s.clock.Advance(m.ID)
		}
	}
	for _, m := range msgs {
		if err := s.Enqueue(m); err != nil {
			return err
		}
	}
	slog.Info("queue loaded", "session", s.token, "count", len(msgs), "pending", s.queue.Len())
	return nil
}

// Reorder applies a policy to the pending queue.
//
// Built-in policies preserve the message multiset. The script policy may
// not; a changed multiset is accepted as an operator error and logged, never
// rejected. Id uniqueness is unaffected either way: the clock never hands
// out an id twice regardless of what a script did to the queue.
func (s *Session) Reorder(p reorder.Policy) error {
	before := s.queue.Messages()
	after, err := p.Apply(before)
	if err != nil {
		return err
	}

	if !sameMultiset(before, after) {
		slog.Warn("reorder changed the queue multiset",
			"session", s.token,
			"policy", p.Name(),
			"before", len(before),
			"after", len(after),
		)
	}

	s.queue.Replace(after)
	slog.Info("queue reordered", "session", s.token, "policy", p.Name(), "pending", len(after))
	return nil
}

// SetScript loads a reorder script and makes it the session's active one.
// A load failure leaves the previously active script untouched.
func (s *Session) SetScript(path string) error {
	script, err := reorder.LoadScript(path)
	if err != nil {
		return err
	}
	s.script = script
	slog.Info("reorder script set", "session", s.token, "script", path)
	return nil
}

// ScriptPath returns the active reorder script path, empty when none is set.
func (s *Session) ScriptPath() string {
	if s.script == nil {
		return ""
	}
	return s.script.Path()
}

// ApplyScript reorders the queue with the active script.
func (s *Session) ApplyScript() error {
	if s.script == nil {
		return fmt.Errorf("no reorder script is set")
	}
	return s.Reorder(s.script)
}

// PendingMessages returns the pending queue in its current order.
func (s *Session) PendingMessages() []*msg.Message {
	return s.queue.Messages()
}

// PendingLen returns the number of pending messages.
func (s *Session) PendingLen() int { return s.queue.Len() }

// ExecutedMessages returns the executed log in execution order.
func (s *Session) ExecutedMessages() []*msg.Message {
	out := make([]*msg.Message, len(s.executed))
	copy(out, s.executed)
	return out
}

// Transactions returns the transaction log in execution order.
func (s *Session) Transactions() []msg.Transaction {
	out := make([]msg.Transaction, len(s.txs))
	copy(out, s.txs)
	return out
}

// StateHistory returns every captured state snapshot in order.
func (s *Session) StateHistory() []msg.ContractState {
	out := make([]msg.ContractState, len(s.states))
	copy(out, s.states)
	return out
}

// CurrentState returns the latest actor state.
func (s *Session) CurrentState() msg.ContractState { return s.current }

// recordExecution moves a consumed message into the executed log and
// appends the transactions and resulting state. Called by the driver once
// per successfully submitted message.
func (s *Session) recordExecution(ctx context.Context, m *msg.Message, txs []msg.Transaction, state msg.ContractState) {
	s.executed = append(s.executed, m)
	s.txs = append(s.txs, txs...)
	s.states = append(s.states, state)
	s.current = state

	if s.journal != nil && len(txs) > 0 {
		if err := s.journal.RecordExecution(ctx, s.token, m, txs[0], state); err != nil {
			// Log and continue: the in-memory logs are authoritative.
			slog.Error("journal write failed",
				"session", s.token,
				"message_id", m.ID,
				"error", err,
			)
		}
	}
}

// sameMultiset compares the two orderings by message id counts.
func sameMultiset(a, b []*msg.Message) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[int64]int, len(a))
	for _, m := range a {
		counts[m.ID]++
	}
	for _, m := range b {
		counts[m.ID]--
		if counts[m.ID] < 0 {
			return false
		}
	}
	return true
}
