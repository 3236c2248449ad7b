package engine

import (
	"sync"

	"github.com/actorlab/qdb/internal/msg"
)

// pendingQueue is the ordered, reorderable sequence of not-yet-executed
// messages.
//
// The queue has exactly two mutators: enqueue (initial load and
// execution-spawned messages) and replace (reorder policies). Removal
// happens only through the driver. The session's one-command-at-a-time rule
// means one writer at a time; the mutex guards against misuse from a second
// goroutine.
type pendingQueue struct {
	mu   sync.Mutex
	msgs []*msg.Message
}

func newPendingQueue() *pendingQueue {
	return &pendingQueue{msgs: make([]*msg.Message, 0, 16)}
}

// Enqueue appends a message to the tail.
func (q *pendingQueue) Enqueue(m *msg.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.msgs = append(q.msgs, m)
}

// PopHead removes and returns the head message (position 0).
func (q *pendingQueue) PopHead() (*msg.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.msgs) == 0 {
		return nil, false
	}
	m := q.msgs[0]
	// Nil out the slot so the backing array drops its reference.
	q.msgs[0] = nil
	q.msgs = q.msgs[1:]
	return m, true
}

// RemoveByID removes the message with the given id regardless of position
// and returns it along with the position it occupied.
func (q *pendingQueue) RemoveByID(id int64) (m *msg.Message, idx int, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, cand := range q.msgs {
		if cand.ID == id {
			q.msgs = append(q.msgs[:i], q.msgs[i+1:]...)
			return cand, i, true
		}
	}
	return nil, 0, false
}

// InsertAt puts a message back at the given position. Used to restore a
// message when the executor faults before producing any transaction, so a
// fatal fault leaves the queue exactly as it was.
func (q *pendingQueue) InsertAt(idx int, m *msg.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if idx < 0 {
		idx = 0
	}
	if idx > len(q.msgs) {
		idx = len(q.msgs)
	}
	q.msgs = append(q.msgs[:idx], append([]*msg.Message{m}, q.msgs[idx:]...)...)
}

// Replace swaps in a new ordering. The caller (the session's reorder
// operation) owns multiset checking.
func (q *pendingQueue) Replace(msgs []*msg.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.msgs = append(q.msgs[:0:0], msgs...)
}

// Messages returns a copy of the current ordering.
func (q *pendingQueue) Messages() []*msg.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*msg.Message, len(q.msgs))
	copy(out, q.msgs)
	return out
}

// Len returns the current queue length.
func (q *pendingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.msgs)
}
