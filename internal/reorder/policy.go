// Package reorder holds the queue reordering policies of the debugger.
//
// A policy receives the pending queue in its current order and returns a new
// order. The built-in policies preserve the multiset of messages exactly;
// the operator-supplied script policy is trusted not to, and the session
// reports (rather than rejects) a changed multiset.
package reorder

import (
	"math/rand"
	"sort"

	"github.com/actorlab/qdb/internal/msg"
)

// Policy reorders a pending message sequence.
//
// Apply must not mutate the input slice or the messages themselves.
type Policy interface {
	// Name identifies the policy in logs and session output.
	Name() string
	// Apply returns the messages in their new order.
	Apply(msgs []*msg.Message) ([]*msg.Message, error)
}

// Identity returns the queue unchanged. Useful as a placeholder policy.
type Identity struct{}

func (Identity) Name() string { return "identity" }

func (Identity) Apply(msgs []*msg.Message) ([]*msg.Message, error) {
	out := make([]*msg.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Reverse flips the queue order.
type Reverse struct{}

func (Reverse) Name() string { return "reverse" }

func (Reverse) Apply(msgs []*msg.Message) ([]*msg.Message, error) {
	out := make([]*msg.Message, len(msgs))
	for i, m := range msgs {
		out[len(msgs)-1-i] = m
	}
	return out, nil
}

// Shuffle applies a uniform random permutation via Fisher-Yates.
type Shuffle struct {
	rng *rand.Rand
}

// NewShuffle builds a shuffle policy with the given seed. Tests pass a fixed
// seed for reproducible orders.
func NewShuffle(seed int64) *Shuffle {
	return &Shuffle{rng: rand.New(rand.NewSource(seed))}
}

// NewShuffleFrom builds a shuffle policy over an existing source.
func NewShuffleFrom(rng *rand.Rand) *Shuffle {
	return &Shuffle{rng: rng}
}

func (*Shuffle) Name() string { return "shuffle" }

// Apply walks i from last to first, drawing j uniformly from [0, i] and
// swapping. Every one of the n! permutations is equally likely.
func (s *Shuffle) Apply(msgs []*msg.Message) ([]*msg.Message, error) {
	out := make([]*msg.Message, len(msgs))
	copy(out, msgs)
	for i := len(out) - 1; i > 0; i-- {
		j := s.rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// PrioritySort orders by message kind rank ascending (external-in, internal,
// external-out), tie-broken by transferred value descending. Messages
// carrying no value sort after messages carrying value. The sort is stable,
// so remaining ties keep their original order.
type PrioritySort struct{}

func (PrioritySort) Name() string { return "priority" }

func (PrioritySort) Apply(msgs []*msg.Message) ([]*msg.Message, error) {
	out := make([]*msg.Message, len(msgs))
	copy(out, msgs)
	sort.SliceStable(out, func(i, j int) bool {
		return messageLess(out[i], out[j])
	})
	return out, nil
}

// messageLess reports whether a sorts strictly before b under the priority
// ordering. Equal messages return false on both argument orders, which is
// what keeps the stable sort stable.
func messageLess(a, b *msg.Message) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	av, bv := a.Amount(), b.Amount()
	switch {
	case av == nil && bv == nil:
		return false
	case av == nil:
		return false // valueless after valued
	case bv == nil:
		return true
	default:
		return av.Cmp(bv) > 0 // larger value first
	}
}
