package engine

import "sync/atomic"

// IDClock mints message ids for a session.
//
// Ids are strictly increasing and never reused, even after a message is
// executed or dropped. This keeps the id unique across the union of the
// pending queue and the executed log for the lifetime of the session.
//
// Thread-safety: atomic operations, though the session's one-command-at-a-
// time discipline means a single goroutine typically calls Next.
type IDClock struct {
	seq atomic.Int64
}

// NewIDClock creates a clock starting at 0; the first Next returns 1.
func NewIDClock() *IDClock {
	return &IDClock{}
}

// Next returns the next id and advances the clock.
func (c *IDClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the most recently minted id without advancing.
func (c *IDClock) Current() int64 {
	return c.seq.Load()
}

// Advance moves the clock forward to at least seq. Used when loading a
// queue file with explicit ids, so freshly minted ids never collide with
// loaded ones. Never moves the clock backwards.
func (c *IDClock) Advance(seq int64) {
	for {
		cur := c.seq.Load()
		if cur >= seq {
			return
		}
		if c.seq.CompareAndSwap(cur, seq) {
			return
		}
	}
}
