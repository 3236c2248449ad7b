package msg

import (
	"encoding/hex"
	"fmt"
)

// TxStatus is the recorded outcome of one execution.
//
// A failed transaction is a valid recorded outcome, not an error: the actor
// ran and rejected the message. The executor failing to produce any
// transaction at all is a hard error surfaced by the driver instead.
type TxStatus int

const (
	// TxSuccess means the actor accepted and applied the message.
	TxSuccess TxStatus = iota + 1
	// TxFailed means the actor ran but rejected the message.
	TxFailed
)

// String returns the journal name of the status.
func (s TxStatus) String() string {
	switch s {
	case TxSuccess:
		return "success"
	case TxFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ParseTxStatus converts a journal status name back to a TxStatus.
func ParseTxStatus(s string) (TxStatus, error) {
	switch s {
	case "success":
		return TxSuccess, nil
	case "failed":
		return TxFailed, nil
	default:
		return 0, fmt.Errorf("unknown transaction status %q", s)
	}
}

// TxRef is the (logical time, hash) pair the executor stamps on a
// transaction. Opaque here beyond ordering and display.
type TxRef struct {
	LT   uint64
	Hash []byte
}

// String renders the reference as lt:hexhash.
func (r TxRef) String() string {
	return fmt.Sprintf("%d:%s", r.LT, hex.EncodeToString(r.Hash))
}

// Transaction is the immutable record of one message's execution.
//
// Exactly one transaction references each executed message; the executor may
// report additional follow-on transactions, which are appended to the log in
// order but reference no consumed message directly.
type Transaction struct {
	// MessageID is the id of the consumed message. Zero for follow-on
	// transactions reported alongside the authoritative one.
	MessageID int64
	Status    TxStatus
	// ExitCode is the actor's diagnostic code. Zero on success.
	ExitCode int32
	// Ref is the executor-supplied logical time and hash.
	Ref TxRef
	// StateIndex is the position of the resulting snapshot in the
	// session's state-history log. -1 when not captured.
	StateIndex int
}

// Describe returns a one-line summary for transaction listings.
func (t *Transaction) Describe() string {
	return fmt.Sprintf("msg=%d %s exit=%d lt=%d", t.MessageID, t.Status, t.ExitCode, t.Ref.LT)
}
