package msg

import (
	"fmt"
	"math/big"
)

// Kind distinguishes the direction of a message relative to the actor.
//
// The numeric order doubles as the priority rank used by the priority-sort
// reorder policy: external-in before internal before external-out.
type Kind int

const (
	// KindExternalIn is a message arriving from outside the sandbox.
	KindExternalIn Kind = iota + 1
	// KindInternal is a message sent by one actor to another.
	KindInternal
	// KindExternalOut is a message emitted by the actor to the outside.
	KindExternalOut
)

// String returns the wire name used in queue files.
func (k Kind) String() string {
	switch k {
	case KindExternalIn:
		return "external-in"
	case KindInternal:
		return "internal"
	case KindExternalOut:
		return "external-out"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind converts a queue-file kind name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "external-in":
		return KindExternalIn, nil
	case "internal":
		return KindInternal, nil
	case "external-out":
		return KindExternalOut, nil
	default:
		return 0, fmt.Errorf("unknown message kind %q", s)
	}
}

// CurrencyValue is the amount transferred by an internal message: a coin
// amount plus an optional opaque side-currency bundle.
type CurrencyValue struct {
	Amount *big.Int
	// Extra is the encoded side-currency bundle. Opaque to the debugger.
	Extra []byte
}

// Clone returns a deep copy of the value.
func (v *CurrencyValue) Clone() *CurrencyValue {
	if v == nil {
		return nil
	}
	out := &CurrencyValue{}
	if v.Amount != nil {
		out.Amount = new(big.Int).Set(v.Amount)
	}
	if v.Extra != nil {
		out.Extra = append([]byte(nil), v.Extra...)
	}
	return out
}

// Message is one pending unit of work for the actor.
//
// ID is unique across the union of the pending queue and the executed log for
// the lifetime of a session. Ids are minted by the session's clock and never
// reused, even after a message is executed or dropped.
type Message struct {
	ID      int64
	Kind    Kind
	// Payload is the actor-specific encoded body. Never inspected here.
	Payload []byte
	// Sender identifies the originating actor. Required for internal
	// messages, absent for external-in.
	Sender string
	// Value is the transferred amount. Required for internal messages.
	Value *CurrencyValue
	// Label is a debugging aid with no semantic weight.
	Label string
}

// Validate checks the kind-dependent field requirements.
func (m *Message) Validate() error {
	switch m.Kind {
	case KindInternal:
		if m.Sender == "" {
			return fmt.Errorf("internal message %d: sender is required", m.ID)
		}
		if m.Value == nil || m.Value.Amount == nil {
			return fmt.Errorf("internal message %d: value is required", m.ID)
		}
	case KindExternalIn, KindExternalOut:
		// Sender and value carry no meaning for external messages.
	default:
		return fmt.Errorf("message %d: unknown kind %d", m.ID, int(m.Kind))
	}
	return nil
}

// Amount returns the transferred amount, or nil when the message carries no
// value. Used by the priority-sort policy.
func (m *Message) Amount() *big.Int {
	if m.Value == nil {
		return nil
	}
	return m.Value.Amount
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	out := &Message{
		ID:     m.ID,
		Kind:   m.Kind,
		Sender: m.Sender,
		Label:  m.Label,
		Value:  m.Value.Clone(),
	}
	if m.Payload != nil {
		out.Payload = append([]byte(nil), m.Payload...)
	}
	return out
}

// Describe returns a short human-readable summary for queue listings.
func (m *Message) Describe() string {
	label := m.Label
	if label == "" {
		label = "-"
	}
	return fmt.Sprintf("#%d %s label=%s", m.ID, m.Kind, label)
}
