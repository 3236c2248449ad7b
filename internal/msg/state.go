package msg

import (
	"fmt"
	"math/big"
)

// AccountStatus is the tag of the ContractState tagged union.
type AccountStatus int

const (
	// StatusUninitialized means the account exists only as a balance.
	StatusUninitialized AccountStatus = iota + 1
	// StatusActive means the account carries loaded code and data.
	StatusActive
	// StatusFrozen means the account's state was unloaded, leaving a hash.
	StatusFrozen
)

// String returns the state-file name of the status.
func (s AccountStatus) String() string {
	switch s {
	case StatusUninitialized:
		return "uninit"
	case StatusActive:
		return "active"
	case StatusFrozen:
		return "frozen"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ParseAccountStatus converts a state-file status name to an AccountStatus.
func ParseAccountStatus(s string) (AccountStatus, error) {
	switch s {
	case "uninit":
		return StatusUninitialized, nil
	case "active":
		return StatusActive, nil
	case "frozen":
		return StatusFrozen, nil
	default:
		return 0, fmt.Errorf("unknown account status %q", s)
	}
}

// ContractState is a snapshot of the actor's externally visible state.
//
// It is a tagged union over AccountStatus: code and data exist only while
// active, the state hash only while frozen. The fields are unexported and the
// accessors report presence, so status-dependent fields cannot be read under
// the wrong tag.
type ContractState struct {
	balance *big.Int
	// extra is the encoded side-ledger bundle. Opaque to the debugger.
	extra     []byte
	status    AccountStatus
	code      []byte // active only
	data      []byte // active only
	stateHash []byte // frozen only
	last      *TxRef
}

// NewUninitializedState builds a state carrying only a balance.
func NewUninitializedState(balance *big.Int) ContractState {
	return ContractState{balance: bigOrZero(balance), status: StatusUninitialized}
}

// NewActiveState builds an active state with loaded code and data.
func NewActiveState(balance *big.Int, code, data []byte) ContractState {
	return ContractState{
		balance: bigOrZero(balance),
		status:  StatusActive,
		code:    code,
		data:    data,
	}
}

// NewFrozenState builds a frozen state carrying the hash of the unloaded
// code and data.
func NewFrozenState(balance *big.Int, stateHash []byte) ContractState {
	return ContractState{
		balance:   bigOrZero(balance),
		status:    StatusFrozen,
		stateHash: stateHash,
	}
}

func bigOrZero(b *big.Int) *big.Int {
	if b == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(b)
}

// Status returns the union tag.
func (s ContractState) Status() AccountStatus { return s.status }

// Balance returns a copy of the account balance.
func (s ContractState) Balance() *big.Int { return bigOrZero(s.balance) }

// Code returns the loaded code. ok is false unless the state is active.
func (s ContractState) Code() (code []byte, ok bool) {
	if s.status != StatusActive {
		return nil, false
	}
	return s.code, true
}

// Data returns the loaded data. ok is false unless the state is active.
func (s ContractState) Data() (data []byte, ok bool) {
	if s.status != StatusActive {
		return nil, false
	}
	return s.data, true
}

// StateHash returns the frozen state hash. ok is false unless frozen.
func (s ContractState) StateHash() (hash []byte, ok bool) {
	if s.status != StatusFrozen {
		return nil, false
	}
	return s.stateHash, true
}

// Last returns the reference to the transaction that produced this state.
func (s ContractState) Last() (ref TxRef, ok bool) {
	if s.last == nil {
		return TxRef{}, false
	}
	return *s.last, true
}

// ExtraCurrencies returns the opaque side-ledger bundle, which may be nil.
func (s ContractState) ExtraCurrencies() []byte { return s.extra }

// WithLast returns a copy of the state pointing at the given transaction.
func (s ContractState) WithLast(ref TxRef) ContractState {
	s.last = &TxRef{LT: ref.LT, Hash: append([]byte(nil), ref.Hash...)}
	return s
}

// WithExtraCurrencies returns a copy of the state carrying the given bundle.
func (s ContractState) WithExtraCurrencies(extra []byte) ContractState {
	s.extra = extra
	return s
}

// Describe returns a one-line summary for state listings.
func (s ContractState) Describe() string {
	return fmt.Sprintf("%s balance=%s", s.status, s.Balance().String())
}
