// Package snapshot persists contract states and message queues to their
// external JSON representations and compares states structurally.
//
// Field encodings are fixed per field and must match on save and load:
//
//	balance, value.amount, last.lt  decimal string (no precision loss)
//	code, data, stateHash, last.hash  hex
//	payload, extra                  base64 (std, padded)
package snapshot

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"

	"github.com/actorlab/qdb/internal/msg"
)

// stateFile is the persisted state layout. Field order here fixes the
// serialized field order.
type stateFile struct {
	Balance   string   `json:"balance"`
	Status    string   `json:"status"`
	Code      *string  `json:"code,omitempty"`
	Data      *string  `json:"data,omitempty"`
	StateHash *string  `json:"stateHash,omitempty"`
	Extra     *string  `json:"extra,omitempty"`
	Last      *lastRef `json:"last,omitempty"`
}

type lastRef struct {
	LT   string `json:"lt"`
	Hash string `json:"hash"`
}

// EncodeState serializes a contract state to its external representation.
func EncodeState(st msg.ContractState) ([]byte, error) {
	f := stateFile{
		Balance: st.Balance().String(),
		Status:  st.Status().String(),
	}

	switch st.Status() {
	case msg.StatusActive:
		code, _ := st.Code()
		data, _ := st.Data()
		f.Code = hexPtr(code)
		f.Data = hexPtr(data)
	case msg.StatusFrozen:
		hash, _ := st.StateHash()
		f.StateHash = hexPtr(hash)
	case msg.StatusUninitialized:
		// Balance and status only.
	default:
		return nil, fmt.Errorf("encode state: unknown status %d", int(st.Status()))
	}

	if extra := st.ExtraCurrencies(); extra != nil {
		s := base64.StdEncoding.EncodeToString(extra)
		f.Extra = &s
	}
	if ref, ok := st.Last(); ok {
		f.Last = &lastRef{
			LT:   strconv.FormatUint(ref.LT, 10),
			Hash: hex.EncodeToString(ref.Hash),
		}
	}

	return json.MarshalIndent(&f, "", "  ")
}

// DecodeState is the inverse of EncodeState. It validates the raw bytes
// against the strict schema first, so an unknown field or a field set
// inconsistent with the declared status never yields a partial state.
func DecodeState(data []byte) (msg.ContractState, error) {
	var zero msg.ContractState

	if err := validateStateJSON(data); err != nil {
		return zero, malformedState("state file rejected by schema", err)
	}

	var f stateFile
	if err := json.Unmarshal(data, &f); err != nil {
		return zero, malformedState("state file is not valid JSON", err)
	}

	balance, ok := new(big.Int).SetString(f.Balance, 10)
	if !ok {
		return zero, malformedState(fmt.Sprintf("balance %q is not a decimal integer", f.Balance), nil)
	}
	if balance.Sign() < 0 {
		return zero, malformedState(fmt.Sprintf("balance %q is negative", f.Balance), nil)
	}

	status, err := msg.ParseAccountStatus(f.Status)
	if err != nil {
		return zero, malformedState("unknown status", err)
	}

	var st msg.ContractState
	switch status {
	case msg.StatusActive:
		if f.Code == nil || f.Data == nil {
			return zero, malformedState("status active requires code and data", nil)
		}
		if f.StateHash != nil {
			return zero, malformedState("stateHash not allowed when status is active", nil)
		}
		code, err := decodeHexField("code", *f.Code)
		if err != nil {
			return zero, err
		}
		dat, err := decodeHexField("data", *f.Data)
		if err != nil {
			return zero, err
		}
		st = msg.NewActiveState(balance, code, dat)

	case msg.StatusFrozen:
		if f.StateHash == nil {
			return zero, malformedState("status frozen requires stateHash", nil)
		}
		if f.Code != nil || f.Data != nil {
			return zero, malformedState("code/data not allowed when status is frozen", nil)
		}
		hash, err := decodeHexField("stateHash", *f.StateHash)
		if err != nil {
			return zero, err
		}
		st = msg.NewFrozenState(balance, hash)

	case msg.StatusUninitialized:
		if f.Code != nil || f.Data != nil || f.StateHash != nil {
			return zero, malformedState("code/data/stateHash not allowed when status is uninit", nil)
		}
		st = msg.NewUninitializedState(balance)
	}

	if f.Extra != nil {
		extra, err := base64.StdEncoding.DecodeString(*f.Extra)
		if err != nil {
			return zero, malformedState("extra is not valid base64", err)
		}
		st = st.WithExtraCurrencies(extra)
	}
	if f.Last != nil {
		lt, err := strconv.ParseUint(f.Last.LT, 10, 64)
		if err != nil {
			return zero, malformedState(fmt.Sprintf("last.lt %q is not a decimal integer", f.Last.LT), err)
		}
		hash, err := decodeHexField("last.hash", f.Last.Hash)
		if err != nil {
			return zero, err
		}
		st = st.WithLast(msg.TxRef{LT: lt, Hash: hash})
	}

	return st, nil
}

// queueEntry is the persisted message layout.
type queueEntry struct {
	ID      int64       `json:"id,omitempty"`
	Kind    string      `json:"kind"`
	Payload string      `json:"payload"`
	Sender  string      `json:"sender,omitempty"`
	Value   *valueEntry `json:"value,omitempty"`
	Label   string      `json:"label,omitempty"`
}

type valueEntry struct {
	Amount string  `json:"amount"`
	Extra  *string `json:"extra,omitempty"`
}

// EncodeMessages serializes a message sequence to the queue-file layout.
func EncodeMessages(msgs []*msg.Message) ([]byte, error) {
	entries := make([]queueEntry, 0, len(msgs))
	for _, m := range msgs {
		e := queueEntry{
			ID:      m.ID,
			Kind:    m.Kind.String(),
			Payload: base64.StdEncoding.EncodeToString(m.Payload),
			Sender:  m.Sender,
			Label:   m.Label,
		}
		if m.Value != nil && m.Value.Amount != nil {
			ve := valueEntry{Amount: m.Value.Amount.String()}
			if m.Value.Extra != nil {
				s := base64.StdEncoding.EncodeToString(m.Value.Extra)
				ve.Extra = &s
			}
			e.Value = &ve
		}
		entries = append(entries, e)
	}
	return json.MarshalIndent(entries, "", "  ")
}

// DecodeMessages is the inverse of EncodeMessages. Entries without an id
// come back with ID zero; the session assigns ids on load. Explicit ids must
// be unique within the file.
func DecodeMessages(data []byte) ([]*msg.Message, error) {
	if err := validateQueueJSON(data); err != nil {
		return nil, malformedQueue("queue file rejected by schema", err)
	}

	var entries []queueEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, malformedQueue("queue file is not a JSON array", err)
	}

	seen := make(map[int64]bool, len(entries))
	out := make([]*msg.Message, 0, len(entries))
	for i, e := range entries {
		kind, err := msg.ParseKind(e.Kind)
		if err != nil {
			return nil, malformedQueue(fmt.Sprintf("entry %d", i), err)
		}
		payload, err := base64.StdEncoding.DecodeString(e.Payload)
		if err != nil {
			return nil, malformedQueue(fmt.Sprintf("entry %d: payload is not valid base64", i), err)
		}
		m := &msg.Message{
			ID:      e.ID,
			Kind:    kind,
			Payload: payload,
			Sender:  e.Sender,
			Label:   e.Label,
		}
		if e.Value != nil {
			amount, ok := new(big.Int).SetString(e.Value.Amount, 10)
			if !ok {
				return nil, malformedQueue(fmt.Sprintf("entry %d: amount %q is not a decimal integer", i, e.Value.Amount), nil)
			}
			m.Value = &msg.CurrencyValue{Amount: amount}
			if e.Value.Extra != nil {
				extra, err := base64.StdEncoding.DecodeString(*e.Value.Extra)
				if err != nil {
					return nil, malformedQueue(fmt.Sprintf("entry %d: value.extra is not valid base64", i), err)
				}
				m.Value.Extra = extra
			}
		}
		if err := m.Validate(); err != nil {
			return nil, malformedQueue(fmt.Sprintf("entry %d", i), err)
		}
		if e.ID != 0 {
			if seen[e.ID] {
				return nil, malformedQueue(fmt.Sprintf("entry %d: duplicate id %d", i, e.ID), nil)
			}
			seen[e.ID] = true
		}
		out = append(out, m)
	}
	return out, nil
}

func hexPtr(b []byte) *string {
	s := hex.EncodeToString(b)
	return &s
}

func decodeHexField(field, value string) ([]byte, error) {
	b, err := hex.DecodeString(value)
	if err != nil {
		return nil, malformedState(fmt.Sprintf("%s is not valid hex", field), err)
	}
	return b, nil
}
