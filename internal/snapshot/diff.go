package snapshot

import (
	"encoding/json"
	"fmt"
)

// DiffKind classifies one reported difference.
type DiffKind int

const (
	// DiffAdded means the field is present only on the right side.
	DiffAdded DiffKind = iota + 1
	// DiffRemoved means the field is present only on the left side.
	DiffRemoved
	// DiffChanged means the field is present on both sides with
	// different values.
	DiffChanged
	// DiffIncomparable flags a field the comparison does not evaluate.
	// Today that is only extraCurrencies: the two sides differ, but
	// whether the bundles are semantically equal is not decided here.
	DiffIncomparable
)

func (k DiffKind) String() string {
	switch k {
	case DiffAdded:
		return "added"
	case DiffRemoved:
		return "removed"
	case DiffChanged:
		return "changed"
	case DiffIncomparable:
		return "incomparable"
	default:
		return fmt.Sprintf("diff(%d)", int(k))
	}
}

// Difference is one structural difference between two serialized states.
// From and To hold the external (encoded) field values.
type Difference struct {
	Field string
	Kind  DiffKind
	From  string
	To    string
}

func (d Difference) String() string {
	switch d.Kind {
	case DiffAdded:
		return fmt.Sprintf("%s: added %q", d.Field, d.To)
	case DiffRemoved:
		return fmt.Sprintf("%s: removed %q", d.Field, d.From)
	case DiffChanged:
		return fmt.Sprintf("%s: %q -> %q", d.Field, d.From, d.To)
	case DiffIncomparable:
		return fmt.Sprintf("%s: differs, comparison not supported", d.Field)
	default:
		return fmt.Sprintf("%s: %s", d.Field, d.Kind)
	}
}

// Diff structurally compares two serialized states.
//
// Status is compared before any status-dependent field: code and data are
// only compared when both sides are active, the state hash only when both
// are frozen. When the statuses differ, the status-specific fields of each
// side surface as added/removed, never as a cross-status value comparison.
func Diff(a, b []byte) ([]Difference, error) {
	fa, err := parseForDiff(a, "left")
	if err != nil {
		return nil, err
	}
	fb, err := parseForDiff(b, "right")
	if err != nil {
		return nil, err
	}

	var diffs []Difference

	if fa.Balance != fb.Balance {
		diffs = append(diffs, Difference{Field: "balance", Kind: DiffChanged, From: fa.Balance, To: fb.Balance})
	}
	if fa.Status != fb.Status {
		diffs = append(diffs, Difference{Field: "status", Kind: DiffChanged, From: fa.Status, To: fb.Status})
	}

	sameStatus := fa.Status == fb.Status
	diffs = append(diffs, diffOptional("code", fa.Code, fb.Code, sameStatus)...)
	diffs = append(diffs, diffOptional("data", fa.Data, fb.Data, sameStatus)...)
	diffs = append(diffs, diffOptional("stateHash", fa.StateHash, fb.StateHash, sameStatus)...)

	diffs = append(diffs, diffLast(fa.Last, fb.Last)...)

	// extraCurrencies equality is a known gap: flag a difference, never
	// silently treat the bundles as equal or unequal in substance.
	if !equalOpt(fa.Extra, fb.Extra) {
		diffs = append(diffs, Difference{
			Field: "extra",
			Kind:  DiffIncomparable,
			From:  optString(fa.Extra),
			To:    optString(fb.Extra),
		})
	}

	return diffs, nil
}

// Equivalent reports whether the two serialized states agree on balance,
// status, status-specific fields, and the last-transaction reference.
// Incomparable entries (extraCurrencies) do not break equivalence; callers
// that care inspect Diff output directly.
func Equivalent(a, b []byte) (bool, error) {
	diffs, err := Diff(a, b)
	if err != nil {
		return false, err
	}
	for _, d := range diffs {
		if d.Kind != DiffIncomparable {
			return false, nil
		}
	}
	return true, nil
}

func parseForDiff(data []byte, side string) (*stateFile, error) {
	if err := validateStateJSON(data); err != nil {
		return nil, malformedState(side+" state rejected by schema", err)
	}
	var f stateFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, malformedState(side+" state is not valid JSON", err)
	}
	return &f, nil
}

// diffOptional compares one optional status-specific field. Cross-status
// value comparison is suppressed: when the statuses differ, presence on one
// side reports as added/removed and presence on both sides reports nothing
// beyond the status change itself.
func diffOptional(field string, a, b *string, sameStatus bool) []Difference {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		return []Difference{{Field: field, Kind: DiffAdded, To: *b}}
	case b == nil:
		return []Difference{{Field: field, Kind: DiffRemoved, From: *a}}
	case !sameStatus:
		return nil
	case *a != *b:
		return []Difference{{Field: field, Kind: DiffChanged, From: *a, To: *b}}
	default:
		return nil
	}
}

func diffLast(a, b *lastRef) []Difference {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		return []Difference{{Field: "last", Kind: DiffAdded, To: b.LT + ":" + b.Hash}}
	case b == nil:
		return []Difference{{Field: "last", Kind: DiffRemoved, From: a.LT + ":" + a.Hash}}
	}

	var diffs []Difference
	if a.LT != b.LT {
		diffs = append(diffs, Difference{Field: "last.lt", Kind: DiffChanged, From: a.LT, To: b.LT})
	}
	if a.Hash != b.Hash {
		diffs = append(diffs, Difference{Field: "last.hash", Kind: DiffChanged, From: a.Hash, To: b.Hash})
	}
	return diffs
}

func equalOpt(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func optString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
