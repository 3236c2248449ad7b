package cli

import (
	"math/big"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	"github.com/actorlab/qdb/internal/msg"
	"github.com/actorlab/qdb/internal/snapshot"
)

func TestFormatBalance_GroupsDigits(t *testing.T) {
	assert.Equal(t, "0", formatBalance(big.NewInt(0)))
	assert.Equal(t, "999", formatBalance(big.NewInt(999)))
	assert.Equal(t, "1,000", formatBalance(big.NewInt(1000)))
	assert.Equal(t, "1,234,567", formatBalance(big.NewInt(1234567)))
}

func TestFormatBalance_HugeBalanceFallsBackToPlain(t *testing.T) {
	huge, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
	assert.True(t, ok)
	assert.Equal(t, "123456789012345678901234567890", formatBalance(huge))
}

func TestFormatState_Golden(t *testing.T) {
	st := msg.NewActiveState(big.NewInt(1234567), []byte{0x01}, []byte{0xaa, 0xbb}).
		WithLast(msg.TxRef{LT: 5, Hash: []byte{0xde, 0xad}})

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "state_active", []byte(FormatState(st)))
}

func TestFormatQueue(t *testing.T) {
	assert.Equal(t, "(queue empty)\n", FormatQueue(nil))

	out := FormatQueue([]*msg.Message{
		{ID: 1, Kind: msg.KindExternalIn, Payload: []byte{0x01}},
	})
	assert.Contains(t, out, "  0  ")
	assert.Contains(t, out, "external-in")
}

func TestFormatDiff(t *testing.T) {
	assert.Equal(t, "(states are equivalent)\n", FormatDiff(nil))

	out := FormatDiff([]snapshot.Difference{
		{Field: "balance", Kind: snapshot.DiffChanged, From: "100", To: "200"},
		{Field: "extra", Kind: snapshot.DiffIncomparable},
	})
	assert.Contains(t, out, `balance: "100" -> "200"`)
	assert.Contains(t, out, "comparison not supported")
}
