package reorder

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actorlab/qdb/internal/msg"
)

func makeQueue(ids ...int64) []*msg.Message {
	out := make([]*msg.Message, len(ids))
	for i, id := range ids {
		out[i] = &msg.Message{ID: id, Kind: msg.KindExternalIn}
	}
	return out
}

func queueIDs(msgs []*msg.Message) []int64 {
	out := make([]int64, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func TestReverse_DoubleReverseIsIdentity(t *testing.T) {
	q := makeQueue(1, 2, 3, 4, 5)

	once, err := Reverse{}.Apply(q)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 4, 3, 2, 1}, queueIDs(once))

	twice, err := Reverse{}.Apply(once)
	require.NoError(t, err)
	assert.Equal(t, queueIDs(q), queueIDs(twice))
}

func TestReverse_DoesNotMutateInput(t *testing.T) {
	q := makeQueue(1, 2, 3)
	_, err := Reverse{}.Apply(q)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, queueIDs(q))
}

func TestIdentity(t *testing.T) {
	q := makeQueue(3, 1, 2)
	got, err := Identity{}.Apply(q)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 2}, queueIDs(got))
}

func TestShuffle_IsPermutation(t *testing.T) {
	q := makeQueue(1, 2, 3, 4, 5, 6, 7, 8)
	s := NewShuffle(42)

	got, err := s.Apply(q)
	require.NoError(t, err)
	require.Len(t, got, len(q))

	seen := make(map[int64]int)
	for _, m := range got {
		seen[m.ID]++
	}
	for _, m := range q {
		assert.Equal(t, 1, seen[m.ID], "message %d must appear exactly once", m.ID)
	}
}

// TestShuffle_Uniformity samples many shuffles of a 4-element queue and
// checks that each element occupies each position roughly 1/4 of the time.
func TestShuffle_Uniformity(t *testing.T) {
	const trials = 40000
	const n = 4

	s := NewShuffle(7)
	q := makeQueue(1, 2, 3, 4)

	counts := make([][]int, n) // counts[position][id-1]
	for i := range counts {
		counts[i] = make([]int, n)
	}

	for trial := 0; trial < trials; trial++ {
		got, err := s.Apply(q)
		require.NoError(t, err)
		for pos, m := range got {
			counts[pos][m.ID-1]++
		}
	}

	expected := float64(trials) / n
	for pos := 0; pos < n; pos++ {
		for id := 0; id < n; id++ {
			got := float64(counts[pos][id])
			// 5% tolerance is ~8 sigma at 40k trials.
			assert.InDelta(t, expected, got, expected*0.05,
				"position %d, id %d occupancy", pos, id+1)
		}
	}
}

func coins(n int64) *msg.CurrencyValue {
	return &msg.CurrencyValue{Amount: big.NewInt(n)}
}

func TestPrioritySort_KindThenValue(t *testing.T) {
	q := []*msg.Message{
		{ID: 1, Kind: msg.KindExternalOut},
		{ID: 2, Kind: msg.KindInternal, Sender: "a", Value: coins(10)},
		{ID: 3, Kind: msg.KindExternalIn},
		{ID: 4, Kind: msg.KindInternal, Sender: "b", Value: coins(50)},
		{ID: 5, Kind: msg.KindInternal, Sender: "c"}, // no value
	}

	got, err := PrioritySort{}.Apply(q)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4, 2, 5, 1}, queueIDs(got))
}

func TestPrioritySort_Idempotent(t *testing.T) {
	q := []*msg.Message{
		{ID: 1, Kind: msg.KindInternal, Sender: "a", Value: coins(5)},
		{ID: 2, Kind: msg.KindInternal, Sender: "b", Value: coins(5)},
		{ID: 3, Kind: msg.KindExternalIn},
		{ID: 4, Kind: msg.KindInternal, Sender: "c", Value: coins(9)},
	}

	once, err := PrioritySort{}.Apply(q)
	require.NoError(t, err)
	twice, err := PrioritySort{}.Apply(once)
	require.NoError(t, err)

	assert.Equal(t, queueIDs(once), queueIDs(twice))
}

func TestPrioritySort_StableOnTies(t *testing.T) {
	q := []*msg.Message{
		{ID: 1, Kind: msg.KindInternal, Sender: "a", Value: coins(5)},
		{ID: 2, Kind: msg.KindInternal, Sender: "b", Value: coins(5)},
		{ID: 3, Kind: msg.KindInternal, Sender: "c", Value: coins(5)},
	}

	got, err := PrioritySort{}.Apply(q)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, queueIDs(got), "equal values keep original order")
}
