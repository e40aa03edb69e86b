package alignment

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func offerScores(tk *TopK, scores []float64) {
	for i, s := range scores {
		tk.Offer(&Match{BitScore: s, Ordinal: i})
	}
}

func scoresOf(ms []*Match) []float64 {
	out := make([]float64, len(ms))
	for i, m := range ms {
		out[i] = m.BitScore
	}
	return out
}

func TestTopKKeepsBestRandomized(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for round := 0; round < 200; round++ {
		k := 1 + rng.IntN(25)
		n := 1 + rng.IntN(300)
		scores := make([]float64, n)
		for i := range scores {
			// Coarse values so ties are common.
			scores[i] = float64(rng.IntN(40))
		}

		tk := NewTopK(k)
		offerScores(tk, scores)

		want := slices.Clone(scores)
		slices.Sort(want)
		slices.Reverse(want)
		want = want[:min(n, k)]

		got := tk.Sorted()
		require.Len(t, got, min(n, k))
		assert.Equal(t, want, scoresOf(got), "round %d k=%d n=%d", round, k, n)
	}
}

func TestTopKTieKeepsFirstSeen(t *testing.T) {
	tk := NewTopK(1)
	first := &Match{Subject: "first", BitScore: 50, Ordinal: 0}
	second := &Match{Subject: "second", BitScore: 50, Ordinal: 1}

	assert.True(t, tk.Offer(first))
	assert.False(t, tk.Offer(second))
	assert.Equal(t, "first", tk.Sorted()[0].Subject)
}

func TestTopKEvictsLatestAmongEqualWeakest(t *testing.T) {
	tk := NewTopK(3)
	tk.Offer(&Match{Subject: "a", BitScore: 10, Ordinal: 0})
	tk.Offer(&Match{Subject: "b", BitScore: 10, Ordinal: 1})
	tk.Offer(&Match{Subject: "c", BitScore: 10, Ordinal: 2})
	require.Equal(t, "c", tk.Weakest().Subject)

	assert.True(t, tk.Offer(&Match{Subject: "d", BitScore: 11, Ordinal: 3}))

	var subjects []string
	for _, m := range tk.Sorted() {
		subjects = append(subjects, m.Subject)
	}
	assert.Equal(t, []string{"d", "a", "b"}, subjects)
}

func TestTopKSortedOrdersTiesByArrival(t *testing.T) {
	tk := NewTopK(10)
	offerScores(tk, []float64{5, 9, 5, 9, 1})

	got := tk.Sorted()
	var ordinals []int
	for _, m := range got {
		ordinals = append(ordinals, m.Ordinal)
	}
	assert.Equal(t, []int{1, 3, 0, 2, 4}, ordinals)
}

func TestTopKResetAndAdmits(t *testing.T) {
	tk := NewTopK(2)
	assert.Nil(t, tk.Weakest())
	offerScores(tk, []float64{3, 4})

	assert.False(t, tk.Admits(3))
	assert.True(t, tk.Admits(3.5))

	tk.Reset()
	assert.Equal(t, 0, tk.Len())
	assert.True(t, tk.Admits(-100))
	assert.Equal(t, 2, tk.Cap())
	assert.Equal(t, 1, NewTopK(0).Cap())
}
