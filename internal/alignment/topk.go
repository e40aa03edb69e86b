package alignment

import (
	"container/heap"
	"slices"
)

// Better reports whether a ranks ahead of b: higher bit score first, then
// earlier arrival.
func Better(a, b *Match) bool {
	if a.BitScore != b.BitScore {
		return a.BitScore > b.BitScore
	}
	return a.Ordinal < b.Ordinal
}

// TopK keeps the k best matches offered since the last Reset.
//
// A candidate is admitted while fewer than k matches are held. Once full, it
// is admitted only if its bit score is strictly greater than the weakest
// held score, and the weakest is then evicted. An equal score never
// displaces an earlier match.
type TopK struct {
	k int
	h weakestFirst
}

// NewTopK returns an empty container with capacity k (at least 1).
func NewTopK(k int) *TopK {
	if k < 1 {
		k = 1
	}
	return &TopK{k: k, h: make(weakestFirst, 0, min(k, 1024))}
}

// Cap is the retention cap.
func (t *TopK) Cap() int { return t.k }

// Len is the number of matches held.
func (t *TopK) Len() int { return len(t.h) }

// Reset empties the container and keeps its storage.
func (t *TopK) Reset() {
	clear(t.h)
	t.h = t.h[:0]
}

// Weakest returns the match that would be evicted next, or nil.
func (t *TopK) Weakest() *Match {
	if len(t.h) == 0 {
		return nil
	}
	return t.h[0]
}

// Admits reports whether a candidate with the given bit score would be
// kept. Parsers use it to skip building records that cannot survive.
func (t *TopK) Admits(bitScore float64) bool {
	return len(t.h) < t.k || bitScore > t.h[0].BitScore
}

// Offer inserts m if it qualifies and reports whether it was kept.
func (t *TopK) Offer(m *Match) bool {
	if !t.Admits(m.BitScore) {
		return false
	}
	heap.Push(&t.h, m)
	if len(t.h) > t.k {
		heap.Pop(&t.h)
	}
	return true
}

// Sorted returns the held matches best first. The slice is freshly
// allocated; the matches are shared.
func (t *TopK) Sorted() []*Match {
	out := slices.Clone([]*Match(t.h))
	slices.SortFunc(out, func(a, b *Match) int {
		switch {
		case Better(a, b):
			return -1
		case Better(b, a):
			return 1
		}
		return 0
	})
	return out
}

// weakestFirst is a min-heap whose root is the worst match.
type weakestFirst []*Match

func (h weakestFirst) Len() int           { return len(h) }
func (h weakestFirst) Less(i, j int) bool { return Better(h[j], h[i]) }
func (h weakestFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *weakestFirst) Push(x any) { *h = append(*h, x.(*Match)) }

func (h *weakestFirst) Pop() any {
	old := *h
	n := len(old)
	m := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return m
}
