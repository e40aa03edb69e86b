// Package alignment holds the canonical match record, the statistics derived
// from raw alignment text, and the bounded per-query retention policy.
package alignment

import "math"

// Match is one alignment between a query and a reference sequence.
// Coordinates are 1-based and inclusive; a reverse-strand side has
// start > end.
type Match struct {
	Query         string
	Subject       string
	SubjectLength int

	BitScore        float64
	Expect          float64
	RawScore        int
	PercentIdentity float64

	QueryStart, QueryEnd     int
	SubjectStart, SubjectEnd int
	QueryStrand              Strand
	SubjectStrand            Strand
	Frame                    int

	QueryAligned   string
	SubjectAligned string

	Mode Mode

	// Ordinal is the arrival order within one query and only breaks ties.
	Ordinal int

	line string
}

var ln2 = math.Log(2)

// BitScore converts a raw alignment score using the scoring model's
// lambda and K.
func BitScore(lambda, k float64, raw int) float64 {
	return (lambda*float64(raw) - math.Log(k)) / ln2
}

// PercentIdentity is the fraction of equal columns over the shorter of the
// two aligned strings. It is 0 if either string is empty.
func PercentIdentity(queryAligned, subjectAligned string) float64 {
	n := min(len(queryAligned), len(subjectAligned))
	if n == 0 {
		return 0
	}
	same := 0
	for i := 0; i < n; i++ {
		if queryAligned[i] == subjectAligned[i] {
			same++
		}
	}
	return float64(same) / float64(n)
}

// Normalize turns a 0-based start and an alignment length into 1-based
// inclusive coordinates. On the reverse strand the pair is swapped so that
// start > end.
func Normalize(start0, alignLen int, reverse bool) (start, end int) {
	s := start0 + 1
	if reverse {
		return s + alignLen - 1, s
	}
	return s, s + alignLen - 1
}

// TranslatedFrame derives the reading frame of a translated alignment from
// the normalized query start. Reverse frames count from the 3' end, so they
// need the full query length.
func TranslatedFrame(queryStart int, reverse bool, queryLength int) int {
	if reverse {
		return -((queryLength-queryStart)%3 + 1)
	}
	return (queryStart-1)%3 + 1
}
