package alignment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMatch(mode Mode) *Match {
	return &Match{
		Query:           "read_7",
		Subject:         "WP_005682092.1",
		SubjectLength:   516,
		BitScore:        67.03,
		Expect:          4.3e-17,
		RawScore:        159,
		PercentIdentity: 0.75,
		QueryStart:      99,
		QueryEnd:        1,
		SubjectStart:    19,
		SubjectEnd:      51,
		QueryStrand:     Minus,
		SubjectStrand:   Plus,
		Frame:           -2,
		QueryAligned:    "SAEANE",
		SubjectAligned:  "TAEANE",
		Mode:            mode,
	}
}

func TestLineUntranslated(t *testing.T) {
	m := sampleMatch(BlastN)
	want := "read_7\tMinus\tWP_005682092.1\t516\tPlus\t67.0\t4.3e-17\t159\t75.00\t99\t1\t19\t51\tSAEANE\tTAEANE"
	assert.Equal(t, want, m.Line())
}

func TestLineTranslatedAppendsFrame(t *testing.T) {
	m := sampleMatch(BlastX)
	assert.Equal(t,
		"read_7\tMinus\tWP_005682092.1\t516\tPlus\t67.0\t4.3e-17\t159\t75.00\t99\t1\t19\t51\tSAEANE\tTAEANE\t-2",
		m.Line())
}

func TestLineIsCached(t *testing.T) {
	m := sampleMatch(BlastN)
	first := m.Line()
	m.Subject = "changed"
	assert.Equal(t, first, m.Line())
}

func TestParseLineRoundTrip(t *testing.T) {
	for _, mode := range []Mode{BlastN, BlastX} {
		src := sampleMatch(mode)
		got, aligned, err := ParseLine(src.Line() + "\n")
		require.NoError(t, err)
		require.True(t, aligned)

		assert.Equal(t, src.Query, got.Query)
		assert.Equal(t, src.Subject, got.Subject)
		assert.Equal(t, src.SubjectLength, got.SubjectLength)
		assert.InDelta(t, 67.0, got.BitScore, 1e-9)
		assert.InDelta(t, src.Expect, got.Expect, 1e-20)
		assert.Equal(t, src.RawScore, got.RawScore)
		assert.InDelta(t, src.PercentIdentity, got.PercentIdentity, 1e-9)
		assert.Equal(t, src.QueryStart, got.QueryStart)
		assert.Equal(t, src.SubjectEnd, got.SubjectEnd)
		assert.Equal(t, src.QueryStrand, got.QueryStrand)
		assert.Equal(t, src.QueryAligned, got.QueryAligned)
		assert.Equal(t, src.Line(), got.Line())
		if mode == BlastX {
			assert.Equal(t, -2, got.Frame)
		}
	}
}

func TestParseLineUnaligned(t *testing.T) {
	m, aligned, err := ParseLine("read_9\n")
	require.NoError(t, err)
	assert.False(t, aligned)
	assert.Equal(t, "read_9", m.Query)
}

func TestParseLineErrors(t *testing.T) {
	_, _, err := ParseLine("")
	assert.Error(t, err)
	_, _, err = ParseLine("a\tb\tc")
	assert.Error(t, err)

	bad := "r\tPlus\ts\tNaNlen\tPlus\t1.0\t1e-5\t10\t50.00\t1\t2\t1\t2\tAC\tAC"
	_, _, err = ParseLine(bad)
	assert.ErrorContains(t, err, "subject length")
}
