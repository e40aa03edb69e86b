package alignment

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitScore(t *testing.T) {
	want := (0.3*100 - math.Log(0.1)) / math.Log(2)
	assert.InDelta(t, want, BitScore(0.3, 0.1, 100), 1e-12)
	assert.InDelta(t, 46.60, BitScore(0.3, 0.1, 100), 0.005)

	// LAST default protein constants.
	assert.InDelta(t, 226.88, BitScore(0.3260, 0.0898, 475), 0.01)
}

func TestPercentIdentity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "ACGTACGT", "ACGTACGT", 1},
		{"empty query", "", "ACGT", 0},
		{"empty subject", "ACGT", "", 0},
		{"half", "AAAA", "AATT", 0.5},
		{"shorter wins", "AAAAAA", "AAT", 2.0 / 3.0},
		{"gaps", "AC-T", "ACGT", 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PercentIdentity(tt.a, tt.b), 1e-12)
			assert.InDelta(t, tt.want, PercentIdentity(tt.b, tt.a), 1e-12, "symmetric")
		})
	}
}

func TestNormalize(t *testing.T) {
	s, e := Normalize(17, 33, false)
	assert.Equal(t, 18, s)
	assert.Equal(t, 50, e)

	s, e = Normalize(17, 33, true)
	assert.Equal(t, 50, s)
	assert.Equal(t, 18, e)

	for start0 := 0; start0 < 20; start0++ {
		for length := 2; length < 20; length++ {
			s, e := Normalize(start0, length, true)
			assert.Greater(t, s, e)
			s, e = Normalize(start0, length, false)
			assert.GreaterOrEqual(t, e, s)
		}
	}
}

func TestTranslatedFrame(t *testing.T) {
	assert.Equal(t, 1, TranslatedFrame(1, false, 100))
	assert.Equal(t, 2, TranslatedFrame(2, false, 100))
	assert.Equal(t, 3, TranslatedFrame(3, false, 100))
	assert.Equal(t, 1, TranslatedFrame(4, false, 100))

	// Reverse strand: counted from the 3' end of the read.
	assert.Equal(t, -1, TranslatedFrame(100, true, 100))
	assert.Equal(t, -2, TranslatedFrame(99, true, 100))
	assert.Equal(t, -3, TranslatedFrame(98, true, 100))
	assert.Equal(t, -1, TranslatedFrame(97, true, 100))
}

func TestParseModeAndStrand(t *testing.T) {
	m, err := ParseMode("BLASTX")
	assert.NoError(t, err)
	assert.Equal(t, BlastX, m)

	m, err = ParseMode("")
	assert.NoError(t, err)
	assert.Equal(t, ModeUnknown, m)

	_, err = ParseMode("tblastz")
	assert.Error(t, err)

	s, err := ParseStrand("-")
	assert.NoError(t, err)
	assert.Equal(t, Minus, s)
	assert.Equal(t, "Plus", Plus.String())
	_, err = ParseStrand("sideways")
	assert.Error(t, err)
}
