package alignment

import (
	"fmt"
	"strings"
)

// Mode is the alignment program mode of an input file.
type Mode int

const (
	ModeUnknown Mode = iota
	BlastN
	BlastX
	BlastP
)

func (m Mode) String() string {
	switch m {
	case BlastN:
		return "BlastN"
	case BlastX:
		return "BlastX"
	case BlastP:
		return "BlastP"
	default:
		return "Unknown"
	}
}

// Translated reports whether matches carry a reading frame.
func (m Mode) Translated() bool {
	return m == BlastX
}

// ParseMode parses a mode name case-insensitively. The empty string and
// "unknown" yield ModeUnknown.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unknown":
		return ModeUnknown, nil
	case "blastn":
		return BlastN, nil
	case "blastx":
		return BlastX, nil
	case "blastp":
		return BlastP, nil
	}
	return ModeUnknown, fmt.Errorf("unknown alignment mode %q", s)
}

// Strand is the orientation label written to canonical lines.
type Strand bool

const (
	Plus  Strand = false
	Minus Strand = true
)

func (s Strand) String() string {
	if s == Minus {
		return "Minus"
	}
	return "Plus"
}

// ParseStrand accepts "Plus"/"Minus" (any case) and "+"/"-".
func ParseStrand(s string) (Strand, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plus", "+":
		return Plus, nil
	case "minus", "-":
		return Minus, nil
	}
	return Plus, fmt.Errorf("unknown strand %q", s)
}
