package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// NextToken returns the whitespace-delimited token that follows the first
// occurrence of label in line. It returns "" if label does not occur.
//
//	NextToken("a score=159 E=4.3e-17", "score=") == "159"
//	NextToken("s WP_0056 18 33 + 516", "s") == "WP_0056"
func NextToken(line, label string) string {
	idx := strings.Index(line, label)
	if idx < 0 {
		return ""
	}
	rest := strings.TrimLeft(line[idx+len(label):], " \t")
	if end := strings.IndexAny(rest, " \t"); end >= 0 {
		return rest[:end]
	}
	return rest
}

// IsNucleotide reports whether s only holds nucleotide letters and gaps.
// Empty strings are not nucleotide sequences.
func IsNucleotide(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 'A', 'C', 'G', 'T', 'U', 'N', 'a', 'c', 'g', 't', 'u', 'n', '-', '.':
		default:
			return false
		}
	}
	return true
}

// Hash computes a SHA-256 hex hash of a string for deduplication.
func Hash(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// Truncate shortens a string to maxLen, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
