package alignment

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	untranslatedFields = 15
	translatedFields   = 16
)

// Line returns the canonical tab-separated line of m, formatting it on the
// first call only. Field order:
//
//	query, query strand, subject, subject length, subject strand,
//	bit score, expect, raw score, percent identity,
//	query start, query end, subject start, subject end,
//	query aligned, subject aligned [, frame]
//
// The frame column is only present in translated mode.
func (m *Match) Line() string {
	if m.line != "" {
		return m.line
	}
	b := make([]byte, 0, 96+len(m.Query)+len(m.Subject)+len(m.QueryAligned)+len(m.SubjectAligned))
	b = append(b, m.Query...)
	b = append(b, '\t')
	b = append(b, m.QueryStrand.String()...)
	b = append(b, '\t')
	b = append(b, m.Subject...)
	b = append(b, '\t')
	b = strconv.AppendInt(b, int64(m.SubjectLength), 10)
	b = append(b, '\t')
	b = append(b, m.SubjectStrand.String()...)
	b = append(b, '\t')
	b = strconv.AppendFloat(b, m.BitScore, 'f', 1, 64)
	b = append(b, '\t')
	b = strconv.AppendFloat(b, m.Expect, 'g', 3, 64)
	b = append(b, '\t')
	b = strconv.AppendInt(b, int64(m.RawScore), 10)
	b = append(b, '\t')
	b = strconv.AppendFloat(b, 100*m.PercentIdentity, 'f', 2, 64)
	for _, c := range [...]int{m.QueryStart, m.QueryEnd, m.SubjectStart, m.SubjectEnd} {
		b = append(b, '\t')
		b = strconv.AppendInt(b, int64(c), 10)
	}
	b = append(b, '\t')
	b = append(b, m.QueryAligned...)
	b = append(b, '\t')
	b = append(b, m.SubjectAligned...)
	if m.Mode.Translated() {
		b = append(b, '\t')
		b = strconv.AppendInt(b, int64(m.Frame), 10)
	}
	m.line = string(b)
	return m.line
}

// ParseLine decodes one canonical line. The boolean is false for an
// unaligned query, in which case only Query is set.
func ParseLine(line string) (Match, bool, error) {
	line = strings.TrimRight(line, "\r\n")
	fields := strings.Split(line, "\t")
	switch len(fields) {
	case 1:
		if fields[0] == "" {
			return Match{}, false, fmt.Errorf("empty canonical line")
		}
		return Match{Query: fields[0]}, false, nil
	case untranslatedFields, translatedFields:
	default:
		return Match{}, false, fmt.Errorf("canonical line has %d fields", len(fields))
	}

	m := Match{
		Query:          fields[0],
		Subject:        fields[2],
		QueryAligned:   fields[13],
		SubjectAligned: fields[14],
		line:           line,
	}

	var err error
	if m.QueryStrand, err = ParseStrand(fields[1]); err != nil {
		return Match{}, false, err
	}
	if m.SubjectStrand, err = ParseStrand(fields[4]); err != nil {
		return Match{}, false, err
	}

	ints := []struct {
		dst  *int
		name string
		src  string
	}{
		{&m.SubjectLength, "subject length", fields[3]},
		{&m.RawScore, "raw score", fields[7]},
		{&m.QueryStart, "query start", fields[9]},
		{&m.QueryEnd, "query end", fields[10]},
		{&m.SubjectStart, "subject start", fields[11]},
		{&m.SubjectEnd, "subject end", fields[12]},
	}
	for _, f := range ints {
		if *f.dst, err = strconv.Atoi(f.src); err != nil {
			return Match{}, false, fmt.Errorf("parse %s: %w", f.name, err)
		}
	}

	if m.BitScore, err = strconv.ParseFloat(fields[5], 64); err != nil {
		return Match{}, false, fmt.Errorf("parse bit score: %w", err)
	}
	if m.Expect, err = strconv.ParseFloat(fields[6], 64); err != nil {
		return Match{}, false, fmt.Errorf("parse expect: %w", err)
	}
	pct, err := strconv.ParseFloat(fields[8], 64)
	if err != nil {
		return Match{}, false, fmt.Errorf("parse percent identity: %w", err)
	}
	m.PercentIdentity = pct / 100

	if len(fields) == translatedFields {
		m.Mode = BlastX
		if m.Frame, err = strconv.Atoi(fields[15]); err != nil {
			return Match{}, false, fmt.Errorf("parse frame: %w", err)
		}
	}
	return m, true, nil
}
