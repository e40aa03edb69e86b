package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"alnstream/internal/alignment"
	"alnstream/internal/linereader"
	"alnstream/internal/textutil"
)

// BlastTextParser reads the pairwise text report of BLAST (and tools that
// imitate it) in BlastN, BlastX or BlastP mode:
//
//	Query= read_1
//	Length=150
//	> WP_005682092.1 hypothetical protein
//	Length=516
//	 Score = 50.1 bits (118),  Expect = 1e-05
//	 Identities = 20/45 (44%), Positives = 30/45 (67%), Gaps = 0/45 (0%)
//	 Frame = +2
//	Query  5    MKLVAAG  25
//	            MK+V AG
//	Sbjct  20   MKIVQAG  26
type BlastTextParser struct {
	iteratorBase
	program    string
	pending    string
	hasPending bool
}

// subjectHeader is the reference a following HSP aligns to.
type subjectHeader struct {
	name   string
	length int
}

// hsp holds one high-scoring pair as read from the report.
type hsp struct {
	line     int64
	bits     float64
	raw      int
	expect   float64
	strands  [2]alignment.Strand
	frame    int
	qStart   int
	qEnd     int
	sStart   int
	sEnd     int
	qAligned strings.Builder
	sAligned strings.Builder
}

// NewBlastTextParser checks the program banner and positions the parser on
// the first query. The cursor is closed if construction fails.
func NewBlastTextParser(cur *linereader.Cursor, opts Options) (*BlastTextParser, error) {
	p := &BlastTextParser{iteratorBase: newBase(cur, opts)}
	if err := p.init(); err != nil {
		_ = cur.Close()
		return nil, err
	}
	return p, nil
}

func (p *BlastTextParser) init() error {
	banner, err := p.readBanner()
	if err != nil {
		return err
	}
	p.program = banner
	if p.mode == alignment.ModeUnknown {
		p.mode = BannerMode(banner)
	}
	if p.mode == alignment.ModeUnknown {
		return fmt.Errorf("%w: BLAST program %q", ErrUnsupportedFormat, banner)
	}
	p.advance()
	return p.cur.Err()
}

// readBanner returns the program name from the first non-blank line.
func (p *BlastTextParser) readBanner() (string, error) {
	for {
		line, err := p.cur.Next()
		if err != nil {
			return "", fmt.Errorf("%w: empty input, want BLAST text", ErrFormatMismatch)
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		program := strings.ToUpper(strings.Fields(trimmed)[0])
		if !IsBlastBanner(program) {
			return "", fmt.Errorf("%w: line %d is not a BLAST banner: %q", ErrFormatMismatch,
				p.cur.LineNumber(), textutil.Truncate(line, 40))
		}
		return program, nil
	}
}

// IsBlastBanner reports whether the first word of a report names a BLAST
// program or DIAMOND, which writes the same pairwise layout.
func IsBlastBanner(word string) bool {
	word = strings.ToUpper(word)
	return strings.HasPrefix(word, "BLAST") || strings.HasPrefix(word, "TBLAST") ||
		strings.HasPrefix(word, "DIAMOND")
}

// BannerMode maps a BLAST program name to its alignment mode. DIAMOND does
// not name its mode in the banner and needs an explicit one.
func BannerMode(program string) alignment.Mode {
	switch strings.ToUpper(program) {
	case "BLASTN", "MEGABLAST":
		return alignment.BlastN
	case "BLASTX":
		return alignment.BlastX
	case "BLASTP":
		return alignment.BlastP
	}
	return alignment.ModeUnknown
}

// advance moves the lookahead to the next "Query=" line.
func (p *BlastTextParser) advance() {
	line, ok := p.cur.NextStartingWith("Query=")
	p.pending, p.hasPending = queryTitle(line), ok
}

func queryTitle(line string) string {
	f := strings.Fields(strings.TrimPrefix(line, "Query="))
	if len(f) == 0 {
		return ""
	}
	return f[0]
}

// Next implements Iterator.
func (p *BlastTextParser) Next() (int, error) {
	if !p.begin() {
		return EndOfStream, p.fatal
	}
	if !p.hasPending {
		return p.endOfStream()
	}

	query := p.pending
	p.hasPending = false
	p.stats.Reads++

	var (
		subject *subjectHeader
		// badSubject marks HSPs under a rejected header; the header already
		// counted as the error.
		badSubject bool
		ordinal    int
	)
scan:
	for {
		line, ok := p.cur.Peek()
		if !ok {
			break
		}
		switch {
		case strings.HasPrefix(line, "Query="):
			_, _ = p.cur.Next()
			p.pending, p.hasPending = queryTitle(line), true
			break scan
		case strings.HasPrefix(line, ">"):
			s, err := p.readSubject()
			subject, badSubject = s, err != nil
			if err != nil {
				if ferr := p.recordError(p.cur.LineNumber(), err); ferr != nil {
					return p.abort(ferr)
				}
			}
		case isScoreLine(line):
			h, err := p.readHSP()
			if badSubject {
				continue
			}
			if err == nil && subject == nil {
				err = errors.New("alignment without a subject header")
			}
			if err == nil {
				err = p.offer(query, subject, h, ordinal)
			}
			if err != nil {
				if ferr := p.recordError(h.line, err); ferr != nil {
					return p.abort(ferr)
				}
			}
			ordinal++
		default:
			_, _ = p.cur.Next()
		}
	}
	return p.finish(query), nil
}

func isScoreLine(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "Score") && strings.Contains(t, "bits")
}

// readSubject consumes a ">" header and its description up to "Length=".
// It returns nil and an error if the length is missing.
func (p *BlastTextParser) readSubject() (*subjectHeader, error) {
	line, _ := p.cur.Next()
	f := strings.Fields(strings.TrimPrefix(line, ">"))
	if len(f) == 0 {
		return nil, errors.New("subject header without a name")
	}
	s := &subjectHeader{name: f[0]}
	for {
		next, ok := p.cur.Peek()
		if !ok || strings.HasPrefix(next, ">") || strings.HasPrefix(next, "Query=") || isScoreLine(next) {
			return nil, fmt.Errorf("subject %s has no Length line", s.name)
		}
		_, _ = p.cur.Next()
		if v, ok := labeledValue(next, "Length"); ok {
			n, err := strconv.Atoi(strings.ReplaceAll(v, ",", ""))
			if err != nil {
				return nil, fmt.Errorf("parse subject length: %w", err)
			}
			s.length = n
			return s, nil
		}
	}
}

// labeledValue returns the text after "label =" or "label=" at the start of
// a trimmed line.
func labeledValue(line, label string) (string, bool) {
	t := strings.TrimSpace(line)
	if !strings.HasPrefix(t, label) {
		return "", false
	}
	t = strings.TrimSpace(t[len(label):])
	if !strings.HasPrefix(t, "=") {
		return "", false
	}
	return strings.TrimSpace(t[1:]), true
}

// readHSP consumes a score line and the orientation and alignment rows
// that follow it.
func (p *BlastTextParser) readHSP() (*hsp, error) {
	line, _ := p.cur.Next()
	h := &hsp{line: p.cur.LineNumber()}
	if err := parseScoreLine(line, h); err != nil {
		return h, err
	}

	var rowErr error
	for {
		next, ok := p.cur.Peek()
		if !ok || isScoreLine(next) || !isHSPBodyLine(next) {
			break
		}
		_, _ = p.cur.Next()
		t := strings.TrimSpace(next)
		switch {
		case strings.HasPrefix(t, "Strand"):
			if err := parseStrandLine(t, h); err != nil && rowErr == nil {
				rowErr = err
			}
		case strings.HasPrefix(t, "Frame"):
			if err := parseFrameLine(t, h); err != nil && rowErr == nil {
				rowErr = err
			}
		case isAlignmentRow(next, "Query"):
			if err := appendRow(next, &h.qStart, &h.qEnd, &h.qAligned); err != nil && rowErr == nil {
				rowErr = fmt.Errorf("query row: %w", err)
			}
		case isAlignmentRow(next, "Sbjct"):
			if err := appendRow(next, &h.sStart, &h.sEnd, &h.sAligned); err != nil && rowErr == nil {
				rowErr = fmt.Errorf("subject row: %w", err)
			}
		}
	}
	return h, rowErr
}

// isHSPBodyLine is true for blank lines, indented lines and alignment rows.
// Anything else (a new header, the report footer) ends the HSP.
func isHSPBodyLine(line string) bool {
	if line == "" || line[0] == ' ' || line[0] == '\t' {
		return true
	}
	return isAlignmentRow(line, "Query") || isAlignmentRow(line, "Sbjct")
}

func isAlignmentRow(line, label string) bool {
	if !strings.HasPrefix(line, label) || len(line) == len(label) {
		return false
	}
	c := line[len(label)]
	return c == ' ' || c == ':' || c == '\t'
}

// parseScoreLine reads " Score = 50.1 bits (118),  Expect = 1e-05".
func parseScoreLine(line string, h *hsp) error {
	v, ok := labeledValue(line, "Score")
	if !ok {
		return fmt.Errorf("malformed score line")
	}
	f := strings.Fields(v)
	if len(f) < 3 {
		return fmt.Errorf("malformed score line")
	}
	var err error
	if h.bits, err = strconv.ParseFloat(f[0], 64); err != nil {
		return fmt.Errorf("parse bit score: %w", err)
	}
	rawTok := strings.Trim(f[2], "(),")
	if h.raw, err = strconv.Atoi(rawTok); err != nil {
		fv, ferr := strconv.ParseFloat(rawTok, 64)
		if ferr != nil {
			return fmt.Errorf("parse raw score: %w", err)
		}
		h.raw = int(fv)
	}

	idx := strings.Index(line, "Expect")
	if idx < 0 {
		return errors.New("missing Expect")
	}
	eq := strings.IndexByte(line[idx:], '=')
	if eq < 0 {
		return errors.New("missing Expect")
	}
	tok := strings.Fields(line[idx+eq+1:])
	if len(tok) == 0 {
		return errors.New("missing Expect value")
	}
	ev := strings.TrimRight(tok[0], ",")
	if strings.HasPrefix(ev, "e") {
		ev = "1" + ev
	}
	if h.expect, err = strconv.ParseFloat(ev, 64); err != nil {
		return fmt.Errorf("parse expect: %w", err)
	}
	return nil
}

// parseStrandLine reads "Strand=Plus/Minus" or "Strand = Plus / Minus".
func parseStrandLine(t string, h *hsp) error {
	v, ok := labeledValue(t, "Strand")
	if !ok {
		return fmt.Errorf("malformed strand line %q", t)
	}
	parts := strings.Split(v, "/")
	if len(parts) != 2 {
		return fmt.Errorf("malformed strand line %q", t)
	}
	for i, part := range parts {
		s, err := alignment.ParseStrand(part)
		if err != nil {
			return err
		}
		h.strands[i] = s
	}
	return nil
}

// parseFrameLine reads "Frame = +2"; for "+1/-2" the query frame is used.
func parseFrameLine(t string, h *hsp) error {
	v, ok := labeledValue(t, "Frame")
	if !ok {
		return fmt.Errorf("malformed frame line %q", t)
	}
	v = strings.TrimSpace(strings.Split(v, "/")[0])
	f, err := strconv.Atoi(v)
	if err != nil || f == 0 || f < -3 || f > 3 {
		return fmt.Errorf("bad frame %q", v)
	}
	h.frame = f
	return nil
}

// appendRow reads "Query  5    MKLVAAG  25" and extends the aligned string.
func appendRow(line string, start, end *int, aligned *strings.Builder) error {
	f := strings.Fields(line)
	if len(f) != 4 {
		return fmt.Errorf("alignment row has %d fields, want 4", len(f))
	}
	from, err := strconv.Atoi(f[1])
	if err != nil {
		return fmt.Errorf("parse row start: %w", err)
	}
	to, err := strconv.Atoi(f[3])
	if err != nil {
		return fmt.Errorf("parse row end: %w", err)
	}
	if aligned.Len() == 0 {
		*start = from
	}
	*end = to
	aligned.WriteString(f[2])
	return nil
}

// offer turns an HSP into a match and hands it to the retention policy.
// Reported coordinates already put start > end on the reverse strand.
func (p *BlastTextParser) offer(query string, subj *subjectHeader, h *hsp, ordinal int) error {
	if h.qAligned.Len() == 0 || h.sAligned.Len() == 0 {
		return errors.New("alignment has no Query/Sbjct rows")
	}
	if p.mode.Translated() && h.frame == 0 {
		return errors.New("translated alignment without Frame")
	}
	if !p.top.Admits(h.bits) {
		return nil
	}

	qa, sa := h.qAligned.String(), h.sAligned.String()
	m := &alignment.Match{
		Query:           query,
		Subject:         subj.name,
		SubjectLength:   subj.length,
		BitScore:        h.bits,
		Expect:          h.expect,
		RawScore:        h.raw,
		PercentIdentity: alignment.PercentIdentity(qa, sa),
		QueryStart:      h.qStart,
		QueryEnd:        h.qEnd,
		SubjectStart:    h.sStart,
		SubjectEnd:      h.sEnd,
		QueryAligned:    qa,
		SubjectAligned:  sa,
		Mode:            p.mode,
		Ordinal:         ordinal,
	}
	switch p.mode {
	case alignment.BlastN:
		m.QueryStrand, m.SubjectStrand = h.strands[0], h.strands[1]
	case alignment.BlastX:
		m.Frame = h.frame
		if h.frame < 0 {
			m.QueryStrand = alignment.Minus
		}
	}
	p.top.Offer(m)
	return nil
}
