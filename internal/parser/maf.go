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

// mafBlock is one LAST alignment: the "a" score line followed by the
// subject and query "s" lines.
//
//	a score=159 EG2=1e-08 E=4.3e-17
//	s WP_005682092.1                       18 33 + 516 SAEANENERRWNDDKIDRKNQDSTNNYDKTRMK
//	s HISEQ:457:C5366ACXX:2:1101:2641:2226  1 99 + 100 TAEANENERHWNDDKIERKNQDPTNHYDKSRMR
type mafBlock struct {
	score   string
	subject string
	query   string
	line    int64
}

func (b *mafBlock) queryName() string {
	return textutil.NextToken(b.query, "s")
}

// sequenceRow is a parsed "s" line.
type sequenceRow struct {
	name      string
	start0    int
	alignLen  int
	reverse   bool
	srcLength int
	aligned   string
}

func parseSequenceRow(line string) (sequenceRow, error) {
	f := strings.Fields(line)
	if len(f) < 7 {
		return sequenceRow{}, fmt.Errorf("sequence line has %d fields, want 7", len(f))
	}
	var (
		r   = sequenceRow{name: f[1], aligned: f[6]}
		err error
	)
	if r.start0, err = strconv.Atoi(f[2]); err != nil {
		return sequenceRow{}, fmt.Errorf("parse start: %w", err)
	}
	if r.alignLen, err = strconv.Atoi(f[3]); err != nil {
		return sequenceRow{}, fmt.Errorf("parse alignment length: %w", err)
	}
	switch f[4] {
	case "+":
	case "-":
		r.reverse = true
	default:
		return sequenceRow{}, fmt.Errorf("bad strand %q", f[4])
	}
	if r.srcLength, err = strconv.Atoi(f[5]); err != nil {
		return sequenceRow{}, fmt.Errorf("parse sequence length: %w", err)
	}
	return r, nil
}

// MAFParser reads LAST output in MAF format.
type MAFParser struct {
	iteratorBase
	lambda  float64
	k       float64
	pending *mafBlock
}

// NewMAFParser checks the header, reads lambda and K, and loads the first
// alignment block. The cursor is closed if construction fails.
func NewMAFParser(cur *linereader.Cursor, opts Options) (*MAFParser, error) {
	p := &MAFParser{iteratorBase: newBase(cur, opts), lambda: -1, k: -1}
	if err := p.init(); err != nil {
		_ = cur.Close()
		return nil, err
	}
	return p, nil
}

func (p *MAFParser) init() error {
	if err := p.checkSignature(); err != nil {
		return err
	}
	if err := p.readHeader(); err != nil {
		return err
	}
	if err := p.advance(); err != nil {
		return err
	}
	if p.mode == alignment.ModeUnknown {
		p.mode = alignment.BlastN
		if p.pending != nil {
			if m := InferMAFMode(p.pending.subject, p.pending.query); m != alignment.ModeUnknown {
				p.mode = m
			}
		}
	}
	if p.mode != alignment.BlastN && p.mode != alignment.BlastX && p.mode != alignment.BlastP {
		return fmt.Errorf("%w: MAF in mode %s", ErrUnsupportedFormat, p.mode)
	}
	return nil
}

// InferMAFMode guesses the alignment mode from the subject and query "s"
// lines of one block. LAST prints translated queries as protein but sizes
// them in nucleotides, so a query span of three times its residue count
// marks a BlastX alignment.
func InferMAFMode(subjectLine, queryLine string) alignment.Mode {
	subj, err := parseSequenceRow(subjectLine)
	if err != nil {
		return alignment.ModeUnknown
	}
	query, err := parseSequenceRow(queryLine)
	if err != nil {
		return alignment.ModeUnknown
	}
	subjNuc := textutil.IsNucleotide(subj.aligned)
	queryNuc := textutil.IsNucleotide(query.aligned)
	switch {
	case subjNuc && queryNuc:
		return alignment.BlastN
	case subjNuc:
		return alignment.ModeUnknown
	case queryNuc:
		return alignment.BlastX
	case query.alignLen == 3*residues(query.aligned):
		return alignment.BlastX
	}
	return alignment.BlastP
}

func residues(aligned string) int {
	n := 0
	for i := 0; i < len(aligned); i++ {
		switch aligned[i] {
		case '-', '/', '\\':
		default:
			n++
		}
	}
	return n
}

// checkSignature requires the first non-blank line to be a MAF comment.
func (p *MAFParser) checkSignature() error {
	for {
		line, ok := p.cur.Peek()
		if !ok {
			return fmt.Errorf("%w: empty input, want LAST MAF", ErrFormatMismatch)
		}
		if strings.TrimSpace(line) == "" {
			_, _ = p.cur.Next()
			continue
		}
		if !strings.HasPrefix(line, "#") {
			return fmt.Errorf("%w: line %d is not a MAF header: %q", ErrFormatMismatch,
				p.cur.LineNumber()+1, textutil.Truncate(line, 40))
		}
		return nil
	}
}

// readHeader scans the comment header for "lambda=... K=...".
func (p *MAFParser) readHeader() error {
	for {
		line, ok := p.cur.Peek()
		if !ok || strings.HasPrefix(line, "a ") {
			break
		}
		_, _ = p.cur.Next()
		lambda, err := strconv.ParseFloat(textutil.NextToken(line, "lambda="), 64)
		if err != nil {
			continue
		}
		k, err := strconv.ParseFloat(textutil.NextToken(line, "K="), 64)
		if err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrMissingHeader, p.cur.LineNumber(), err)
		}
		p.lambda, p.k = lambda, k
		break
	}
	if p.lambda == -1 || p.k == -1 {
		return ErrMissingHeader
	}
	if p.k <= 0 {
		return fmt.Errorf("%w: K=%g is not positive", ErrMissingHeader, p.k)
	}
	return p.cur.Err()
}

// advance loads the next complete block into the lookahead, or leaves it
// empty at end of input.
func (p *MAFParser) advance() error {
	p.pending = nil
	for {
		score, ok := p.cur.NextStartingWith("a ")
		if !ok {
			return nil
		}
		blk := mafBlock{score: score, line: p.cur.LineNumber()}
		subject, ok := p.nextSequenceLine()
		if ok {
			blk.subject = subject
			blk.query, ok = p.nextSequenceLine()
		}
		if ok {
			p.pending = &blk
			return nil
		}
		if !p.cur.HasNext() {
			return nil
		}
		err := fmt.Errorf("alignment block has fewer than two sequence lines")
		if ferr := p.recordError(blk.line, err); ferr != nil {
			return ferr
		}
	}
}

// nextSequenceLine returns the next "s" line of the current block. It stops
// without consuming at the next "a" line.
func (p *MAFParser) nextSequenceLine() (string, bool) {
	for {
		line, ok := p.cur.Peek()
		if !ok || strings.HasPrefix(line, "a ") {
			return "", false
		}
		_, _ = p.cur.Next()
		if strings.HasPrefix(line, "s ") {
			return line, true
		}
	}
}

// Next implements Iterator.
func (p *MAFParser) Next() (int, error) {
	if !p.begin() {
		return EndOfStream, p.fatal
	}
	if p.pending == nil {
		return p.endOfStream()
	}

	query := p.pending.queryName()
	p.stats.Reads++

	for ordinal := 0; p.pending != nil && p.pending.queryName() == query; ordinal++ {
		if err := p.offer(p.pending, query, ordinal); err != nil {
			if ferr := p.recordError(p.pending.line, err); ferr != nil {
				return p.abort(ferr)
			}
		}
		if err := p.advance(); err != nil {
			return p.abort(err)
		}
	}
	return p.finish(query), nil
}

var errMissingExpect = errors.New("missing E= value")

// offer derives a match from blk and hands it to the retention policy.
func (p *MAFParser) offer(blk *mafBlock, query string, ordinal int) error {
	q, err := parseSequenceRow(blk.query)
	if err != nil {
		return fmt.Errorf("query line: %w", err)
	}
	s, err := parseSequenceRow(blk.subject)
	if err != nil {
		return fmt.Errorf("subject line: %w", err)
	}
	raw, err := strconv.Atoi(textutil.NextToken(blk.score, "score="))
	if err != nil {
		return fmt.Errorf("parse score: %w", err)
	}
	expectTok := textutil.NextToken(blk.score, "E=")
	if expectTok == "" {
		return errMissingExpect
	}
	expect, err := strconv.ParseFloat(expectTok, 64)
	if err != nil {
		return fmt.Errorf("parse expect: %w", err)
	}

	bits := alignment.BitScore(p.lambda, p.k, raw)
	if !p.top.Admits(bits) {
		return nil
	}

	m := &alignment.Match{
		Query:           query,
		Subject:         s.name,
		SubjectLength:   s.srcLength,
		BitScore:        bits,
		Expect:          expect,
		RawScore:        raw,
		PercentIdentity: alignment.PercentIdentity(q.aligned, s.aligned),
		QueryAligned:    q.aligned,
		SubjectAligned:  s.aligned,
		Mode:            p.mode,
		Ordinal:         ordinal,
	}
	m.QueryStart, m.QueryEnd = alignment.Normalize(q.start0, q.alignLen, q.reverse)
	m.SubjectStart, m.SubjectEnd = alignment.Normalize(s.start0, s.alignLen, s.reverse)
	if q.reverse {
		m.QueryStrand = alignment.Minus
	}
	if s.reverse {
		m.SubjectStrand = alignment.Minus
	}
	if p.mode.Translated() {
		m.Frame = alignment.TranslatedFrame(m.QueryStart, q.reverse, q.srcLength)
	}
	p.top.Offer(m)
	return nil
}
