package parser

import (
	"fmt"
	"io"

	"alnstream/internal/alignment"
	"alnstream/internal/linereader"
	"alnstream/internal/outbuf"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// iteratorBase is the state every dialect shares: input, retention,
// output buffer and the error tally.
type iteratorBase struct {
	cur    *linereader.Cursor
	opts   Options
	mode   alignment.Mode
	top    *alignment.TopK
	buf    *outbuf.Buffer
	stats  Stats
	fatal  error
	logger zerolog.Logger
}

func newBase(cur *linereader.Cursor, opts Options) iteratorBase {
	opts = opts.withDefaults()
	logger := log.Logger
	if opts.Name != "" {
		logger = log.With().Str("file", opts.Name).Logger()
	}
	return iteratorBase{
		cur:    cur,
		opts:   opts,
		mode:   opts.Mode,
		top:    alignment.NewTopK(opts.MaxMatchesPerRead),
		buf:    outbuf.New(outbuf.DefaultCapacity),
		logger: logger,
	}
}

func (b *iteratorBase) Bytes() []byte { return b.buf.Bytes() }

func (b *iteratorBase) Mode() alignment.Mode { return b.mode }

func (b *iteratorBase) Stats() Stats {
	s := b.stats
	s.Lines = b.cur.LineNumber()
	return s
}

func (b *iteratorBase) Close() error { return b.cur.Close() }

// begin clears per-query state. It returns false if a previous call failed
// fatally.
func (b *iteratorBase) begin() bool {
	b.buf.Reset()
	b.top.Reset()
	return b.fatal == nil
}

// recordError logs a malformed record and returns ErrTooManyErrors once the
// tally reaches the configured maximum.
func (b *iteratorBase) recordError(line int64, err error) error {
	b.stats.Errors++
	b.logger.Warn().Err(err).Int64("line", line).Msg("Error parsing record")
	if b.stats.Errors >= int64(b.opts.MaxErrors) {
		return fmt.Errorf("%w: %d malformed records, last near line %d", ErrTooManyErrors, b.stats.Errors, line)
	}
	return nil
}

// abort makes err sticky and drops the partial batch.
func (b *iteratorBase) abort(err error) (int, error) {
	b.fatal = err
	b.buf.Reset()
	b.top.Reset()
	b.logger.Error().Err(err).Int64("line", b.cur.LineNumber()).Msg("Aborting alignment parse")
	return EndOfStream, err
}

// endOfStream distinguishes a clean end from a failed read.
func (b *iteratorBase) endOfStream() (int, error) {
	if err := b.cur.Err(); err != nil {
		b.fatal = fmt.Errorf("read alignment input: %w", err)
		return EndOfStream, b.fatal
	}
	return EndOfStream, io.EOF
}

// finish serializes the retained matches of query, best first. A query
// without matches is written as its bare name.
func (b *iteratorBase) finish(query string) int {
	n := b.top.Len()
	if n == 0 {
		b.buf.AppendLine(query)
		b.stats.Unaligned++
		return 0
	}
	for _, m := range b.top.Sorted() {
		b.buf.AppendLine(m.Line())
	}
	b.stats.Matches += int64(n)
	b.top.Reset()
	return n
}
