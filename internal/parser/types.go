package parser

import (
	"errors"

	"alnstream/internal/alignment"
)

// EndOfStream is the count Next returns together with io.EOF.
const EndOfStream = -1

const (
	DefaultMaxMatchesPerRead = 100
	DefaultMaxErrors         = 1000
)

var (
	// ErrFormatMismatch means the input does not look like the dialect the
	// parser was asked to read.
	ErrFormatMismatch = errors.New("input does not match alignment format")
	// ErrMissingHeader means the scoring constants were not found.
	ErrMissingHeader = errors.New("failed to parse lambda and K")
	// ErrTooManyErrors aborts iteration once the malformed-record count
	// reaches Options.MaxErrors.
	ErrTooManyErrors = errors.New("too many errors")
	// ErrUnsupportedFormat means no parser handles the format/mode pair.
	ErrUnsupportedFormat = errors.New("unsupported alignment format")
)

// Iterator produces the canonical matches of one query per call.
type Iterator interface {
	// Next reads every alignment of the next query and returns the number
	// of canonical match lines written (0 for an unaligned query). At the
	// end of input it returns EndOfStream and io.EOF.
	Next() (int, error)
	// Bytes returns the canonical text of the last batch. The slice is
	// only valid until the next call to Next.
	Bytes() []byte
	// Mode is the resolved alignment mode.
	Mode() alignment.Mode
	// Stats returns running counters.
	Stats() Stats
	// Close releases the input. It is safe at any point.
	Close() error
}

// Options configures a parser.
type Options struct {
	// MaxMatchesPerRead is the retention cap K.
	MaxMatchesPerRead int
	// MaxErrors is the number of malformed records that aborts iteration.
	MaxErrors int
	// Mode selects BlastN/BlastX/BlastP. ModeUnknown lets the parser infer it.
	Mode alignment.Mode
	// Name identifies the input in log messages.
	Name string
}

func (o Options) withDefaults() Options {
	if o.MaxMatchesPerRead < 1 {
		o.MaxMatchesPerRead = DefaultMaxMatchesPerRead
	}
	if o.MaxErrors < 1 {
		o.MaxErrors = DefaultMaxErrors
	}
	return o
}

// Stats counts what a parser has produced so far.
type Stats struct {
	Reads     int64
	Matches   int64
	Unaligned int64
	Errors    int64
	Lines     int64
}
