package convert

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"alnstream/internal/filewalker"
	"alnstream/internal/textutil"

	"github.com/klauspost/compress/gzip"
)

// Sink consumes the canonical text of one query at a time. matches is the
// number of match lines in batch, 0 when the query is unaligned. batch is
// only valid during the call.
type Sink interface {
	WriteBatch(ctx context.Context, batch []byte, matches int) error
	Close(ctx context.Context) error
}

// FileSink writes canonical text to a file or stdout, optionally gzipped.
type FileSink struct {
	path    string
	w       *bufio.Writer
	zw      *gzip.Writer
	f       *os.File
	written int64
}

// NewFileSink creates path ("-" for stdout). With compress the stream is
// gzip encoded.
func NewFileSink(path string, compress bool) (*FileSink, error) {
	s := &FileSink{path: path}
	var dst io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create output: %w", err)
		}
		s.f = f
		dst = f
	}
	if compress {
		s.zw = gzip.NewWriter(dst)
		dst = s.zw
	}
	s.w = bufio.NewWriterSize(dst, 1<<20)
	return s, nil
}

// Path is where the sink writes.
func (s *FileSink) Path() string { return s.path }

// Written is the number of uncompressed bytes accepted so far.
func (s *FileSink) Written() int64 { return s.written }

func (s *FileSink) WriteBatch(_ context.Context, batch []byte, _ int) error {
	n, err := s.w.Write(batch)
	s.written += int64(n)
	if err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

// Close flushes and closes the output. Stdout is flushed but left open.
func (s *FileSink) Close(context.Context) error {
	err := s.w.Flush()
	if s.zw != nil {
		if zerr := s.zw.Close(); err == nil {
			err = zerr
		}
	}
	if s.f != nil {
		if cerr := s.f.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("close %s: %w", s.path, err)
	}
	return nil
}

// OutputName derives the output file name of input: the compression and
// format suffixes are replaced by ".canon", plus ".gz" when compressed.
func OutputName(input string, compress bool) string {
	return outputStem(input) + canonExt(compress)
}

func outputStem(input string) string {
	if input == "-" {
		return "stdin"
	}
	base := filepath.Base(filewalker.TrimCompression(input))
	if ext := filepath.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

func canonExt(compress bool) string {
	if compress {
		return ".canon.gz"
	}
	return ".canon"
}

// PlanOutputs assigns every input a distinct file under dir. The first input
// to claim a name keeps it; later inputs with the same name get a suffix
// from the hash of their absolute path. Listing an input twice is an error.
func PlanOutputs(inputs []string, dir string, compress bool) (map[string]string, error) {
	plan := make(map[string]string, len(inputs))
	owner := make(map[string]string, len(inputs))
	for _, in := range inputs {
		if _, dup := plan[in]; dup {
			return nil, fmt.Errorf("input %s is listed more than once", in)
		}
		name := OutputName(in, compress)
		if prev, taken := owner[name]; taken {
			abs := in
			if in != "-" {
				if a, err := filepath.Abs(in); err == nil {
					abs = a
				}
			}
			name = outputStem(in) + "." + textutil.Hash(abs)[:8] + canonExt(compress)
			if _, taken := owner[name]; taken {
				return nil, fmt.Errorf("inputs %s and %s map to the same output %s", prev, in, name)
			}
		}
		owner[name] = in
		plan[in] = filepath.Join(dir, name)
	}
	return plan, nil
}
