package linereader

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Cursor is a line-oriented reader with one line of lookahead.
// It is not safe for concurrent use and cannot be restarted.
type Cursor struct {
	r       *bufio.Reader
	closers []io.Closer

	peeked  string
	hasPeek bool
	done    bool
	err     error

	line int64
}

// New wraps an uncompressed reader. Closing the cursor closes r if it
// implements io.Closer.
func New(r io.Reader) *Cursor {
	c := &Cursor{r: bufio.NewReaderSize(r, 256*1024)}
	if rc, ok := r.(io.Closer); ok {
		c.closers = append(c.closers, rc)
	}
	return c
}

// Open opens path ("-" for stdin) and transparently decodes gzip and zstd
// input, detected by magic number.
func Open(path string) (*Cursor, error) {
	var src io.ReadCloser
	if path == "-" {
		src = io.NopCloser(os.Stdin)
	} else {
		fh, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open alignment file: %w", err)
		}
		src = fh
	}

	c, err := newDecoding(src)
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return c, nil
}

func newDecoding(src io.ReadCloser) (*Cursor, error) {
	br := bufio.NewReaderSize(src, 256*1024)
	sig, _ := br.Peek(len(zstdMagic))

	switch {
	case bytes.HasPrefix(sig, gzipMagic):
		gr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("gzip header: %w", err)
		}
		return &Cursor{
			r:       bufio.NewReaderSize(gr, 256*1024),
			closers: []io.Closer{gr, src},
		}, nil
	case bytes.HasPrefix(sig, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("zstd header: %w", err)
		}
		return &Cursor{
			r:       bufio.NewReaderSize(zr, 256*1024),
			closers: []io.Closer{zstdCloser{zr}, src},
		}, nil
	default:
		return &Cursor{r: br, closers: []io.Closer{src}}, nil
	}
}

type zstdCloser struct{ d *zstd.Decoder }

func (z zstdCloser) Close() error {
	z.d.Close()
	return nil
}

// fill makes sure the lookahead slot holds the next line if there is one.
func (c *Cursor) fill() {
	if c.hasPeek || c.done {
		return
	}
	s, err := c.r.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			c.err = err
		}
		if s == "" {
			c.done = true
			return
		}
	}
	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\r")
	c.peeked = s
	c.hasPeek = true
}

// HasNext reports whether another line is available.
func (c *Cursor) HasNext() bool {
	c.fill()
	return c.hasPeek
}

// Peek returns the next line without consuming it.
func (c *Cursor) Peek() (string, bool) {
	c.fill()
	return c.peeked, c.hasPeek
}

// Next consumes and returns the next line, or io.EOF once the input is
// exhausted.
func (c *Cursor) Next() (string, error) {
	c.fill()
	if !c.hasPeek {
		return "", io.EOF
	}
	c.hasPeek = false
	c.line++
	return c.peeked, nil
}

// NextStartingWith skips lines until one starts with prefix and returns it.
// It reports false if the stream ends first.
func (c *Cursor) NextStartingWith(prefix string) (string, bool) {
	for {
		s, err := c.Next()
		if err != nil {
			return "", false
		}
		if strings.HasPrefix(s, prefix) {
			return s, true
		}
	}
}

// LineNumber is the 1-based number of the last consumed line.
func (c *Cursor) LineNumber() int64 {
	return c.line
}

// Err returns the first read error other than io.EOF.
func (c *Cursor) Err() error {
	return c.err
}

// Close releases the underlying stream. Calling Close twice is harmless.
func (c *Cursor) Close() error {
	var err error
	for _, cl := range c.closers {
		if cerr := cl.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	c.closers = nil
	c.done = true
	c.hasPeek = false
	return err
}
