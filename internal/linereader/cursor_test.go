package linereader

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "# LAST version 1256\n\na score=10\r\ns ref 0 4 + 10 ACGT\ns read 0 4 + 4 ACGT"

func readAll(t *testing.T, c *Cursor) []string {
	t.Helper()
	var lines []string
	for c.HasNext() {
		s, err := c.Next()
		require.NoError(t, err)
		lines = append(lines, s)
	}
	return lines
}

func TestCursorLines(t *testing.T) {
	c := New(strings.NewReader(sample))
	defer c.Close()

	lines := readAll(t, c)
	assert.Equal(t, []string{
		"# LAST version 1256",
		"",
		"a score=10",
		"s ref 0 4 + 10 ACGT",
		"s read 0 4 + 4 ACGT",
	}, lines)
	assert.Equal(t, int64(5), c.LineNumber())

	_, err := c.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.NoError(t, c.Err())
}

func TestCursorPeekDoesNotConsume(t *testing.T) {
	c := New(strings.NewReader("one\ntwo\n"))

	s, ok := c.Peek()
	require.True(t, ok)
	assert.Equal(t, "one", s)
	assert.Equal(t, int64(0), c.LineNumber())

	s, err := c.Next()
	require.NoError(t, err)
	assert.Equal(t, "one", s)
	assert.Equal(t, int64(1), c.LineNumber())
}

func TestCursorNextStartingWith(t *testing.T) {
	c := New(strings.NewReader(sample))

	s, ok := c.NextStartingWith("s ")
	require.True(t, ok)
	assert.Equal(t, "s ref 0 4 + 10 ACGT", s)
	assert.Equal(t, int64(4), c.LineNumber())

	_, ok = c.NextStartingWith("a ")
	assert.False(t, ok)
	assert.False(t, c.HasNext())
}

func TestCursorLongLine(t *testing.T) {
	long := strings.Repeat("ACGT", 300_000)
	c := New(strings.NewReader("s read 0 4 + 4 " + long + "\nnext\n"))

	s, err := c.Next()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(s, long))

	s, err = c.Next()
	require.NoError(t, err)
	assert.Equal(t, "next", s)
}

func TestOpenGzip(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write([]byte(sample))
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	// No .gz suffix: detection is by magic number.
	path := filepath.Join(t.TempDir(), "reads.maf")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	c, err := Open(path)
	require.NoError(t, err)
	defer c.Close()
	assert.Len(t, readAll(t, c), 5)
}

func TestOpenZstd(t *testing.T) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = zw.Write([]byte(sample))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "reads.maf.zst")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	c, err := Open(path)
	require.NoError(t, err)
	defer c.Close()
	assert.Len(t, readAll(t, c), 5)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.maf"))
	assert.Error(t, err)
}

func TestCloseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.maf")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	c, err := Open(path)
	require.NoError(t, err)
	_, err = c.Next()
	require.NoError(t, err)

	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
	assert.False(t, c.HasNext())
}
