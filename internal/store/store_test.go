package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []any
}

// fakeDB records statements and COPY batches.
type fakeDB struct {
	execs   []execCall
	copies  [][][]any
	rowErr  error
	copyErr error
}

type fakeRow struct{ err error }

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int)) = 1
	return nil
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("DELETE 2"), nil
}

func (f *fakeDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return fakeRow{err: f.rowErr}
}

func (f *fakeDB) CopyFrom(_ context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	if f.copyErr != nil {
		return 0, f.copyErr
	}
	if table.Sanitize() != `"alignment_matches"` || len(columns) != len(matchColumns) {
		return 0, errors.New("unexpected copy target")
	}
	var rows [][]any
	for src.Next() {
		vals, err := src.Values()
		if err != nil {
			return 0, err
		}
		rows = append(rows, append([]any(nil), vals...))
	}
	f.copies = append(f.copies, rows)
	return int64(len(rows)), nil
}

const blastxBatch = "read_1\tMinus\tWP_B\t300\tPlus\t55.3\t1e-20\t120\t90.00\t40\t11\t1\t10\tMKLVAAGQRT\tMKLVAAGQRS\t-3\n" +
	"read_1\tPlus\tWP_A\t516\tPlus\t46.6\t4.3e-17\t100\t90.00\t4\t33\t19\t28\tSAEANENERH\tSAEANENERR\t1\n"

func TestMatchWriterBatches(t *testing.T) {
	db := &fakeDB{}
	w := NewMatchWriter(db, "key1", 3)
	ctx := context.Background()

	require.NoError(t, w.WriteBatch(ctx, []byte(blastxBatch), 2))
	require.NoError(t, w.WriteBatch(ctx, []byte("read_2\n"), 0))
	assert.Empty(t, db.copies, "below batch size")

	require.NoError(t, w.WriteBatch(ctx, []byte(blastxBatch), 2))
	require.Len(t, db.copies, 1)
	assert.Len(t, db.copies[0], 3)

	require.NoError(t, w.Close(ctx))
	require.Len(t, db.copies, 2)
	assert.Len(t, db.copies[1], 1)
	assert.Equal(t, int64(4), w.Copied())

	first := db.copies[0][0]
	assert.Equal(t, "key1", first[0])
	assert.Equal(t, "read_1", first[1])
	assert.Equal(t, int32(1), first[2])
	assert.Equal(t, "Minus", first[3])
	assert.Equal(t, "WP_B", first[4])
	assert.Equal(t, int32(300), first[5])
	assert.InDelta(t, 55.3, first[7], 1e-9)
	assert.InDelta(t, 0.9, first[10], 1e-9)
	assert.Equal(t, int32(40), first[11])
	assert.Equal(t, int16(-3), first[17])

	// Rank restarts per query.
	assert.Equal(t, int32(2), db.copies[0][1][2])
	assert.Equal(t, int32(1), db.copies[0][2][2])

	require.NoError(t, w.Close(ctx))
	assert.Len(t, db.copies, 2, "nothing left to flush")
}

func TestMatchWriterUntranslatedFrameIsNull(t *testing.T) {
	db := &fakeDB{}
	w := NewMatchWriter(db, "k", 0)
	line := "contig_9\tPlus\tchr1\t248956422\tMinus\t100.0\t3e-20\t54\t100.00\t1\t10\t1000\t991\tACGTACGTAC\tACGTACGTAC\n"
	require.NoError(t, w.WriteBatch(context.Background(), []byte(line), 1))
	require.NoError(t, w.Close(context.Background()))
	require.Len(t, db.copies, 1)
	assert.Nil(t, db.copies[0][0][17])
}

func TestMatchWriterErrors(t *testing.T) {
	w := NewMatchWriter(&fakeDB{}, "k", 10)
	err := w.WriteBatch(context.Background(), []byte("a\tb\tc\n"), 1)
	assert.ErrorContains(t, err, "decode canonical line")

	boom := errors.New("connection reset")
	w = NewMatchWriter(&fakeDB{copyErr: boom}, "k", 1)
	err = w.WriteBatch(context.Background(), []byte(blastxBatch), 2)
	assert.ErrorIs(t, err, boom)
}

func TestLedger(t *testing.T) {
	ctx := context.Background()

	db := &fakeDB{rowErr: pgx.ErrNoRows}
	ok, err := NewLedger(db).Ingested(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	db.rowErr = nil
	ok, err = NewLedger(db).Ingested(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	db.rowErr = errors.New("timeout")
	_, err = NewLedger(db).Ingested(ctx, "k")
	assert.Error(t, err)

	l := NewLedger(db)
	require.NoError(t, l.Record(ctx, FileRecord{Key: "k", Path: "a.maf", Format: "maf", Mode: "BlastX", Reads: 2}))
	require.NoError(t, l.Forget(ctx, "k"))
	require.Len(t, db.execs, 3)
	assert.Contains(t, db.execs[0].sql, "ON CONFLICT (file_key)")
	assert.Equal(t, []any{"k", "a.maf", "maf", "BlastX", int64(2), int64(0), int64(0), int64(0)}, db.execs[0].args)
	assert.True(t, strings.Contains(db.execs[1].sql, "DELETE FROM alignment_matches"))

	require.NoError(t, Migrate(ctx, db))
	assert.Contains(t, db.execs[3].sql, "CREATE TABLE IF NOT EXISTS alignment_matches")
}

func TestFileKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.maf")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	k1, err := FileKey(path)
	require.NoError(t, err)
	k2, err := FileKey(path)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 64)

	require.NoError(t, os.WriteFile(path, []byte("xy"), 0o644))
	require.NoError(t, os.Chtimes(path, time.Now(), time.Now().Add(time.Hour)))
	k3, err := FileKey(path)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)

	_, err = FileKey(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
