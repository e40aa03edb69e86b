package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	cypher string
	params map[string]any
}

type fakeRunner struct {
	runs   []call
	rows   []map[string]any
	runErr error
}

func (f *fakeRunner) Run(_ context.Context, cypher string, params map[string]any) error {
	if f.runErr != nil {
		return f.runErr
	}
	f.runs = append(f.runs, call{cypher, params})
	return nil
}

func (f *fakeRunner) Query(_ context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	f.runs = append(f.runs, call{cypher, params})
	return f.rows, nil
}

const batch = "read_1\tMinus\tWP_B\t300\tPlus\t55.3\t1e-20\t120\t90.00\t40\t11\t1\t10\tMKLVAAGQRT\tMKLVAAGQRS\t-3\n" +
	"read_1\tPlus\tWP_A\t516\tPlus\t46.6\t4.3e-17\t100\t90.00\t4\t33\t19\t28\tSAEANENERH\tSAEANENERR\t1\n"

func TestEnsureSchema(t *testing.T) {
	r := &fakeRunner{}
	require.NoError(t, EnsureSchema(context.Background(), r))
	require.Len(t, r.runs, 2)
	assert.Contains(t, r.runs[0].cypher, "(r:Read)")

	r.runErr = errors.New("unavailable")
	assert.ErrorIs(t, EnsureSchema(context.Background(), r), r.runErr)
}

func TestHitWriter(t *testing.T) {
	ctx := context.Background()
	r := &fakeRunner{}
	w := NewHitWriter(r, "run1.maf", 3)

	require.NoError(t, w.WriteBatch(ctx, []byte(batch), 2))
	assert.Empty(t, r.runs)
	require.NoError(t, w.WriteBatch(ctx, []byte("read_2\n"), 0))
	require.Len(t, r.runs, 2, "hits then unaligned reads")

	hits := r.runs[0]
	assert.Equal(t, "run1.maf", hits.params["file"])
	rows := hits.params["rows"].([]map[string]any)
	require.Len(t, rows, 2)
	assert.Equal(t, "WP_B", rows[0]["subject"])
	assert.Equal(t, int64(1), rows[0]["rank"])
	assert.Equal(t, int64(-3), rows[0]["frame"])
	assert.Equal(t, "Minus", rows[0]["queryStrand"])
	assert.Equal(t, int64(516), rows[1]["subjectLength"])
	assert.Equal(t, []string{"read_2"}, r.runs[1].params["names"])
	assert.Equal(t, int64(2), w.Written())

	require.NoError(t, w.Close(ctx))
	assert.Len(t, r.runs, 2, "nothing pending")
}

func TestHitWriterCloseFlushes(t *testing.T) {
	r := &fakeRunner{}
	w := NewHitWriter(r, "f", 0)
	line := "c\tPlus\tchr1\t10\tMinus\t100.0\t3e-20\t54\t100.00\t1\t10\t10\t1\tACGT\tACGT\n"
	require.NoError(t, w.WriteBatch(context.Background(), []byte(line), 1))
	assert.Empty(t, r.runs)
	require.NoError(t, w.Close(context.Background()))
	require.Len(t, r.runs, 1)
	rows := r.runs[0].params["rows"].([]map[string]any)
	assert.Nil(t, rows[0]["frame"])
}

func TestHitWriterRejectsGarbage(t *testing.T) {
	w := NewHitWriter(&fakeRunner{}, "f", 1)
	assert.Error(t, w.WriteBatch(context.Background(), []byte("a\tb\n"), 1))
}

func TestTopHits(t *testing.T) {
	r := &fakeRunner{rows: []map[string]any{
		{"subject": "WP_B", "file": "run1.maf", "rank": int64(1), "bitScore": 55.3, "expect": 1e-20, "identity": 0.9},
		{"subject": "WP_A", "file": "run1.maf", "rank": int64(2), "bitScore": 46.6, "expect": 4.3e-17, "identity": 0.9},
	}}
	hits, err := TopHits(context.Background(), r, "read_1", 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, Hit{Read: "read_1", Subject: "WP_B", File: "run1.maf", Rank: 1, BitScore: 55.3, Expect: 1e-20, Identity: 0.9}, hits[0])
	assert.Equal(t, int64(10), r.runs[0].params["limit"])
}
