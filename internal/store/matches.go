package store

import (
	"bytes"
	"context"
	"fmt"

	"alnstream/internal/alignment"
	"alnstream/internal/metrics"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// DefaultBatchSize is the number of rows per COPY.
const DefaultBatchSize = 5000

var matchColumns = []string{
	"file_key", "query", "rank", "query_strand", "subject", "subject_length", "subject_strand",
	"bit_score", "expect", "raw_score", "percent_identity",
	"query_start", "query_end", "subject_start", "subject_end",
	"query_aligned", "subject_aligned", "frame",
}

// MatchWriter copies canonical matches of one file into alignment_matches.
// Rows are buffered and sent with COPY once BatchSize is reached and on
// Close. Unaligned queries are not stored.
type MatchWriter struct {
	db        DBTX
	fileKey   string
	batchSize int
	rows      [][]any
	copied    int64
}

// NewMatchWriter returns a writer for the file identified by fileKey.
func NewMatchWriter(db DBTX, fileKey string, batchSize int) *MatchWriter {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &MatchWriter{
		db:        db,
		fileKey:   fileKey,
		batchSize: batchSize,
		rows:      make([][]any, 0, batchSize),
	}
}

// Copied is the number of rows sent so far.
func (w *MatchWriter) Copied() int64 { return w.copied }

func (w *MatchWriter) WriteBatch(ctx context.Context, batch []byte, matches int) error {
	if matches == 0 {
		return nil
	}
	rank := 0
	for line := range bytes.Lines(batch) {
		m, aligned, err := alignment.ParseLine(string(line))
		if err != nil {
			return fmt.Errorf("decode canonical line: %w", err)
		}
		if !aligned {
			continue
		}
		rank++
		w.rows = append(w.rows, matchRow(w.fileKey, rank, &m))
		if len(w.rows) >= w.batchSize {
			if err := w.flush(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close sends the remaining rows.
func (w *MatchWriter) Close(ctx context.Context) error {
	return w.flush(ctx)
}

func (w *MatchWriter) flush(ctx context.Context) error {
	if len(w.rows) == 0 {
		return nil
	}
	n, err := w.db.CopyFrom(ctx, pgx.Identifier{"alignment_matches"}, matchColumns, pgx.CopyFromRows(w.rows))
	if err != nil {
		return fmt.Errorf("copy matches: %w", err)
	}
	w.copied += n
	metrics.SinkRowsTotal.WithLabelValues("postgres").Add(float64(n))
	log.Debug().Int64("rows", n).Msg("Copied match batch")
	clear(w.rows)
	w.rows = w.rows[:0]
	return nil
}

func matchRow(fileKey string, rank int, m *alignment.Match) []any {
	var frame any
	if m.Mode.Translated() {
		frame = int16(m.Frame)
	}
	return []any{
		fileKey, m.Query, int32(rank), m.QueryStrand.String(), m.Subject, int32(m.SubjectLength), m.SubjectStrand.String(),
		m.BitScore, m.Expect, int32(m.RawScore), m.PercentIdentity,
		int32(m.QueryStart), int32(m.QueryEnd), int32(m.SubjectStart), int32(m.SubjectEnd),
		m.QueryAligned, m.SubjectAligned, frame,
	}
}
