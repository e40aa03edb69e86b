// Package graph mirrors canonical matches into Neo4j as
// (:Read)-[:HIT]->(:Reference).
package graph

import (
	"bytes"
	"context"
	"fmt"

	"alnstream/internal/alignment"
	"alnstream/internal/metrics"

	"github.com/rs/zerolog/log"
)

// DefaultBatchSize is the number of rows per UNWIND statement.
const DefaultBatchSize = 5000

const upsertHits = `
	UNWIND $rows AS row
	MERGE (r:Read {name: row.query})
	MERGE (s:Reference {name: row.subject})
	SET s.length = row.subjectLength
	MERGE (r)-[h:HIT {file: $file, rank: row.rank}]->(s)
	SET h.bitScore = row.bitScore,
	    h.expect = row.expect,
	    h.identity = row.identity,
	    h.queryStrand = row.queryStrand,
	    h.frame = row.frame
`

const upsertUnaligned = `
	UNWIND $names AS name
	MERGE (r:Read {name: name})
	SET r.unaligned = true
`

// EnsureSchema creates the uniqueness constraints.
func EnsureSchema(ctx context.Context, runner Runner) error {
	constraints := []string{
		"CREATE CONSTRAINT IF NOT EXISTS FOR (r:Read) REQUIRE r.name IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (s:Reference) REQUIRE s.name IS UNIQUE",
	}
	for _, c := range constraints {
		if err := runner.Run(ctx, c, nil); err != nil {
			return fmt.Errorf("create constraint: %w", err)
		}
	}
	log.Info().Msg("Graph schema ensured")
	return nil
}

// HitWriter batches the matches of one file into UNWIND upserts.
type HitWriter struct {
	runner    Runner
	file      string
	batchSize int
	rows      []map[string]any
	unaligned []string
	written   int64
}

// NewHitWriter returns a writer tagging every HIT with file.
func NewHitWriter(runner Runner, file string, batchSize int) *HitWriter {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &HitWriter{runner: runner, file: file, batchSize: batchSize}
}

// Written is the number of HIT rows sent so far.
func (w *HitWriter) Written() int64 { return w.written }

func (w *HitWriter) WriteBatch(ctx context.Context, batch []byte, matches int) error {
	rank := 0
	for line := range bytes.Lines(batch) {
		m, aligned, err := alignment.ParseLine(string(line))
		if err != nil {
			return fmt.Errorf("decode canonical line: %w", err)
		}
		if !aligned {
			w.unaligned = append(w.unaligned, m.Query)
			continue
		}
		rank++
		w.rows = append(w.rows, hitRow(rank, &m))
	}
	if len(w.rows)+len(w.unaligned) >= w.batchSize {
		return w.flush(ctx)
	}
	return nil
}

// Close sends what is left.
func (w *HitWriter) Close(ctx context.Context) error {
	return w.flush(ctx)
}

func (w *HitWriter) flush(ctx context.Context) error {
	if len(w.rows) > 0 {
		if err := w.runner.Run(ctx, upsertHits, map[string]any{"file": w.file, "rows": w.rows}); err != nil {
			return fmt.Errorf("upsert hits: %w", err)
		}
		n := int64(len(w.rows))
		w.written += n
		metrics.SinkRowsTotal.WithLabelValues("neo4j").Add(float64(n))
		w.rows = nil
	}
	if len(w.unaligned) > 0 {
		if err := w.runner.Run(ctx, upsertUnaligned, map[string]any{"names": w.unaligned}); err != nil {
			return fmt.Errorf("upsert unaligned reads: %w", err)
		}
		w.unaligned = nil
	}
	return nil
}

func hitRow(rank int, m *alignment.Match) map[string]any {
	row := map[string]any{
		"query":         m.Query,
		"subject":       m.Subject,
		"subjectLength": int64(m.SubjectLength),
		"rank":          int64(rank),
		"bitScore":      m.BitScore,
		"expect":        m.Expect,
		"identity":      m.PercentIdentity,
		"queryStrand":   m.QueryStrand.String(),
		"frame":         nil,
	}
	if m.Mode.Translated() {
		row["frame"] = int64(m.Frame)
	}
	return row
}
