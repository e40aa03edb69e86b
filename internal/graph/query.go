package graph

import (
	"context"
	"fmt"
)

// Hit is one stored HIT edge.
type Hit struct {
	Read     string
	Subject  string
	File     string
	Rank     int64
	BitScore float64
	Expect   float64
	Identity float64
}

// TopHits returns the strongest hits of read across all files, best first.
func TopHits(ctx context.Context, runner Runner, read string, limit int) ([]Hit, error) {
	if limit < 1 {
		limit = 10
	}
	rows, err := runner.Query(ctx, `
		MATCH (r:Read {name: $read})-[h:HIT]->(s:Reference)
		RETURN s.name AS subject, h.file AS file, h.rank AS rank,
		       h.bitScore AS bitScore, h.expect AS expect, h.identity AS identity
		ORDER BY h.bitScore DESC, h.file, h.rank
		LIMIT $limit
	`, map[string]any{"read": read, "limit": int64(limit)})
	if err != nil {
		return nil, fmt.Errorf("query hits: %w", err)
	}

	hits := make([]Hit, 0, len(rows))
	for _, row := range rows {
		h := Hit{Read: read}
		h.Subject, _ = row["subject"].(string)
		h.File, _ = row["file"].(string)
		h.Rank, _ = row["rank"].(int64)
		h.BitScore, _ = row["bitScore"].(float64)
		h.Expect, _ = row["expect"].(float64)
		h.Identity, _ = row["identity"].(float64)
		hits = append(hits, h)
	}
	return hits, nil
}
