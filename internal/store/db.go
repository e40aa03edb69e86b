// Package store persists canonical matches and the ingest ledger in
// PostgreSQL.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// DBTX is the subset of pgxpool.Pool, pgx.Conn and pgx.Tx the store uses.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS alignment_files (
	file_key    TEXT PRIMARY KEY,
	path        TEXT NOT NULL,
	format      TEXT NOT NULL,
	mode        TEXT NOT NULL,
	reads       BIGINT NOT NULL DEFAULT 0,
	matches     BIGINT NOT NULL DEFAULT 0,
	unaligned   BIGINT NOT NULL DEFAULT 0,
	errors      BIGINT NOT NULL DEFAULT 0,
	ingested_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS alignment_matches (
	file_key         TEXT NOT NULL,
	query            TEXT NOT NULL,
	rank             INTEGER NOT NULL,
	query_strand     TEXT NOT NULL,
	subject          TEXT NOT NULL,
	subject_length   INTEGER NOT NULL,
	subject_strand   TEXT NOT NULL,
	bit_score        DOUBLE PRECISION NOT NULL,
	expect           DOUBLE PRECISION NOT NULL,
	raw_score        INTEGER NOT NULL,
	percent_identity DOUBLE PRECISION NOT NULL,
	query_start      INTEGER NOT NULL,
	query_end        INTEGER NOT NULL,
	subject_start    INTEGER NOT NULL,
	subject_end      INTEGER NOT NULL,
	query_aligned    TEXT NOT NULL,
	subject_aligned  TEXT NOT NULL,
	frame            SMALLINT
);

CREATE INDEX IF NOT EXISTS alignment_matches_query_idx ON alignment_matches (file_key, query);
CREATE INDEX IF NOT EXISTS alignment_matches_subject_idx ON alignment_matches (subject);
`

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	log.Info().Msg("Database schema ensured")
	return nil
}
