package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"alnstream/internal/textutil"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// FileRecord is one row of the ingest ledger.
type FileRecord struct {
	Key       string
	Path      string
	Format    string
	Mode      string
	Reads     int64
	Matches   int64
	Unaligned int64
	Errors    int64
}

// FileKey identifies a file version by absolute path, size and mtime.
func FileKey(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("stat input: %w", err)
	}
	return textutil.Hash(abs + "\x00" + strconv.FormatInt(info.Size(), 10) + "\x00" +
		strconv.FormatInt(info.ModTime().UnixNano(), 10)), nil
}

// Ledger tracks which files have been ingested.
type Ledger struct {
	db DBTX
}

// NewLedger creates a ledger on db.
func NewLedger(db DBTX) *Ledger {
	return &Ledger{db: db}
}

// Ingested reports whether key is already recorded.
func (l *Ledger) Ingested(ctx context.Context, key string) (bool, error) {
	var one int
	err := l.db.QueryRow(ctx, `SELECT 1 FROM alignment_files WHERE file_key = $1`, key).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query ledger: %w", err)
	}
	return true, nil
}

// Forget deletes the matches stored under key, e.g. after a failed ingest.
func (l *Ledger) Forget(ctx context.Context, key string) error {
	tag, err := l.db.Exec(ctx, `DELETE FROM alignment_matches WHERE file_key = $1`, key)
	if err != nil {
		return fmt.Errorf("delete matches: %w", err)
	}
	if _, err := l.db.Exec(ctx, `DELETE FROM alignment_files WHERE file_key = $1`, key); err != nil {
		return fmt.Errorf("delete ledger entry: %w", err)
	}
	log.Debug().Str("key", textutil.Truncate(key, 12)).Int64("rows", tag.RowsAffected()).Msg("Forgot file matches")
	return nil
}

// Record upserts r.
func (l *Ledger) Record(ctx context.Context, r FileRecord) error {
	_, err := l.db.Exec(ctx, `
		INSERT INTO alignment_files (file_key, path, format, mode, reads, matches, unaligned, errors)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (file_key) DO UPDATE
		SET path = EXCLUDED.path, format = EXCLUDED.format, mode = EXCLUDED.mode,
		    reads = EXCLUDED.reads, matches = EXCLUDED.matches,
		    unaligned = EXCLUDED.unaligned, errors = EXCLUDED.errors,
		    ingested_at = now()
	`, r.Key, r.Path, r.Format, r.Mode, r.Reads, r.Matches, r.Unaligned, r.Errors)
	if err != nil {
		return fmt.Errorf("record file %s: %w", r.Path, err)
	}
	return nil
}
