package filewalker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"alnstream/internal/alignment"
	"alnstream/internal/dispatch"

	"github.com/rs/zerolog/log"
)

// SupportedExtensions lists the suffixes picked up when walking a directory.
var SupportedExtensions = map[string]bool{
	".maf":    true,
	".blast":  true,
	".blastn": true,
	".blastx": true,
	".blastp": true,
	".out":    true,
	".txt":    true,
}

// CompressionExtensions are stripped before the extension is checked.
var CompressionExtensions = map[string]bool{
	".gz":  true,
	".zst": true,
}

// FileEntry is an input ready for a parser.
type FileEntry struct {
	Path   string
	Format dispatch.Format
	Mode   alignment.Mode
}

// Walker expands command-line arguments into alignment files.
type Walker struct {
	// Sniff fills Format and Mode of each entry from its head.
	Sniff bool
}

// NewWalker returns a Walker that sniffs every file it finds.
func NewWalker() *Walker {
	return &Walker{Sniff: true}
}

// TrimCompression removes a trailing .gz or .zst.
func TrimCompression(path string) string {
	ext := filepath.Ext(path)
	if CompressionExtensions[strings.ToLower(ext)] {
		return strings.TrimSuffix(path, ext)
	}
	return path
}

// Supported reports whether path has an alignment suffix, compressed or not.
func Supported(path string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(TrimCompression(path)))]
}

// Expand resolves each argument. Files and "-" are taken as given;
// directories are walked for supported files, and files there whose format
// cannot be recognised are skipped.
func (w *Walker) Expand(args []string) ([]FileEntry, error) {
	var entries []FileEntry
	for _, arg := range args {
		if arg == "-" {
			entries = append(entries, FileEntry{Path: arg})
			continue
		}
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat input: %w", err)
		}
		if !info.IsDir() {
			e, err := w.entry(arg)
			if err != nil {
				return nil, err
			}
			entries = append(entries, e)
			continue
		}
		found, err := w.Walk(arg)
		if err != nil {
			return nil, err
		}
		entries = append(entries, found...)
	}
	return entries, nil
}

// Walk discovers all supported files under root, in lexical order.
func (w *Walker) Walk(root string) ([]FileEntry, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root path: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", root)
	}

	var entries []FileEntry

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Error walking path")
			return nil
		}
		if d.IsDir() || !Supported(path) {
			return nil
		}

		e, err := w.entry(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Skipping unreadable file")
			return nil
		}
		if w.Sniff && e.Format == dispatch.Unknown {
			log.Debug().Str("path", path).Msg("Skipping file in unknown format")
			return nil
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}

	log.Info().Int("count", len(entries)).Str("root", root).Msg("Discovered files")
	return entries, nil
}

func (w *Walker) entry(path string) (FileEntry, error) {
	e := FileEntry{Path: path}
	if !w.Sniff {
		return e, nil
	}
	format, mode, err := dispatch.DetectFile(path)
	if err != nil {
		return e, err
	}
	e.Format, e.Mode = format, mode
	return e, nil
}
