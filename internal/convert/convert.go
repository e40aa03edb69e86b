// Package convert drives alignment iterators into canonical sinks.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"alnstream/internal/alignment"
	"alnstream/internal/dispatch"
	"alnstream/internal/filewalker"
	"alnstream/internal/metrics"
	"alnstream/internal/parser"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
)

// Result describes one converted input.
type Result struct {
	Input    string
	Output   string
	Format   dispatch.Format
	Mode     alignment.Mode
	Stats    parser.Stats
	Bytes    int64
	Duration time.Duration
}

// Run pulls every query from it and hands it to each sink in order. It
// stops at the first sink error, parser failure or cancellation. Sinks are
// not closed.
func Run(ctx context.Context, it parser.Iterator, sinks ...Sink) (parser.Stats, error) {
	for {
		if err := ctx.Err(); err != nil {
			return it.Stats(), err
		}
		n, err := it.Next()
		if errors.Is(err, io.EOF) {
			return it.Stats(), nil
		}
		if err != nil {
			return it.Stats(), err
		}
		batch := it.Bytes()
		for _, s := range sinks {
			if err := s.WriteBatch(ctx, batch, n); err != nil {
				return it.Stats(), err
			}
		}
	}
}

// Options configures a file conversion.
type Options struct {
	Parser parser.Options
	// Format and Mode override detection when not Unknown.
	Format dispatch.Format
	Mode   alignment.Mode
	// OutDir receives <name>.canon files. Output, if set, wins over OutDir,
	// and an entry in Outputs wins over both.
	OutDir  string
	Output  string
	Outputs map[string]string
	Gzip   bool
	// Discard skips the canonical file; only extra sinks receive matches.
	Discard bool
}

// OutputPath is where File writes the canonical text of input.
func (o Options) OutputPath(input string) string {
	if p, ok := o.Outputs[input]; ok {
		return p
	}
	if o.Output != "" {
		return o.Output
	}
	return filepath.Join(o.OutDir, OutputName(input, o.Gzip))
}

// File converts one input, writing its canonical text and feeding any extra
// sinks. Extra sinks are owned by the caller.
func File(ctx context.Context, entry filewalker.FileEntry, opts Options, extra ...Sink) (Result, error) {
	start := time.Now()
	res := Result{Input: entry.Path}
	if !opts.Discard {
		res.Output = opts.OutputPath(entry.Path)
	}

	format, mode := opts.Format, opts.Mode
	if format == dispatch.Unknown {
		format = entry.Format
	}
	if mode == alignment.ModeUnknown {
		mode = entry.Mode
	}
	format, mode, err := dispatch.Resolve(entry.Path, format, mode)
	if err != nil {
		metrics.FilesTotal.WithLabelValues("failed").Inc()
		return res, err
	}
	res.Format = format

	it, err := dispatch.Open(entry.Path, format, mode, opts.Parser)
	if err != nil {
		metrics.FilesTotal.WithLabelValues("failed").Inc()
		return res, err
	}
	defer it.Close()
	res.Mode = it.Mode()

	var (
		out   *FileSink
		sinks []Sink
	)
	if !opts.Discard {
		if out, err = NewFileSink(res.Output, opts.Gzip); err != nil {
			metrics.FilesTotal.WithLabelValues("failed").Inc()
			return res, err
		}
		sinks = append(sinks, out)
	}
	sinks = append(sinks, extra...)

	res.Stats, err = Run(ctx, it, sinks...)
	if out != nil {
		if cerr := out.Close(ctx); err == nil {
			err = cerr
		}
		res.Bytes = out.Written()
	}
	res.Duration = time.Since(start)
	observe(res, err)
	if err != nil {
		if out != nil && res.Output != "-" {
			_ = os.Remove(res.Output)
		}
		return res, fmt.Errorf("convert %s: %w", entry.Path, err)
	}

	log.Info().
		Str("file", entry.Path).
		Str("output", res.Output).
		Stringer("mode", res.Mode).
		Str("reads", humanize.Comma(res.Stats.Reads)).
		Str("matches", humanize.Comma(res.Stats.Matches)).
		Str("unaligned", humanize.Comma(res.Stats.Unaligned)).
		Int64("errors", res.Stats.Errors).
		Str("size", humanize.Bytes(uint64(res.Bytes))).
		Dur("took", res.Duration).
		Msg("File converted")
	return res, nil
}

func observe(res Result, err error) {
	label := res.Format.String()
	metrics.ReadsTotal.WithLabelValues(label).Add(float64(res.Stats.Reads))
	metrics.MatchesTotal.WithLabelValues(label).Add(float64(res.Stats.Matches))
	metrics.UnalignedTotal.WithLabelValues(label).Add(float64(res.Stats.Unaligned))
	metrics.RecordErrorsTotal.WithLabelValues(label).Add(float64(res.Stats.Errors))
	metrics.FileDuration.Observe(res.Duration.Seconds())
	if err != nil {
		metrics.FilesTotal.WithLabelValues("failed").Inc()
		return
	}
	metrics.FilesTotal.WithLabelValues("ok").Inc()
}
