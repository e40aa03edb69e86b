package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"alnstream/internal/convert"
	"alnstream/internal/filewalker"
	"alnstream/internal/metrics"
	"alnstream/internal/worker"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func convertCmd(s *settings) *cobra.Command {
	var (
		output   string
		compress bool
	)
	cmd := &cobra.Command{
		Use:   "convert <input>...",
		Short: "Write the canonical matches of alignment files",
		Long: `Converts each input (file, directory or "-" for stdin) into canonical lines.
Without -o the lines go to stdout. With one input and a file name for -o they
go to that file. Otherwise -o names a directory that receives one
<input>.canon file per input.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd.Context(), s, args, output, compress)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file or directory (stdout when empty)")
	cmd.Flags().BoolVar(&compress, "gzip", false, "Gzip the canonical output")
	return cmd
}

func runConvert(parent context.Context, s *settings, args []string, output string, compress bool) error {
	ctx, cancel := setupContext(parent)
	defer cancel()

	cfg := s.load()
	metrics.Serve(ctx, cfg.MetricsAddr)

	opts, err := s.convertOptions(cfg)
	if err != nil {
		return err
	}
	opts.Gzip = compress

	entries, err := filewalker.NewWalker().Expand(args)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no alignment files found")
	}

	workers := cfg.WorkerCount
	switch {
	case output == "" || output == "-":
		opts.Output = "-"
		workers = 1
	case isDirTarget(output, len(entries)):
		if err := os.MkdirAll(output, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		opts.OutDir = output
		if opts.Outputs, err = convert.PlanOutputs(entryPaths(entries), output, compress); err != nil {
			return err
		}
	default:
		opts.Output = output
	}

	pool := worker.NewPool(workers, func(ctx context.Context, e filewalker.FileEntry) (convert.Result, error) {
		return convert.File(ctx, e, opts)
	})
	return summarize(pool.Execute(ctx, entries))
}

func entryPaths(entries []filewalker.FileEntry) []string {
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}
	return paths
}

// isDirTarget reports whether -o names a directory: it exists as one, ends
// in a separator, or several inputs share it.
func isDirTarget(output string, inputs int) bool {
	if info, err := os.Stat(output); err == nil {
		return info.IsDir()
	}
	return inputs > 1 || strings.HasSuffix(output, string(filepath.Separator))
}

func summarize(results []worker.Task[filewalker.FileEntry, convert.Result]) error {
	var (
		failed           int
		reads, matches   int64
		unaligned, bytes int64
	)
	for _, r := range results {
		if r.Err != nil {
			failed++
			log.Error().Err(r.Err).Str("file", r.Input.Path).Msg("Conversion failed")
			continue
		}
		reads += r.Result.Stats.Reads
		matches += r.Result.Stats.Matches
		unaligned += r.Result.Stats.Unaligned
		bytes += r.Result.Bytes
	}

	log.Info().
		Int("files", len(results)).
		Int("failed", failed).
		Str("reads", humanize.Comma(reads)).
		Str("matches", humanize.Comma(matches)).
		Str("unaligned", humanize.Comma(unaligned)).
		Str("output", humanize.Bytes(uint64(bytes))).
		Msg("Conversion complete")

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}
