package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"alnstream/internal/alignment"
	"alnstream/internal/config"
	"alnstream/internal/convert"
	"alnstream/internal/dispatch"
	"alnstream/internal/parser"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// settings holds the flags shared by every command.
type settings struct {
	format      string
	mode        string
	maxMatches  int
	maxErrors   int
	workers     int
	batchSize   int
	metricsAddr string
	quiet       bool
	verbose     bool
}

// Execute runs the CLI application.
func Execute() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	s := &settings{}
	rootCmd := &cobra.Command{
		Use:   "alnstream",
		Short: "Stream sequence-alignment reports into canonical per-query matches",
		Long: `alnstream reads LAST MAF and BLAST text reports, keeps the best matches of
every query and writes them as tab-separated canonical lines. The lines can
also be loaded into PostgreSQL and Neo4j.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			switch {
			case s.quiet:
				zerolog.SetGlobalLevel(zerolog.ErrorLevel)
			case s.verbose:
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			default:
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}

	f := rootCmd.PersistentFlags()
	f.StringVar(&s.format, "format", "", "Input format: maf or blast (detected when empty)")
	f.StringVar(&s.mode, "mode", "", "Alignment mode: BlastN, BlastX or BlastP (detected when empty)")
	f.IntVar(&s.maxMatches, "max-matches", 0, "Matches kept per query (MAX_MATCHES_PER_READ)")
	f.IntVar(&s.maxErrors, "max-errors", 0, "Malformed records tolerated per file (MAX_ERRORS)")
	f.IntVar(&s.workers, "workers", 0, "Files converted in parallel (WORKER_COUNT)")
	f.StringVar(&s.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (METRICS_ADDR)")
	f.BoolVarP(&s.quiet, "quiet", "q", false, "Only log errors")
	f.BoolVarP(&s.verbose, "verbose", "v", false, "Log debug messages")

	rootCmd.AddCommand(convertCmd(s))
	rootCmd.AddCommand(detectCmd(s))
	rootCmd.AddCommand(ingestCmd(s))
	rootCmd.AddCommand(hitsCmd(s))
	return rootCmd
}

// load merges the environment and the flags; flags win.
func (s *settings) load() *config.Config {
	cfg := config.Load()
	if s.maxMatches > 0 {
		cfg.MaxMatchesPerRead = s.maxMatches
	}
	if s.maxErrors > 0 {
		cfg.MaxErrors = s.maxErrors
	}
	if s.workers > 0 {
		cfg.WorkerCount = s.workers
	}
	if s.batchSize > 0 {
		cfg.BatchSize = s.batchSize
	}
	if s.metricsAddr != "" {
		cfg.MetricsAddr = s.metricsAddr
	}
	return cfg
}

// convertOptions builds the per-file options from flags and config.
func (s *settings) convertOptions(cfg *config.Config) (convert.Options, error) {
	format, err := dispatch.ParseFormat(s.format)
	if err != nil {
		return convert.Options{}, err
	}
	mode, err := alignment.ParseMode(s.mode)
	if err != nil {
		return convert.Options{}, fmt.Errorf("%w: %v", parser.ErrUnsupportedFormat, err)
	}
	return convert.Options{
		Format: format,
		Mode:   mode,
		Parser: parser.Options{
			MaxMatchesPerRead: cfg.MaxMatchesPerRead,
			MaxErrors:         cfg.MaxErrors,
		},
	}, nil
}

// setupContext returns a context cancelled by SIGINT or SIGTERM.
func setupContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			log.Warn().Msg("Received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
