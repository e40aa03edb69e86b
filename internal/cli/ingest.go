package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"alnstream/internal/config"
	"alnstream/internal/convert"
	"alnstream/internal/filewalker"
	"alnstream/internal/graph"
	"alnstream/internal/metrics"
	"alnstream/internal/store"
	"alnstream/internal/worker"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type ingestFlags struct {
	postgres bool
	neo4j    bool
	force    bool
	outDir   string
}

func ingestCmd(s *settings) *cobra.Command {
	var fl ingestFlags
	cmd := &cobra.Command{
		Use:   "ingest <input>...",
		Short: "Load canonical matches into PostgreSQL and/or Neo4j",
		Long: `Parses each input and stores its retained matches. With --postgres the rows
are copied into alignment_matches and the file is recorded in alignment_files;
files already recorded are skipped unless --force is given. With --neo4j every
match becomes a HIT edge between a Read and a Reference node.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !fl.postgres && !fl.neo4j {
				return errors.New("choose at least one of --postgres and --neo4j")
			}
			return runIngest(cmd.Context(), s, args, fl)
		},
	}
	cmd.Flags().BoolVar(&fl.postgres, "postgres", false, "Copy matches into PostgreSQL (DATABASE_URL)")
	cmd.Flags().BoolVar(&fl.neo4j, "neo4j", false, "Write HIT edges to Neo4j (NEO4J_URI)")
	cmd.Flags().BoolVar(&fl.force, "force", false, "Re-ingest files already in the ledger")
	cmd.Flags().StringVarP(&fl.outDir, "output", "o", "", "Also write <input>.canon files to this directory")
	cmd.Flags().IntVar(&s.batchSize, "batch-size", 0, "Rows per COPY or UNWIND (BATCH_SIZE)")
	return cmd
}

// sinks are the external stores of one ingest run; either may be nil.
type sinks struct {
	pg     *pgxpool.Pool
	ledger *store.Ledger
	runner graph.Runner
}

func runIngest(parent context.Context, s *settings, args []string, fl ingestFlags) error {
	ctx, cancel := setupContext(parent)
	defer cancel()

	cfg := s.load()
	metrics.Serve(ctx, cfg.MetricsAddr)

	opts, err := s.convertOptions(cfg)
	if err != nil {
		return err
	}

	entries, err := filewalker.NewWalker().Expand(args)
	if err != nil {
		return err
	}
	if fl.postgres {
		for _, e := range entries {
			if e.Path == "-" {
				return errors.New("stdin cannot be ingested with --postgres: the file ledger needs a named file")
			}
		}
	}

	if fl.outDir != "" {
		if err := os.MkdirAll(fl.outDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		opts.OutDir = fl.outDir
		if opts.Outputs, err = convert.PlanOutputs(entryPaths(entries), fl.outDir, false); err != nil {
			return err
		}
	} else {
		opts.Discard = true
	}

	var sk sinks
	if fl.postgres {
		pgPool, err := connectPostgres(ctx, cfg)
		if err != nil {
			return err
		}
		defer pgPool.Close()
		if err := store.Migrate(ctx, pgPool); err != nil {
			return err
		}
		sk.pg, sk.ledger = pgPool, store.NewLedger(pgPool)
	}
	if fl.neo4j {
		driver, err := connectNeo4j(ctx, cfg)
		if err != nil {
			return err
		}
		defer driver.Close(ctx)
		sk.runner = graph.NewDriverRunner(driver)
		if err := graph.EnsureSchema(ctx, sk.runner); err != nil {
			return fmt.Errorf("ensure graph schema: %w", err)
		}
	}

	log.Info().Int("files", len(entries)).Bool("postgres", fl.postgres).Bool("neo4j", fl.neo4j).Msg("Starting ingestion")

	pool := worker.NewPool(cfg.WorkerCount, func(ctx context.Context, e filewalker.FileEntry) (convert.Result, error) {
		return ingestFile(ctx, e, opts, sk, cfg.BatchSize, fl.force)
	})
	return summarize(pool.Execute(ctx, entries))
}

func ingestFile(ctx context.Context, e filewalker.FileEntry, opts convert.Options, sk sinks, batchSize int, force bool) (convert.Result, error) {
	var (
		key   string
		extra []convert.Sink
		err   error
	)
	if sk.ledger != nil {
		if key, err = store.FileKey(e.Path); err != nil {
			return convert.Result{Input: e.Path}, err
		}
		done, err := sk.ledger.Ingested(ctx, key)
		if err != nil {
			return convert.Result{Input: e.Path}, err
		}
		if done && !force {
			log.Info().Str("file", e.Path).Msg("Already ingested, skipping")
			return convert.Result{Input: e.Path}, nil
		}
		if err := sk.ledger.Forget(ctx, key); err != nil {
			return convert.Result{Input: e.Path}, err
		}
		extra = append(extra, store.NewMatchWriter(sk.pg, key, batchSize))
	}
	if sk.runner != nil {
		extra = append(extra, graph.NewHitWriter(sk.runner, e.Path, batchSize))
	}

	res, err := convert.File(ctx, e, opts, extra...)
	for _, sink := range extra {
		if cerr := sink.Close(ctx); err == nil && cerr != nil {
			err = fmt.Errorf("flush %s: %w", e.Path, cerr)
		}
	}
	if err != nil {
		if sk.ledger != nil {
			if ferr := sk.ledger.Forget(ctx, key); ferr != nil {
				log.Warn().Err(ferr).Str("file", e.Path).Msg("Failed to clear partial ingest")
			}
		}
		return res, err
	}

	if sk.ledger != nil {
		err = sk.ledger.Record(ctx, store.FileRecord{
			Key:       key,
			Path:      e.Path,
			Format:    res.Format.String(),
			Mode:      res.Mode.String(),
			Reads:     res.Stats.Reads,
			Matches:   res.Stats.Matches,
			Unaligned: res.Stats.Unaligned,
			Errors:    res.Stats.Errors,
		})
	}
	return res, err
}

// connectPostgres opens and pings the pool.
func connectPostgres(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect PostgreSQL: %w", err)
	}
	if err := pgPool.Ping(ctx); err != nil {
		pgPool.Close()
		return nil, fmt.Errorf("ping PostgreSQL: %w", err)
	}
	log.Info().Msg("Connected to PostgreSQL")
	return pgPool, nil
}

// connectNeo4j opens the driver and verifies connectivity.
func connectNeo4j(ctx context.Context, cfg *config.Config) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURI, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""))
	if err != nil {
		return nil, fmt.Errorf("connect Neo4j: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("verify Neo4j connectivity: %w", err)
	}
	log.Info().Msg("Connected to Neo4j")
	return driver, nil
}
