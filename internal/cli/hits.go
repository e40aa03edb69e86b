package cli

import (
	"context"
	"fmt"
	"strconv"

	"alnstream/internal/graph"

	"github.com/spf13/cobra"
)

func hitsCmd(s *settings) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "hits <read>...",
		Short: "Show the strongest stored HIT edges of reads from Neo4j",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext(cmd.Context())
			defer cancel()

			driver, err := connectNeo4j(ctx, s.load())
			if err != nil {
				return err
			}
			defer driver.Close(ctx)
			return printHits(ctx, cmd, graph.NewDriverRunner(driver), args, limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Hits shown per read")
	return cmd
}

func printHits(ctx context.Context, cmd *cobra.Command, runner graph.Runner, reads []string, limit int) error {
	out := cmd.OutOrStdout()
	for _, read := range reads {
		hits, err := graph.TopHits(ctx, runner, read, limit)
		if err != nil {
			return err
		}
		if len(hits) == 0 {
			fmt.Fprintln(out, read)
			continue
		}
		for _, h := range hits {
			fmt.Fprintf(out, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n", h.Read, h.Subject, h.File, h.Rank,
				strconv.FormatFloat(h.BitScore, 'f', 1, 64),
				strconv.FormatFloat(h.Expect, 'g', 3, 64),
				strconv.FormatFloat(100*h.Identity, 'f', 2, 64))
		}
	}
	return nil
}
