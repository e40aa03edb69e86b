package cli

import (
	"fmt"

	"alnstream/internal/dispatch"
	"alnstream/internal/filewalker"

	"github.com/spf13/cobra"
)

func detectCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "detect <input>...",
		Short: "Print the detected format and mode of alignment files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := &filewalker.Walker{}
			entries, err := w.Expand(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range entries {
				format, mode, err := dispatch.DetectFile(e.Path)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\t%s\t%s\n", e.Path, format, mode)
			}
			return nil
		},
	}
}
