package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/localdocs/localdocs/internal/indexer"
)

func newPreviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Classify the current target set without writing anything",
		Long: `Reports, for every document the current targets resolve to, whether it
is new, already indexed, changed since the last index, or missing on disk.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, _, err := loadEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			entries, err := eng.PreviewIndex(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, e := range entries {
				line := fmt.Sprintf("%-8s %-6s %s", e.Status, e.Kind, e.Path)
				if e.Status != indexer.PreviewMissing {
					line += fmt.Sprintf("  (%d bytes, mtime %s)", e.Size, time.Unix(e.MTime, 0).Format(time.RFC3339))
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	return cmd
}
