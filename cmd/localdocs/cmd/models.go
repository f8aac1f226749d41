package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List models installed on the model server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, _, err := loadEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			models, err := eng.ListModels(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, m := range models {
				fmt.Fprintf(out, "%-30s %8d bytes  %s\n", m.Name, m.Size, m.ModifiedAt.Format("2006-01-02"))
			}
			return nil
		},
	}
}
