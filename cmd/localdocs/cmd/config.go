package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or change persistent configuration",
	}
	cmd.AddCommand(newSetBaseURLCmd())
	return cmd
}

func newSetBaseURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-base-url <host>",
		Short: "Point localdocs at a different model-server host",
		Long: `Normalizes host into a full base URL (adding a scheme and the
trailing /api path segment as needed), persists it to config.yaml, and uses
it for every subsequent model-server call.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, cfg, err := loadEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			eng.SetBaseURL(args[0])
			if err := cfg.Save(configPath); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "base url set to %s\n", cfg.Server.BaseURL)
			return nil
		},
	}
}
