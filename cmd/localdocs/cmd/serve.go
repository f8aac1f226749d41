package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/localdocs/localdocs/internal/mcpserver"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run localdocs as an MCP server over stdio",
		Long: `Exposes the full command surface (index, chat, targets, setup, ...)
as MCP tools over stdio, for use by MCP-speaking clients such as Claude
Desktop or Claude Code.

stdout is reserved exclusively for the MCP protocol; all logging goes to
the log file instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			eng, _, err := loadEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			return mcpserver.New(eng).Serve(ctx)
		},
	}
}
