package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/localdocs/localdocs/internal/events"
	"github.com/localdocs/localdocs/internal/ui"
)

func newIndexCmd() *cobra.Command {
	var noTUI bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index the currently configured targets",
		Long: `Runs a full index over the targets saved with 'localdocs targets save'.

Each target document is fingerprinted, extracted, chunked, embedded, and
persisted into the library. Unchanged files are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			eng, _, err := loadEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			sink := events.NewSink(64)
			renderer := ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(), ui.WithForcePlain(noTUI)))
			if err := renderer.Start(ctx); err != nil {
				return err
			}

			done := make(chan error, 1)
			go func() {
				err := eng.StartIndex(ctx, sink)
				sink.Close()
				done <- err
			}()

			ui.Drive(ctx, sink, renderer)
			_ = renderer.Stop()

			if err := <-done; err != nil {
				return fmt.Errorf("index failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "disable interactive TUI output, use plain log lines")
	return cmd
}

func newReindexCmd() *cobra.Command {
	var noTUI bool

	cmd := &cobra.Command{
		Use:   "reindex [paths...]",
		Short: "Re-index specific files",
		Long:  `Re-indexes exactly the given file paths. A file whose fingerprint is unchanged since it was last indexed is skipped.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			eng, _, err := loadEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			sink := events.NewSink(64)
			renderer := ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(), ui.WithForcePlain(noTUI)))
			if err := renderer.Start(ctx); err != nil {
				return err
			}

			done := make(chan error, 1)
			go func() {
				err := eng.ReindexFiles(ctx, args, sink)
				sink.Close()
				done <- err
			}()

			ui.Drive(ctx, sink, renderer)
			_ = renderer.Stop()

			if err := <-done; err != nil {
				return fmt.Errorf("reindex failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "disable interactive TUI output, use plain log lines")
	return cmd
}
