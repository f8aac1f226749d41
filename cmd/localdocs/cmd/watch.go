package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/localdocs/localdocs/internal/events"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the configured targets and re-index on change",
		Long: `Starts a filesystem watcher over the current target set. File
events are debounced and dispatched as re-index batches using the
embedding model and chunk settings recorded by the last index run started
in the same process. This command starts no index run itself, so the
settings are not recorded and its batches are dropped. Runs until
interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			eng, _, err := loadEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			out := cmd.OutOrStdout()
			sink := events.NewSink(64)
			if err := eng.StartWatch(ctx, sink); err != nil {
				return fmt.Errorf("start watch: %w", err)
			}
			defer eng.StopWatch()

			for {
				select {
				case <-ctx.Done():
					return nil
				case w, ok := <-sink.Watcher:
					if !ok {
						return nil
					}
					fmt.Fprintf(out, "watcher: %s (%d path(s))\n", w.Status, len(w.Watched))
				case r, ok := <-sink.Reindex:
					if !ok {
						return nil
					}
					fmt.Fprintf(out, "reindex %s: %v\n", r.Status, r.Files)
				}
			}
		},
	}
}
