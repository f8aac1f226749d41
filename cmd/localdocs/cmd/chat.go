package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/localdocs/localdocs/internal/engine"
	"github.com/localdocs/localdocs/internal/events"
)

func newChatCmd() *cobra.Command {
	var stream bool

	cmd := &cobra.Command{
		Use:   "chat <question>",
		Short: "Ask a question over the indexed library",
		Long: `Retrieves the most relevant passages from the library via hybrid
search and asks the configured chat model to answer the question, citing
its sources.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")

			eng, _, err := loadEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			if stream {
				return runChatStream(ctx, eng, question, out)
			}

			answer, sources, err := eng.Chat(ctx, question)
			if err != nil {
				return fmt.Errorf("chat failed: %w", err)
			}
			fmt.Fprintln(out, answer)
			printSources(out, sources)
			return nil
		},
	}

	cmd.Flags().BoolVar(&stream, "stream", false, "stream the answer token by token")
	return cmd
}

func runChatStream(ctx context.Context, eng *engine.Engine, question string, out io.Writer) error {
	sink := events.NewSink(64)
	done := make(chan error, 1)
	go func() {
		err := eng.ChatStream(ctx, question, sink)
		sink.Close()
		done <- err
	}()

	for delta := range sink.Chat {
		if delta.Content != "" {
			fmt.Fprint(out, delta.Content)
		}
		if delta.Done {
			fmt.Fprintln(out)
			for _, c := range delta.Citations {
				fmt.Fprintf(out, "[%d] %s (page %d)\n", c.Index, c.File, c.Page)
			}
		}
	}
	return <-done
}
