package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/localdocs/localdocs/internal/events"
	"github.com/localdocs/localdocs/internal/lifecycle"
)

func newSetupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Check or provision the local model server",
	}
	cmd.AddCommand(newSetupStatusCmd())
	cmd.AddCommand(newSetupRunCmd())
	return cmd
}

func newSetupStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether the model server is running and which models are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, _, err := loadEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			status, err := eng.SetupStatus(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "running:       %v\n", status.Running)
			fmt.Fprintf(out, "models:        %v\n", status.Models)
			fmt.Fprintf(out, "default chat:  %s\n", status.DefaultChat)
			fmt.Fprintf(out, "default fast:  %s\n", status.DefaultFast)
			fmt.Fprintf(out, "default embed: %s\n", status.DefaultEmbed)
			return nil
		},
	}
}

func newSetupRunCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the model server if needed and pull any missing models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, _, err := loadEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			out := cmd.OutOrStdout()

			if !yes && lifecycle.StdinIsTTY() {
				missing, err := eng.MissingModels(cmd.Context())
				if err != nil {
					return err
				}
				if len(missing) > 0 {
					ok, err := lifecycle.ConfirmPull(out, os.Stdin, missing)
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(out, "setup cancelled")
						return nil
					}
				}
			}

			sink := events.NewSink(16)
			done := make(chan error, 1)
			go func() {
				err := eng.RunSetup(cmd.Context(), sink)
				sink.Close()
				done <- err
			}()

			bars := make(map[string]*lifecycle.PullBar)
			for sink.Setup != nil || sink.ModelPull != nil {
				select {
				case p, ok := <-sink.Setup:
					if !ok {
						sink.Setup = nil
						continue
					}
					fmt.Fprintf(out, "[%s] %s\n", p.Stage, p.Message)
				case p, ok := <-sink.ModelPull:
					if !ok {
						sink.ModelPull = nil
						for _, bar := range bars {
							bar.Finish()
						}
						continue
					}
					bar := bars[p.Model]
					if bar == nil {
						bar = lifecycle.NewPullBar(out, 40)
						bars[p.Model] = bar
					}
					pct := 0.0
					if p.Total > 0 {
						pct = float64(p.Completed) / float64(p.Total) * 100
					}
					bar.Update(lifecycle.PullProgress{
						Status: p.Status, Total: p.Total, Completed: p.Completed, Percent: pct,
					})
				}
			}

			if err := <-done; err != nil {
				return fmt.Errorf("setup failed: %w", err)
			}
			fmt.Fprintln(out, "setup complete")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Pull missing models without prompting")
	return cmd
}
