package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/localdocs/localdocs/internal/store"
)

func newTargetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "targets",
		Short: "Manage the list of files and folders localdocs tracks",
	}
	cmd.AddCommand(newTargetsListCmd())
	cmd.AddCommand(newTargetsSaveCmd())
	return cmd
}

func newTargetsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the currently configured targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, _, err := loadEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			targets, err := eng.ListTargets(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, t := range targets {
				sub := ""
				if t.Kind == store.TargetKindFolder && t.IncludeSubfolders {
					sub = " (recursive)"
				}
				fmt.Fprintf(out, "%-7s %s%s\n", t.Kind, t.Path, sub)
			}
			return nil
		},
	}
}

func newTargetsSaveCmd() *cobra.Command {
	var (
		folders           []string
		files             []string
		includeSubfolders bool
	)

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Replace the target set",
		Long: `Replaces the entire target set with the given --file and --folder
entries. Saving an empty set clears all targets (a subsequent prune then
removes every file from the index).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, _, err := loadEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			var targets []store.Target
			for _, f := range files {
				targets = append(targets, store.Target{Path: f, Kind: store.TargetKindFile})
			}
			for _, f := range folders {
				targets = append(targets, store.Target{
					Path: f, Kind: store.TargetKindFolder, IncludeSubfolders: includeSubfolders,
				})
			}

			if err := eng.SaveTargets(cmd.Context(), targets); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %d target(s)\n", len(targets))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&files, "file", nil, "a literal file path to track (repeatable)")
	cmd.Flags().StringSliceVar(&folders, "folder", nil, "a folder path to track (repeatable)")
	cmd.Flags().BoolVar(&includeSubfolders, "recursive", false, "watch/index folder targets recursively")
	return cmd
}
