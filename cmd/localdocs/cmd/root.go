// Package cmd provides the CLI commands for localdocs.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/localdocs/localdocs/internal/config"
	"github.com/localdocs/localdocs/internal/engine"
	"github.com/localdocs/localdocs/internal/logging"
	"github.com/localdocs/localdocs/pkg/version"
)

var (
	configPath string
	debugMode  bool

	loggingCleanup func()
)

// NewRootCmd creates the root command for the localdocs CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "localdocs",
		Short: "Offline retrieval-augmented question answering over your document library",
		Long: `localdocs indexes PDF, DOCX, TXT, and Markdown files into a local
hybrid (vector + lexical) search index, then answers questions over that
library using a locally-hosted chat model. Nothing leaves the machine.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("localdocs version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "path to config.yaml")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging to ~/.localdocs/logs/")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newReindexCmd())
	cmd.AddCommand(newPreviewCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newTargetsCmd())
	cmd.AddCommand(newPruneCmd())
	cmd.AddCommand(newSetupCmd())
	cmd.AddCommand(newModelsCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func startLogging(_ *cobra.Command, _ []string) error {
	logCfg := logging.DefaultConfig()
	if debugMode {
		logCfg = logging.DebugConfig()
	}
	logCfg.WriteToStderr = false
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// loadEngine loads configuration from configPath and wires an Engine, the
// shared entrypoint every subcommand uses.
func loadEngine() (*engine.Engine, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	return engine.New(cfg), cfg, nil
}
