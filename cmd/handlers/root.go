package handlers

import (
	"fmt"
	"os"

	"appscout/internal/config"
	"appscout/internal/logger"

	"github.com/spf13/cobra"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "appscout",
		Short: "appscout finds app ideas in App Store keyword data.",
		Long: `appscout groups discovered App Store keywords into app concepts, studies
the apps already competing for each concept, and writes build
recommendations for the most promising ones.

Stages can be run one at a time (cluster, analyze, recommend) with JSON
files passed between them, or end to end with "run", which stores the
session so it can be inspected later with "sessions".`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.appscout.yaml)")

	rootCmd.AddCommand(NewClusterCmd())
	rootCmd.AddCommand(NewAnalyzeCmd())
	rootCmd.AddCommand(NewRecommendCmd())
	rootCmd.AddCommand(NewRunCmd())
	rootCmd.AddCommand(NewEditCmd())
	rootCmd.AddCommand(NewSessionsCmd())
	rootCmd.AddCommand(NewServeCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables and applies logging settings.
func initConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	logger.Configure(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cmd.ErrOrStderr(),
	})

	if cfg.App.ConfigFile != "" {
		logger.Debug("Using config file", "path", cfg.App.ConfigFile)
	}
	return nil
}
