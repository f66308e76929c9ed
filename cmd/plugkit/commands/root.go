// Package commands implements the plugkit CLI commands.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	flagLogLevel string
	flagEnvFile  string
)

var rootCmd = &cobra.Command{
	Use:   "plugkit",
	Short: "Integration toolkit for LLM application hosts",
	Long: `plugkit bundles the host-facing integrations of an LLM application
platform: model providers, tools, data sources, webhook endpoints, and
event triggers.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagEnvFile != "" {
			if err := godotenv.Load(flagEnvFile); err != nil {
				return fmt.Errorf("load env file %s: %w", flagEnvFile, err)
			}
		} else {
			// best effort: a local .env is optional
			_ = godotenv.Load()
		}
		return setupLogging(flagLogLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", "", "env file to load (default: .env if present)")
}

func setupLogging(level string) error {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return fmt.Errorf("unknown log level %q", level)
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
	return nil
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}
