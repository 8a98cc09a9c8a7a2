package main

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/tomz197/volley/internal/config"
	"github.com/tomz197/volley/internal/logging"
)

// Global flags available to all subcommands.
var (
	logLevel  string
	logFormat string
)

// NewRootCmd creates the root command for the volley CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "volley",
		Short: "volley - pooled projectile simulation",
		Long: `volley runs a shared projectile arena. This tool validates
projectile catalogs and runs the simulation headless.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", config.GetEnv("LOG_LEVEL", "info"), "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatText, "log format (text, logfmt, json)")

	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewBenchCmd())

	return cmd
}

// newLogger builds a logger from the global flags writing to the command's
// error stream.
func newLogger(cmd *cobra.Command) *log.Logger {
	return logging.New(cmd.ErrOrStderr(), logLevel, logFormat)
}
