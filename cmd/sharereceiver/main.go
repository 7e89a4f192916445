package main

import (
	"fmt"
	"os"

	"github.com/illmade-knight/share-receiver/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sharereceiver",
		Short: "Share Receiver - captures shared text and images and hands them to the app",
		Long: `sharereceiver hosts the share capture and primary entry points behind an
HTTP shell, and provides client commands to deliver intents and call the
application bridge on a running host.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(
		newServeCommand(),
		newShareCommand(),
		newResumeCommand(),
		newCallCommand(),
	)
	return rootCmd
}

// newLogger builds the process logger at the configured level.
func newLogger(cfg *config.Config) zerolog.Logger {
	return zerolog.New(os.Stdout).Level(cfg.Level()).With().Timestamp().Logger()
}
