package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "relaypoint",
	Short: "Relaypoint - local LLM request router",
	Long: `Relaypoint routes chat requests to local and remote LLM providers.

It exposes both common chat API conventions on a single port, probes
each configured provider at boot to learn which convention it speaks
and which models it serves, and maps public alias names to ordered
lists of upstream targets with automatic fallback on server errors,
timeouts, and rate limits.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
