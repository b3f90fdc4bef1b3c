// Package cmd defines the CLI commands for the jobsift executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobsift",
		Short: "A job-board scraper with layered discovery and tolerant extraction.",
		Long: `jobsift discovers job postings on a configured board, fetches each
detail page under a bounded worker pool, and extracts structured records
from JSON-LD with CSS-selector fallbacks. Failed pages degrade to stub
records so a run always accounts for every discovered posting.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./jobsift.yaml)")

	cmd.AddCommand(newScrapeCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
