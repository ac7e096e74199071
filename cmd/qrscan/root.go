// Package main provides the entry point for the qrscan CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for qrscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qrscan",
		Short: "Assess URLs hidden in PDF QR codes",
		Long: `qrscan inspects PDF documents for QR codes, extracts the URLs they
encode, and assesses each URL's risk before anyone points a phone at it.

Verdicts combine reputation service data with local heuristic analysis.
Without an API key, qrscan still works using heuristics alone, with
reduced confidence.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
