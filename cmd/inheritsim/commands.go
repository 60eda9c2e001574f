package main

import (
	"os"

	"github.com/GoSim-25-26J-441/inheritance-core/pkg/logger"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	logLevel  string
	logFormat string
}

// resolvedFormat maps "auto" to text when stderr is a terminal and JSON
// otherwise.
func (o *rootOptions) resolvedFormat() string {
	if o.logFormat != "auto" {
		return o.logFormat
	}
	fd := os.Stderr.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return "text"
	}
	return "json"
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "inheritsim",
		Short: "Inheritance cascade Monte Carlo simulator",
		Long: `inheritsim estimates how far control of relay keys spreads through the
succession mechanism once an initial fraction of relays is compromised.

Use 'sweep' to run a single sweep and export the points, or 'serve' to expose
the sweep service over HTTP and gRPC.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Logs go to stderr so sweep output on stdout stays clean.
			logger.SetDefault(logger.NewWithFormat(opts.resolvedFormat(), opts.logLevel, os.Stderr))
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "auto", "log format (auto, text, json); auto picks text on a terminal")

	rootCmd.AddCommand(newSweepCmd(opts))
	rootCmd.AddCommand(newServeCmd())

	return rootCmd
}
