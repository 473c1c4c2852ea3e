// Package cmd implements the handoff command line.
package cmd

import (
	"github.com/OCAP2/handoff/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Execute runs the root command
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "handoff",
		Short: "Blocking multi-producer multi-consumer channel toolkit",
		Long: `handoff exercises an unbounded or bounded in-process channel with
many producers and consumers and verifies that every item is delivered
exactly once and in per-producer order.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.Load(config.GetString("configDir"))
		},
	}

	flags := root.PersistentFlags()
	flags.String("config-dir", ".", "directory containing "+config.FileName)
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "console", "log output when no logs dir is set (console, text)")
	flags.String("logs-dir", "", "write logs to a per-run file in this directory")
	_ = viper.BindPFlag("configDir", flags.Lookup("config-dir"))
	_ = viper.BindPFlag("logLevel", flags.Lookup("log-level"))
	_ = viper.BindPFlag("logFormat", flags.Lookup("log-format"))
	_ = viper.BindPFlag("logsDir", flags.Lookup("logs-dir"))

	root.AddCommand(newSoakCmd(), newVersionCmd())
	return root
}
