package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// set at build time via -ldflags "-X github.com/OCAP2/handoff/internal/cmd.Version=..."
var (
	Version   = "0.0.1"
	BuildDate = "unknown"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the handoff version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "handoff %s (built %s, %s)\n", Version, BuildDate, runtime.Version())
		},
	}
}
