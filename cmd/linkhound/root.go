package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for linkhound.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "linkhound",
		Short: "Website link validator",
		Long: `linkhound crawls a website starting from one or more seed URLs,
follows every same-site link it discovers, and reports URLs that are
broken, misconfigured, or unreachable.

By default only links on the seed hosts are followed. Use --external
to also validate links pointing at other hosts (without recursing
into them).`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		// A run that completed but found broken links already printed a
		// report; repeating the message on stderr would be noise.
		if !errors.Is(err, errBrokenLinks) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
