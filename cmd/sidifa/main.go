package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set with -ldflags at build time.
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "sidifa",
		Short:         "Caching gateway for the SI-DIFA REST API",
		Long:          `A stale-while-revalidate query cache in front of the SI-DIFA REST API, served as an HTTP gateway.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ./sidifa.yaml or ~/.config/sidifa/sidifa.yaml)")

	rootCmd.AddCommand(
		newServeCmd(&configPath),
		newDemoCmd(),
		newBenchCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, _ []string) {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "sidifa %s\n", version)
				fmt.Fprintf(out, "commit: %s\n", commit)
				fmt.Fprintf(out, "built: %s\n", buildDate)
			},
		},
	)
	return rootCmd
}
