// Command xchainarb streams cross-chain arbitrage opportunities from a
// simulated or live feed and serves them as a live-updating table.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "xchainarb",
		Short:        "Cross-chain arbitrage opportunity monitor",
		SilenceUsage: true,
		RunE:         runServe,
	}

	root.PersistentFlags().String("config", "", "config file path (TOML)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the feed and serve the opportunity table",
		RunE:  runServe,
	}
	root.AddCommand(serveCmd)

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Print simulated opportunities without starting the feed",
		RunE:  runGenerate,
	}
	generateCmd.Flags().IntP("count", "n", 10, "number of opportunities to generate")
	generateCmd.Flags().Int64("seed", 0, "random seed, 0 for a time-based seed")
	generateCmd.Flags().Bool("json", false, "print one JSON object per line instead of a table")
	root.AddCommand(generateCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println(version)
		},
	}
	root.AddCommand(versionCmd)

	return root
}
