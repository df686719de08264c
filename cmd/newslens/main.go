// Command newslens runs the news aggregation pipeline for a topic and
// prints a digest. Finished runs are archived and can be listed later.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "newslens",
		Short:         "Topic-driven news aggregation and enrichment",
		Long:          "newslens fetches recent coverage of a topic from multiple news sources, merges duplicate stories, extracts and enriches article text, and prints an analytical digest.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the newslens version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("newslens %s\n", version)
		},
	}
}
