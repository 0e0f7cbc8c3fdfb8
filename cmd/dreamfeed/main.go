// Command dreamfeed runs an autonomous, feedback-steered media feed: it
// plays analyzed clips from a local pool and keeps the queue topped up with
// LLM-curated selections.
package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// A missing .env file is fine; environment variables still apply.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		color.Red("error: %v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dreamfeed",
		Short:         "An autonomous media feed steered by viewer feedback",
		Long:          "dreamfeed plays clips from an analyzed media pool and continuously asks a language model to pick what comes next, steered by coherence, direction, and free-form viewer feedback.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newStatsCmd())

	return cmd
}
