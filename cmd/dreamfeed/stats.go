package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/TeeKay-FourTwentyOne/dreamfeed/manifest"
)

func newStatsCmd() *cobra.Command {
	var (
		manifestPath string
		topN         int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize an analysis manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := manifest.Load(manifestPath)
			if err != nil {
				return err
			}
			printStats(index, topN)
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "path to the analysis manifest (required)")
	cmd.Flags().IntVar(&topN, "top", 10, "how many tags and moods to list")
	_ = cmd.MarkFlagRequired("manifest")

	return cmd
}

func printStats(index *manifest.Index, topN int) {
	bold := color.New(color.Bold)
	stats := index.Stats()

	total := time.Duration(stats.TotalDurationSeconds * float64(time.Second))
	bold.Printf("%d items, %s total\n", stats.TotalItems, total.Round(time.Second))
	fmt.Printf("speech %d | music %d | clean cuts %d | unique tags %d\n",
		stats.WithSpeech, stats.WithMusic, stats.CleanCuts, stats.UniqueTags)

	bold.Println("\ntop tags")
	for i, c := range index.TagCounts() {
		if i == topN {
			break
		}
		fmt.Printf("  %-24s %d\n", c.Label, c.N)
	}

	bold.Println("\nmoods")
	for i, c := range index.MoodCounts() {
		if i == topN {
			break
		}
		fmt.Printf("  %-24s %d\n", c.Label, c.N)
	}
}
