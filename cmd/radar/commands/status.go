package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/econwatch/recession-radar/internal/cache"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache state and the last computed score",
	Long: `Prints one line per registered indicator: cache age, staleness
threshold, and observation count. Also shows the last run's composite
score when one has been persisted.

Example:
  go run ./cmd/radar status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	fmt.Printf("%-20s %-14s %-12s %-12s %s\n", "INDICATOR", "SERIES", "AGE", "STALENESS", "POINTS")
	for _, meta := range app.registry.All() {
		entry, err := app.cache.Get(meta.ID)
		if errors.Is(err, cache.ErrNotCached) {
			fmt.Printf("%-20s %-14s %-12s %-12s %s\n", meta.ID, meta.SeriesID, "-", formatDuration(meta.Staleness), "not cached")
			continue
		}
		if err != nil {
			return err
		}

		age := time.Since(entry.FetchedAt)
		marker := ""
		if age >= meta.Staleness {
			marker = " (stale)"
		}
		fmt.Printf("%-20s %-14s %-12s %-12s %d%s\n",
			meta.ID, meta.SeriesID, formatDuration(age), formatDuration(meta.Staleness), entry.Series.Len(), marker)
	}

	last, err := app.runner.LastRun()
	if err != nil {
		fmt.Println("\nNo update run recorded yet")
		return nil
	}

	fmt.Printf("\nLast run: %s", last.FinishedAt.Local().Format(time.RFC3339))
	if last.Score != nil {
		fmt.Printf("  score %.1f (%s)", last.Score.Value, last.Score.Label)
	}
	fmt.Println()
	return nil
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%.1fd", d.Hours()/24)
	case d >= time.Hour:
		return fmt.Sprintf("%.1fh", d.Hours())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}
