package commands

import (
	"context"
	"fmt"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/econwatch/recession-radar/internal/orchestrator"
)

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Refresh stale indicators and compute the composite score",
	Long: `Runs one update cycle: checks cache staleness, fetches stale
indicators from FRED, scores the composite, and persists a run summary.

Fetch failures degrade to cached data; the run fails only when no
indicator is scoreable.

Example:
  go run ./cmd/radar update
  go run ./cmd/radar update --force`,
	RunE: runUpdate,
}

var (
	// Update flags
	updateForce bool
)

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().BoolVar(&updateForce, "force", false, "refresh every indicator regardless of cache age")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := app.runner.Run(ctx, orchestrator.Options{Force: updateForce})
	if err != nil {
		app.logger.WithError(err).Error("Update run failed")
		return err
	}

	fmt.Printf("Recession risk: %.1f (%s)\n\n", summary.Score.Value, summary.Score.Label)

	ids := make([]string, 0, len(summary.Indicators))
	for id := range summary.Indicators {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		result := summary.Indicators[id]
		line := fmt.Sprintf("  %-20s %s", id, result.Status)
		if sub, ok := summary.Score.SubScores[id]; ok {
			line += fmt.Sprintf("  sub-score %.1f", sub)
		}
		fmt.Println(line)
		if result.Error != "" {
			fmt.Printf("  %-20s   %s\n", "", result.Error)
		}
	}

	fmt.Printf("\nCompleted in %.2fs\n", summary.DurationSeconds)
	return nil
}
