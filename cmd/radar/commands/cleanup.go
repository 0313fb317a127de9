package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// cleanupCmd represents the cleanup command
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove cached indicator series",
	Long: `Clears cache entries. --stale removes only entries past their
staleness threshold; --all removes everything.

Example:
  go run ./cmd/radar cleanup --stale
  go run ./cmd/radar cleanup --all`,
	RunE: runCleanup,
}

var (
	// Cleanup flags
	cleanupAll   bool
	cleanupStale bool
)

func init() {
	rootCmd.AddCommand(cleanupCmd)

	cleanupCmd.Flags().BoolVar(&cleanupAll, "all", false, "remove every cache entry")
	cleanupCmd.Flags().BoolVar(&cleanupStale, "stale", false, "remove only entries past their staleness threshold")
	cleanupCmd.MarkFlagsOneRequired("all", "stale")
	cleanupCmd.MarkFlagsMutuallyExclusive("all", "stale")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	if cleanupAll {
		infos, err := app.cache.List()
		if err != nil {
			return err
		}
		if err := app.cache.ClearAll(); err != nil {
			return err
		}
		fmt.Printf("Removed %d cache entries\n", len(infos))
		return nil
	}

	removed := 0
	for _, meta := range app.registry.All() {
		if _, err := app.cache.Age(meta.ID); err != nil {
			continue
		}
		if !app.cache.IsStale(meta) {
			continue
		}
		if err := app.cache.Clear(meta.ID); err != nil {
			return err
		}
		removed++
	}

	fmt.Printf("Removed %d stale cache entries\n", removed)
	return nil
}
