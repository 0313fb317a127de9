package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/econwatch/recession-radar/internal/cache"
	"github.com/econwatch/recession-radar/internal/export"
	"github.com/econwatch/recession-radar/internal/indicator"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export cached series as a CSV table",
	Long: `Writes the cached indicator series to a CSV file: one date column
plus one column per indicator, aligned to the target frequency. Absent
values render as empty cells.

Example:
  go run ./cmd/radar export --out indicators.csv
  go run ./cmd/radar export --out indicators.csv --freq quarterly`,
	RunE: runExport,
}

var (
	// Export flags
	exportOut  string
	exportFreq string
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file path (required)")
	exportCmd.Flags().StringVar(&exportFreq, "freq", "monthly", "target frequency (daily|weekly|monthly|quarterly)")
	exportCmd.MarkFlagRequired("out")
}

func runExport(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	freq, err := indicator.ParseFrequency(exportFreq)
	if err != nil {
		return err
	}

	entries := make(map[string]*cache.Entry)
	for _, meta := range app.registry.All() {
		entry, err := app.cache.Get(meta.ID)
		if errors.Is(err, cache.ErrNotCached) {
			continue
		}
		if err != nil {
			return err
		}
		entries[meta.ID] = entry
	}

	f, err := os.Create(exportOut)
	if err != nil {
		return fmt.Errorf("create %s: %w", exportOut, err)
	}
	defer f.Close()

	if err := export.WriteCSV(f, app.registry, entries, freq); err != nil {
		return err
	}

	fmt.Printf("Exported %d indicators to %s\n", len(entries), exportOut)
	return nil
}
