package commands

import (
	"github.com/spf13/cobra"

	"github.com/econwatch/recession-radar/internal/cache"
	"github.com/econwatch/recession-radar/internal/fetcher"
	"github.com/econwatch/recession-radar/internal/fred"
	"github.com/econwatch/recession-radar/internal/indicator"
	"github.com/econwatch/recession-radar/internal/orchestrator"
	"github.com/econwatch/recession-radar/internal/score"
	"github.com/econwatch/recession-radar/pkg/config"
	"github.com/econwatch/recession-radar/pkg/httputil"
	"github.com/econwatch/recession-radar/pkg/logger"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "radar",
	Short: "Recession Radar - composite recession-risk tracker",
	Long: `Recession Radar CLI

Fetches economic indicator series from FRED, caches them on disk, and
computes a weighted composite recession-risk score on a 0-100 scale.

Examples:
  go run ./cmd/radar update
  go run ./cmd/radar update --force
  go run ./cmd/radar status
  go run ./cmd/radar export --out indicators.csv
  go run ./cmd/radar cleanup --stale`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// app bundles everything a subcommand needs.
type app struct {
	cfg      *config.Config
	logger   *logger.Logger
	registry *indicator.Registry
	cache    *cache.Cache
	runner   *orchestrator.Runner
}

// newApp loads config and wires the full pipeline.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	reg, err := indicator.NewRegistry()
	if err != nil {
		return nil, err
	}

	c, err := cache.New(cfg.Cache.Dir, log)
	if err != nil {
		return nil, err
	}

	httpClient := httputil.NewWithTimeout(log, cfg.Fetch.Timeout)
	client := fred.NewClient(httpClient, log, cfg.FRED.BaseURL, cfg.FRED.APIKey, cfg.FRED.ObservationStart)

	f := fetcher.New(client, c, log, fetcher.Options{
		Workers:          cfg.Fetch.Workers,
		RatePerSec:       cfg.Fetch.RatePerSec,
		MaxRetries:       cfg.Fetch.MaxRetries,
		RetryDelay:       cfg.Fetch.RetryDelay,
		ObservationStart: cfg.FRED.ObservationStart,
	})

	scorer := score.New(reg, log)
	runner := orchestrator.New(reg, c, f, scorer, log, cfg.Cache.StateDir, cfg.Cache.HistoryLimit)

	return &app{
		cfg:      cfg,
		logger:   log,
		registry: reg,
		cache:    c,
		runner:   runner,
	}, nil
}
