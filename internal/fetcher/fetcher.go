package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/econwatch/recession-radar/internal/cache"
	"github.com/econwatch/recession-radar/internal/fred"
	"github.com/econwatch/recession-radar/internal/indicator"
	"github.com/econwatch/recession-radar/pkg/logger"
)

// Outcome is the per-indicator result of a batch fetch. Exactly one of
// Entry or Err is set.
type Outcome struct {
	IndicatorID string
	Entry       *cache.Entry
	Err         error
}

// Fetcher pulls indicator series from the upstream and writes each
// successful fetch through to the cache. One shared rate limiter gates
// every request across all workers.
type Fetcher struct {
	client     *fred.Client
	cache      *cache.Cache
	logger     *logger.Logger
	limiter    *rate.Limiter
	workers    int
	maxRetries int
	retryDelay time.Duration
	obsStart   string
	now        func() time.Time
}

// Options configures a Fetcher.
type Options struct {
	Workers          int
	RatePerSec       float64
	MaxRetries       int
	RetryDelay       time.Duration
	ObservationStart string
}

// New creates a Fetcher.
func New(client *fred.Client, c *cache.Cache, log *logger.Logger, opts Options) *Fetcher {
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	return &Fetcher{
		client:     client,
		cache:      c,
		logger:     log.WithField("module", "fetcher"),
		limiter:    rate.NewLimiter(rate.Limit(opts.RatePerSec), 1),
		workers:    opts.Workers,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		obsStart:   opts.ObservationStart,
		now:        time.Now,
	}
}

// FetchOne fetches a single indicator's series and caches it. A 429 from
// the upstream is retried with exponential backoff up to the configured
// retry budget; any other error is returned as-is.
func (f *Fetcher) FetchOne(ctx context.Context, meta indicator.Metadata) (*cache.Entry, error) {
	series, err := f.fetchWithBackoff(ctx, meta.SeriesID)
	if err != nil {
		return nil, err
	}

	entry := &cache.Entry{
		IndicatorID: meta.ID,
		SeriesID:    meta.SeriesID,
		FetchedAt:   f.now().UTC(),
		Query:       cache.Query{ObservationStart: f.obsStart},
		Series:      series,
	}

	if err := f.cache.Put(entry); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", meta.ID, err)
	}

	return entry, nil
}

// FetchMany fetches the given indicators concurrently. Failures are
// per-indicator: one bad series never discards the others' results. The
// returned map has one Outcome per requested indicator.
func (f *Fetcher) FetchMany(ctx context.Context, metas []indicator.Metadata) map[string]Outcome {
	jobs := make(chan indicator.Metadata, len(metas))
	results := make(chan Outcome, len(metas))

	var wg sync.WaitGroup
	for w := 0; w < f.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for meta := range jobs {
				entry, err := f.FetchOne(ctx, meta)
				results <- Outcome{IndicatorID: meta.ID, Entry: entry, Err: err}
			}
		}()
	}

	for _, meta := range metas {
		jobs <- meta
	}
	close(jobs)

	wg.Wait()
	close(results)

	outcomes := make(map[string]Outcome, len(metas))
	succeeded := 0
	for outcome := range results {
		outcomes[outcome.IndicatorID] = outcome
		if outcome.Err == nil {
			succeeded++
		} else {
			f.logger.WithError(outcome.Err).WithField("indicator", outcome.IndicatorID).Warn("Fetch failed")
		}
	}

	f.logger.WithFields(map[string]interface{}{
		"requested": len(metas),
		"succeeded": succeeded,
		"failed":    len(metas) - succeeded,
	}).Info("Batch fetch completed")

	return outcomes
}

// fetchWithBackoff waits on the shared limiter, then retries only
// rate-limit responses. Transport and server errors are already retried
// one layer down.
func (f *Fetcher) fetchWithBackoff(ctx context.Context, seriesID string) (*indicator.Series, error) {
	delay := f.retryDelay

	for attempt := 0; ; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("fetch %s: %w", seriesID, err)
		}

		series, err := f.client.Observations(ctx, seriesID)
		if err == nil {
			return series, nil
		}

		var rateErr *fred.RateLimitedError
		if !errors.As(err, &rateErr) || attempt >= f.maxRetries {
			return nil, err
		}

		f.logger.WithFields(map[string]interface{}{
			"series":  seriesID,
			"attempt": attempt + 1,
			"delay":   delay,
		}).Warn("Rate limited, backing off")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("fetch %s: %w", seriesID, ctx.Err())
		}
		delay *= 2
	}
}
