package orchestrator

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/econwatch/recession-radar/internal/cache"
	"github.com/econwatch/recession-radar/internal/fetcher"
	"github.com/econwatch/recession-radar/internal/indicator"
	"github.com/econwatch/recession-radar/internal/normalize"
	"github.com/econwatch/recession-radar/internal/score"
	"github.com/econwatch/recession-radar/pkg/logger"
)

// Phase is the orchestrator's current stage. A run moves strictly forward
// through the phases and returns to Idle whether it finishes or aborts.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseCheckingStaleness
	PhaseFetching
	PhaseScoring
	PhaseSummarizing
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCheckingStaleness:
		return "checking_staleness"
	case PhaseFetching:
		return "fetching"
	case PhaseScoring:
		return "scoring"
	case PhaseSummarizing:
		return "summarizing"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

// Indicator statuses in an update summary.
const (
	StatusFetched = "fetched" // refreshed from upstream this run
	StatusFresh   = "fresh"   // cache was within its staleness window
	StatusFailed  = "failed"  // fetch failed, prior cache (if any) used
)

// IndicatorResult is one indicator's outcome in a run.
type IndicatorResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// UpdateSummary is the durable record of one update run.
type UpdateSummary struct {
	StartedAt       time.Time                  `json:"started_at"`
	FinishedAt      time.Time                  `json:"finished_at"`
	DurationSeconds float64                    `json:"duration_seconds"`
	Force           bool                       `json:"force"`
	Indicators      map[string]IndicatorResult `json:"indicators"`
	Score           *score.Composite           `json:"score,omitempty"`
	Errors          []string                   `json:"errors,omitempty"`
}

// Options configures one run.
type Options struct {
	// Force refreshes every indicator regardless of cache age.
	Force bool
}

// Runner drives one update cycle: staleness check, batch fetch, scoring,
// summary persistence. Safe for concurrent Phase reads; Run itself is not
// reentrant.
type Runner struct {
	registry     *indicator.Registry
	cache        *cache.Cache
	fetcher      *fetcher.Fetcher
	scorer       *score.Scorer
	logger       *logger.Logger
	stateDir     string
	historyLimit int
	phase        atomic.Int32
	runMu        sync.Mutex
	now          func() time.Time
}

// New creates a Runner.
func New(reg *indicator.Registry, c *cache.Cache, f *fetcher.Fetcher, s *score.Scorer, log *logger.Logger, stateDir string, historyLimit int) *Runner {
	return &Runner{
		registry:     reg,
		cache:        c,
		fetcher:      f,
		scorer:       s,
		logger:       log.WithField("module", "orchestrator"),
		stateDir:     stateDir,
		historyLimit: historyLimit,
		now:          time.Now,
	}
}

// Phase returns the runner's current phase.
func (r *Runner) Phase() Phase {
	return Phase(r.phase.Load())
}

func (r *Runner) setPhase(p Phase) {
	r.phase.Store(int32(p))
	r.logger.WithField("phase", p.String()).Debug("Phase changed")
}

// Run executes one update cycle and returns its summary. Context
// abandonment is honored between phases; a fetch already in flight is
// allowed to complete so the cache keeps whatever was retrieved. Fetch
// failures degrade to cached data; the run fails only when nothing is
// scoreable or the summary cannot be persisted.
func (r *Runner) Run(ctx context.Context, opts Options) (*UpdateSummary, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	defer r.setPhase(PhaseIdle)

	summary := &UpdateSummary{
		StartedAt:  r.now().UTC(),
		Force:      opts.Force,
		Indicators: make(map[string]IndicatorResult),
	}

	r.setPhase(PhaseCheckingStaleness)
	worklist := r.buildWorklist(opts.Force, summary)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run abandoned before fetch: %w", err)
	}

	if len(worklist) > 0 {
		r.setPhase(PhaseFetching)
		// Detach the fetch from ctx cancellation: once requests are in
		// flight, completing them keeps the cache consistent.
		outcomes := r.fetcher.FetchMany(context.WithoutCancel(ctx), worklist)
		for id, outcome := range outcomes {
			if outcome.Err != nil {
				summary.Indicators[id] = IndicatorResult{Status: StatusFailed, Error: outcome.Err.Error()}
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", id, outcome.Err))
				continue
			}
			summary.Indicators[id] = IndicatorResult{Status: StatusFetched}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run abandoned before scoring: %w", err)
	}

	r.setPhase(PhaseScoring)
	composite, err := r.scoreFromCache()
	if err != nil {
		summary.Errors = append(summary.Errors, err.Error())
		r.finish(summary)
		if writeErr := r.persist(summary); writeErr != nil {
			r.logger.WithError(writeErr).Error("Failed to persist summary")
		}
		return summary, err
	}
	summary.Score = composite

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run abandoned before summary: %w", err)
	}

	r.setPhase(PhaseSummarizing)
	r.finish(summary)
	if err := r.persist(summary); err != nil {
		return summary, err
	}

	r.logger.WithFields(map[string]interface{}{
		"score":    composite.Value,
		"label":    composite.Label,
		"fetched":  len(worklist),
		"duration": summary.DurationSeconds,
	}).Info("Update run completed")

	return summary, nil
}

func (r *Runner) finish(summary *UpdateSummary) {
	summary.FinishedAt = r.now().UTC()
	summary.DurationSeconds = summary.FinishedAt.Sub(summary.StartedAt).Seconds()
}

// buildWorklist selects the indicators to refresh and pre-marks the rest
// as fresh.
func (r *Runner) buildWorklist(force bool, summary *UpdateSummary) []indicator.Metadata {
	var worklist []indicator.Metadata
	for _, meta := range r.registry.All() {
		if force || r.cache.IsStale(meta) {
			worklist = append(worklist, meta)
			continue
		}
		summary.Indicators[meta.ID] = IndicatorResult{Status: StatusFresh}
	}

	r.logger.WithFields(map[string]interface{}{
		"total": r.registry.Len(),
		"stale": len(worklist),
		"force": force,
	}).Info("Staleness check completed")

	return worklist
}

// scoreFromCache scores whatever the cache holds, aligned to a monthly
// timeline. Indicators with no cache entry are simply omitted; the scorer
// renormalizes around them.
func (r *Runner) scoreFromCache() (*score.Composite, error) {
	seriesByID := make(map[string]*indicator.Series)
	for _, meta := range r.registry.All() {
		entry, err := r.cache.Get(meta.ID)
		if err != nil {
			continue
		}
		seriesByID[meta.ID] = entry.Series
	}

	aligned, err := normalize.AlignAll(seriesByID, r.registry, indicator.Monthly)
	if err != nil {
		return nil, err
	}

	values, err := r.scorer.LatestValues(aligned)
	if err != nil {
		return nil, err
	}

	return r.scorer.Score(values)
}

// LastRun loads the most recently persisted summary.
func (r *Runner) LastRun() (*UpdateSummary, error) {
	data, err := os.ReadFile(filepath.Join(r.stateDir, "last_run.json"))
	if err != nil {
		return nil, fmt.Errorf("read last run: %w", err)
	}

	var summary UpdateSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("decode last run: %w", err)
	}
	return &summary, nil
}

// History loads the persisted run history, oldest first.
func (r *Runner) History() ([]UpdateSummary, error) {
	f, err := os.Open(filepath.Join(r.stateDir, "history.jsonl"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read history: %w", err)
	}
	defer f.Close()

	var history []UpdateSummary
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var summary UpdateSummary
		if err := json.Unmarshal(scanner.Bytes(), &summary); err != nil {
			return nil, fmt.Errorf("decode history line: %w", err)
		}
		history = append(history, summary)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}

	return history, nil
}

// persist writes last_run.json atomically and appends to the capped
// history log.
func (r *Runner) persist(summary *UpdateSummary) error {
	if err := os.MkdirAll(r.stateDir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	tmp, err := os.CreateTemp(r.stateDir, "last_run.*.tmp")
	if err != nil {
		return fmt.Errorf("persist summary: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("persist summary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("persist summary: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(r.stateDir, "last_run.json")); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("persist summary: %w", err)
	}

	return r.appendHistory(summary)
}

func (r *Runner) appendHistory(summary *UpdateSummary) error {
	history, err := r.History()
	if err != nil {
		return err
	}

	history = append(history, *summary)
	if r.historyLimit > 0 && len(history) > r.historyLimit {
		history = history[len(history)-r.historyLimit:]
	}

	tmp, err := os.CreateTemp(r.stateDir, "history.*.tmp")
	if err != nil {
		return fmt.Errorf("persist history: %w", err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for _, entry := range history {
		if err := enc.Encode(entry); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("persist history: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("persist history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("persist history: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(r.stateDir, "history.jsonl")); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("persist history: %w", err)
	}

	return nil
}
