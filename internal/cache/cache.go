package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/econwatch/recession-radar/internal/indicator"
	"github.com/econwatch/recession-radar/pkg/logger"
)

// ErrNotCached means no entry exists for the requested indicator.
var ErrNotCached = errors.New("indicator not cached")

// Query records the upstream request parameters an entry was fetched with.
type Query struct {
	ObservationStart string `json:"observation_start"`
}

// Entry is the persisted unit: one series plus its fetch timestamp and the
// query it was fetched with. An entry always reflects the most recent
// successful fetch; a failed fetch never touches the prior entry.
type Entry struct {
	IndicatorID string            `json:"indicator_id"`
	SeriesID    string            `json:"series_id"`
	FetchedAt   time.Time         `json:"fetched_at"`
	Query       Query             `json:"query"`
	Series      *indicator.Series `json:"series"`
}

// Info summarizes one cached entry for status reporting.
type Info struct {
	IndicatorID  string
	SeriesID     string
	FetchedAt    time.Time
	Age          time.Duration
	Observations int
}

// Cache persists one JSON file per indicator under a root directory.
// Writers use write-to-temp-then-rename, so concurrent readers never see
// a torn entry and no external locking is needed.
type Cache struct {
	root   string
	logger *logger.Logger
	now    func() time.Time
}

// New creates a Cache rooted at dir, creating it if needed.
func New(dir string, log *logger.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	return &Cache{
		root:   dir,
		logger: log.WithField("module", "cache"),
		now:    time.Now,
	}, nil
}

func (c *Cache) path(indicatorID string) string {
	return filepath.Join(c.root, indicatorID+".json")
}

// Put atomically replaces the entry for entry.IndicatorID.
func (c *Cache) Put(entry *Entry) error {
	if entry.IndicatorID == "" {
		return fmt.Errorf("cache put: indicator id is required")
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("cache put %s: marshal: %w", entry.IndicatorID, err)
	}

	// Temp file in the same directory so the rename stays on one filesystem.
	tmp, err := os.CreateTemp(c.root, entry.IndicatorID+".*.tmp")
	if err != nil {
		return fmt.Errorf("cache put %s: temp file: %w", entry.IndicatorID, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("cache put %s: write: %w", entry.IndicatorID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cache put %s: close: %w", entry.IndicatorID, err)
	}

	if err := os.Rename(tmpName, c.path(entry.IndicatorID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cache put %s: rename: %w", entry.IndicatorID, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"indicator":    entry.IndicatorID,
		"observations": entry.Series.Len(),
	}).Debug("Cached series")

	return nil
}

// Get returns the most recent persisted entry for indicatorID,
// or ErrNotCached if it was never fetched.
func (c *Cache) Get(indicatorID string) (*Entry, error) {
	data, err := os.ReadFile(c.path(indicatorID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotCached
		}
		return nil, fmt.Errorf("cache get %s: %w", indicatorID, err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("cache get %s: decode: %w", indicatorID, err)
	}

	return &entry, nil
}

// Age returns the time since the entry was fetched, or ErrNotCached.
func (c *Cache) Age(indicatorID string) (time.Duration, error) {
	entry, err := c.Get(indicatorID)
	if err != nil {
		return 0, err
	}
	return c.now().Sub(entry.FetchedAt), nil
}

// IsStale reports whether the entry should be refreshed: true when absent
// or when age >= the metadata's staleness threshold (boundary inclusive).
func (c *Cache) IsStale(meta indicator.Metadata) bool {
	age, err := c.Age(meta.ID)
	if err != nil {
		return true
	}
	return age >= meta.Staleness
}

// List returns a summary of every cached entry, newest first.
func (c *Cache) List() ([]Info, error) {
	files, err := os.ReadDir(c.root)
	if err != nil {
		return nil, fmt.Errorf("cache list: %w", err)
	}

	now := c.now()
	infos := make([]Info, 0, len(files))
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		entry, err := c.Get(strings.TrimSuffix(name, ".json"))
		if err != nil {
			c.logger.WithError(err).WithField("file", name).Warn("Skipping unreadable cache entry")
			continue
		}

		infos = append(infos, Info{
			IndicatorID:  entry.IndicatorID,
			SeriesID:     entry.SeriesID,
			FetchedAt:    entry.FetchedAt,
			Age:          now.Sub(entry.FetchedAt),
			Observations: entry.Series.Len(),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].FetchedAt.After(infos[j].FetchedAt)
	})

	return infos, nil
}

// Clear removes the entry for indicatorID. Removing a missing entry is not
// an error.
func (c *Cache) Clear(indicatorID string) error {
	err := os.Remove(c.path(indicatorID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cache clear %s: %w", indicatorID, err)
	}
	return nil
}

// ClearAll removes every cached entry.
func (c *Cache) ClearAll() error {
	infos, err := c.List()
	if err != nil {
		return err
	}

	for _, info := range infos {
		if err := c.Clear(info.IndicatorID); err != nil {
			return err
		}
	}

	return nil
}
