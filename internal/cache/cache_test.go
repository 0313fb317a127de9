package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/econwatch/recession-radar/internal/indicator"
	"github.com/econwatch/recession-radar/pkg/logger"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()

	c, err := New(t.TempDir(), logger.NewNop())
	require.NoError(t, err)
	return c
}

func testEntry(id string, fetchedAt time.Time) *Entry {
	return &Entry{
		IndicatorID: id,
		SeriesID:    "TEST" + id,
		FetchedAt:   fetchedAt,
		Query:       Query{ObservationStart: "1980-01-01"},
		Series: &indicator.Series{
			SeriesID: "TEST" + id,
			Observations: []indicator.Observation{
				{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Value: null.FloatFrom(1.5)},
				{Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Value: null.Float{}},
				{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Value: null.FloatFrom(2.5)},
			},
		},
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	c := newTestCache(t)
	fetchedAt := time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, c.Put(testEntry("yield_curve", fetchedAt)))

	got, err := c.Get("yield_curve")
	require.NoError(t, err)

	assert.Equal(t, "yield_curve", got.IndicatorID)
	assert.Equal(t, "TESTyield_curve", got.SeriesID)
	assert.True(t, got.FetchedAt.Equal(fetchedAt))
	assert.Equal(t, "1980-01-01", got.Query.ObservationStart)
	require.Equal(t, 3, got.Series.Len())

	// Absent observations survive the round trip as absent.
	assert.True(t, got.Series.Observations[0].Value.Valid)
	assert.False(t, got.Series.Observations[1].Value.Valid)
	assert.Equal(t, 2.5, got.Series.Observations[2].Value.Float64)
}

func TestGetNotCached(t *testing.T) {
	c := newTestCache(t)

	_, err := c.Get("missing")
	assert.ErrorIs(t, err, ErrNotCached)

	_, err = c.Age("missing")
	assert.ErrorIs(t, err, ErrNotCached)
}

func TestPutReplacesExisting(t *testing.T) {
	c := newTestCache(t)
	first := testEntry("sahm_rule", time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, c.Put(first))

	second := testEntry("sahm_rule", time.Date(2024, 8, 2, 0, 0, 0, 0, time.UTC))
	second.Series.Observations = second.Series.Observations[:1]
	require.NoError(t, c.Put(second))

	got, err := c.Get("sahm_rule")
	require.NoError(t, err)
	assert.True(t, got.FetchedAt.Equal(second.FetchedAt))
	assert.Equal(t, 1, got.Series.Len())
}

func TestIsStaleBoundary(t *testing.T) {
	c := newTestCache(t)
	now := time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	meta := indicator.Metadata{ID: "yield_curve", Staleness: 24 * time.Hour}

	tests := []struct {
		name      string
		fetchedAt time.Time
		stale     bool
	}{
		{"fresh", now.Add(-23 * time.Hour), false},
		{"exactly at threshold", now.Add(-24 * time.Hour), true},
		{"past threshold", now.Add(-25 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, c.Put(testEntry("yield_curve", tt.fetchedAt)))
			assert.Equal(t, tt.stale, c.IsStale(meta))
		})
	}
}

func TestIsStaleWhenAbsent(t *testing.T) {
	c := newTestCache(t)

	meta := indicator.Metadata{ID: "never_fetched", Staleness: 720 * time.Hour}
	assert.True(t, c.IsStale(meta))
}

func TestConcurrentPuts(t *testing.T) {
	c := newTestCache(t)
	fetchedAt := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			assert.NoError(t, c.Put(testEntry(id, fetchedAt)))
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		got, err := c.Get(id)
		require.NoError(t, err)
		assert.Equal(t, id, got.IndicatorID)
	}
}

func TestListSortedByFetchTime(t *testing.T) {
	c := newTestCache(t)
	base := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, c.Put(testEntry("older", base)))
	require.NoError(t, c.Put(testEntry("newer", base.Add(time.Hour))))

	infos, err := c.List()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "newer", infos[0].IndicatorID)
	assert.Equal(t, "older", infos[1].IndicatorID)
	assert.Equal(t, 3, infos[0].Observations)
}

func TestClearAndClearAll(t *testing.T) {
	c := newTestCache(t)
	fetchedAt := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, c.Put(testEntry("a", fetchedAt)))
	require.NoError(t, c.Put(testEntry("b", fetchedAt)))

	require.NoError(t, c.Clear("a"))
	_, err := c.Get("a")
	assert.ErrorIs(t, err, ErrNotCached)

	// Clearing a missing entry is fine.
	require.NoError(t, c.Clear("a"))

	require.NoError(t, c.ClearAll())
	infos, err := c.List()
	require.NoError(t, err)
	assert.Empty(t, infos)
}
