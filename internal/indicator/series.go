package indicator

import (
	"fmt"
	"time"

	"github.com/guregu/null/v6"
)

// Observation is a single dated value in a series. Value is explicitly
// nullable: upstream publishes "." for periods it has not released yet,
// and that must never collapse to zero.
type Observation struct {
	Date  time.Time  `json:"date"`
	Value null.Float `json:"value"`
}

// Series is a named, ordered sequence of observations for one indicator.
// Timestamps are unique and strictly increasing. A Series is owned by the
// cache once fetched and is read-only downstream.
type Series struct {
	SeriesID     string        `json:"series_id"`
	Observations []Observation `json:"observations"`
}

// Len returns the number of observations.
func (s *Series) Len() int {
	return len(s.Observations)
}

// Validate checks the strictly-increasing-timestamp invariant.
// Non-monotonic or duplicate dates from upstream are a hard error,
// never silently deduplicated.
func (s *Series) Validate() error {
	for i := 1; i < len(s.Observations); i++ {
		prev := s.Observations[i-1].Date
		cur := s.Observations[i].Date
		if !cur.After(prev) {
			return fmt.Errorf("series %s: observation %d (%s) not after %s",
				s.SeriesID, i, cur.Format("2006-01-02"), prev.Format("2006-01-02"))
		}
	}
	return nil
}

// Latest returns the most recent observation with a present value.
func (s *Series) Latest() (Observation, bool) {
	for i := len(s.Observations) - 1; i >= 0; i-- {
		if s.Observations[i].Value.Valid {
			return s.Observations[i], true
		}
	}
	return Observation{}, false
}

// First returns the earliest observation, present or not.
func (s *Series) First() (Observation, bool) {
	if len(s.Observations) == 0 {
		return Observation{}, false
	}
	return s.Observations[0], true
}

// Last returns the final observation, present or not.
func (s *Series) Last() (Observation, bool) {
	if len(s.Observations) == 0 {
		return Observation{}, false
	}
	return s.Observations[len(s.Observations)-1], true
}
