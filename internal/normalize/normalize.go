package normalize

import (
	"fmt"

	"github.com/econwatch/recession-radar/internal/indicator"
)

// Align resamples a series from one frequency to another.
//
// Downsampling (finer to coarser) keeps the last observation of each
// target period, absent markers included. Upsampling (coarser to finer)
// forward-fills: each target period inherits the newest source observation
// dated at or before its start. Values are never interpolated. Either way
// the output covers consecutive target periods from the first source
// observation to the last, with dates normalized to period starts.
func Align(s *indicator.Series, from, to indicator.Frequency) (*indicator.Series, error) {
	if !from.Valid() || !to.Valid() {
		return nil, fmt.Errorf("normalize: invalid frequency %q -> %q", from, to)
	}
	if s.Len() == 0 {
		return &indicator.Series{SeriesID: s.SeriesID}, nil
	}

	if to.FinerThan(from) {
		return upsample(s, to), nil
	}
	return downsample(s, to), nil
}

// AlignAll aligns every series in the map to the target frequency, keyed
// by indicator ID. The registry supplies each series' native frequency.
func AlignAll(series map[string]*indicator.Series, reg *indicator.Registry, to indicator.Frequency) (map[string]*indicator.Series, error) {
	aligned := make(map[string]*indicator.Series, len(series))
	for id, s := range series {
		meta, err := reg.Get(id)
		if err != nil {
			return nil, err
		}
		out, err := Align(s, meta.Frequency, to)
		if err != nil {
			return nil, fmt.Errorf("normalize %s: %w", id, err)
		}
		aligned[id] = out
	}
	return aligned, nil
}

func downsample(s *indicator.Series, to indicator.Frequency) *indicator.Series {
	out := &indicator.Series{SeriesID: s.SeriesID}

	first := to.PeriodStart(s.Observations[0].Date)
	last := to.PeriodStart(s.Observations[s.Len()-1].Date)

	i := 0
	for period := first; !period.After(last); period = to.NextPeriod(period) {
		next := to.NextPeriod(period)

		// Last observation of the period wins; an empty period inside the
		// span stays absent so the gap remains visible.
		obs := indicator.Observation{Date: period}
		for i < s.Len() && s.Observations[i].Date.Before(next) {
			obs.Value = s.Observations[i].Value
			i++
		}

		out.Observations = append(out.Observations, obs)
	}

	return out
}

func upsample(s *indicator.Series, to indicator.Frequency) *indicator.Series {
	out := &indicator.Series{SeriesID: s.SeriesID}

	first := to.PeriodStart(s.Observations[0].Date)
	last := to.PeriodStart(s.Observations[s.Len()-1].Date)

	i := 0
	current := indicator.Observation{}
	for period := first; !period.After(last); period = to.NextPeriod(period) {
		for i < s.Len() && !s.Observations[i].Date.After(period) {
			current = s.Observations[i]
			i++
		}

		out.Observations = append(out.Observations, indicator.Observation{
			Date:  period,
			Value: current.Value,
		})
	}

	return out
}
