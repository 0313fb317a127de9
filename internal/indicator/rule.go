package indicator

import (
	"fmt"

	"github.com/guregu/null/v6"
)

// TransformKind selects how a raw series is turned into the value the
// scoring bands are defined over.
type TransformKind string

const (
	// Level scores the observation value as published.
	Level TransformKind = "level"
	// Diff scores the arithmetic change over Periods aligned periods.
	Diff TransformKind = "diff"
	// PctChange scores the percentage change over Periods aligned periods.
	PctChange TransformKind = "pct_change"
)

// Transform describes the derivation applied to an aligned series before
// band scoring. Periods counts steps on the aligned timeline, not the
// series' native one.
type Transform struct {
	Kind    TransformKind `json:"kind"`
	Periods int           `json:"periods,omitempty"`
}

// Apply derives a new series from s. A derived observation is present only
// when every input it needs is present; everything else stays absent.
func (t Transform) Apply(s *Series) *Series {
	out := &Series{
		SeriesID:     s.SeriesID,
		Observations: make([]Observation, len(s.Observations)),
	}

	for i, obs := range s.Observations {
		derived := Observation{Date: obs.Date}

		switch t.Kind {
		case Level:
			derived.Value = obs.Value
		case Diff:
			if i >= t.Periods && obs.Value.Valid {
				base := s.Observations[i-t.Periods].Value
				if base.Valid {
					derived.Value = null.FloatFrom(obs.Value.Float64 - base.Float64)
				}
			}
		case PctChange:
			if i >= t.Periods && obs.Value.Valid {
				base := s.Observations[i-t.Periods].Value
				if base.Valid && base.Float64 != 0 {
					derived.Value = null.FloatFrom((obs.Value.Float64 - base.Float64) / base.Float64 * 100)
				}
			}
		}

		out.Observations[i] = derived
	}

	return out
}

func (t Transform) validate() error {
	switch t.Kind {
	case Level:
		if t.Periods != 0 {
			return fmt.Errorf("level transform takes no periods")
		}
	case Diff, PctChange:
		if t.Periods < 1 {
			return fmt.Errorf("%s transform needs at least 1 period", t.Kind)
		}
	default:
		return fmt.Errorf("unknown transform kind: %q", t.Kind)
	}
	return nil
}

// Breakpoint anchors the scoring curve: at Value the sub-score is Score.
type Breakpoint struct {
	Value float64 `json:"value"`
	Score float64 `json:"score"`
}

// ScoreRule maps a derived indicator value to a sub-score in [0,100].
// The curve is fully enumerated as breakpoints sorted by ascending value;
// between breakpoints the score is linear, beyond the ends it is clamped
// to the end scores. Risk direction falls out of the breakpoint scores:
// descending scores mean risk rises as the value falls.
type ScoreRule struct {
	Transform   Transform    `json:"transform"`
	Breakpoints []Breakpoint `json:"breakpoints"`
}

// SubScore evaluates the curve at v.
func (r ScoreRule) SubScore(v float64) float64 {
	bps := r.Breakpoints

	if v <= bps[0].Value {
		return clampScore(bps[0].Score)
	}
	if v >= bps[len(bps)-1].Value {
		return clampScore(bps[len(bps)-1].Score)
	}

	for i := 1; i < len(bps); i++ {
		if v <= bps[i].Value {
			lo, hi := bps[i-1], bps[i]
			frac := (v - lo.Value) / (hi.Value - lo.Value)
			return clampScore(lo.Score + frac*(hi.Score-lo.Score))
		}
	}

	return clampScore(bps[len(bps)-1].Score)
}

func (r ScoreRule) validate() error {
	if err := r.Transform.validate(); err != nil {
		return err
	}

	if len(r.Breakpoints) < 2 {
		return fmt.Errorf("score rule needs at least 2 breakpoints")
	}

	for i, bp := range r.Breakpoints {
		if bp.Score < 0 || bp.Score > 100 {
			return fmt.Errorf("breakpoint %d score %.2f outside [0,100]", i, bp.Score)
		}
		if i > 0 && bp.Value <= r.Breakpoints[i-1].Value {
			return fmt.Errorf("breakpoint %d value %.2f not above previous %.2f",
				i, bp.Value, r.Breakpoints[i-1].Value)
		}
	}

	return nil
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
