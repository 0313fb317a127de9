package score

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"github.com/econwatch/recession-radar/internal/indicator"
	"github.com/econwatch/recession-radar/pkg/logger"
)

// Risk labels, keyed to the composite's 0-100 range.
const (
	LabelLow      = "low"
	LabelModerate = "moderate"
	LabelElevated = "elevated"
	LabelHigh     = "high"
)

// InsufficientDataError means no indicator had a scoreable value, so no
// composite can be computed.
type InsufficientDataError struct {
	Missing []string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("score: no indicator values available (missing: %s)", strings.Join(e.Missing, ", "))
}

// Composite is one full scoring result. Contributions are the weighted
// shares that sum to Value; Weights are the normalized weights actually
// applied after dropping absent indicators.
type Composite struct {
	Value         float64            `json:"value"`
	Label         string             `json:"label"`
	SubScores     map[string]float64 `json:"sub_scores"`
	Contributions map[string]float64 `json:"contributions"`
	Weights       map[string]float64 `json:"weights"`
	Missing       []string           `json:"missing,omitempty"`
	ComputedAt    time.Time          `json:"computed_at"`
}

// Scorer maps per-indicator values to sub-scores and combines them into a
// weighted composite on a 0-100 scale.
type Scorer struct {
	registry *indicator.Registry
	logger   *logger.Logger
	now      func() time.Time
}

// New creates a Scorer over the given registry.
func New(reg *indicator.Registry, log *logger.Logger) *Scorer {
	return &Scorer{
		registry: reg,
		logger:   log.WithField("module", "score"),
		now:      time.Now,
	}
}

// LatestValues applies each indicator's transform to its aligned series
// and extracts the newest present value. Indicators whose series yields
// no present value map to an absent entry.
func (s *Scorer) LatestValues(aligned map[string]*indicator.Series) (map[string]null.Float, error) {
	values := make(map[string]null.Float, len(aligned))

	for id, series := range aligned {
		meta, err := s.registry.Get(id)
		if err != nil {
			return nil, err
		}

		transformed := meta.Rule.Transform.Apply(series)
		obs, ok := transformed.Latest()
		if !ok {
			values[id] = null.Float{}
			continue
		}
		values[id] = obs.Value
	}

	return values, nil
}

// Score computes the composite from per-indicator values. Indicators with
// absent values are dropped and the remaining weights renormalized, so a
// partial fetch still yields a composite on the same 0-100 scale. An
// InsufficientDataError is returned when nothing is scoreable.
func (s *Scorer) Score(values map[string]null.Float) (*Composite, error) {
	subScores := make(map[string]float64)
	weights := make(map[string]float64)
	var missing []string
	var totalWeight float64

	for _, meta := range s.registry.All() {
		v, ok := values[meta.ID]
		if !ok || !v.Valid {
			missing = append(missing, meta.ID)
			continue
		}

		subScores[meta.ID] = meta.Rule.SubScore(v.Float64)
		weights[meta.ID] = meta.Weight
		totalWeight += meta.Weight
	}

	if len(subScores) == 0 {
		return nil, &InsufficientDataError{Missing: missing}
	}

	composite := &Composite{
		SubScores:     subScores,
		Contributions: make(map[string]float64, len(subScores)),
		Weights:       make(map[string]float64, len(subScores)),
		Missing:       missing,
		ComputedAt:    s.now().UTC(),
	}

	for id, sub := range subScores {
		normalized := weights[id] / totalWeight
		composite.Weights[id] = normalized
		composite.Contributions[id] = sub * normalized
		composite.Value += sub * normalized
	}
	composite.Label = Classify(composite.Value)

	sort.Strings(composite.Missing)

	s.logger.WithFields(map[string]interface{}{
		"value":   composite.Value,
		"label":   composite.Label,
		"scored":  len(subScores),
		"missing": len(missing),
	}).Info("Composite computed")

	return composite, nil
}

// Classify maps a composite value to its risk label.
func Classify(value float64) string {
	switch {
	case value < 25:
		return LabelLow
	case value < 50:
		return LabelModerate
	case value < 75:
		return LabelElevated
	default:
		return LabelHigh
	}
}
