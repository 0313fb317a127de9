package indicator

import (
	"fmt"
	"time"
)

// Metadata is the static descriptor for one registered indicator.
// Immutable, loaded once per process, shared read-only.
type Metadata struct {
	ID        string        // stable internal identifier
	SeriesID  string        // upstream FRED series identifier
	Name      string        // human-readable description
	Frequency Frequency     // native publication cadence
	Staleness time.Duration // max cache age before a refresh is attempted
	Weight    float64       // weight in the composite score
	Rule      ScoreRule     // derivation + enumerated scoring bands
}

// UnknownIndicatorError means an indicator id is not registered.
// This is a configuration bug, not a transient condition.
type UnknownIndicatorError struct {
	ID string
}

func (e *UnknownIndicatorError) Error() string {
	return fmt.Sprintf("unknown indicator: %q", e.ID)
}

// Registry is the fixed indicator table. Unknown identifiers are rejected
// when the registry is built, not at first use.
type Registry struct {
	ordered []Metadata
	byID    map[string]Metadata
}

// NewRegistry builds and validates the default indicator registry.
func NewRegistry() (*Registry, error) {
	return newRegistry(defaultIndicators)
}

// NewRegistryFrom builds a registry from a custom indicator table.
func NewRegistryFrom(metas []Metadata) (*Registry, error) {
	return newRegistry(metas)
}

func newRegistry(metas []Metadata) (*Registry, error) {
	if len(metas) == 0 {
		return nil, fmt.Errorf("indicator registry is empty")
	}

	r := &Registry{
		ordered: make([]Metadata, 0, len(metas)),
		byID:    make(map[string]Metadata, len(metas)),
	}

	for _, m := range metas {
		if m.ID == "" || m.SeriesID == "" {
			return nil, fmt.Errorf("indicator %q: id and series id are required", m.ID)
		}
		if _, dup := r.byID[m.ID]; dup {
			return nil, fmt.Errorf("indicator %q: duplicate id", m.ID)
		}
		if !m.Frequency.Valid() {
			return nil, fmt.Errorf("indicator %q: invalid frequency %q", m.ID, m.Frequency)
		}
		if m.Staleness <= 0 {
			return nil, fmt.Errorf("indicator %q: staleness must be positive", m.ID)
		}
		if m.Weight <= 0 {
			return nil, fmt.Errorf("indicator %q: weight must be positive", m.ID)
		}
		if err := m.Rule.validate(); err != nil {
			return nil, fmt.Errorf("indicator %q: %w", m.ID, err)
		}

		r.ordered = append(r.ordered, m)
		r.byID[m.ID] = m
	}

	return r, nil
}

// All returns every registered indicator in declaration order.
func (r *Registry) All() []Metadata {
	out := make([]Metadata, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Get returns the metadata for id.
func (r *Registry) Get(id string) (Metadata, error) {
	m, ok := r.byID[id]
	if !ok {
		return Metadata{}, &UnknownIndicatorError{ID: id}
	}
	return m, nil
}

// Len returns the number of registered indicators.
func (r *Registry) Len() int {
	return len(r.ordered)
}

// defaultIndicators is the fixed indicator table. Staleness is proportional
// to publication cadence; weights and band thresholds follow the composite
// recession-risk model. All rules are evaluated on the monthly-aligned
// series, so Diff/PctChange periods are months.
var defaultIndicators = []Metadata{
	{
		ID:        "yield_curve",
		SeriesID:  "T10Y2Y",
		Name:      "10Y-2Y Treasury Spread",
		Frequency: Daily,
		Staleness: 24 * time.Hour,
		Weight:    25,
		Rule: ScoreRule{
			Transform: Transform{Kind: Level},
			Breakpoints: []Breakpoint{
				{Value: -0.5, Score: 100},
				{Value: 0, Score: 70},
				{Value: 0.5, Score: 30},
				{Value: 3.5, Score: 0},
			},
		},
	},
	{
		ID:        "sahm_rule",
		SeriesID:  "SAHMREALTIME",
		Name:      "Sahm Rule Recession Indicator",
		Frequency: Monthly,
		Staleness: 30 * 24 * time.Hour,
		Weight:    25,
		Rule: ScoreRule{
			Transform: Transform{Kind: Level},
			Breakpoints: []Breakpoint{
				{Value: 0, Score: 0},
				{Value: 0.3, Score: 50},
				{Value: 0.5, Score: 100},
			},
		},
	},
	{
		ID:        "credit_spread",
		SeriesID:  "BAMLH0A0HYM2",
		Name:      "High Yield Credit Spread",
		Frequency: Daily,
		Staleness: 24 * time.Hour,
		Weight:    15,
		Rule: ScoreRule{
			Transform: Transform{Kind: Level},
			Breakpoints: []Breakpoint{
				{Value: 0, Score: 0},
				{Value: 4, Score: 50},
				{Value: 6, Score: 100},
			},
		},
	},
	{
		ID:        "unemployment_3m",
		SeriesID:  "UNRATE",
		Name:      "Unemployment Rate Change (3m)",
		Frequency: Monthly,
		Staleness: 30 * 24 * time.Hour,
		Weight:    20,
		Rule: ScoreRule{
			Transform: Transform{Kind: Diff, Periods: 3},
			Breakpoints: []Breakpoint{
				{Value: 0, Score: 0},
				{Value: 0.3, Score: 50},
				{Value: 0.5, Score: 100},
			},
		},
	},
	{
		ID:        "lei_6m",
		SeriesID:  "USALOLITONOSTSAM",
		Name:      "Leading Economic Index 6-Month Change",
		Frequency: Monthly,
		Staleness: 30 * 24 * time.Hour,
		Weight:    10,
		Rule: ScoreRule{
			Transform: Transform{Kind: PctChange, Periods: 6},
			Breakpoints: []Breakpoint{
				{Value: -5, Score: 100},
				{Value: -2, Score: 50},
				{Value: 5, Score: 0},
			},
		},
	},
	{
		ID:        "gdp_growth",
		SeriesID:  "GDPC1",
		Name:      "Real GDP Growth (QoQ)",
		Frequency: Quarterly,
		Staleness: 90 * 24 * time.Hour,
		Weight:    15,
		Rule: ScoreRule{
			// quarterly series forward-filled to months, so one quarter = 3 periods
			Transform: Transform{Kind: PctChange, Periods: 3},
			Breakpoints: []Breakpoint{
				{Value: -1, Score: 100},
				{Value: 0.5, Score: 50},
				{Value: 5.5, Score: 0},
			},
		},
	},
	{
		ID:        "manufacturing_pmi",
		SeriesID:  "IPMAN",
		Name:      "Manufacturing Activity (PMI proxy)",
		Frequency: Monthly,
		Staleness: 30 * 24 * time.Hour,
		Weight:    10,
		Rule: ScoreRule{
			Transform: Transform{Kind: Level},
			Breakpoints: []Breakpoint{
				{Value: 45, Score: 100},
				{Value: 50, Score: 50},
				{Value: 75, Score: 0},
			},
		},
	},
	{
		ID:        "jobless_claims",
		SeriesID:  "ICSA",
		Name:      "Initial Jobless Claims 3-Month Change",
		Frequency: Weekly,
		Staleness: 7 * 24 * time.Hour,
		Weight:    10,
		Rule: ScoreRule{
			Transform: Transform{Kind: PctChange, Periods: 3},
			Breakpoints: []Breakpoint{
				{Value: -5, Score: 0},
				{Value: 10, Score: 50},
				{Value: 25, Score: 100},
			},
		},
	},
}
