package indicator

import (
	"fmt"
	"time"
)

// Frequency is the native publication cadence of a series.
type Frequency string

const (
	Daily     Frequency = "daily"
	Weekly    Frequency = "weekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
)

// frequency rank, finest first
var frequencyRank = map[Frequency]int{
	Daily:     0,
	Weekly:    1,
	Monthly:   2,
	Quarterly: 3,
}

// ParseFrequency converts a string to a Frequency.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(s)
	if !f.Valid() {
		return "", fmt.Errorf("unknown frequency: %q", s)
	}
	return f, nil
}

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	_, ok := frequencyRank[f]
	return ok
}

// FinerThan reports whether f publishes more often than other.
func (f Frequency) FinerThan(other Frequency) bool {
	return frequencyRank[f] < frequencyRank[other]
}

// PeriodStart truncates t to the start of its period in UTC:
// the day for daily, Monday for weekly, the 1st for monthly, and
// the quarter's first day for quarterly.
func (f Frequency) PeriodStart(t time.Time) time.Time {
	t = t.UTC()
	y, m, d := t.Date()

	switch f {
	case Daily:
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	case Weekly:
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
		return day.AddDate(0, 0, -offset)
	case Monthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	case Quarterly:
		qm := time.Month((int(m)-1)/3*3 + 1)
		return time.Date(y, qm, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
}

// NextPeriod returns the start of the period after the one containing t.
func (f Frequency) NextPeriod(t time.Time) time.Time {
	start := f.PeriodStart(t)
	switch f {
	case Daily:
		return start.AddDate(0, 0, 1)
	case Weekly:
		return start.AddDate(0, 0, 7)
	case Monthly:
		return start.AddDate(0, 1, 0)
	case Quarterly:
		return start.AddDate(0, 3, 0)
	default:
		return start.AddDate(0, 0, 1)
	}
}

// FinestOf returns the finest frequency among the given ones.
func FinestOf(freqs ...Frequency) Frequency {
	finest := Quarterly
	for _, f := range freqs {
		if f.FinerThan(finest) {
			finest = f
		}
	}
	return finest
}
