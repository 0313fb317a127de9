package normalize

import (
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/econwatch/recession-radar/internal/indicator"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func series(obs ...indicator.Observation) *indicator.Series {
	return &indicator.Series{SeriesID: "TEST", Observations: obs}
}

func present(y int, m time.Month, d int, v float64) indicator.Observation {
	return indicator.Observation{Date: day(y, m, d), Value: null.FloatFrom(v)}
}

func absent(y int, m time.Month, d int) indicator.Observation {
	return indicator.Observation{Date: day(y, m, d)}
}

func TestAlignDownsampleDailyToMonthly(t *testing.T) {
	s := series(
		present(2024, time.January, 2, 1.0),
		present(2024, time.January, 15, 1.5),
		present(2024, time.January, 31, 2.0),
		present(2024, time.February, 1, 3.0),
		present(2024, time.February, 29, 4.0),
	)

	out, err := Align(s, indicator.Daily, indicator.Monthly)
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())

	// Last observation of each month wins.
	assert.Equal(t, day(2024, time.January, 1), out.Observations[0].Date)
	assert.Equal(t, 2.0, out.Observations[0].Value.Float64)
	assert.Equal(t, day(2024, time.February, 1), out.Observations[1].Date)
	assert.Equal(t, 4.0, out.Observations[1].Value.Float64)
}

func TestAlignDownsampleKeepsAbsentLastObservation(t *testing.T) {
	s := series(
		present(2024, time.January, 15, 1.5),
		absent(2024, time.January, 31),
	)

	out, err := Align(s, indicator.Daily, indicator.Monthly)
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
	assert.False(t, out.Observations[0].Value.Valid)
}

func TestAlignDownsampleEmptyPeriodStaysAbsent(t *testing.T) {
	s := series(
		present(2024, time.January, 10, 1.0),
		present(2024, time.March, 10, 3.0),
	)

	out, err := Align(s, indicator.Daily, indicator.Monthly)
	require.NoError(t, err)
	require.Equal(t, 3, out.Len())
	assert.True(t, out.Observations[0].Value.Valid)
	assert.False(t, out.Observations[1].Value.Valid)
	assert.Equal(t, 3.0, out.Observations[2].Value.Float64)
}

func TestAlignUpsampleQuarterlyToMonthlyForwardFills(t *testing.T) {
	s := series(
		present(2024, time.January, 1, 10.0),
		present(2024, time.July, 1, 30.0),
	)

	out, err := Align(s, indicator.Quarterly, indicator.Monthly)
	require.NoError(t, err)
	require.Equal(t, 7, out.Len())

	// Jan through Jun carry 10; never the interpolated 20.
	for i := 0; i < 6; i++ {
		assert.Equal(t, day(2024, time.Month(i+1), 1), out.Observations[i].Date)
		require.True(t, out.Observations[i].Value.Valid, "month %d", i+1)
		assert.Equal(t, 10.0, out.Observations[i].Value.Float64, "month %d", i+1)
	}
	assert.Equal(t, 30.0, out.Observations[6].Value.Float64)
}

func TestAlignUpsampleLeadingAbsentStaysAbsent(t *testing.T) {
	s := series(
		absent(2024, time.January, 1),
		present(2024, time.April, 1, 5.0),
	)

	out, err := Align(s, indicator.Quarterly, indicator.Monthly)
	require.NoError(t, err)
	require.Equal(t, 4, out.Len())
	for i := 0; i < 3; i++ {
		assert.False(t, out.Observations[i].Value.Valid, "month %d", i+1)
	}
	assert.Equal(t, 5.0, out.Observations[3].Value.Float64)
}

func TestAlignSameFrequencyNormalizesDates(t *testing.T) {
	s := series(
		present(2024, time.January, 12, 1.0),
		present(2024, time.February, 14, 2.0),
	)

	out, err := Align(s, indicator.Monthly, indicator.Monthly)
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, day(2024, time.January, 1), out.Observations[0].Date)
	assert.Equal(t, day(2024, time.February, 1), out.Observations[1].Date)
}

func TestAlignEmptySeries(t *testing.T) {
	out, err := Align(series(), indicator.Daily, indicator.Monthly)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
}

func TestAlignInvalidFrequency(t *testing.T) {
	_, err := Align(series(), indicator.Frequency("hourly"), indicator.Monthly)
	assert.Error(t, err)
}

func TestAlignAll(t *testing.T) {
	reg, err := indicator.NewRegistry()
	require.NoError(t, err)

	in := map[string]*indicator.Series{
		"yield_curve": series(
			present(2024, time.January, 2, -0.3),
			present(2024, time.January, 31, -0.1),
		),
		"sahm_rule": series(present(2024, time.January, 1, 0.2)),
	}

	out, err := AlignAll(in, reg, indicator.Monthly)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, -0.1, out["yield_curve"].Observations[0].Value.Float64)
	assert.Equal(t, 0.2, out["sahm_rule"].Observations[0].Value.Float64)
}

func TestAlignAllUnknownIndicator(t *testing.T) {
	reg, err := indicator.NewRegistry()
	require.NoError(t, err)

	_, err = AlignAll(map[string]*indicator.Series{"bogus": series()}, reg, indicator.Monthly)

	var unknownErr *indicator.UnknownIndicatorError
	assert.ErrorAs(t, err, &unknownErr)
}
