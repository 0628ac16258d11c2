package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pricePoints(prices ...float64) []HistoryPoint {
	points := make([]HistoryPoint, len(prices))
	for i, p := range prices {
		points[i] = HistoryPoint{Average: p, Volume: 100, Timestamp: int64(i)}
	}
	return points
}

func TestMovingAverage_Boundary(t *testing.T) {
	// Series shorter than the period: every value undefined.
	short := MovingAverage(pricePoints(1, 2, 3), 5)
	require.Len(t, short, 3)
	for i, v := range short {
		assert.Nil(t, v, "index %d", i)
	}

	// Series of length >= period: first defined value at index period-1.
	ma := MovingAverage(pricePoints(10, 20, 30, 40, 50), 3)
	require.Len(t, ma, 5)
	assert.Nil(t, ma[0])
	assert.Nil(t, ma[1])
	require.NotNil(t, ma[2])
	assert.InDelta(t, 20, *ma[2], 1e-9, "mean of points [0, 2]")
	require.NotNil(t, ma[4])
	assert.InDelta(t, 40, *ma[4], 1e-9)
}

func TestMovingAverage_PeriodOne(t *testing.T) {
	ma := MovingAverage(pricePoints(7, 9), 1)
	require.NotNil(t, ma[0])
	assert.Equal(t, 7.0, *ma[0])
	assert.Equal(t, 9.0, *ma[1])
}

func TestStats_Range(t *testing.T) {
	points := pricePoints(100, 120, 90, 110)
	points[0].Date = "2025-01-01"
	points[3].Date = "2025-01-04"

	st := Stats(points, 0, 4)
	require.NotNil(t, st)
	assert.Equal(t, 110.0, st.Current)
	assert.Equal(t, 90.0, st.Min)
	assert.Equal(t, 120.0, st.Max)
	assert.InDelta(t, 105, st.Average, 1e-9)
	assert.InDelta(t, 10, st.Change, 1e-9)
	assert.InDelta(t, 10, st.ChangePct, 1e-9)
	assert.Equal(t, int64(400), st.TotalVolume)
	assert.Equal(t, "2025-01-01", st.StartDate)
	assert.Equal(t, "2025-01-04", st.EndDate)
	assert.Equal(t, 4, st.Days)
}

func TestStats_SubRangeAndClamping(t *testing.T) {
	points := pricePoints(1, 2, 3, 4, 5)

	st := Stats(points, 1, 3)
	require.NotNil(t, st)
	assert.Equal(t, 3.0, st.Current)
	assert.Equal(t, 2, st.Days)

	st = Stats(points, -10, 99)
	require.NotNil(t, st)
	assert.Equal(t, 5, st.Days)
}

func TestStats_EmptySlice(t *testing.T) {
	assert.Nil(t, Stats(nil, 0, 0))
	assert.Nil(t, Stats(pricePoints(1, 2), 2, 2))
	assert.Nil(t, Stats(pricePoints(1, 2), 3, 1))
}
