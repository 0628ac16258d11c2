package history

// RangeStats summarizes a contiguous slice of history points, as shown in
// the chart header and date-range navigator.
type RangeStats struct {
	Current     float64 `json:"current"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Average     float64 `json:"average"`
	Change      float64 `json:"change"`
	ChangePct   float64 `json:"changePct"`
	TotalVolume int64   `json:"totalVolume"`
	AvgVolume   float64 `json:"avgVolume"`
	StartDate   string  `json:"startDate"`
	EndDate     string  `json:"endDate"`
	Days        int     `json:"days"`
}

// Stats computes aggregate statistics over points[start:end). Out-of-range
// bounds are clamped; an empty slice yields nil, which callers must handle
// without treating it as an error.
func Stats(points []HistoryPoint, start, end int) *RangeStats {
	if start < 0 {
		start = 0
	}
	if end > len(points) {
		end = len(points)
	}
	if start >= end {
		return nil
	}
	window := points[start:end]

	st := &RangeStats{
		Current:   window[len(window)-1].Average,
		Min:       window[0].Average,
		Max:       window[0].Average,
		StartDate: window[0].Date,
		EndDate:   window[len(window)-1].Date,
		Days:      len(window),
	}
	var priceSum float64
	for _, p := range window {
		if p.Average < st.Min {
			st.Min = p.Average
		}
		if p.Average > st.Max {
			st.Max = p.Average
		}
		priceSum += p.Average
		st.TotalVolume += p.Volume
	}
	st.Average = priceSum / float64(len(window))
	st.AvgVolume = float64(st.TotalVolume) / float64(len(window))

	first := window[0].Average
	st.Change = st.Current - first
	if first != 0 {
		st.ChangePct = st.Change / first * 100
	}
	return st
}

// MovingAverage computes the arithmetic moving average of the average price
// over the given period. The value at index i covers points [i-period+1, i];
// positions before period-1 are undefined and stay nil so charting code can
// skip them instead of plotting zeros.
func MovingAverage(points []HistoryPoint, period int) []*float64 {
	out := make([]*float64, len(points))
	if period <= 0 {
		return out
	}
	var sum float64
	for i, p := range points {
		sum += p.Average
		if i >= period {
			sum -= points[i-period].Average
		}
		if i >= period-1 {
			v := sum / float64(period)
			out[i] = &v
		}
	}
	return out
}
