package indicators

// SeriesStats summarises a series. All fields are nil for an empty series.
type SeriesStats struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
	Avg *float64 `json:"avg"`
}

// Stats computes min, max and the mean rounded to 4 decimals.
func Stats(values []float64) SeriesStats {
	if len(values) == 0 {
		return SeriesStats{}
	}
	lo, hi, sum := values[0], values[0], 0.0
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
		sum += v
	}
	avg := Round(sum/float64(len(values)), 4)
	return SeriesStats{Min: &lo, Max: &hi, Avg: &avg}
}
