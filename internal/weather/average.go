package weather

// AverageForHours averages the series at the given hour indices.
// Indices outside [0,23] or beyond the series and nil observations are
// ignored. Returns nil when nothing is left to average.
func AverageForHours(series HourlySeries, hours []int) *float64 {
	var (
		sum   float64
		count int
	)

	for _, h := range hours {
		if h < 0 || h > 23 || h >= len(series) {
			continue
		}
		t := series[h]
		if t == nil {
			continue
		}
		sum += *t
		count++
	}

	if count == 0 {
		return nil
	}

	avg := sum / float64(count)
	return &avg
}
