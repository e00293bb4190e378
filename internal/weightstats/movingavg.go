package weightstats

// MovingAveragePoint carries one chart row per entry. When fewer than N
// entries precede an entry, maN falls back to the entry's own raw weight so
// charts never show gaps - early rows intentionally have
// weight == ma7 == ma14 == ma30.
type MovingAveragePoint struct {
	Date   string  `json:"date"`
	Weight float64 `json:"weight"`
	MA7    float64 `json:"ma7"`
	MA14   float64 `json:"ma14"`
	MA30   float64 `json:"ma30"`
}

// MovingAverages computes 7/14/30-sample trailing averages per entry.
// Windows are sample counts, not calendar days.
func MovingAverages(entries []WeightEntry) []MovingAveragePoint {
	points := make([]MovingAveragePoint, 0, len(entries))
	for i, e := range entries {
		points = append(points, MovingAveragePoint{
			Date:   e.Date,
			Weight: e.Weight,
			MA7:    trailingMean(entries, i, 7),
			MA14:   trailingMean(entries, i, 14),
			MA30:   trailingMean(entries, i, 30),
		})
	}
	return points
}

func trailingMean(entries []WeightEntry, i, window int) float64 {
	if i < window-1 {
		return entries[i].Weight
	}
	var sum float64
	for j := i - window + 1; j <= i; j++ {
		sum += entries[j].Weight
	}
	return sum / float64(window)
}
