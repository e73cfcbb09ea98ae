// Package stats computes descriptive statistics for numeric columns.
//
// All moments use population formulas (divide by N, not N-1), and
// percentiles use the nearest-rank method over the sorted sample, so a
// given input always yields the same output bytes.
package stats

import (
	"math"
	"sort"
	"strconv"

	"profiler/internal/infer"
)

// PercentileKeys are the percentiles reported for every numeric column,
// in ascending order. The JSON keys of Statistics.Percentiles.
var PercentileKeys = []int{1, 5, 10, 25, 50, 75, 90, 95, 99}

// Statistics holds the descriptive numbers for one numeric column.
type Statistics struct {
	Min          float64            `json:"min"`
	Max          float64            `json:"max"`
	Mean         float64            `json:"mean"`
	Median       float64            `json:"median"`
	StdDev       float64            `json:"stdDev"`
	Variance     float64            `json:"variance"`
	Skewness     float64            `json:"skewness"`
	Kurtosis     float64            `json:"kurtosis"`
	OutlierCount int                `json:"outlierCount"`
	Percentiles  map[string]float64 `json:"percentiles"`
}

// ParseColumn extracts the parseable floats from a column's values,
// preserving order. Unparseable entries are dropped.
func ParseColumn(values []string) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if f, ok := infer.ParseNumeric(v); ok {
			out = append(out, f)
		}
	}
	return out
}

// Compute returns the statistics for a numeric sample, or nil when the
// sample is empty.
func Compute(sample []float64) *Statistics {
	n := len(sample)
	if n == 0 {
		return nil
	}

	sorted := make([]float64, n)
	copy(sorted, sample)
	sort.Float64s(sorted)

	var sum float64
	for _, f := range sorted {
		sum += f
	}
	mean := sum / float64(n)

	var m2, m3, m4 float64
	for _, f := range sorted {
		d := f - mean
		d2 := d * d
		m2 += d2
		m3 += d2 * d
		m4 += d2 * d2
	}
	m2 /= float64(n)
	m3 /= float64(n)
	m4 /= float64(n)

	stdDev := math.Sqrt(m2)

	s := &Statistics{
		Min:         sorted[0],
		Max:         sorted[n-1],
		Mean:        mean,
		StdDev:      stdDev,
		Variance:    m2,
		Percentiles: make(map[string]float64, len(PercentileKeys)),
	}

	if stdDev > 0 {
		s.Skewness = m3 / (stdDev * stdDev * stdDev)
		s.Kurtosis = m4/(m2*m2) - 3
		limit := 3 * stdDev
		for _, f := range sorted {
			if math.Abs(f-mean) > limit {
				s.OutlierCount++
			}
		}
	}

	for _, p := range PercentileKeys {
		s.Percentiles[strconv.Itoa(p)] = nearestRank(sorted, p)
	}
	s.Median = s.Percentiles["50"]

	return s
}

// nearestRank picks the value at index floor(p/100 * (N-1)) of the
// sorted sample.
func nearestRank(sorted []float64, p int) float64 {
	idx := int(math.Floor(float64(p) / 100 * float64(len(sorted)-1)))
	return sorted[idx]
}
