// Package quality scores columns and datasets, flags anomalies, and
// derives recommendations from them. Everything here is rule-driven
// and deterministic; the same column inputs always produce the same
// findings in the same order.
package quality

import (
	"math"

	"profiler/internal/infer"
)

// Column is the per-column input to the engine, assembled after type
// inference. Values holds only the materialized non-null values.
type Column struct {
	Name         string
	Type         infer.ColumnType
	Confidence   float64
	Values       []string
	NullCount    int
	TotalCount   int
	OutlierCount int
}

// ColumnQuality holds the per-column quality percentages. All four
// inputs to Score are on the 0..100 scale except confidence, which is
// scaled inside.
type ColumnQuality struct {
	Completeness float64 `json:"completeness"`
	Uniqueness   float64 `json:"uniqueness"`
	Consistency  float64 `json:"consistency"`
	Score        float64 `json:"qualityScore"`

	UniqueCount  int `json:"uniqueCount"`
	InvalidCount int `json:"-"`
}

// Metrics are the dataset-level aggregates. Overall is always the
// plain average of the other four, never set directly.
type Metrics struct {
	Completeness float64 `json:"completeness"`
	Uniqueness   float64 `json:"uniqueness"`
	Consistency  float64 `json:"consistency"`
	Validity     float64 `json:"validity"`
	Overall      float64 `json:"overall"`
}

// Assess computes the quality numbers for one column.
func Assess(c Column) ColumnQuality {
	var q ColumnQuality

	if c.TotalCount > 0 {
		q.Completeness = float64(c.TotalCount-c.NullCount) / float64(c.TotalCount) * 100
	}

	nonNull := len(c.Values)
	if nonNull > 0 {
		seen := make(map[string]struct{}, nonNull)
		for _, v := range c.Values {
			seen[v] = struct{}{}
		}
		q.UniqueCount = len(seen)
		q.Uniqueness = float64(q.UniqueCount) / float64(nonNull) * 100

		valid := 0
		for _, v := range c.Values {
			if infer.Validate(c.Type, v) {
				valid++
			}
		}
		q.InvalidCount = nonNull - valid
		q.Consistency = float64(valid) / float64(nonNull) * 100
	}

	q.Score = round2(0.3*q.Completeness + 0.3*q.Uniqueness + 0.2*q.Consistency + 0.2*(c.Confidence*100))
	q.Completeness = round2(q.Completeness)
	q.Uniqueness = round2(q.Uniqueness)
	q.Consistency = round2(q.Consistency)
	return q
}

// Aggregate folds the per-column quality numbers into dataset metrics.
func Aggregate(cols []Column, qs []ColumnQuality) Metrics {
	var m Metrics
	if len(cols) == 0 {
		return m
	}
	for i, q := range qs {
		m.Completeness += q.Completeness
		m.Uniqueness += q.Uniqueness
		m.Consistency += q.Consistency
		m.Validity += cols[i].Confidence * 100
	}
	n := float64(len(cols))
	m.Completeness = round2(m.Completeness / n)
	m.Uniqueness = round2(m.Uniqueness / n)
	m.Consistency = round2(m.Consistency / n)
	m.Validity = round2(m.Validity / n)
	m.Overall = round2((m.Completeness + m.Uniqueness + m.Consistency + m.Validity) / 4)
	return m
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
