package quality

import (
	"fmt"
	"sort"

	"profiler/internal/infer"
)

// Category is the closed set of recommendation categories.
type Category string

const (
	CategoryDeduplication   Category = "deduplication"
	CategoryMissingData     Category = "missing_data"
	CategoryOutlierReview   Category = "outlier_review"
	CategoryTypeCleanup     Category = "type_cleanup"
	CategoryStandardization Category = "standardization"
)

// Recommendation is one ranked, actionable suggestion. Priority is a
// total order: 1 is most urgent and values run 1..N without gaps.
type Recommendation struct {
	Category       Category `json:"category"`
	Priority       int      `json:"priority"`
	Action         string   `json:"action"`
	ExpectedImpact string   `json:"expectedImpact"`
}

// basePriority maps severity to an urgency band before renumbering.
func basePriority(s Severity) int {
	switch s {
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	default:
		return 3
	}
}

// Recommend turns anomalies and the inferred-type histogram into the
// ranked recommendation list. Within an urgency band anomalies keep
// their discovery order; histogram-derived suggestions rank last in
// the low band.
func Recommend(anomalies []Anomaly, types []infer.ColumnType) []Recommendation {
	type ranked struct {
		rec  Recommendation
		band int
		seq  int
	}
	var all []ranked

	for i, a := range anomalies {
		all = append(all, ranked{rec: fromAnomaly(a), band: basePriority(a.Severity), seq: i})
	}

	dateCols := 0
	for _, t := range types {
		if t == infer.TypeDate || t == infer.TypeTimestamp {
			dateCols++
		}
	}
	if dateCols >= 2 {
		all = append(all, ranked{
			rec: Recommendation{
				Category:       CategoryStandardization,
				Action:         "Confirm a canonical date format across temporal columns",
				ExpectedImpact: "Keeps date comparisons and sorting consistent",
			},
			band: 3,
			seq:  len(anomalies),
		})
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].band != all[j].band {
			return all[i].band < all[j].band
		}
		return all[i].seq < all[j].seq
	})

	out := make([]Recommendation, len(all))
	for i, r := range all {
		r.rec.Priority = i + 1
		out[i] = r.rec
	}
	return out
}

func fromAnomaly(a Anomaly) Recommendation {
	switch a.Kind {
	case KindDuplicateRows:
		return Recommendation{
			Category:       CategoryDeduplication,
			Action:         fmt.Sprintf("Remove or merge %d duplicate rows", a.AffectedRowCount),
			ExpectedImpact: "Removes double counting from aggregates",
		}
	case KindHighMissingness:
		return Recommendation{
			Category:       CategoryMissingData,
			Action:         fmt.Sprintf("Backfill or drop column %q", a.Column),
			ExpectedImpact: "Raises completeness above the 80% floor",
		}
	case KindStatisticalOutliers:
		return Recommendation{
			Category:       CategoryOutlierReview,
			Action:         fmt.Sprintf("Review %d outlier values in column %q", a.AffectedRowCount, a.Column),
			ExpectedImpact: "Prevents extreme values from skewing statistics",
		}
	default:
		return Recommendation{
			Category:       CategoryTypeCleanup,
			Action:         fmt.Sprintf("Normalize values in column %q to one format", a.Column),
			ExpectedImpact: "Lifts type confidence above the ambiguity cutoff",
		}
	}
}

// SuggestedCategories names the record categories the dataset plausibly
// holds, from the inferred-type histogram. Order is fixed; "general" is
// the fallback when nothing more specific matched.
func SuggestedCategories(types []infer.ColumnType) []string {
	has := make(map[infer.ColumnType]bool, len(types))
	for _, t := range types {
		has[t] = true
	}
	var out []string
	if has[infer.TypeEmail] || has[infer.TypePhone] {
		out = append(out, "contact")
	}
	if has[infer.TypeDate] || has[infer.TypeTimestamp] {
		out = append(out, "temporal")
	}
	if has[infer.TypeCurrency] || has[infer.TypePercentage] {
		out = append(out, "financial")
	}
	if has[infer.TypeGeo] || has[infer.TypeIP] {
		out = append(out, "geographic")
	}
	if len(out) == 0 {
		out = append(out, "general")
	}
	return out
}
