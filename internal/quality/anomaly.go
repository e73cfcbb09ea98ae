package quality

import "fmt"

// Kind is the closed set of anomaly rules.
type Kind string

const (
	KindDuplicateRows       Kind = "duplicate_rows"
	KindHighMissingness     Kind = "high_missingness"
	KindStatisticalOutliers Kind = "statistical_outliers"
	KindTypeAmbiguity       Kind = "type_ambiguity"
)

// Severity grades an anomaly by the fraction of rows it touches.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Anomaly is one rule-triggered finding. Column is empty for
// dataset-level findings.
type Anomaly struct {
	Kind             Kind     `json:"kind"`
	Severity         Severity `json:"severity"`
	Column           string   `json:"column,omitempty"`
	Description      string   `json:"description"`
	AffectedRowCount int      `json:"affectedRowCount"`
}

// severityFor grades by affected row share: more than 20% is high,
// more than 5% medium, anything else low.
func severityFor(affected, totalRows int) Severity {
	if totalRows <= 0 {
		return SeverityLow
	}
	frac := float64(affected) / float64(totalRows)
	switch {
	case frac > 0.20:
		return SeverityHigh
	case frac > 0.05:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// DetectAnomalies runs the fixed rule set. The dataset-level duplicate
// check comes first, then the per-column rules in column order, so the
// slice order doubles as the tie-break for recommendation priority.
func DetectAnomalies(duplicateRows, totalRows int, cols []Column, qs []ColumnQuality) []Anomaly {
	var out []Anomaly

	if duplicateRows > 0 {
		out = append(out, Anomaly{
			Kind:             KindDuplicateRows,
			Severity:         severityFor(duplicateRows, totalRows),
			Description:      fmt.Sprintf("%d duplicate rows detected", duplicateRows),
			AffectedRowCount: duplicateRows,
		})
	}

	for i, c := range cols {
		q := qs[i]

		if q.Completeness < 80 {
			out = append(out, Anomaly{
				Kind:             KindHighMissingness,
				Severity:         severityFor(c.NullCount, c.TotalCount),
				Column:           c.Name,
				Description:      fmt.Sprintf("column %q is missing %d of %d values", c.Name, c.NullCount, c.TotalCount),
				AffectedRowCount: c.NullCount,
			})
		}

		if c.Type.Numeric() && c.OutlierCount > 0 {
			out = append(out, Anomaly{
				Kind:             KindStatisticalOutliers,
				Severity:         severityFor(c.OutlierCount, c.TotalCount),
				Column:           c.Name,
				Description:      fmt.Sprintf("column %q has %d values beyond 3 standard deviations", c.Name, c.OutlierCount),
				AffectedRowCount: c.OutlierCount,
			})
		}

		if c.Confidence < 0.85 {
			out = append(out, Anomaly{
				Kind:             KindTypeAmbiguity,
				Severity:         severityFor(q.InvalidCount, c.TotalCount),
				Column:           c.Name,
				Description:      fmt.Sprintf("column %q inferred as %s with confidence %.2f", c.Name, c.Type, c.Confidence),
				AffectedRowCount: q.InvalidCount,
			})
		}
	}

	return out
}
