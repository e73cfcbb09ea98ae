// Package profile assembles the full dataset profile: it drives the
// source adapters, materializes columns, fans type inference and
// statistics out across workers, then folds quality, anomalies and
// recommendations into one immutable result.
package profile

import (
	"fmt"

	"profiler/internal/infer"
	"profiler/internal/quality"
	"profiler/internal/stats"
)

// ColumnProfile is the per-column slice of the profile.
// Invariant: UniqueCount <= TotalCount - NullCount.
type ColumnProfile struct {
	Name         string            `json:"name"`
	InferredType infer.ColumnType  `json:"inferredType"`
	Confidence   float64           `json:"confidence"`
	SampleValues []string          `json:"sampleValues"`
	NullCount    int               `json:"nullCount"`
	UniqueCount  int               `json:"uniqueCount"`
	TotalCount   int               `json:"totalCount"`
	Statistics   *stats.Statistics `json:"statistics,omitempty"`
	QualityScore float64           `json:"qualityScore"`
	Issues       []string          `json:"issues"`
}

// DatasetProfile is the aggregate result of one profiling run. It is
// immutable once returned and carries no identity or clock fields, so
// the same input bytes always serialize to the same JSON.
type DatasetProfile struct {
	SourceFormat      string `json:"sourceFormat"`
	TotalRows         int    `json:"totalRows"`
	MaterializedRows  int    `json:"materializedRows"`
	DuplicateRowCount int    `json:"duplicateRowCount"`
	Truncated         bool   `json:"truncated"`

	Columns             []ColumnProfile          `json:"columns"`
	Quality             quality.Metrics          `json:"quality"`
	Anomalies           []quality.Anomaly        `json:"anomalies"`
	Recommendations     []quality.Recommendation `json:"recommendations"`
	SuggestedCategories []string                 `json:"suggestedCategories"`
	Preview             []map[string]any         `json:"preview"`
}

// EmptyDatasetError reports an input that parsed but yielded zero data
// rows.
type EmptyDatasetError struct{}

func (e *EmptyDatasetError) Error() string {
	return "dataset contains no data rows"
}

// FileTooLargeError reports an upload over the byte ceiling. Raised
// before any row is read.
type FileTooLargeError struct {
	Size  int
	Limit int
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("file size %d exceeds limit %d", e.Size, e.Limit)
}
