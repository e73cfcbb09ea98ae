// Package dataset materializes a row stream into per-column value lists.
//
// Materialization is the single sequential pass over the input: it must
// observe every row once, in order, to count totals, detect duplicate
// rows, and capture the preview. Everything downstream (type inference,
// statistics, quality) operates on the immutable result.
package dataset

import (
	"crypto/sha256"
	"strings"

	"profiler/internal/parser"
)

// ColumnValues holds the observed values for one column.
//
// Values contains the non-null cells in row order, canonicalized to
// strings, bounded by the materializer's row cap. The invariant
// NullCount + len(Values) == TotalCount holds for every column.
type ColumnValues struct {
	Name       string
	Values     []string
	NullCount  int
	TotalCount int
}

// Dataset is the result of materializing one row stream.
//
// TotalRows counts the entire stream; MaterializedRows counts the rows
// that contributed to ColumnValues (≤ the configured cap). DuplicateRows
// counts rows whose canonical value tuple repeats an earlier row, over
// the entire stream.
type Dataset struct {
	Columns      []string
	ColumnValues []*ColumnValues // aligned with Columns

	TotalRows        int
	MaterializedRows int
	DuplicateRows    int
	Truncated        bool

	// Preview holds the leading rows as column→value maps, nulls omitted.
	Preview []map[string]any
}

// Materializer consumes a parser row stream. It implements parser.RowSink.
type Materializer struct {
	maxRows    int
	previewCap int

	columns []string
	cols    []*ColumnValues

	totalRows    int
	materialized int
	duplicates   int
	truncated    bool

	digests map[[sha256.Size]byte]struct{}
	scratch strings.Builder

	preview []map[string]any
}

// NewMaterializer returns a materializer that stores at most maxRows rows
// of column values and previewCap preview rows. Both must be positive.
func NewMaterializer(maxRows, previewCap int) *Materializer {
	return &Materializer{
		maxRows:    maxRows,
		previewCap: previewCap,
		digests:    make(map[[sha256.Size]byte]struct{}),
	}
}

// Columns appends newly declared column names. Columns declared after
// rows have been materialized start with those rows counted as null.
func (m *Materializer) Columns(names []string) {
	for _, name := range names {
		m.columns = append(m.columns, name)
		m.cols = append(m.cols, &ColumnValues{
			Name:      name,
			NullCount: m.materialized,
		})
	}
}

// Row consumes one row. The row is only borrowed: all retained values are
// copied out before returning.
func (m *Materializer) Row(r *parser.Row) error {
	m.totalRows++

	// Duplicate detection runs over the whole stream, including rows
	// beyond the materialization cap.
	d := rowDigest(m.columns, r.V, &m.scratch)
	if _, seen := m.digests[d]; seen {
		m.duplicates++
	} else {
		m.digests[d] = struct{}{}
	}

	if m.materialized >= m.maxRows {
		m.truncated = true
		return nil
	}
	m.materialized++

	for i, col := range m.cols {
		if i >= len(r.V) || r.V[i] == nil {
			col.NullCount++
			continue
		}
		col.Values = append(col.Values, CanonicalString(r.V[i]))
	}

	if len(m.preview) < m.previewCap {
		row := make(map[string]any, len(m.columns))
		for i, name := range m.columns {
			if i >= len(r.V) || r.V[i] == nil {
				continue
			}
			row[name] = r.V[i]
		}
		m.preview = append(m.preview, row)
	}

	return nil
}

// Result finalizes and returns the dataset. The materializer must not be
// used afterwards.
func (m *Materializer) Result() *Dataset {
	for _, col := range m.cols {
		col.TotalCount = m.materialized
	}
	m.digests = nil
	return &Dataset{
		Columns:          m.columns,
		ColumnValues:     m.cols,
		TotalRows:        m.totalRows,
		MaterializedRows: m.materialized,
		DuplicateRows:    m.duplicates,
		Truncated:        m.truncated,
		Preview:          m.preview,
	}
}
