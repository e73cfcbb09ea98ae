// Package parser normalizes heterogeneous tabular inputs (CSV/TSV, XLSX
// workbooks, JSON arrays of objects, HTML tables) into a single ordered
// row stream.
//
// The package is responsible for:
//   - Resolving the input format from a caller hint and/or content sniffing
//   - Streaming rows into a RowSink without buffering the whole dataset
//   - Degrading gracefully on ragged or partially malformed input
//
// Design constraints:
//   - A row stream is finite and non-restartable; adapters read their input
//     exactly once.
//   - Cell-level problems must never fail the stream. Unparseable or empty
//     cells become nil and are reflected in downstream null counts.
//   - Column discovery may be incremental (JSON objects with differing key
//     sets); adapters declare new columns through the sink before emitting
//     rows that use them.
package parser

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"sync"
)

// Format identifies a supported input format.
type Format int

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatTSV
	FormatXLSX
	FormatJSON
	FormatHTML
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatTSV:
		return "tsv"
	case FormatXLSX:
		return "xlsx"
	case FormatJSON:
		return "json"
	case FormatHTML:
		return "html"
	default:
		return "unknown"
	}
}

// UnsupportedFormatError reports an input whose format could not be
// resolved from either the caller's hint or the content itself.
type UnsupportedFormatError struct {
	Hint string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Hint == "" {
		return "unsupported input format"
	}
	return fmt.Sprintf("unsupported input format %q", e.Hint)
}

// RowShapeError reports input whose rows cannot be reconciled into one
// column set (e.g. a JSON array mixing objects with scalars).
type RowShapeError struct {
	Line   int
	Reason string
}

func (e *RowShapeError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Line, e.Reason)
}

// ResolveFormat resolves the input format from a hint (file name, bare
// extension, or MIME type) with content sniffing as the fallback.
//
// The hint wins when it names a known format. Sniffing is intentionally
// conservative: leading '[' or '{' means JSON, leading '<' means HTML,
// a tab in the first line means TSV, everything else falls back to CSV
// only when the sample contains at least one delimiter or newline.
func ResolveFormat(hint string, sample []byte) (Format, error) {
	if f := formatFromHint(hint); f != FormatUnknown {
		return f, nil
	}
	if f := sniffFormat(sample); f != FormatUnknown {
		return f, nil
	}
	return FormatUnknown, &UnsupportedFormatError{Hint: hint}
}

func formatFromHint(hint string) Format {
	h := strings.ToLower(strings.TrimSpace(hint))
	if h == "" {
		return FormatUnknown
	}
	// MIME types first; fall through to extension handling.
	switch h {
	case "text/csv", "application/csv":
		return FormatCSV
	case "text/tab-separated-values":
		return FormatTSV
	case "application/json":
		return FormatJSON
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-excel":
		return FormatXLSX
	case "text/html":
		return FormatHTML
	}
	if i := strings.IndexByte(h, ';'); i >= 0 { // strip MIME params
		h = strings.TrimSpace(h[:i])
	}
	if ext := strings.TrimPrefix(path.Ext(h), "."); ext != "" {
		h = ext
	}
	switch h {
	case "csv":
		return FormatCSV
	case "tsv", "tab":
		return FormatTSV
	case "xlsx", "xls":
		return FormatXLSX
	case "json", "ndjson", "jsonl":
		return FormatJSON
	case "html", "htm":
		return FormatHTML
	default:
		return FormatUnknown
	}
}

func sniffFormat(sample []byte) Format {
	trim := bytes.TrimSpace(sample)
	if len(trim) == 0 {
		return FormatUnknown
	}
	switch trim[0] {
	case '{', '[':
		return FormatJSON
	case '<':
		return FormatHTML
	}
	if bytes.HasPrefix(trim, []byte{0x50, 0x4b, 0x03, 0x04}) { // zip magic
		return FormatXLSX
	}
	line := trim
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if bytes.IndexByte(line, '\t') >= 0 {
		return FormatTSV
	}
	if bytes.IndexByte(line, ',') >= 0 || bytes.IndexByte(trim, '\n') >= 0 {
		return FormatCSV
	}
	return FormatUnknown
}

// Row is a pooled container holding one positional input row.
//
// Ownership contract: the adapter owns a Row until the sink's Row call
// returns; the sink must copy out anything it keeps. Adapters call Free
// afterwards so the backing slice can be reused.
type Row struct {
	V    []any
	Line int // 1-based logical record number within the source
}

var rowPool sync.Pool

// GetRow returns a pooled Row with length colCount, all elements nil.
func GetRow(colCount int) *Row {
	if v := rowPool.Get(); v != nil {
		r := v.(*Row)
		if cap(r.V) < colCount {
			r.V = make([]any, colCount)
		}
		r.V = r.V[:colCount]
		for i := range r.V {
			r.V[i] = nil
		}
		r.Line = 0
		return r
	}
	return &Row{V: make([]any, colCount)}
}

// Free returns the Row to the pool. Call only after the sink is done with it.
func (r *Row) Free() {
	rowPool.Put(r)
}

// RowSink receives the normalized row stream from an adapter.
//
// Columns may be called more than once; each call appends newly discovered
// column names in order. Row values are aligned to the columns declared so
// far; the sink null-pads short rows to the final width.
type RowSink interface {
	Columns(names []string)
	Row(r *Row) error
}

// HasEdgeSpace reports whether s starts or ends with a space or tab,
// letting callers skip TrimSpace allocations on the common clean path.
func HasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	return s[0] == ' ' || s[len(s)-1] == ' ' || s[0] == '\t' || s[len(s)-1] == '\t'
}

// CleanCell canonicalizes one raw cell: trims edge whitespace when trim is
// set and maps the empty string to nil.
func CleanCell(s string, trim bool) any {
	if trim && HasEdgeSpace(s) {
		s = strings.TrimSpace(s)
	}
	if s == "" {
		return nil
	}
	return s
}
