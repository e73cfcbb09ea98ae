// Package csv streams CSV and TSV input into the profiler's row model.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"profiler/internal/config"
	"profiler/internal/parser"
)

// StreamRows reads delimited text from src and feeds one pooled
// *parser.Row per data record into sink.
//
// The first record is the header and defines the column set; it is
// declared through sink.Columns before any row is emitted. Data records
// are zipped against the header: missing trailing fields become nil, extra
// fields beyond the header are dropped. Records the underlying reader
// rejects (unbalanced quotes and the like) are reported through onErr and
// skipped; they never fail the stream.
//
// Options:
//   - comma: delimiter rune (default ',')
//   - trim_space: trim cell whitespace (default true)
//   - lazy_quotes: tolerate stray quotes (default true)
//   - charset: decode input from this charset before parsing
func StreamRows(
	ctx context.Context,
	src io.Reader,
	opt config.Options,
	sink parser.RowSink,
	onErr func(line int, err error),
) error {
	comma := opt.Rune("comma", ',')
	trim := opt.Bool("trim_space", true)
	lazy := opt.Bool("lazy_quotes", true)

	r, err := parser.DecodeReader(src, opt.String("charset", ""))
	if err != nil {
		return err
	}

	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.ReuseRecord = true
	cr.LazyQuotes = lazy
	cr.FieldsPerRecord = -1 // ragged rows are tolerated, not rejected

	var line int
	readRec := func() ([]string, error) {
		line++
		return cr.Read()
	}

	hdr, err := readRec()
	if err != nil {
		if err == io.EOF {
			return nil // header-only handling is the materializer's call
		}
		if onErr != nil {
			onErr(line, fmt.Errorf("read header: %w", err))
		}
		return err
	}

	columns := make([]string, len(hdr))
	for i, h := range hdr {
		if parser.HasEdgeSpace(h) {
			h = strings.TrimSpace(h)
		}
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		columns[i] = h
	}
	sink.Columns(columns)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec, err := readRec()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if onErr != nil {
				onErr(line, fmt.Errorf("csv read: %w", err))
			}
			continue
		}

		row := parser.GetRow(len(columns))
		row.Line = line
		for i := range columns {
			if i >= len(rec) {
				continue // short record, stays nil
			}
			row.V[i] = parser.CleanCell(rec[i], trim)
		}

		err = sink.Row(row)
		row.Free()
		if err != nil {
			return err
		}
	}
}
