// Package xlsx streams the first worksheet of an XLSX workbook into the
// profiler's row model.
package xlsx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"profiler/internal/config"
	"profiler/internal/parser"
)

// StreamRows opens the workbook in src and feeds the first sheet's rows
// into sink, mirroring the CSV contract: the first row is the header,
// subsequent rows are zipped against it, short rows are nil-padded and
// extra trailing cells are dropped.
//
// Cell values arrive from excelize as display strings (numbers use their
// formatted representation), so the type detectors see the same literals
// a CSV export of the sheet would contain.
func StreamRows(
	ctx context.Context,
	src io.Reader,
	opt config.Options,
	sink parser.RowSink,
	onErr func(line int, err error),
) error {
	trim := opt.Bool("trim_space", true)

	f, err := excelize.OpenReader(src)
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil
	}
	sheet := sheets[0]

	it, err := f.Rows(sheet)
	if err != nil {
		return fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	defer it.Close()

	var columns []string
	line := 0

	for it.Next() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line++
		cells, err := it.Columns()
		if err != nil {
			if onErr != nil {
				onErr(line, fmt.Errorf("read row: %w", err))
			}
			continue
		}

		if columns == nil {
			columns = headerFromCells(cells)
			if len(columns) == 0 {
				// Blank leading row; keep looking for the header.
				columns = nil
				continue
			}
			sink.Columns(columns)
			continue
		}

		row := parser.GetRow(len(columns))
		row.Line = line
		for i := range columns {
			if i >= len(cells) {
				continue
			}
			row.V[i] = parser.CleanCell(cells[i], trim)
		}

		err = sink.Row(row)
		row.Free()
		if err != nil {
			return err
		}
	}

	return it.Error()
}

// headerFromCells trims header cells and drops trailing empty ones, which
// spreadsheets with formatted-but-unused columns commonly produce.
func headerFromCells(cells []string) []string {
	end := len(cells)
	for end > 0 && strings.TrimSpace(cells[end-1]) == "" {
		end--
	}
	if end == 0 {
		return nil
	}
	out := make([]string, end)
	for i := 0; i < end; i++ {
		out[i] = strings.TrimSpace(cells[i])
	}
	return out
}

// Sniff reports whether the sample looks like a ZIP container, which is
// what an XLSX workbook is. Used when the caller supplied no usable hint.
func Sniff(sample []byte) bool {
	return bytes.HasPrefix(sample, []byte{0x50, 0x4b, 0x03, 0x04})
}
