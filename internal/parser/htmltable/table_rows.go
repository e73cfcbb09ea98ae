// Package htmltable streams the first HTML <table> in a document into the
// profiler's row model.
package htmltable

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"profiler/internal/config"
	"profiler/internal/parser"
)

// StreamRows parses the document in src, locates the first <table>, and
// feeds its rows into sink.
//
// The header comes from the table's <th> cells when present, otherwise
// from the first row's <td> cells. Data rows are zipped against the
// header with the usual tolerance: short rows nil-pad, extra cells drop.
// Rows consisting solely of <th> cells after the header (repeated section
// headers) are skipped.
func StreamRows(
	ctx context.Context,
	src io.Reader,
	opt config.Options,
	sink parser.RowSink,
	onErr func(line int, err error),
) error {
	trim := opt.Bool("trim_space", true)

	doc, err := goquery.NewDocumentFromReader(src)
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil
	}

	var columns []string
	line := 0
	var walkErr error

	table.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		select {
		case <-ctx.Done():
			walkErr = ctx.Err()
			return false
		default:
		}

		line++

		cells := tr.Find("th, td")
		if cells.Length() == 0 {
			return true
		}

		if columns == nil {
			columns = make([]string, 0, cells.Length())
			cells.Each(func(_ int, c *goquery.Selection) {
				columns = append(columns, strings.TrimSpace(c.Text()))
			})
			sink.Columns(columns)
			return true
		}

		// Repeated header rows inside the body are not data.
		if tr.Find("td").Length() == 0 {
			return true
		}

		row := parser.GetRow(len(columns))
		row.Line = line
		tr.Find("td").EachWithBreak(func(i int, c *goquery.Selection) bool {
			if i >= len(columns) {
				return false
			}
			row.V[i] = parser.CleanCell(c.Text(), trim)
			return true
		})

		err := sink.Row(row)
		row.Free()
		if err != nil {
			walkErr = err
			return false
		}
		return true
	})

	return walkErr
}
