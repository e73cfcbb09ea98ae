package profile

import (
	"bytes"
	"context"
	"sync"

	"profiler/internal/config"
	"profiler/internal/dataset"
	"profiler/internal/infer"
	"profiler/internal/parser"
	csvrows "profiler/internal/parser/csv"
	"profiler/internal/parser/htmltable"
	jsonrows "profiler/internal/parser/json"
	"profiler/internal/parser/xlsx"
	"profiler/internal/quality"
	"profiler/internal/stats"
)

// Logger is the minimal logging seam. The stdlib *log.Logger satisfies
// it.
type Logger interface {
	Printf(format string, v ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Profiler runs the whole pipeline for one upload at a time. It holds
// no per-run state, so a single Profiler may serve concurrent requests.
type Profiler struct {
	limits config.Limits
	opt    config.Options
	log    Logger
}

// New builds a Profiler. opt carries adapter options (delimiter,
// charset, trim behavior); nil means defaults throughout.
func New(limits config.Limits, opt config.Options, log Logger) *Profiler {
	if opt == nil {
		opt = config.Options{}
	}
	if log == nil {
		log = nopLogger{}
	}
	return &Profiler{limits: limits.Normalize(), opt: opt, log: log}
}

// Limits exposes the normalized limits the profiler runs under.
func (p *Profiler) Limits() config.Limits { return p.limits }

// Profile profiles the given bytes. hint is a file name, extension or
// MIME type used to pick the source format before content sniffing.
//
// Input errors come back as *parser.UnsupportedFormatError,
// *EmptyDatasetError, *FileTooLargeError or *parser.RowShapeError; any
// other error is an adapter failure on unreadable input.
func (p *Profiler) Profile(ctx context.Context, data []byte, hint string) (*DatasetProfile, error) {
	if len(data) > p.limits.MaxBytes {
		return nil, &FileTooLargeError{Size: len(data), Limit: p.limits.MaxBytes}
	}

	sample := data
	if len(sample) > 512 {
		sample = sample[:512]
	}
	format, err := parser.ResolveFormat(hint, sample)
	if err != nil {
		return nil, err
	}

	mat := dataset.NewMaterializer(p.limits.MaxRows, p.limits.PreviewRows)
	onErr := func(line int, err error) {
		p.log.Printf("skipping record %d: %v", line, err)
	}

	switch format {
	case parser.FormatCSV:
		err = csvrows.StreamRows(ctx, bytes.NewReader(data), p.opt, mat, onErr)
	case parser.FormatTSV:
		err = csvrows.StreamRows(ctx, bytes.NewReader(data), p.opt.With("comma", "\t"), mat, onErr)
	case parser.FormatXLSX:
		err = xlsx.StreamRows(ctx, bytes.NewReader(data), p.opt, mat, onErr)
	case parser.FormatJSON:
		err = jsonrows.StreamRows(ctx, bytes.NewReader(data), p.opt, mat, onErr)
	case parser.FormatHTML:
		err = htmltable.StreamRows(ctx, bytes.NewReader(data), p.opt, mat, onErr)
	default:
		return nil, &parser.UnsupportedFormatError{Hint: hint}
	}
	if err != nil {
		return nil, err
	}

	ds := mat.Result()
	if ds.TotalRows == 0 {
		return nil, &EmptyDatasetError{}
	}

	cols, types := p.profileColumns(ctx, ds)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	qcols := make([]quality.Column, len(cols))
	qs := make([]quality.ColumnQuality, len(cols))
	for i, c := range cols {
		qcols[i] = c.in
		qs[i] = c.q
	}

	anomalies := quality.DetectAnomalies(ds.DuplicateRows, ds.TotalRows, qcols, qs)

	out := &DatasetProfile{
		SourceFormat:        format.String(),
		TotalRows:           ds.TotalRows,
		MaterializedRows:    ds.MaterializedRows,
		DuplicateRowCount:   ds.DuplicateRows,
		Truncated:           ds.Truncated,
		Columns:             make([]ColumnProfile, len(cols)),
		Quality:             quality.Aggregate(qcols, qs),
		Anomalies:           anomalies,
		Recommendations:     quality.Recommend(anomalies, types),
		SuggestedCategories: quality.SuggestedCategories(types),
		Preview:             ds.Preview,
	}

	for i, c := range cols {
		cp := ColumnProfile{
			Name:         c.in.Name,
			InferredType: c.in.Type,
			Confidence:   c.in.Confidence,
			SampleValues: c.samples,
			NullCount:    c.in.NullCount,
			UniqueCount:  c.q.UniqueCount,
			TotalCount:   c.in.TotalCount,
			Statistics:   c.st,
			QualityScore: c.q.Score,
			Issues:       []string{},
		}
		for _, a := range anomalies {
			if a.Column == c.in.Name {
				cp.Issues = append(cp.Issues, a.Description)
			}
		}
		out.Columns[i] = cp
	}

	return out, nil
}

// columnResult is what one worker produces for one column.
type columnResult struct {
	in      quality.Column
	q       quality.ColumnQuality
	st      *stats.Statistics
	samples []string
}

// profileColumns fans type inference, statistics and per-column quality
// out over a bounded worker pool. Each worker owns its column's data
// exclusively; results land in a slice indexed by column position, so
// output order never depends on scheduling.
func (p *Profiler) profileColumns(ctx context.Context, ds *dataset.Dataset) ([]columnResult, []infer.ColumnType) {
	results := make([]columnResult, len(ds.ColumnValues))

	idx := make(chan int)
	var wg sync.WaitGroup
	workers := p.limits.Workers
	if workers > len(ds.ColumnValues) {
		workers = len(ds.ColumnValues)
	}
	if workers < 1 {
		workers = 1
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				results[i] = p.profileColumn(ds.ColumnValues[i])
			}
		}()
	}

feed:
	for i := range ds.ColumnValues {
		select {
		case idx <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(idx)
	wg.Wait()

	types := make([]infer.ColumnType, len(results))
	for i, r := range results {
		types[i] = r.in.Type
	}
	return results, types
}

func (p *Profiler) profileColumn(cv *dataset.ColumnValues) columnResult {
	typ, conf := infer.Infer(cv.Values, p.limits.InferSampleCap)

	in := quality.Column{
		Name:       cv.Name,
		Type:       typ,
		Confidence: conf,
		Values:     cv.Values,
		NullCount:  cv.NullCount,
		TotalCount: cv.TotalCount,
	}

	var st *stats.Statistics
	if typ.Numeric() {
		st = stats.Compute(stats.ParseColumn(cv.Values))
		if st != nil {
			in.OutlierCount = st.OutlierCount
		}
	}

	n := p.limits.SampleValues
	if n > len(cv.Values) {
		n = len(cv.Values)
	}
	samples := make([]string, n)
	copy(samples, cv.Values[:n])

	return columnResult{in: in, q: quality.Assess(in), st: st, samples: samples}
}
