// Package json streams JSON input into the profiler's row model.
package json

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"profiler/internal/config"
	"profiler/internal/parser"
)

// StreamRows parses JSON from r and feeds one *parser.Row per record into
// sink.
//
// Streaming behavior:
//   - If the root is a JSON array, each object element becomes a record.
//   - If the root is an object containing an array-of-objects field, that
//     array's elements become the records (envelope pattern) and the rest
//     of the envelope is skipped.
//   - If the root is a plain object, it becomes a single one-row record.
//   - Additional top-level objects after the root (NDJSON tail) are
//     consumed as further records.
//
// The dataset's column set is the union of keys across all records.
// New keys are declared through sink.Columns as they are discovered, in
// sorted order within each record so the resulting column order is a pure
// function of the input bytes. Nested objects are flattened with
// dot-joined keys; arrays of strings are joined with array_join_separator
// (default ","); other arrays are re-encoded as compact JSON text.
//
// A root array element that is neither an object nor null cannot be
// reconciled into a column set and fails the stream with
// *parser.RowShapeError.
func StreamRows(
	ctx context.Context,
	r io.Reader,
	opt config.Options,
	sink parser.RowSink,
	onErr func(line int, err error),
) error {
	dec := json.NewDecoder(r)
	dec.UseNumber() // keeps numeric literals exact; detectors parse on demand

	sep := strings.TrimSpace(opt.String("array_join_separator", ","))
	if sep == "" {
		sep = ","
	}
	trim := opt.Bool("trim_space", true)

	s := &stream{
		ctx:    ctx,
		sink:   sink,
		sep:    sep,
		trim:   trim,
		colIdx: make(map[string]int),
	}

	// Peek the first token so arrays and envelopes stream without buffering.
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil
		}
		if onErr != nil {
			onErr(0, err)
		}
		return fmt.Errorf("json: read first token: %w", err)
	}

	d, ok := tok.(json.Delim)
	if !ok {
		return &parser.RowShapeError{Line: 1, Reason: fmt.Sprintf("root is %T, want object or array", tok)}
	}

	switch d {
	case '[':
		if err := s.streamArrayOfObjects(dec); err != nil {
			return err
		}
		if end, err := dec.Token(); err != nil {
			return fmt.Errorf("json: read array end: %w", err)
		} else if end != json.Delim(']') {
			return fmt.Errorf("json: expected array end ']', got %v", end)
		}
		return s.streamTrailingObjects(dec, onErr)

	case '{':
		streamed, single, err := s.streamEnvelopeOrSingle(dec)
		if err != nil {
			return err
		}
		if end, err := dec.Token(); err != nil {
			return fmt.Errorf("json: read object end: %w", err)
		} else if end != json.Delim('}') {
			return fmt.Errorf("json: expected object end '}', got %v", end)
		}
		if !streamed && single != nil {
			if err := s.emitObject(single); err != nil {
				return err
			}
		}
		return s.streamTrailingObjects(dec, onErr)

	default:
		return fmt.Errorf("json: unsupported root delimiter %q", d)
	}
}

type stream struct {
	ctx  context.Context
	sink parser.RowSink
	sep  string
	trim bool

	line    int
	columns []string
	colIdx  map[string]int
}

// emitObject flattens obj, declares any new columns, and emits one row.
func (s *stream) emitObject(obj map[string]any) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	s.line++

	flat := make(map[string]any, len(obj))
	flattenObject("", obj, flat)

	// Declare unseen keys in sorted order so column order is reproducible.
	var fresh []string
	for k := range flat {
		if _, ok := s.colIdx[k]; !ok {
			fresh = append(fresh, k)
		}
	}
	if len(fresh) > 0 {
		sort.Strings(fresh)
		for _, k := range fresh {
			s.colIdx[k] = len(s.columns)
			s.columns = append(s.columns, k)
		}
		s.sink.Columns(fresh)
	}

	row := parser.GetRow(len(s.columns))
	row.Line = s.line
	for k, v := range flat {
		row.V[s.colIdx[k]] = s.normalizeScalar(v)
	}

	err := s.sink.Row(row)
	row.Free()
	return err
}

func (s *stream) streamArrayOfObjects(dec *json.Decoder) error {
	for dec.More() {
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("json: decode array element: %w", err)
		}
		if raw == nil {
			continue
		}
		obj, ok := raw.(map[string]any)
		if !ok {
			return &parser.RowShapeError{
				Line:   s.line + 1,
				Reason: fmt.Sprintf("array element is %T, want object", raw),
			}
		}
		if err := s.emitObject(obj); err != nil {
			return err
		}
	}
	return nil
}

func (s *stream) streamTrailingObjects(dec *json.Decoder, onErr func(line int, err error)) error {
	for {
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			if err == io.EOF {
				return nil
			}
			if onErr != nil {
				onErr(s.line+1, err)
			}
			// A malformed tail does not invalidate rows already emitted.
			return nil
		}
		if err := s.emitObject(obj); err != nil {
			return err
		}
	}
}

// streamEnvelopeOrSingle walks a root object after '{' has been consumed.
// The first field holding an array of objects is streamed as the record
// set; without one the object itself is returned as a single record.
func (s *stream) streamEnvelopeOrSingle(dec *json.Decoder) (streamed bool, single map[string]any, _ error) {
	single = make(map[string]any)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return false, nil, fmt.Errorf("json: read object key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return false, nil, fmt.Errorf("json: object key not a string (got %T)", keyTok)
		}

		valTok, err := dec.Token()
		if err != nil {
			return false, nil, fmt.Errorf("json: read object value token: %w", err)
		}

		if delim, ok := valTok.(json.Delim); ok && delim == '[' {
			if err := s.streamArrayOfObjects(dec); err != nil {
				return false, nil, err
			}
			endTok, err := dec.Token()
			if err != nil {
				return false, nil, fmt.Errorf("json: read envelope array end: %w", err)
			}
			if endTok != json.Delim(']') {
				return false, nil, fmt.Errorf("json: expected ']' after envelope array, got %v", endTok)
			}

			// Skip remaining envelope fields without materializing them.
			for dec.More() {
				if _, err := dec.Token(); err != nil {
					return true, nil, fmt.Errorf("json: skip envelope key: %w", err)
				}
				if err := skipNextValue(dec); err != nil {
					return true, nil, err
				}
			}
			return true, nil, nil
		}

		val, err := materializeValueFromFirstToken(dec, valTok)
		if err != nil {
			return false, nil, err
		}
		single[key] = val
	}

	return false, single, nil
}

func skipNextValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("json: skip value token: %w", err)
	}
	return skipValueFromFirstToken(dec, tok)
}

func skipValueFromFirstToken(dec *json.Decoder, tok any) error {
	d, ok := tok.(json.Delim)
	if !ok {
		return nil // scalar; nothing else to consume
	}

	switch d {
	case '{':
		for dec.More() {
			if _, err := dec.Token(); err != nil {
				return fmt.Errorf("json: skip object key: %w", err)
			}
			if err := skipNextValue(dec); err != nil {
				return err
			}
		}
		end, err := dec.Token()
		if err != nil {
			return fmt.Errorf("json: skip object end: %w", err)
		}
		if end != json.Delim('}') {
			return fmt.Errorf("json: expected '}', got %v", end)
		}
		return nil

	case '[':
		for dec.More() {
			if err := skipNextValue(dec); err != nil {
				return err
			}
		}
		end, err := dec.Token()
		if err != nil {
			return fmt.Errorf("json: skip array end: %w", err)
		}
		if end != json.Delim(']') {
			return fmt.Errorf("json: expected ']', got %v", end)
		}
		return nil

	default:
		return fmt.Errorf("json: unexpected delimiter %q", d)
	}
}

// materializeValueFromFirstToken builds a Go value for the current JSON
// value, given its first token. Only the single-record root case reaches
// this, so the values involved are small.
func materializeValueFromFirstToken(dec *json.Decoder, tok any) (any, error) {
	if d, ok := tok.(json.Delim); ok {
		switch d {
		case '{':
			m := make(map[string]any)
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, fmt.Errorf("json: read nested object key: %w", err)
				}
				k, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("json: nested object key not string (got %T)", kt)
				}
				vt, err := dec.Token()
				if err != nil {
					return nil, fmt.Errorf("json: read nested object value token: %w", err)
				}
				v, err := materializeValueFromFirstToken(dec, vt)
				if err != nil {
					return nil, err
				}
				m[k] = v
			}
			end, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("json: read nested object end: %w", err)
			}
			if end != json.Delim('}') {
				return nil, fmt.Errorf("json: expected '}', got %v", end)
			}
			return m, nil

		case '[':
			var arr []any
			for dec.More() {
				vt, err := dec.Token()
				if err != nil {
					return nil, fmt.Errorf("json: read nested array value token: %w", err)
				}
				v, err := materializeValueFromFirstToken(dec, vt)
				if err != nil {
					return nil, err
				}
				arr = append(arr, v)
			}
			end, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("json: read nested array end: %w", err)
			}
			if end != json.Delim(']') {
				return nil, fmt.Errorf("json: expected ']', got %v", end)
			}
			return arr, nil

		default:
			return nil, fmt.Errorf("json: unexpected delimiter %q", d)
		}
	}

	return tok, nil
}

// flattenObject copies in into out, dot-joining the keys of nested objects
// so {"a":{"b":1}} contributes column "a.b".
func flattenObject(prefix string, in map[string]any, out map[string]any) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if m, ok := v.(map[string]any); ok {
			flattenObject(key, m, out)
			continue
		}
		out[key] = v
	}
}

// normalizeScalar maps a decoded JSON value onto the profiler's cell
// representation. Strings pass through CleanCell; arrays of strings are
// joined; anything else structured is re-encoded as compact JSON so the
// cell stays a deterministic scalar.
func (s *stream) normalizeScalar(v any) any {
	switch t := v.(type) {
	case nil:
		return nil

	case string:
		return parser.CleanCell(t, s.trim)

	case json.Number:
		return t

	case bool:
		return t

	case []any:
		if len(t) == 0 {
			return nil
		}
		ss := make([]string, 0, len(t))
		for _, it := range t {
			str, ok := it.(string)
			if !ok {
				ss = nil
				break
			}
			ss = append(ss, str)
		}
		if ss != nil {
			return strings.Join(ss, s.sep)
		}
		b, err := json.Marshal(t)
		if err != nil {
			return nil
		}
		return string(b)

	default:
		b, err := json.Marshal(t)
		if err != nil {
			return nil
		}
		return string(b)
	}
}
