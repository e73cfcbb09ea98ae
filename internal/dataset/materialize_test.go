package dataset

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"profiler/internal/parser"
)

func feed(t *testing.T, m *Materializer, columns []string, rows [][]any) {
	t.Helper()
	m.Columns(columns)
	for i, vals := range rows {
		r := parser.GetRow(len(vals))
		copy(r.V, vals)
		r.Line = i + 1
		if err := m.Row(r); err != nil {
			t.Fatalf("Row %d: %v", i+1, err)
		}
		r.Free()
	}
}

func TestMaterializer_Basics(t *testing.T) {
	t.Parallel()

	m := NewMaterializer(100, 5)
	feed(t, m, []string{"name", "age"}, [][]any{
		{"Ada", "36"},
		{"Grace", nil},
		{"Edsger", "72"},
	})
	d := m.Result()

	if d.TotalRows != 3 || d.MaterializedRows != 3 {
		t.Fatalf("TotalRows=%d MaterializedRows=%d, want 3/3", d.TotalRows, d.MaterializedRows)
	}
	if d.Truncated {
		t.Fatal("Truncated=true, want false")
	}
	if !reflect.DeepEqual(d.Columns, []string{"name", "age"}) {
		t.Fatalf("Columns=%v", d.Columns)
	}

	name, age := d.ColumnValues[0], d.ColumnValues[1]
	if !reflect.DeepEqual(name.Values, []string{"Ada", "Grace", "Edsger"}) {
		t.Fatalf("name.Values=%v", name.Values)
	}
	if name.NullCount != 0 || name.TotalCount != 3 {
		t.Fatalf("name counts=%d/%d, want 0/3", name.NullCount, name.TotalCount)
	}
	if !reflect.DeepEqual(age.Values, []string{"36", "72"}) {
		t.Fatalf("age.Values=%v", age.Values)
	}
	if age.NullCount != 1 || age.TotalCount != 3 {
		t.Fatalf("age counts=%d/%d, want 1/3", age.NullCount, age.TotalCount)
	}
	// The invariant every column obeys.
	for _, c := range d.ColumnValues {
		if c.NullCount+len(c.Values) != c.TotalCount {
			t.Fatalf("column %q: NullCount %d + len(Values) %d != TotalCount %d",
				c.Name, c.NullCount, len(c.Values), c.TotalCount)
		}
	}
}

func TestMaterializer_DuplicateRows(t *testing.T) {
	t.Parallel()

	m := NewMaterializer(100, 5)
	feed(t, m, []string{"a", "b"}, [][]any{
		{"1", "x"},
		{"2", "y"},
		{"1", "x"}, // repeats row 1
		{"1", "x"}, // and again
		{"1", "z"},
	})
	d := m.Result()

	if d.DuplicateRows != 2 {
		t.Fatalf("DuplicateRows=%d, want 2", d.DuplicateRows)
	}
}

func TestMaterializer_DuplicatesIgnoreNilPadding(t *testing.T) {
	t.Parallel()

	// A row with a trailing nil and the same row cut short are the same
	// logical row.
	m := NewMaterializer(100, 5)
	feed(t, m, []string{"a", "b"}, [][]any{
		{"1", nil},
		{"1"},
	})
	d := m.Result()

	if d.DuplicateRows != 1 {
		t.Fatalf("DuplicateRows=%d, want 1", d.DuplicateRows)
	}
}

func TestMaterializer_Truncation(t *testing.T) {
	t.Parallel()

	m := NewMaterializer(2, 5)
	feed(t, m, []string{"a"}, [][]any{
		{"1"}, {"2"}, {"3"}, {"3"}, {"5"},
	})
	d := m.Result()

	if !d.Truncated {
		t.Fatal("Truncated=false, want true")
	}
	if d.TotalRows != 5 {
		t.Fatalf("TotalRows=%d, want 5", d.TotalRows)
	}
	if d.MaterializedRows != 2 {
		t.Fatalf("MaterializedRows=%d, want 2", d.MaterializedRows)
	}
	if !reflect.DeepEqual(d.ColumnValues[0].Values, []string{"1", "2"}) {
		t.Fatalf("Values=%v, want [1 2]", d.ColumnValues[0].Values)
	}
	if d.ColumnValues[0].TotalCount != 2 {
		t.Fatalf("TotalCount=%d, want 2", d.ColumnValues[0].TotalCount)
	}
	// Duplicate detection still saw rows 3 and 4 beyond the cap.
	if d.DuplicateRows != 1 {
		t.Fatalf("DuplicateRows=%d, want 1", d.DuplicateRows)
	}
}

func TestMaterializer_LateColumnsBackfillNulls(t *testing.T) {
	t.Parallel()

	m := NewMaterializer(100, 5)
	m.Columns([]string{"a"})

	r := parser.GetRow(1)
	r.V[0] = "1"
	if err := m.Row(r); err != nil {
		t.Fatalf("Row: %v", err)
	}
	r.Free()

	// A column declared after one materialized row starts with that row
	// counted as null.
	m.Columns([]string{"b"})

	r = parser.GetRow(2)
	r.V[0], r.V[1] = "2", "x"
	if err := m.Row(r); err != nil {
		t.Fatalf("Row: %v", err)
	}
	r.Free()

	d := m.Result()
	b := d.ColumnValues[1]
	if b.NullCount != 1 || b.TotalCount != 2 {
		t.Fatalf("b counts=%d/%d, want 1/2", b.NullCount, b.TotalCount)
	}
	if !reflect.DeepEqual(b.Values, []string{"x"}) {
		t.Fatalf("b.Values=%v, want [x]", b.Values)
	}
}

func TestMaterializer_Preview(t *testing.T) {
	t.Parallel()

	m := NewMaterializer(100, 2)
	feed(t, m, []string{"a", "b"}, [][]any{
		{"1", nil},
		{"2", "y"},
		{"3", "z"},
	})
	d := m.Result()

	if len(d.Preview) != 2 {
		t.Fatalf("len(Preview)=%d, want 2", len(d.Preview))
	}
	// Nulls are omitted from preview maps.
	if !reflect.DeepEqual(d.Preview[0], map[string]any{"a": "1"}) {
		t.Fatalf("Preview[0]=%v", d.Preview[0])
	}
	if !reflect.DeepEqual(d.Preview[1], map[string]any{"a": "2", "b": "y"}) {
		t.Fatalf("Preview[1]=%v", d.Preview[1])
	}
}

func TestMaterializer_EmptyStream(t *testing.T) {
	t.Parallel()

	d := NewMaterializer(100, 5).Result()
	if d.TotalRows != 0 || len(d.Columns) != 0 || len(d.Preview) != 0 {
		t.Fatalf("empty stream produced %+v", d)
	}
}

func TestCanonicalString(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	tests := []struct {
		in   any
		want string
	}{
		{"x", "x"},
		{json.Number("12.50"), "12.50"},
		{true, "true"},
		{false, "false"},
		{int(7), "7"},
		{int64(-3), "-3"},
		{float64(2.5), "2.5"},
		{ts, "2024-03-01T12:30:00Z"},
	}
	for _, tc := range tests {
		if got := CanonicalString(tc.in); got != tc.want {
			t.Errorf("CanonicalString(%v)=%q, want %q", tc.in, got, tc.want)
		}
	}
}
