package parser

import (
	"errors"
	"testing"
)

func TestResolveFormat_Hints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		hint string
		want Format
	}{
		{"data.csv", FormatCSV},
		{"export.tsv", FormatTSV},
		{"book.xlsx", FormatXLSX},
		{"records.json", FormatJSON},
		{"events.ndjson", FormatJSON},
		{"page.html", FormatHTML},
		{"page.htm", FormatHTML},
		{"csv", FormatCSV},
		{"XLSX", FormatXLSX},
		{"text/csv", FormatCSV},
		{"application/json", FormatJSON},
		{"text/html; charset=utf-8", FormatHTML},
		{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", FormatXLSX},
		{"text/tab-separated-values", FormatTSV},
		{"/tmp/reports/2024/summary.csv", FormatCSV},
	}
	for _, tc := range tests {
		got, err := ResolveFormat(tc.hint, nil)
		if err != nil {
			t.Errorf("ResolveFormat(%q): %v", tc.hint, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ResolveFormat(%q)=%s, want %s", tc.hint, got, tc.want)
		}
	}
}

func TestResolveFormat_Sniffing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		sample string
		want   Format
	}{
		{"json_array", `[{"a":1}]`, FormatJSON},
		{"json_object", `{"a":1}`, FormatJSON},
		{"json_leading_space", "  \n\t [1]", FormatJSON},
		{"html", "<html><table></table></html>", FormatHTML},
		{"tsv", "a\tb\n1\t2\n", FormatTSV},
		{"csv", "a,b\n1,2\n", FormatCSV},
		{"single_column_csv", "name\nAda\nGrace\n", FormatCSV},
		{"xlsx_zip_magic", "PK\x03\x04rest-of-zip", FormatXLSX},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := ResolveFormat("", []byte(tc.sample))
			if err != nil {
				t.Fatalf("ResolveFormat: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestResolveFormat_HintWinsOverContent(t *testing.T) {
	t.Parallel()

	// A .csv hint beats a JSON-looking body.
	got, err := ResolveFormat("data.csv", []byte(`[{"a":1}]`))
	if err != nil {
		t.Fatalf("ResolveFormat: %v", err)
	}
	if got != FormatCSV {
		t.Fatalf("got %s, want csv", got)
	}
}

func TestResolveFormat_Unresolvable(t *testing.T) {
	t.Parallel()

	_, err := ResolveFormat("archive.zip", []byte("opaque"))
	var ufe *UnsupportedFormatError
	if !errors.As(err, &ufe) {
		t.Fatalf("err=%v, want *UnsupportedFormatError", err)
	}
	if ufe.Hint != "archive.zip" {
		t.Fatalf("Hint=%q, want %q", ufe.Hint, "archive.zip")
	}

	if _, err := ResolveFormat("", nil); err == nil {
		t.Fatal("expected error for empty hint and sample")
	}
}

func TestCleanCell(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		trim bool
		want any
	}{
		{"x", true, "x"},
		{"  x  ", true, "x"},
		{"  x  ", false, "  x  "},
		{"", true, nil},
		{"   ", true, nil},
		{"\tx\t", true, "x"},
		{"a b", true, "a b"},
	}
	for _, tc := range tests {
		if got := CleanCell(tc.in, tc.trim); got != tc.want {
			t.Errorf("CleanCell(%q, %v)=%v, want %v", tc.in, tc.trim, got, tc.want)
		}
	}
}

func TestGetRowResetsReusedRows(t *testing.T) {
	t.Parallel()

	r := GetRow(3)
	r.V[0] = "dirty"
	r.V[2] = "dirty"
	r.Line = 42
	r.Free()

	// Pool reuse must hand back a clean row regardless of what the
	// previous user left in it.
	for i := 0; i < 4; i++ {
		got := GetRow(3)
		if len(got.V) != 3 {
			t.Fatalf("len(V)=%d, want 3", len(got.V))
		}
		if got.Line != 0 {
			t.Fatalf("Line=%d, want 0", got.Line)
		}
		for j, v := range got.V {
			if v != nil {
				t.Fatalf("V[%d]=%v, want nil", j, v)
			}
		}
		got.Free()
	}

	// Growing past the previous capacity reallocates.
	wide := GetRow(8)
	if len(wide.V) != 8 {
		t.Fatalf("len(V)=%d, want 8", len(wide.V))
	}
	wide.Free()
}

func TestHasEdgeSpace(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"", false},
		{"x", false},
		{" x", true},
		{"x ", true},
		{"\tx", true},
		{"x\t", true},
		{"a b", false},
	}
	for _, tc := range tests {
		if got := HasEdgeSpace(tc.in); got != tc.want {
			t.Errorf("HasEdgeSpace(%q)=%v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestDecodeReader_PassthroughForUTF8(t *testing.T) {
	t.Parallel()

	for _, cs := range []string{"", "utf-8", "UTF8"} {
		r, err := DecodeReader(nil, cs)
		if err != nil {
			t.Fatalf("DecodeReader(%q): %v", cs, err)
		}
		if r != nil {
			t.Fatalf("DecodeReader(%q) wrapped the reader, want passthrough", cs)
		}
	}
}
