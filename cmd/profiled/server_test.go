package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"profiler/internal/config"
	"profiler/internal/metrics"
	"profiler/internal/store"
)

// memStore is an in-memory store.Store for handler tests.
type memStore struct {
	recs map[string]store.Record
	seq  []string
}

func newMemStore() *memStore {
	return &memStore{recs: map[string]store.Record{}}
}

func (m *memStore) Close()                       {}
func (m *memStore) Ensure(context.Context) error { return nil }

func (m *memStore) Save(_ context.Context, rec store.Record) error {
	m.recs[rec.ID] = rec
	m.seq = append(m.seq, rec.ID)
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*store.Record, error) {
	rec, ok := m.recs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &rec, nil
}

func (m *memStore) List(_ context.Context, limit int) ([]store.Record, error) {
	var out []store.Record
	for i := len(m.seq) - 1; i >= 0 && len(out) < limit; i-- {
		rec := m.recs[m.seq[i]]
		rec.Profile = nil
		out = append(out, rec)
	}
	return out, nil
}

func testServer(st store.Store) *server {
	s := newServer(config.Defaults(), st, metrics.Nop{}, log.New(io.Discard, "", 0))
	s.now = func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }
	n := 0
	s.newID = func() string {
		n++
		return []string{"id-1", "id-2", "id-3"}[n-1]
	}
	return s
}

func postCSV(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "text/csv")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return v
}

func TestHandleCreate_CSV(t *testing.T) {
	t.Parallel()

	h := testServer(nil).routes()
	w := postCSV(t, h, "/v1/profiles", "name,age\nAda,36\nGrace,85\n")

	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s, want 201", w.Code, w.Body)
	}
	resp := decodeJSON[profileResponse](t, w)
	if resp.ID != "" {
		t.Fatalf("ID=%q, want empty without a store", resp.ID)
	}
	if resp.Profile == nil || resp.Profile.TotalRows != 2 {
		t.Fatalf("profile=%+v, want 2 rows", resp.Profile)
	}
	if resp.Profile.SourceFormat != "csv" {
		t.Fatalf("sourceFormat=%q, want csv", resp.Profile.SourceFormat)
	}
}

func TestHandleCreate_PersistsWhenStoreConfigured(t *testing.T) {
	t.Parallel()

	st := newMemStore()
	h := testServer(st).routes()
	w := postCSV(t, h, "/v1/profiles", "a\n1\n2\n")

	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s, want 201", w.Code, w.Body)
	}
	resp := decodeJSON[profileResponse](t, w)
	if resp.ID != "id-1" {
		t.Fatalf("ID=%q, want id-1", resp.ID)
	}
	if resp.CreatedAt == "" {
		t.Fatal("CreatedAt empty, want set")
	}

	rec, ok := st.recs["id-1"]
	if !ok {
		t.Fatal("record not saved")
	}
	if rec.Format != "csv" || len(rec.Profile) == 0 {
		t.Fatalf("saved record=%+v", rec)
	}
}

func TestHandleCreate_EmptyDataset(t *testing.T) {
	t.Parallel()

	h := testServer(nil).routes()
	w := postCSV(t, h, "/v1/profiles", "a,b\n")

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d body=%s, want 422", w.Code, w.Body)
	}
}

func TestHandleCreate_UnsupportedFormat(t *testing.T) {
	t.Parallel()

	h := testServer(nil).routes()
	req := httptest.NewRequest(http.MethodPost, "/v1/profiles", strings.NewReader("opaque"))
	req.Header.Set("Content-Type", "application/octet-stream")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status=%d body=%s, want 415", w.Code, w.Body)
	}
}

func TestHandleCreate_OversizeBody(t *testing.T) {
	t.Parallel()

	s := testServer(nil)
	s.limits.MaxBytes = 16
	h := s.routes()
	w := postCSV(t, h, "/v1/profiles", "a,b\n"+strings.Repeat("1,2\n", 100))

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status=%d body=%s, want 413", w.Code, w.Body)
	}
}

func TestHandleCreate_FormatQueryOverridesContentType(t *testing.T) {
	t.Parallel()

	h := testServer(nil).routes()
	req := httptest.NewRequest(http.MethodPost, "/v1/profiles?format=tsv",
		strings.NewReader("a\tb\n1\t2\n"))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s, want 201", w.Code, w.Body)
	}
	resp := decodeJSON[profileResponse](t, w)
	if resp.Profile.SourceFormat != "tsv" {
		t.Fatalf("sourceFormat=%q, want tsv", resp.Profile.SourceFormat)
	}
}

func TestHandleCreate_BadMaxRowsQuery(t *testing.T) {
	t.Parallel()

	h := testServer(nil).routes()
	w := postCSV(t, h, "/v1/profiles?max_rows=zero", "a\n1\n")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s, want 400", w.Code, w.Body)
	}
}

func TestHandleCreate_MaxRowsQueryClampsDownOnly(t *testing.T) {
	t.Parallel()

	h := testServer(nil).routes()
	w := postCSV(t, h, "/v1/profiles?max_rows=2", "a\n1\n2\n3\n4\n")

	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s, want 201", w.Code, w.Body)
	}
	resp := decodeJSON[profileResponse](t, w)
	if resp.Profile.MaterializedRows != 2 || !resp.Profile.Truncated {
		t.Fatalf("profile=%+v, want 2 materialized rows and truncated", resp.Profile)
	}
	if resp.Profile.TotalRows != 4 {
		t.Fatalf("TotalRows=%d, want 4", resp.Profile.TotalRows)
	}
}

func TestHandleCreate_MultipartUpload(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "people.csv")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write([]byte("name\nAda\nGrace\n")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()

	h := testServer(newMemStore()).routes()
	req := httptest.NewRequest(http.MethodPost, "/v1/profiles", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s, want 201", w.Code, w.Body)
	}
	resp := decodeJSON[profileResponse](t, w)
	// The part's filename names the dataset and hints the format.
	if resp.Dataset != "people.csv" {
		t.Fatalf("Dataset=%q, want people.csv", resp.Dataset)
	}
	if resp.Profile.SourceFormat != "csv" {
		t.Fatalf("sourceFormat=%q, want csv", resp.Profile.SourceFormat)
	}
}

func TestHandleGet(t *testing.T) {
	t.Parallel()

	st := newMemStore()
	h := testServer(st).routes()

	// Create through the API so the stored payload is the real one.
	if w := postCSV(t, h, "/v1/profiles", "a\n1\n"); w.Code != http.StatusCreated {
		t.Fatalf("create status=%d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/profiles/id-1", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s, want 200", w.Code, w.Body)
	}
	resp := decodeJSON[profileResponse](t, w)
	if resp.ID != "id-1" || resp.Profile == nil || resp.Profile.TotalRows != 1 {
		t.Fatalf("resp=%+v", resp)
	}
}

func TestHandleGet_NotFound(t *testing.T) {
	t.Parallel()

	h := testServer(newMemStore()).routes()
	req := httptest.NewRequest(http.MethodGet, "/v1/profiles/missing", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d body=%s, want 404", w.Code, w.Body)
	}
}

func TestHandleGet_NoStoreConfigured(t *testing.T) {
	t.Parallel()

	h := testServer(nil).routes()
	req := httptest.NewRequest(http.MethodGet, "/v1/profiles/x", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d body=%s, want 503", w.Code, w.Body)
	}
}

func TestHandleList(t *testing.T) {
	t.Parallel()

	st := newMemStore()
	h := testServer(st).routes()
	for i := 0; i < 3; i++ {
		if w := postCSV(t, h, "/v1/profiles", "a\n1\n"); w.Code != http.StatusCreated {
			t.Fatalf("create %d status=%d", i, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/profiles?limit=2", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s, want 200", w.Code, w.Body)
	}
	entries := decodeJSON[[]listEntry](t, w)
	if len(entries) != 2 {
		t.Fatalf("len=%d, want 2", len(entries))
	}
	if entries[0].ID != "id-3" || entries[1].ID != "id-2" {
		t.Fatalf("order=[%s %s], want newest first", entries[0].ID, entries[1].ID)
	}
}

func TestHandleList_NoStoreConfigured(t *testing.T) {
	t.Parallel()

	h := testServer(nil).routes()
	req := httptest.NewRequest(http.MethodGet, "/v1/profiles", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d body=%s, want 503", w.Code, w.Body)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	h := testServer(nil).routes()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", w.Code)
	}
}
