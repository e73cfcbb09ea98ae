package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"profiler/internal/store"
)

func open(t *testing.T) store.Store {
	t.Helper()
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "profiles.db")
	s, err := New(ctx, store.Config{Kind: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	if err := s.Ensure(ctx); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	return s
}

func TestSaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := open(t)

	created := time.Date(2026, 8, 30, 10, 0, 0, 123456789, time.UTC)
	rec := store.Record{
		ID:        "p-1",
		Dataset:   "customers.csv",
		Format:    "csv",
		CreatedAt: created,
		Profile:   []byte(`{"totalRows":3}`),
	}
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Get(ctx, "p-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != rec.ID || got.Dataset != rec.Dataset || got.Format != rec.Format {
		t.Fatalf("got %+v, want %+v", got, rec)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("CreatedAt=%v, want %v", got.CreatedAt, created)
	}
	if string(got.Profile) != string(rec.Profile) {
		t.Fatalf("Profile=%s, want %s", got.Profile, rec.Profile)
	}
}

func TestGetUnknownID(t *testing.T) {
	s := open(t)
	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err=%v, want store.ErrNotFound", err)
	}
}

func TestSaveDuplicateIDFails(t *testing.T) {
	ctx := context.Background()
	s := open(t)

	rec := store.Record{ID: "dup", Dataset: "x", Format: "csv", CreatedAt: time.Now().UTC(), Profile: []byte("{}")}
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	if err := s.Save(ctx, rec); err == nil {
		t.Fatal("second Save with same id succeeded, want error")
	}
}

func TestList_NewestFirstWithoutPayload(t *testing.T) {
	ctx := context.Background()
	s := open(t)

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := store.Record{
			ID:        string(rune('a' + i)),
			Dataset:   "d",
			Format:    "csv",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
			Profile:   []byte("{}"),
		}
		if err := s.Save(ctx, rec); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}

	got, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len=%d, want 2", len(got))
	}
	if got[0].ID != "c" || got[1].ID != "b" {
		t.Fatalf("order=[%s %s], want [c b]", got[0].ID, got[1].ID)
	}
	if got[0].Profile != nil {
		t.Fatal("List returned profile payloads, want metadata only")
	}
}

func TestParseTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		wantErr bool
	}{
		{"2026-08-30T10:00:00.123456789Z", false},
		{"2026-08-30T10:00:00Z", false},
		{"2026-08-30 10:00:00", false},
		{"", true},
		{"yesterday", true},
	}
	for _, tc := range tests {
		_, err := parseTime(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("parseTime(%q) err=%v, wantErr=%v", tc.in, err, tc.wantErr)
		}
	}
}
