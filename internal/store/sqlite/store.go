// Package sqlite implements the profile store on SQLite via
// modernc.org/sqlite (no cgo).
//
// SQLite has no native timestamp type, so created_at is stored as an
// RFC3339Nano TEXT column for reliable round-trips with this driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"profiler/internal/store"
)

type Store struct {
	db *sql.DB
}

func init() {
	store.Register("sqlite", New)
}

func New(ctx context.Context, cfg store.Config) (store.Store, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() { _ = s.db.Close() }

func (s *Store) Ensure(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS profiles (
  id TEXT PRIMARY KEY,
  dataset TEXT NOT NULL,
  format TEXT NOT NULL,
  created_at TEXT NOT NULL,
  profile BLOB NOT NULL
);`)
	return err
}

func (s *Store) Save(ctx context.Context, rec store.Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (id, dataset, format, created_at, profile) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Dataset, rec.Format, formatTime(rec.CreatedAt), rec.Profile,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id string) (*store.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, dataset, format, created_at, profile FROM profiles WHERE id = ?`, id)

	var rec store.Record
	var createdAt string
	if err := row.Scan(&rec.ID, &rec.Dataset, &rec.Format, &createdAt, &rec.Profile); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	t, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("sqlite: parse profiles.created_at=%q: %w", createdAt, err)
	}
	rec.CreatedAt = t
	return &rec, nil
}

func (s *Store) List(ctx context.Context, limit int) ([]store.Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, dataset, format, created_at FROM profiles ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Record
	for rows.Next() {
		var rec store.Record
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.Dataset, &rec.Format, &createdAt); err != nil {
			return nil, err
		}
		t, err := parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("sqlite: parse profiles.created_at=%q: %w", createdAt, err)
		}
		rec.CreatedAt = t
		out = append(out, rec)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses timestamps returned by SQLite. RFC3339Nano is what
// this package writes; the other layouts cover rows written by other
// tools against the same file.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time string")
	}

	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if layout == "2006-01-02 15:04:05" {
			if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return ts.UTC(), nil
			}
			continue
		}
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported time format: %q", s)
}
