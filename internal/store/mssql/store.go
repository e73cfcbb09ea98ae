// Package mssql implements the profile store on Microsoft SQL Server
// via database/sql and the go-mssqldb driver.
package mssql

import (
	"context"
	"database/sql"
	"errors"

	_ "github.com/microsoft/go-mssqldb"

	"profiler/internal/store"
)

type Store struct {
	db *sql.DB
}

func init() {
	store.Register("mssql", New)
}

func New(ctx context.Context, cfg store.Config) (store.Store, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
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
	_, err := s.db.ExecContext(ctx, `IF OBJECT_ID(N'profiles', N'U') IS NULL
CREATE TABLE profiles (
  id NVARCHAR(64) NOT NULL PRIMARY KEY,
  dataset NVARCHAR(512) NOT NULL,
  format NVARCHAR(32) NOT NULL,
  created_at DATETIMEOFFSET NOT NULL,
  profile VARBINARY(MAX) NOT NULL
);`)
	return err
}

func (s *Store) Save(ctx context.Context, rec store.Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (id, dataset, format, created_at, profile) VALUES (@p1, @p2, @p3, @p4, @p5)`,
		rec.ID, rec.Dataset, rec.Format, rec.CreatedAt.UTC(), rec.Profile,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id string) (*store.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, dataset, format, created_at, profile FROM profiles WHERE id = @p1`, id)

	var rec store.Record
	if err := row.Scan(&rec.ID, &rec.Dataset, &rec.Format, &rec.CreatedAt, &rec.Profile); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (s *Store) List(ctx context.Context, limit int) ([]store.Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT TOP (@p1) id, dataset, format, created_at FROM profiles ORDER BY created_at DESC, id`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Record
	for rows.Next() {
		var rec store.Record
		if err := rows.Scan(&rec.ID, &rec.Dataset, &rec.Format, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
