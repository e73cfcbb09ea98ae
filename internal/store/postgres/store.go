// Package postgres implements the profile store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"profiler/internal/store"
)

type Store struct {
	pool *pgxpool.Pool
}

func init() {
	store.Register("postgres", New)
}

func New(ctx context.Context, cfg store.Config) (store.Store, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) Ensure(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS profiles (
  id TEXT PRIMARY KEY,
  dataset TEXT NOT NULL,
  format TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  profile JSONB NOT NULL
);`)
	return err
}

func (s *Store) Save(ctx context.Context, rec store.Record) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO profiles (id, dataset, format, created_at, profile) VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, rec.Dataset, rec.Format, rec.CreatedAt.UTC(), rec.Profile,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id string) (*store.Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, dataset, format, created_at, profile FROM profiles WHERE id = $1`, id)

	var rec store.Record
	if err := row.Scan(&rec.ID, &rec.Dataset, &rec.Format, &rec.CreatedAt, &rec.Profile); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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
	rows, err := s.pool.Query(ctx,
		`SELECT id, dataset, format, created_at FROM profiles ORDER BY created_at DESC, id LIMIT $1`, limit)
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
