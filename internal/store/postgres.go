package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amishk599/jobsieve/internal/model"
)

// PostgresStore keeps seen posting URLs in a shared PostgreSQL database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ model.SeenStore = (*PostgresStore)(nil)

// NewPostgresStore creates and verifies a connection pool for dsn.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Initialize(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS seen_urls (
		url          TEXT PRIMARY KEY,
		processed_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return fmt.Errorf("creating seen_urls table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Contains(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM seen_urls WHERE url = $1)", url).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking seen status for %s: %w", url, err)
	}
	return exists, nil
}

func (s *PostgresStore) Record(ctx context.Context, url string) error {
	tag, err := s.pool.Exec(ctx,
		"INSERT INTO seen_urls (url, processed_at) VALUES ($1, $2) ON CONFLICT (url) DO NOTHING",
		url, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("recording %s as seen: %w", url, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("recording %s as seen: %w", url, model.ErrDuplicateKey)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]model.SeenRecord, error) {
	rows, err := s.pool.Query(ctx, "SELECT url, processed_at FROM seen_urls ORDER BY processed_at DESC, url")
	if err != nil {
		return nil, fmt.Errorf("listing seen urls: %w", err)
	}
	defer rows.Close()

	var records []model.SeenRecord
	for rows.Next() {
		var r model.SeenRecord
		if err := rows.Scan(&r.URL, &r.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scanning seen url: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing seen urls: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
