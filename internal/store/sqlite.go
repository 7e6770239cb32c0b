package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/amishk599/jobsieve/internal/model"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// SQLiteStore keeps seen posting URLs and archived analyses in a SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

var (
	_ model.SeenStore       = (*SQLiteStore)(nil)
	_ model.AnalysisArchive = (*SQLiteStore)(nil)
)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath. Call
// Initialize before use to apply the schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// One connection serializes writers from a concurrent pipeline.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Initialize applies pending migrations. Running it against an up-to-date
// database is a no-op.
func (s *SQLiteStore) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating sqlite migrate driver: %w", err)
	}

	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("creating iofs source: %w", err)
	}

	// m.Close is not called: it would close s.db through the driver.
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Contains reports whether url has already been recorded.
func (s *SQLiteStore) Contains(ctx context.Context, url string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM seen_urls WHERE url = ?", url).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking seen status for %s: %w", url, err)
	}
	return true, nil
}

// Record marks url as processed. A second call for the same url returns an
// error wrapping model.ErrDuplicateKey and leaves the original row untouched.
func (s *SQLiteStore) Record(ctx context.Context, url string) error {
	res, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO seen_urls (url, processed_at) VALUES (?, ?)",
		url, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("recording %s as seen: %w", url, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("recording %s as seen: %w", url, err)
	}
	if n == 0 {
		return fmt.Errorf("recording %s as seen: %w", url, model.ErrDuplicateKey)
	}
	return nil
}

// List returns every recorded URL, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]model.SeenRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT url, processed_at FROM seen_urls ORDER BY processed_at DESC, url")
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

// SaveAnalysis stores r in the archive, replacing any earlier report for the same URL.
func (s *SQLiteStore) SaveAnalysis(ctx context.Context, r model.Report) error {
	payload, err := json.Marshal(r.Analysis)
	if err != nil {
		return fmt.Errorf("encoding analysis for %s: %w", r.URL, err)
	}
	processedAt := r.ProcessedAt
	if processedAt.IsZero() {
		processedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO analyses (url, job_title, company_name, match_score, payload, processed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			job_title = excluded.job_title,
			company_name = excluded.company_name,
			match_score = excluded.match_score,
			payload = excluded.payload,
			processed_at = excluded.processed_at`,
		r.URL, r.Analysis.JobTitle, r.Analysis.CompanyName, r.Analysis.MatchScore,
		string(payload), processedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving analysis for %s: %w", r.URL, err)
	}
	return nil
}

// ListAnalyses returns archived reports, newest first. A limit of zero or
// less returns all of them.
func (s *SQLiteStore) ListAnalyses(ctx context.Context, limit int) ([]model.Report, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT url, payload, processed_at FROM analyses ORDER BY processed_at DESC, url LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	defer rows.Close()

	var reports []model.Report
	for rows.Next() {
		var (
			r       model.Report
			payload string
		)
		if err := rows.Scan(&r.URL, &payload, &r.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scanning analysis: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &r.Analysis); err != nil {
			return nil, fmt.Errorf("decoding analysis for %s: %w", r.URL, err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	return reports, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
