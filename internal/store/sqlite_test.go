package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/amishk599/jobsieve/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return s
}

func TestRecordThenContains(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Record(ctx, "https://example.com/jobs/1"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	seen, err := s.Contains(ctx, "https://example.com/jobs/1")
	if err != nil {
		t.Fatalf("Contains: %v", err)
	}
	if !seen {
		t.Error("expected Contains to return true after Record")
	}
}

func TestContainsUnknownReturnsFalse(t *testing.T) {
	s := newTestStore(t)

	seen, err := s.Contains(context.Background(), "https://example.com/jobs/missing")
	if err != nil {
		t.Fatalf("Contains: %v", err)
	}
	if seen {
		t.Error("expected Contains to return false for unknown URL")
	}
}

func TestRecordDuplicateReturnsErrDuplicateKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	url := "https://example.com/jobs/2"

	if err := s.Record(ctx, url); err != nil {
		t.Fatalf("first Record: %v", err)
	}
	before, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	err = s.Record(ctx, url)
	if !errors.Is(err, model.ErrDuplicateKey) {
		t.Fatalf("second Record = %v, want ErrDuplicateKey", err)
	}

	after, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(after) != 1 {
		t.Fatalf("List returned %d records, want 1", len(after))
	}
	if !after[0].ProcessedAt.Equal(before[0].ProcessedAt) {
		t.Errorf("ProcessedAt changed on duplicate: %v -> %v", before[0].ProcessedAt, after[0].ProcessedAt)
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Record(ctx, "https://example.com/jobs/3"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := s.Initialize(ctx); err != nil {
			t.Fatalf("Initialize #%d: %v", i+2, err)
		}
	}

	seen, err := s.Contains(ctx, "https://example.com/jobs/3")
	if err != nil {
		t.Fatalf("Contains: %v", err)
	}
	if !seen {
		t.Error("expected record to survive repeated Initialize")
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	s1, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := s1.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := s1.Record(ctx, "https://example.com/jobs/4"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	s1.Close()

	s2, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if err := s2.Initialize(ctx); err != nil {
		t.Fatalf("Initialize after reopen: %v", err)
	}

	seen, err := s2.Contains(ctx, "https://example.com/jobs/4")
	if err != nil {
		t.Fatalf("Contains: %v", err)
	}
	if !seen {
		t.Error("expected URL to be seen after reopening the database")
	}
}

func TestListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, u := range []string{"https://example.com/jobs/a", "https://example.com/jobs/b"} {
		if err := s.Record(ctx, u); err != nil {
			t.Fatalf("Record(%s): %v", u, err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	records, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("List returned %d records, want 2", len(records))
	}
	if records[0].URL != "https://example.com/jobs/b" {
		t.Errorf("records[0] = %s, want newest (jobs/b)", records[0].URL)
	}
	if records[0].ProcessedAt.IsZero() {
		t.Error("ProcessedAt not populated")
	}
}

func TestSaveAndListAnalyses(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	first := model.Report{
		URL: "https://example.com/jobs/10",
		Analysis: model.Analysis{
			JobTitle:      "Backend Engineer",
			CompanyName:   "Acme",
			MatchScore:    6,
			KeyStrengths:  []string{"Go"},
			PotentialGaps: []string{"Kafka"},
			KeywordsToAdd: []string{"gRPC"},
		},
		ProcessedAt: now.Add(-time.Hour),
	}
	second := model.Report{
		URL:         "https://example.com/jobs/11",
		Analysis:    model.Analysis{JobTitle: "SRE", CompanyName: "Globex", MatchScore: 8},
		ProcessedAt: now,
	}
	for _, r := range []model.Report{first, second} {
		if err := s.SaveAnalysis(ctx, r); err != nil {
			t.Fatalf("SaveAnalysis(%s): %v", r.URL, err)
		}
	}

	// Saving again replaces the earlier report.
	first.Analysis.MatchScore = 7
	if err := s.SaveAnalysis(ctx, first); err != nil {
		t.Fatalf("SaveAnalysis update: %v", err)
	}

	reports, err := s.ListAnalyses(ctx, 0)
	if err != nil {
		t.Fatalf("ListAnalyses: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("ListAnalyses returned %d, want 2", len(reports))
	}
	if reports[0].URL != second.URL {
		t.Errorf("reports[0] = %s, want newest %s", reports[0].URL, second.URL)
	}
	if reports[1].Analysis.MatchScore != 7 {
		t.Errorf("updated MatchScore = %d, want 7", reports[1].Analysis.MatchScore)
	}
	if len(reports[1].Analysis.KeyStrengths) != 1 || reports[1].Analysis.KeyStrengths[0] != "Go" {
		t.Errorf("KeyStrengths = %v", reports[1].Analysis.KeyStrengths)
	}

	limited, err := s.ListAnalyses(ctx, 1)
	if err != nil {
		t.Fatalf("ListAnalyses(1): %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("ListAnalyses(1) returned %d, want 1", len(limited))
	}
}

func TestNopStoreNeverSeen(t *testing.T) {
	s := NewNopStore()
	ctx := context.Background()

	if err := s.Record(ctx, "https://example.com/jobs/1"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	seen, err := s.Contains(ctx, "https://example.com/jobs/1")
	if err != nil {
		t.Fatalf("Contains: %v", err)
	}
	if seen {
		t.Error("NopStore should never report a URL as seen")
	}
}
