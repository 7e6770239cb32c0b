package model

import (
	"context"
	"time"
)

// SeenRecord marks a posting URL that went through the full pipeline.
type SeenRecord struct {
	URL         string    // absolute posting URL, primary key
	ProcessedAt time.Time // set by the store on insert
}

// Analysis is the structured comparison of a posting against the resume.
// JSON tags match the keys the model is instructed to return.
type Analysis struct {
	JobTitle        string   `json:"job_title"`
	CompanyName     string   `json:"company_name"`
	MatchScore      int      `json:"match_score_10"`
	KeyStrengths    []string `json:"key_strengths"`
	PotentialGaps   []string `json:"potential_gaps"`
	SummaryForEmail string   `json:"summary_for_email"`
	KeywordsToAdd   []string `json:"keywords_to_add"`
}

// Report is one successfully analyzed posting, as emitted by the report step.
type Report struct {
	URL         string
	Analysis    Analysis
	ProcessedAt time.Time
}

// SeenStore is the durable set of posting URLs already fully processed.
type SeenStore interface {
	// Initialize creates the backing structure if absent. Safe to call repeatedly.
	Initialize(ctx context.Context) error
	Contains(ctx context.Context, url string) (bool, error)
	// Record inserts url with the current time. Returns an error wrapping
	// ErrDuplicateKey when url is already present.
	Record(ctx context.Context, url string) error
	List(ctx context.Context) ([]SeenRecord, error)
	Close() error
}

// AnalysisArchive keeps past reports for later review.
type AnalysisArchive interface {
	SaveAnalysis(ctx context.Context, r Report) error
	ListAnalyses(ctx context.Context, limit int) ([]Report, error)
}

// LinkDiscoverer returns the absolute posting URLs found on a listing page.
type LinkDiscoverer interface {
	Discover(ctx context.Context, pageURL string) ([]string, error)
}

// ContentExtractor fetches a posting and reduces it to plain text.
type ContentExtractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// Comparator compares posting text against the reference document.
type Comparator interface {
	Compare(ctx context.Context, jobText, resumeText string) (*Analysis, error)
}

// Notifier emits a finished report.
type Notifier interface {
	Notify(ctx context.Context, r Report) error
}
