package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobsieve/internal/model"
)

// ResumeLoader returns the reference document text.
type ResumeLoader func() (string, error)

// Deps groups the collaborators a Pipeline drives.
type Deps struct {
	Discoverer model.LinkDiscoverer
	Store      model.SeenStore
	Extractor  model.ContentExtractor
	Comparator model.Comparator
	Notifier   model.Notifier
	LoadResume ResumeLoader
}

// Summary counts what happened to each discovered link during one run.
type Summary struct {
	Discovered      int
	New             int
	Analyzed        int
	ExtractFailed   int
	CompareFailed   int
	Duplicates      int
	RecordFailed    int
	NotifyFailed    int
	DiscoveryFailed bool
}

// LogValue renders the summary as a slog group.
func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("discovered", s.Discovered),
		slog.Int("new", s.New),
		slog.Int("analyzed", s.Analyzed),
		slog.Int("extract_failed", s.ExtractFailed),
		slog.Int("compare_failed", s.CompareFailed),
		slog.Int("duplicates", s.Duplicates),
		slog.Int("record_failed", s.RecordFailed),
		slog.Int("notify_failed", s.NotifyFailed),
		slog.Bool("discovery_failed", s.DiscoveryFailed),
	)
}

// Pipeline owns one pass over a listing page:
// discover → dedup → extract → compare → record → report.
type Pipeline struct {
	target      string
	deps        Deps
	concurrency int
	dryRun      bool
	logger      *slog.Logger
	now         func() time.Time
}

// New creates a pipeline for the listing page at target. A concurrency below
// one is treated as one.
func New(target string, deps Deps, concurrency int, logger *slog.Logger) *Pipeline {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pipeline{
		target:      target,
		deps:        deps,
		concurrency: concurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// SetDryRun marks the run as not persisting anything. It only changes how
// finished items are logged; pair it with a store that records nothing.
func (p *Pipeline) SetDryRun(enabled bool) {
	p.dryRun = enabled
}

// Run executes one pass. Only store initialization, the resume and
// cancellation end a run with an error; per-item failures are logged,
// counted and leave the item unseen so the next run retries it.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	if err := p.deps.Store.Initialize(ctx); err != nil {
		return Summary{}, fmt.Errorf("initializing store: %w", err)
	}

	resumeText, err := p.deps.LoadResume()
	if err != nil {
		return Summary{}, fmt.Errorf("loading resume: %w", err)
	}

	links, err := p.deps.Discoverer.Discover(ctx, p.target)
	if err != nil {
		if ctx.Err() != nil {
			return Summary{}, fmt.Errorf("run interrupted: %w", ctx.Err())
		}
		var dErr *model.DiscoveryError
		if !errors.As(err, &dErr) {
			return Summary{}, fmt.Errorf("discovering links: %w", err)
		}
		p.logger.Error("discovery failed", "url", p.target, "error", err)
		return Summary{DiscoveryFailed: true}, nil
	}

	fresh := p.unseen(ctx, links)
	p.logger.Info(fmt.Sprintf("found %d new job postings", len(fresh)), "discovered", len(links))

	t := &tally{s: Summary{Discovered: len(links), New: len(fresh)}}

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for _, link := range fresh {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// The slot may only free up once the previous item has seen
			// the cancellation.
			if ctx.Err() != nil {
				return nil
			}
			p.process(ctx, link, resumeText, t)
			return nil
		})
	}
	_ = g.Wait()

	summary := t.snapshot()
	if ctx.Err() != nil {
		p.logger.Warn("run interrupted", "summary", summary)
		return summary, fmt.Errorf("run interrupted: %w", ctx.Err())
	}
	p.logger.Info("run complete", "summary", summary)
	return summary, nil
}

// unseen keeps the links the store has not recorded yet, preserving order.
func (p *Pipeline) unseen(ctx context.Context, links []string) []string {
	var fresh []string
	for _, link := range links {
		seen, err := p.deps.Store.Contains(ctx, link)
		if err != nil {
			p.logger.Error("checking seen status", "url", link, "error", err)
			continue
		}
		if !seen {
			fresh = append(fresh, link)
		}
	}
	return fresh
}

func (p *Pipeline) process(ctx context.Context, link, resumeText string, t *tally) {
	p.logger.Info("processing new job", "url", link)

	text, err := p.deps.Extractor.Extract(ctx, link)
	if err != nil {
		p.logger.Warn("extraction failed, will retry next run", "url", link, "error", err)
		t.add(func(s *Summary) { s.ExtractFailed++ })
		return
	}

	analysis, err := p.deps.Comparator.Compare(ctx, text, resumeText)
	if err != nil {
		p.logger.Warn("comparison failed, will retry next run", "url", link, "kind", failureKind(err), "error", err)
		t.add(func(s *Summary) { s.CompareFailed++ })
		return
	}
	t.add(func(s *Summary) { s.Analyzed++ })

	err = p.deps.Store.Record(ctx, link)
	switch {
	case errors.Is(err, model.ErrDuplicateKey):
		p.logger.Info("already recorded by another run", "url", link)
		t.add(func(s *Summary) { s.Duplicates++ })
	case err != nil:
		p.logger.Error("recording job failed", "url", link, "error", err)
		t.add(func(s *Summary) { s.RecordFailed++ })
	case p.dryRun:
		p.logger.Info("processed, not saved (dry run)", "url", link, "score", analysis.MatchScore)
	default:
		p.logger.Info("successfully processed and saved", "url", link, "score", analysis.MatchScore)
	}

	report := model.Report{URL: link, Analysis: *analysis, ProcessedAt: p.now().UTC()}
	if err := p.deps.Notifier.Notify(ctx, report); err != nil {
		p.logger.Error("reporting analysis failed", "url", link, "error", err)
		t.add(func(s *Summary) { s.NotifyFailed++ })
	}
}

func failureKind(err error) string {
	var tErr *model.TransportError
	var sErr *model.SchemaError
	switch {
	case errors.As(err, &tErr):
		return "transport"
	case errors.As(err, &sErr):
		return "schema"
	default:
		return "other"
	}
}

type tally struct {
	mu sync.Mutex
	s  Summary
}

func (t *tally) add(f func(*Summary)) {
	t.mu.Lock()
	f(&t.s)
	t.mu.Unlock()
}

func (t *tally) snapshot() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.s
}
