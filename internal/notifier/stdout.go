package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/amishk599/jobsieve/internal/model"
)

// Ensure StdoutNotifier implements model.Notifier.
var _ model.Notifier = (*StdoutNotifier)(nil)

// StdoutNotifier prints each analysis as indented JSON. Writes are serialized
// so reports from concurrent workers do not interleave.
type StdoutNotifier struct {
	mu     sync.Mutex
	out    io.Writer
	logger *slog.Logger
}

// NewStdoutNotifier returns a notifier writing to out (usually os.Stdout).
func NewStdoutNotifier(out io.Writer, logger *slog.Logger) *StdoutNotifier {
	return &StdoutNotifier{out: out, logger: logger}
}

func (n *StdoutNotifier) Notify(_ context.Context, r model.Report) error {
	body, err := json.MarshalIndent(r.Analysis, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if _, err := fmt.Fprintf(n.out, "Analysis complete:\n%s\n", body); err != nil {
		return fmt.Errorf("write analysis: %w", err)
	}
	n.logger.Info("analysis reported",
		"url", r.URL,
		"title", r.Analysis.JobTitle,
		"company", r.Analysis.CompanyName,
		"score", r.Analysis.MatchScore,
	)
	return nil
}
