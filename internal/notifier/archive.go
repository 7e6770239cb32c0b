package notifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/amishk599/jobsieve/internal/model"
)

var (
	_ model.Notifier = (*ArchiveNotifier)(nil)
	_ model.Notifier = Multi(nil)
)

// ArchiveNotifier saves every report so it can be browsed later with the
// review command.
type ArchiveNotifier struct {
	archive model.AnalysisArchive
}

func NewArchiveNotifier(archive model.AnalysisArchive) *ArchiveNotifier {
	return &ArchiveNotifier{archive: archive}
}

func (n *ArchiveNotifier) Notify(ctx context.Context, r model.Report) error {
	if err := n.archive.SaveAnalysis(ctx, r); err != nil {
		return fmt.Errorf("archive report: %w", err)
	}
	return nil
}

// Multi fans a report out to every notifier. All notifiers are tried; their
// errors are joined.
type Multi []model.Notifier

func (m Multi) Notify(ctx context.Context, r model.Report) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
