package store

import (
	"context"

	"github.com/amishk599/jobsieve/internal/model"
)

// NopStore is a no-op store used in dry-run mode. It never records anything,
// so every discovered posting appears new on each run.
type NopStore struct{}

var _ model.SeenStore = (*NopStore)(nil)

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) Initialize(ctx context.Context) error                 { return nil }
func (s *NopStore) Contains(ctx context.Context, url string) (bool, error) { return false, nil }
func (s *NopStore) Record(ctx context.Context, url string) error         { return nil }
func (s *NopStore) List(ctx context.Context) ([]model.SeenRecord, error) { return nil, nil }
func (s *NopStore) Close() error                                         { return nil }
