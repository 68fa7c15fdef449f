package batch

import (
	"context"
	"time"

	"submission-composer/core/reconcile"
	"submission-composer/feature/submission/models"
	"submission-composer/feature/submission/store"

	"go.uber.org/zap"
)

// Summary aggregates the records of one batch.
type Summary struct {
	BatchID string              `json:"batch_id"`
	Total   int64               `json:"total"`
	Counts  []store.StatusCount `json:"counts"`
}

// Service serves read-only batch queries.
type Service struct {
	store    *store.Store
	loader   *Loader
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewService creates a new batch service.
func NewService(st *store.Store, loader *Loader, cacheTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{
		store:    st,
		loader:   loader,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// ListItems returns every record of a batch.
func (s *Service) ListItems(ctx context.Context, batchID string) ([]models.ItemSubmission, error) {
	return s.store.ListBatch(ctx, batchID)
}

// GetItem returns one record.
func (s *Service) GetItem(ctx context.Context, batchID, itemIdentifier string) (*models.ItemSubmission, error) {
	return s.store.Get(ctx, batchID, itemIdentifier)
}

// Summary counts the records of a batch per status.
func (s *Service) Summary(ctx context.Context, batchID string) (*Summary, error) {
	counts, err := s.store.CountByStatus(ctx, batchID)
	if err != nil {
		return nil, err
	}
	summary := &Summary{BatchID: batchID, Counts: counts}
	for _, c := range counts {
		summary.Total += c.Count
	}
	return summary, nil
}

// Reconcile compares the batch's bitstreams and metadata, reusing a cached
// inventory younger than the configured TTL.
func (s *Service) Reconcile(ctx context.Context, batchID string) (reconcile.Result, error) {
	_, result, err := reconcile.Run(ctx, s.loader.Spec(batchID, s.cacheTTL))
	return result, err
}
