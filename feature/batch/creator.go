package batch

import (
	"context"
	"fmt"
	"time"

	"submission-composer/core/reconcile"
	"submission-composer/core/workflow"
	"submission-composer/feature/metadata"
	"submission-composer/feature/submission/models"
	"submission-composer/feature/submission/store"

	"go.uber.org/zap"
)

// CreateReport is the outcome of a create pass.
type CreateReport struct {
	BatchID   string           `json:"batch_id"`
	Reconcile reconcile.Result `json:"reconcile"`
	Verdicts  []Verdict        `json:"verdicts"`
	Created   []string         `json:"created"`
	Existing  []string         `json:"existing"`
}

// Creator runs the create pass: validate a batch, then record every item.
type Creator struct {
	loader      *Loader
	store       *store.Store
	workflow    workflow.Config
	transformer *metadata.Transformer
	logger      *zap.Logger
	now         func() time.Time
}

// NewCreator creates a create pass runner.
func NewCreator(loader *Loader, st *store.Store, wf workflow.Config, tr *metadata.Transformer, logger *zap.Logger) *Creator {
	return &Creator{
		loader:      loader,
		store:       st,
		workflow:    wf,
		transformer: tr,
		logger:      logger,
		now:         time.Now,
	}
}

// Create validates the batch and creates a batch_created record per item.
// Nothing is written unless every item is complete. Items that already have
// a record are reported as existing, so repeating a create is a no-op.
// The report is returned alongside a *ValidationError.
func (c *Creator) Create(ctx context.Context, batchID string) (*CreateReport, error) {
	snap, err := reconcile.BuildSnapshot(ctx, c.loader.Spec(batchID, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to load batch %s: %w", batchID, err)
	}

	validation := Validate(NewInventory(batchID, snap), c.transformer)
	report := &CreateReport{
		BatchID:   batchID,
		Reconcile: validation.Reconcile,
		Verdicts:  validation.Verdicts,
	}

	if invalid := validation.Invalid(); len(invalid) > 0 {
		c.logger.Warn("Batch failed validation",
			zap.String("batch_id", batchID),
			zap.Int("invalid", len(invalid)),
			zap.Int("reconciled", len(validation.Reconcile.Reconciled)))
		return report, &ValidationError{BatchID: batchID, Invalid: invalid}
	}

	complete := validation.Complete()
	if len(complete) == 0 {
		return report, fmt.Errorf("%w: batch %s contains no items", ErrBatchInvalid, batchID)
	}

	now := c.now()
	items := make([]*models.ItemSubmission, 0, len(complete))
	for _, id := range complete {
		items = append(items, models.NewItemSubmission(batchID, id, c.workflow.Name, now))
	}

	res, err := c.store.CreateBatch(ctx, items)
	if err != nil {
		return report, fmt.Errorf("failed to create records for batch %s: %w", batchID, err)
	}
	report.Created = res.Created
	report.Existing = res.Existing

	c.logger.Info("Batch created",
		zap.String("batch_id", batchID),
		zap.Int("created", len(res.Created)),
		zap.Int("existing", len(res.Existing)))
	return report, nil
}
