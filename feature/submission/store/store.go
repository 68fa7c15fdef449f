package store

import (
	"context"
	"errors"
	"fmt"

	"submission-composer/feature/submission/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrItemSubmissionExists is returned when creating a key that already exists.
	ErrItemSubmissionExists = errors.New("item submission already exists")
	// ErrNotFound is returned when no record exists for a key.
	ErrNotFound = errors.New("item submission not found")
	// ErrConflict is returned when a conditional update finds the record changed.
	ErrConflict = errors.New("item submission was modified concurrently")
)

// Store is the record store adapter over gorm.
type Store struct {
	db *gorm.DB
}

// New creates a store on an open connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for schema inspection.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Migrate creates or updates the item_submissions table.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&models.ItemSubmission{}); err != nil {
		return fmt.Errorf("failed to migrate item submissions: %w", err)
	}
	return nil
}

// Create inserts the record only if its key is absent.
func (s *Store) Create(ctx context.Context, item *models.ItemSubmission) error {
	return create(s.db.WithContext(ctx), item)
}

// CreateResult counts the outcome of a CreateBatch call.
type CreateResult struct {
	Created  []string
	Existing []string
}

// CreateBatch inserts all records in one transaction. Keys that already exist
// are left untouched and reported as existing.
func (s *Store) CreateBatch(ctx context.Context, items []*models.ItemSubmission) (*CreateResult, error) {
	res := &CreateResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			err := create(tx, item)
			switch {
			case errors.Is(err, ErrItemSubmissionExists):
				res.Existing = append(res.Existing, item.ItemIdentifier)
			case err != nil:
				return err
			default:
				res.Created = append(res.Created, item.ItemIdentifier)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func create(db *gorm.DB, item *models.ItemSubmission) error {
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(item)
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s/%s", ErrItemSubmissionExists, item.BatchID, item.ItemIdentifier)
	}
	if res.Error != nil {
		return fmt.Errorf("failed to create item submission %s/%s: %w", item.BatchID, item.ItemIdentifier, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s/%s", ErrItemSubmissionExists, item.BatchID, item.ItemIdentifier)
	}
	return nil
}

// Get loads one record.
func (s *Store) Get(ctx context.Context, batchID, itemIdentifier string) (*models.ItemSubmission, error) {
	var item models.ItemSubmission
	err := s.db.WithContext(ctx).
		Where("batch_id = ? AND item_identifier = ?", batchID, itemIdentifier).
		Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, batchID, itemIdentifier)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item submission %s/%s: %w", batchID, itemIdentifier, err)
	}
	return &item, nil
}

// ListBatch returns every record of a batch ordered by item identifier.
func (s *Store) ListBatch(ctx context.Context, batchID string) ([]models.ItemSubmission, error) {
	var items []models.ItemSubmission
	err := s.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("item_identifier").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list batch %s: %w", batchID, err)
	}
	return items, nil
}

// StatusCount is the number of records of a batch in one status.
type StatusCount struct {
	Status    models.Status `json:"status"`
	Exhausted bool          `json:"exhausted"`
	Count     int64         `json:"count"`
}

// CountByStatus groups a batch's records by status and exhaustion.
func (s *Store) CountByStatus(ctx context.Context, batchID string) ([]StatusCount, error) {
	var counts []StatusCount
	err := s.db.WithContext(ctx).
		Model(&models.ItemSubmission{}).
		Select("status, exhausted, COUNT(*) AS count").
		Where("batch_id = ?", batchID).
		Group("status, exhausted").
		Order("status, exhausted").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count batch %s: %w", batchID, err)
	}
	return counts, nil
}

// Update persists item if the stored record still matches prev.
// A mismatch returns ErrConflict and writes nothing.
func (s *Store) Update(ctx context.Context, item *models.ItemSubmission, prev models.Revision) error {
	res := s.db.WithContext(ctx).
		Model(&models.ItemSubmission{}).
		Where("batch_id = ? AND item_identifier = ?", item.BatchID, item.ItemIdentifier).
		Where("status = ? AND submit_attempts = ? AND ingest_attempts = ?", prev.Status, prev.SubmitAttempts, prev.IngestAttempts).
		Updates(map[string]any{
			"status":                  item.Status,
			"status_details":          item.StatusDetails,
			"submit_attempts":         item.SubmitAttempts,
			"ingest_attempts":         item.IngestAttempts,
			"exhausted":               item.Exhausted,
			"last_run_date":           item.LastRunDate,
			"last_submission_message": item.LastSubmissionMessage,
			"last_result_message":     item.LastResultMessage,
			"dspace_handle":           item.DSpaceHandle,
			"ingest_date":             item.IngestDate,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update item submission %s/%s: %w", item.BatchID, item.ItemIdentifier, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s/%s expected %s", ErrConflict, item.BatchID, item.ItemIdentifier, prev.Status)
	}
	return nil
}
