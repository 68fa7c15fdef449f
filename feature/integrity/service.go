package integrity

import (
	"context"

	"submission-composer/core/storage"
	"submission-composer/feature/integrity/checks"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service handles integrity checks.
type Service struct {
	client   storage.Client
	bucket   string
	workflow string
	logger   *zap.Logger
	db       *gorm.DB
}

// NewService creates a new integrity service.
func NewService(client storage.Client, bucket, workflow string, logger *zap.Logger, db *gorm.DB) *Service {
	return &Service{
		client:   client,
		bucket:   bucket,
		workflow: workflow,
		logger:   logger,
		db:       db,
	}
}

// CheckStorage verifies the bucket and the workflow prefix.
func (s *Service) CheckStorage(ctx context.Context) (*checks.StorageReport, error) {
	return checks.CheckStorage(ctx, s.client, s.bucket, s.workflow)
}

// CheckRecords verifies the record store schema.
func (s *Service) CheckRecords() (*checks.RecordsReport, error) {
	return checks.CheckRecords(s.db)
}

// CheckAll runs every check; a failing check is reported in place.
func (s *Service) CheckAll(ctx context.Context) map[string]interface{} {
	report := make(map[string]interface{})

	if storageReport, err := s.CheckStorage(ctx); err != nil {
		report["storage"] = map[string]interface{}{"status": "error", "error": err.Error()}
	} else {
		report["storage"] = storageReport
	}

	if recordsReport, err := s.CheckRecords(); err != nil {
		report["records"] = map[string]interface{}{"status": "error", "error": err.Error()}
	} else {
		report["records"] = recordsReport
	}

	return report
}
