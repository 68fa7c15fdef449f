package checks

import (
	"context"
	"fmt"
	"strings"

	"submission-composer/core/storage"

	"github.com/minio/minio-go/v7"
)

// StorageReport is the result of a storage integrity check.
type StorageReport struct {
	Bucket          string `json:"bucket"`
	WorkflowPrefix  string `json:"workflow_prefix"`
	WorkflowPresent bool   `json:"workflow_present"`
	Status          string `json:"status"` // "ok", "error"
}

// CheckStorage verifies the bucket exists and holds the workflow's prefix.
// A missing bucket is an error; a missing prefix is reported.
func CheckStorage(ctx context.Context, client storage.Client, bucket, workflowName string) (*StorageReport, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", bucket)
	}

	prefix := strings.Trim(workflowName, "/") + "/"
	report := &StorageReport{
		Bucket:         bucket,
		WorkflowPrefix: prefix,
		Status:         "error",
	}

	opts := minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: false,
		MaxKeys:   1,
	}
	for obj := range client.ListObjects(ctx, bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", prefix, obj.Err)
		}
		report.WorkflowPresent = true
		report.Status = "ok"
		break
	}

	return report, nil
}
