package batch

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"submission-composer/core/reconcile"
	"submission-composer/core/storage"
	"submission-composer/core/workflow"
	"submission-composer/feature/metadata"
)

// Loader reads the two identifier indices of a batch from the object store.
// It implements reconcile.Loader; metadata items are []metadata.SourceRecord.
type Loader struct {
	client   storage.Client
	bucket   string
	workflow workflow.Config
	mapping  metadata.Mapping
}

// NewLoader creates a batch loader.
func NewLoader(client storage.Client, bucket string, wf workflow.Config, mapping metadata.Mapping) *Loader {
	return &Loader{
		client:   client,
		bucket:   bucket,
		workflow: wf,
		mapping:  mapping,
	}
}

// Name returns the loader name used in snapshot cache keys.
func (l *Loader) Name() string {
	return "batch"
}

// Spec returns the reconcile spec of one batch.
func (l *Loader) Spec(batchID string, ttl time.Duration) *reconcile.Spec {
	return &reconcile.Spec{
		Loader:   l,
		Prefix:   l.workflow.BatchPath(batchID),
		CacheTTL: ttl,
	}
}

// LoadBitstreamIndex groups every bitstream under prefix by item identifier.
// The metadata file and the excluded sub-prefixes are skipped.
func (l *Loader) LoadBitstreamIndex(ctx context.Context, prefix string) (map[string][]string, error) {
	keys, err := storage.ListKeys(ctx, l.client, l.bucket, prefix)
	if err != nil {
		return nil, err
	}

	metadataKey := prefix + l.workflow.MetadataFile
	index := make(map[string][]string)
	for _, key := range keys {
		if key == metadataKey || isExcluded(strings.TrimPrefix(key, prefix)) {
			continue
		}
		id := ItemIdentifier(key)
		if id == "" {
			continue
		}
		index[id] = append(index[id], key)
	}
	return index, nil
}

// LoadMetadataIndex reads the batch metadata source and groups its rows by
// item identifier. Rows without an identifier are grouped under "".
func (l *Loader) LoadMetadataIndex(ctx context.Context, prefix string) (map[string]reconcile.MetadataItem, error) {
	key := prefix + l.workflow.MetadataFile
	data, err := storage.ReadObject(ctx, l.client, l.bucket, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata source: %w", err)
	}
	records, err := metadata.ReadSource(path.Base(key), data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", key, err)
	}

	idField := l.mapping.IdentifierField()
	index := make(map[string]reconcile.MetadataItem)
	for _, rec := range records {
		id := strings.TrimSpace(rec[idField])
		rows, _ := index[id].([]metadata.SourceRecord)
		index[id] = append(rows, rec)
	}
	return index, nil
}
