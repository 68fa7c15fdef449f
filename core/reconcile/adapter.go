package reconcile

import "context"

// Loader discovers the two independently listed identifier sources of a batch.
type Loader interface {
	// Name returns the unique name of this loader (e.g., "batch").
	Name() string

	// LoadBitstreamIndex lists the bitstream objects under prefix and returns
	// their keys grouped by item identifier.
	LoadBitstreamIndex(ctx context.Context, prefix string) (map[string][]string, error)

	// LoadMetadataIndex reads the metadata source under prefix and returns
	// its records grouped by item identifier. Records without an identifier
	// are grouped under the empty key.
	LoadMetadataIndex(ctx context.Context, prefix string) (map[string]MetadataItem, error)
}
