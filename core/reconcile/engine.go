package reconcile

import "context"

// Reconcile partitions the union of bitstream and metadata identifiers.
// Matching is exact set membership.
func Reconcile(bitstreams, metadata Set) Result {
	reconciled := make(Set)
	bitstreamOnly := make(Set)
	metadataOnly := make(Set)

	for key := range bitstreams {
		if metadata.Has(key) {
			reconciled[key] = struct{}{}
		} else {
			bitstreamOnly[key] = struct{}{}
		}
	}
	for key := range metadata {
		if !bitstreams.Has(key) {
			metadataOnly[key] = struct{}{}
		}
	}

	return Result{
		Reconciled:                reconciled.Sorted(),
		BitstreamsWithoutMetadata: bitstreamOnly.Sorted(),
		MetadataWithoutBitstreams: metadataOnly.Sorted(),
	}
}

// ReconcileSnapshot reconciles the identifier sets of a loaded snapshot.
func ReconcileSnapshot(s *Snapshot) Result {
	return Reconcile(s.BitstreamSet(), s.MetadataSet())
}

// Run loads the spec's indices, through the cache when CacheTTL is set,
// and reconciles them.
func Run(ctx context.Context, spec *Spec) (*Snapshot, Result, error) {
	var (
		snap *Snapshot
		err  error
	)
	if spec.CacheTTL > 0 {
		snap, err = GetOrBuildSnapshot(ctx, spec)
	} else {
		snap, err = BuildSnapshot(ctx, spec)
	}
	if err != nil {
		return nil, Result{}, err
	}
	return snap, ReconcileSnapshot(snap), nil
}
