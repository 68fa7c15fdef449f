// Package reconcile compares the two independently discovered identifier sets of
// a batch: bitstream files in the object store and records of the metadata source.
//
// Reconcile is pure set algebra. Given bitstream identifiers B and metadata
// identifiers M it returns three disjoint, sorted lists:
//
//	reconciled                  = B ∩ M
//	bitstreams_without_metadata = B \ M
//	metadata_without_bitstreams = M \ B
//
// # Loading
//
// A Loader reads both indices for a batch prefix. BuildSnapshot runs the two
// loads concurrently. GetOrBuildSnapshot keeps snapshots in a TTL cache and
// uses singleflight so concurrent API requests for one batch share a load.
//
// # Usage
//
//	spec := &reconcile.Spec{Loader: batch.NewLoader(client, bucket, cfg), Prefix: "simple-csv/b1/"}
//	snap, result, err := reconcile.Run(ctx, spec)
//	if !result.Matched() {
//	    // report result.BitstreamsWithoutMetadata and result.MetadataWithoutBitstreams
//	}
package reconcile
