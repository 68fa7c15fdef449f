// Package batch discovers, validates and creates the items of a batch.
//
// A batch lives under <workflow>/<batch_id>/ in the object store. Loader lists
// the bitstreams (skipping the metadata file, dspace_metadata/ and archived/)
// and reads the metadata source; both are keyed by item identifier. Validate
// produces a Verdict per identifier and Creator records every item in
// batch_created only when no verdict is invalid.
//
// The package also serves the read-only /batches API: item records, per-status
// summaries and a cached reconcile report.
package batch
