// Package store is the record store adapter for item submissions.
//
// Records are keyed by (batch_id, item_identifier). Create is put-if-absent
// (INSERT ... ON CONFLICT DO NOTHING) and reports ErrItemSubmissionExists
// instead of overwriting. Update is conditional on the revision read before
// the transition (status and both attempt counters) and reports ErrConflict
// when another writer got there first. Records are never deleted.
package store
