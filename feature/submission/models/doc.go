// Package models defines the item submission record and its lifecycle.
//
//	batch_created ──▶ submitted ──▶ ingested
//	      │            ▲   │
//	      ▼            │   ▼
//	submit_failed ─────┘  ingest_failed ──(re-dispatch while not exhausted)──▶ submitted | submit_failed
//
// Each transition is a method on ItemSubmission that validates the current
// status, mutates the record, and returns ErrInvalidTransition without
// touching it otherwise. Attempt counters only grow. An ingest failure that
// reaches the retry threshold sets Exhausted, which makes it terminal.
package models
