// Package integrity provides system health checks for the submission composer.
//
// # Checks Provided
//
//   - Storage: the batch bucket exists and holds the configured workflow prefix.
//   - Records: the item_submissions table matches the ItemSubmission model (columns, types).
//
// # HTTP Endpoints
//
//   - GET /integrity : Runs all checks.
//   - GET /integrity/storage : Runs the storage check.
//   - GET /integrity/records : Runs the record store schema check.
package integrity
