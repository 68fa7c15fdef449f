// Package sync mirrors a staged batch into the submission assets bucket.
//
// It behaves like "aws s3 sync --delete --exclude dspace_metadata/*" restricted
// to S3 locations on one endpoint: objects are copied server-side, objects that
// only exist in the destination are removed, and the generated metadata
// documents are never copied or deleted. An empty source is refused.
package sync
