// Package workflow holds the workflow settings shared by every pass and the
// object layout of a batch:
//
//	<workflow>/<batch_id>/<metadata file>
//	<workflow>/<batch_id>/<bitstreams...>
//	<workflow>/<batch_id>/dspace_metadata/<item>_metadata.json
package workflow
