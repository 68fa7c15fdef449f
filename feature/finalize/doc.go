// Package finalize correlates result messages from the submission service
// with item submission records.
//
// A Correlator polls the result queue in bounded batches. For every message
// it resolves (BatchID, PackageID) to a record in submitted, applies the
// ingested or ingest_failed transition with a conditional update and only then
// deletes the message. Anything else is a CorrelationError: the record is left
// alone and the message stays on the queue to be delivered again.
//
// Result body contract:
//
//	{"ResultType": "success", "ItemHandle": "1721.1/131022", "lastModified": "...", "Bitstreams": [...]}
//	{"ResultType": "error", "ErrorTimestamp": "...", "ErrorInfo": "...", "DSpaceResponse": "...", "ExceptionTraceback": [...]}
package finalize
