// Package metadata turns batch metadata sources into DSpace metadata documents.
//
// A Mapping, loaded from JSON or YAML, names for every target field the
// source column it is read from, an optional language tag, an optional
// delimiter for multi-valued columns, and whether the value is required:
//
//	{"dc.title": {"source_field_name": "title", "language": "en_US", "required": true}}
//
// The special item_identifier entry names the identifier column and is not
// emitted. Transform fails with ErrMissingRequiredField when a required value
// is empty or when dc.title is absent from the result, and with
// ErrInvalidDocument when the document fails schema validation.
//
// ReadSource parses the metadata file of a batch (.csv, .xlsx or .json).
package metadata
