package metadata

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrMissingRequiredField is returned when a required source or target field is empty.
	ErrMissingRequiredField = errors.New("missing required field")
	// ErrInvalidDocument is returned when a document fails schema validation.
	ErrInvalidDocument = errors.New("invalid metadata document")
)

// RequiredTargets must be present in every transformed document.
var RequiredTargets = []string{"dc.title"}

// SourceRecord is one row of a metadata source, keyed by column name.
type SourceRecord map[string]string

// Entry is one DSpace metadata value.
type Entry struct {
	Key      string `json:"key" validate:"required"`
	Value    string `json:"value" validate:"required"`
	Language string `json:"language,omitempty"`
}

// Document is the DSpace metadata document persisted for an item.
type Document struct {
	Metadata []Entry `json:"metadata" validate:"required,min=1,dive"`
}

// Has reports whether the document carries the target field.
func (d *Document) Has(key string) bool {
	for _, e := range d.Metadata {
		if e.Key == key {
			return true
		}
	}
	return false
}

// Transformer maps source records to DSpace metadata documents.
type Transformer struct {
	mapping  Mapping
	validate *validator.Validate
}

// NewTransformer creates a transformer for a validated mapping.
func NewTransformer(mapping Mapping) *Transformer {
	return &Transformer{mapping: mapping, validate: validator.New()}
}

// Mapping returns the transformer's field mapping.
func (t *Transformer) Mapping() Mapping {
	return t.mapping
}

// Transform builds and validates the document for one record.
// Entries follow the sorted target order, then source value order.
func (t *Transformer) Transform(record SourceRecord) (*Document, error) {
	doc := &Document{}

	for _, target := range t.mapping.Targets() {
		if target == IdentifierKey {
			continue
		}
		fm := t.mapping[target]
		value := strings.TrimSpace(record[fm.SourceFieldName])
		if value == "" {
			if fm.Required {
				return nil, fmt.Errorf("%w: %s", ErrMissingRequiredField, fm.SourceFieldName)
			}
			continue
		}

		values := []string{value}
		if fm.Delimiter != "" {
			values = strings.Split(value, fm.Delimiter)
		}
		for _, v := range values {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			doc.Metadata = append(doc.Metadata, Entry{Key: target, Value: v, Language: fm.Language})
		}
	}

	if err := t.Validate(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Validate checks the document schema and the required target fields.
func (t *Transformer) Validate(doc *Document) error {
	if err := t.validate.Struct(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	for _, key := range RequiredTargets {
		if !doc.Has(key) {
			return fmt.Errorf("%w: %s", ErrMissingRequiredField, key)
		}
	}
	return nil
}
