package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// IdentifierKey is the mapping entry naming the item identifier column.
// It is never emitted as a metadata entry.
const IdentifierKey = "item_identifier"

// FieldMapping maps one target field to a source column.
type FieldMapping struct {
	SourceFieldName string `json:"source_field_name" yaml:"source_field_name" validate:"required"`
	Language        string `json:"language,omitempty" yaml:"language,omitempty"`
	Delimiter       string `json:"delimiter,omitempty" yaml:"delimiter,omitempty"`
	Required        bool   `json:"required,omitempty" yaml:"required,omitempty"`
}

// Mapping maps target field names (e.g. dc.title) to their source.
type Mapping map[string]FieldMapping

// DefaultMapping is used when no mapping file is configured.
func DefaultMapping() Mapping {
	return Mapping{
		IdentifierKey:             {SourceFieldName: "item_identifier", Required: true},
		"dc.title":                {SourceFieldName: "title", Language: "en_US", Required: true},
		"dc.contributor.author":   {SourceFieldName: "contributor", Delimiter: "|"},
		"dc.date.issued":          {SourceFieldName: "date_issued"},
		"dc.description.abstract": {SourceFieldName: "abstract", Language: "en_US"},
		"dc.subject":              {SourceFieldName: "subject", Delimiter: "|", Language: "en_US"},
	}
}

// LoadMappingFile reads a JSON or YAML mapping file. An empty path returns DefaultMapping.
func LoadMappingFile(path string) (Mapping, error) {
	if path == "" {
		return DefaultMapping(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file: %w", err)
	}
	return ParseMapping(data, filepath.Ext(path))
}

// ParseMapping decodes a mapping; ext selects YAML for .yaml/.yml and JSON otherwise.
func ParseMapping(data []byte, ext string) (Mapping, error) {
	var m Mapping
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to parse mapping yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to parse mapping json: %w", err)
		}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks every entry names a source field.
func (m Mapping) Validate() error {
	if len(m) == 0 {
		return fmt.Errorf("mapping is empty")
	}
	v := validator.New()
	for _, target := range m.Targets() {
		if err := v.Struct(m[target]); err != nil {
			return fmt.Errorf("invalid mapping for %s: %w", target, err)
		}
	}
	return nil
}

// IdentifierField returns the source column holding the item identifier.
func (m Mapping) IdentifierField() string {
	if fm, ok := m[IdentifierKey]; ok && fm.SourceFieldName != "" {
		return fm.SourceFieldName
	}
	return IdentifierKey
}

// Targets returns the target field names in sorted order.
func (m Mapping) Targets() []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
