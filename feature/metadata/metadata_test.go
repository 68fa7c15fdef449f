package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestTransform(t *testing.T) {
	tr := NewTransformer(DefaultMapping())

	doc, err := tr.Transform(SourceRecord{
		"item_identifier": "a",
		"title":           "A Title",
		"contributor":     "Smith, J.| Doe, A.",
		"date_issued":     "2024",
		"abstract":        "",
	})
	require.NoError(t, err)

	assert.Equal(t, []Entry{
		{Key: "dc.contributor.author", Value: "Smith, J."},
		{Key: "dc.contributor.author", Value: "Doe, A."},
		{Key: "dc.date.issued", Value: "2024"},
		{Key: "dc.title", Value: "A Title", Language: "en_US"},
	}, doc.Metadata)
	assert.False(t, doc.Has("item_identifier"))
}

func TestTransform_MissingRequiredSourceField(t *testing.T) {
	tr := NewTransformer(DefaultMapping())

	_, err := tr.Transform(SourceRecord{"item_identifier": "a", "title": "   "})
	assert.ErrorIs(t, err, ErrMissingRequiredField)
	assert.ErrorContains(t, err, "title")
}

func TestTransform_RequiredTargetNotMapped(t *testing.T) {
	tr := NewTransformer(Mapping{
		"dc.subject": {SourceFieldName: "subject"},
	})

	_, err := tr.Transform(SourceRecord{"subject": "Maps"})
	assert.ErrorIs(t, err, ErrMissingRequiredField)
	assert.ErrorContains(t, err, "dc.title")
}

func TestTransform_EmptyDocument(t *testing.T) {
	tr := NewTransformer(Mapping{"dc.title": {SourceFieldName: "title"}})

	_, err := tr.Transform(SourceRecord{})
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestParseMapping(t *testing.T) {
	jsonMapping := []byte(`{
		"item_identifier": {"source_field_name": "filename", "required": true},
		"dc.title": {"source_field_name": "Title", "language": "en_US", "required": true},
		"dc.subject": {"source_field_name": "Keywords", "delimiter": ";"}
	}`)
	m, err := ParseMapping(jsonMapping, ".json")
	require.NoError(t, err)
	assert.Equal(t, "filename", m.IdentifierField())
	assert.Equal(t, ";", m["dc.subject"].Delimiter)
	assert.Equal(t, []string{"dc.subject", "dc.title", "item_identifier"}, m.Targets())

	yamlMapping := []byte(`
dc.title:
  source_field_name: title
  required: true
dc.date.issued:
  source_field_name: year
`)
	m, err = ParseMapping(yamlMapping, ".yml")
	require.NoError(t, err)
	assert.True(t, m["dc.title"].Required)
	assert.Equal(t, "year", m["dc.date.issued"].SourceFieldName)
	assert.Equal(t, IdentifierKey, m.IdentifierField())
}

func TestParseMapping_Invalid(t *testing.T) {
	_, err := ParseMapping([]byte(`{"dc.title": {"language": "en"}}`), ".json")
	assert.ErrorContains(t, err, "invalid mapping for dc.title")

	_, err = ParseMapping([]byte(`{}`), ".json")
	assert.EqualError(t, err, "mapping is empty")

	_, err = ParseMapping([]byte(`not: [valid`), ".yaml")
	assert.Error(t, err)
}

func TestLoadMappingFile(t *testing.T) {
	m, err := LoadMappingFile("")
	require.NoError(t, err)
	assert.Equal(t, DefaultMapping(), m)

	path := filepath.Join(t.TempDir(), "mapping.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dc.title:\n  source_field_name: name\n"), 0o644))
	m, err = LoadMappingFile(path)
	require.NoError(t, err)
	assert.Equal(t, "name", m["dc.title"].SourceFieldName)

	_, err = LoadMappingFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "failed to read mapping file")
}

func TestReadSource_CSV(t *testing.T) {
	data := []byte("\ufeffitem_identifier, title \na,First\n,\nb,Second,extra\n")

	records, err := ReadSource("wf/b1/metadata.csv", data)
	require.NoError(t, err)
	assert.Equal(t, []SourceRecord{
		{"item_identifier": "a", "title": "First"},
		{"item_identifier": "b", "title": "Second"},
	}, records)
}

func TestReadSource_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"item_identifier", "title"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"a", "First"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"b", "Second"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	records, err := ReadSource("metadata.XLSX", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []SourceRecord{
		{"item_identifier": "a", "title": "First"},
		{"item_identifier": "b", "title": "Second"},
	}, records)
}

func TestReadSource_JSON(t *testing.T) {
	data := []byte(`[
		{"item_identifier": "a", "title": "First", "date_issued": 2024, "subject": ["Maps", "Charts"]},
		{"item_identifier": null, "title": ""}
	]`)

	records, err := ReadSource("metadata.json", data)
	require.NoError(t, err)
	assert.Equal(t, []SourceRecord{
		{"item_identifier": "a", "title": "First", "date_issued": "2024", "subject": "Maps|Charts"},
	}, records)
}

func TestReadSource_Unsupported(t *testing.T) {
	_, err := ReadSource("metadata.txt", nil)
	assert.EqualError(t, err, "unsupported metadata source format: metadata.txt")

	_, err = ReadSource("metadata.json", []byte("{"))
	assert.Error(t, err)
}
