package metadata

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"submission-composer/core/utils"

	"github.com/xuri/excelize/v2"
)

// ReadSource parses a metadata source file. The format is chosen by the
// extension of name: .csv, .xlsx or .json (an array of objects).
// Rows where every cell is empty are dropped.
func ReadSource(name string, data []byte) ([]SourceRecord, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".csv":
		return readCSV(bytes.NewReader(data))
	case ".xlsx":
		return readXLSX(bytes.NewReader(data))
	case ".json":
		return readJSON(data)
	default:
		return nil, fmt.Errorf("unsupported metadata source format: %s", name)
	}
}

func readCSV(r io.Reader) ([]SourceRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse metadata csv: %w", err)
	}
	return rowsToRecords(rows), nil
}

func readXLSX(r io.Reader) ([]SourceRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("metadata workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return rowsToRecords(rows), nil
}

func readJSON(data []byte) ([]SourceRecord, error) {
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse metadata json: %w", err)
	}
	records := make([]SourceRecord, 0, len(raw))
	for _, obj := range raw {
		rec := make(SourceRecord, len(obj))
		empty := true
		for k, v := range obj {
			if v == nil {
				continue
			}
			s := strings.TrimSpace(jsonValue(v))
			rec[strings.TrimSpace(k)] = s
			if s != "" {
				empty = false
			}
		}
		if !empty {
			records = append(records, rec)
		}
	}
	return records, nil
}

// jsonValue flattens arrays with "|" so delimiter mappings can split them again.
func jsonValue(v any) string {
	if list, ok := v.([]any); ok {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			parts = append(parts, utils.ToString(item))
		}
		return strings.Join(parts, "|")
	}
	return utils.ToString(v)
}

func rowsToRecords(rows [][]string) []SourceRecord {
	if len(rows) == 0 {
		return nil
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var records []SourceRecord
	for _, row := range rows[1:] {
		rec := make(SourceRecord, len(header))
		empty := true
		for i, col := range header {
			if col == "" || i >= len(row) {
				continue
			}
			v := strings.TrimSpace(row[i])
			rec[col] = v
			if v != "" {
				empty = false
			}
		}
		if !empty {
			records = append(records, rec)
		}
	}
	return records
}
