package checks

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"submission-composer/core/database"
	"submission-composer/feature/submission/models"

	"gorm.io/gorm"
)

// RecordsReport strictly types the result of a record store integrity check.
type RecordsReport struct {
	Driver  string                 `json:"driver"`
	Matched bool                   `json:"matched"`
	Tables  map[string]TableReport `json:"tables"`
	Errors  []string               `json:"errors"`
}

type TableReport struct {
	MissingColumns []string `json:"missing_columns"`
	TypeMismatches []string `json:"type_mismatches"`
	Status         string   `json:"status"` // "ok", "error"
}

// CheckRecords verifies the item_submissions schema using the GORM model as the source of truth.
func CheckRecords(db *gorm.DB) (*RecordsReport, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	model := models.ItemSubmission{}
	tableName := model.TableName()

	report := &RecordsReport{
		Driver:  db.Dialector.Name(),
		Tables:  make(map[string]TableReport),
		Matched: true,
	}

	tblReport := TableReport{
		MissingColumns: []string{},
		TypeMismatches: []string{},
		Status:         "ok",
	}

	actualCols, err := database.GetTableColumns(db, tableName)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("Failed to inspect table %s: %v", tableName, err))
		report.Matched = false
		return report, nil
	}

	actualMap := make(map[string]database.ColumnInfo)
	for _, col := range actualCols {
		actualMap[col.Field] = col
	}

	val := reflect.TypeOf(model)
	for i := 0; i < val.NumField(); i++ {
		gormTag := val.Field(i).Tag.Get("gorm")

		colName := parseGormColumn(gormTag)
		if colName == "" {
			continue
		}

		actCol, exists := actualMap[colName]
		if !exists {
			tblReport.MissingColumns = append(tblReport.MissingColumns, colName)
			tblReport.Status = "error"
			report.Matched = false
			continue
		}

		// Only columns with an explicit type:... are type checked.
		expType := strings.ToLower(parseGormType(gormTag))
		if expType != "" && !typeMatches(expType, actCol.Type) {
			mismatch := fmt.Sprintf("%s: expected %s, got %s", colName, expType, actCol.Type)
			tblReport.TypeMismatches = append(tblReport.TypeMismatches, mismatch)
			tblReport.Status = "error"
			report.Matched = false
		}
	}

	report.Tables[tableName] = tblReport
	return report, nil
}

var typeSize = regexp.MustCompile(`\(.*\)`)

// baseTypes maps information_schema names to the names used in model tags.
var baseTypes = map[string]string{
	"character varying": "varchar",
	"integer":           "int",
	"int4":              "int",
}

func typeMatches(expected, actual string) bool {
	if strings.Contains(actual, expected) {
		return true
	}
	exp := strings.TrimSpace(typeSize.ReplaceAllString(expected, ""))
	act := strings.TrimSpace(typeSize.ReplaceAllString(actual, ""))
	if b, ok := baseTypes[act]; ok {
		act = b
	}
	return exp == act
}

// Helpers to parse simple GORM tags
func parseGormColumn(tag string) string {
	parts := strings.Split(tag, ";")
	for _, p := range parts {
		if strings.HasPrefix(p, "column:") {
			return strings.TrimPrefix(p, "column:")
		}
	}
	return ""
}

func parseGormType(tag string) string {
	parts := strings.Split(tag, ";")
	for _, p := range parts {
		if strings.HasPrefix(p, "type:") {
			return strings.TrimPrefix(p, "type:")
		}
	}
	return ""
}
