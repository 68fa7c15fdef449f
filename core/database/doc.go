// Package database handles record store connections and schema inspection.
//
// It wraps GORM to open MySQL, PostgreSQL or SQLite connections from the
// application configuration. Connections are opened with TranslateError so
// duplicate primary keys surface as gorm.ErrDuplicatedKey for every dialect.
//
// # Schema Inspection
//
// GetTableColumns returns the live column list of a table. The integrity
// feature compares it against the gorm tags of the item submission model.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    return err
//	}
//
//	columns, err := database.GetTableColumns(db, "item_submissions")
package database
