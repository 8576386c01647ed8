// Package database opens the catalogue database.
//
// It wraps GORM and selects a dialect from configuration: sqlite (the default,
// a single file next to the synced tree) or MySQL for a shared server.
//
// # Connect
//
// Connect opens the connection, applies pool settings suited to the driver and
// verifies it with a bounded ping.
//
// # Schema Inspection
//
// ColumnNames and MissingColumns let the catalogue refuse a pre-existing table
// that does not carry the columns it needs.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
package database
