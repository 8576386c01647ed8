package database

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ColumnNames returns the lower-cased column names of tableName.
// A missing table yields an empty slice and no error.
func ColumnNames(db *gorm.DB, tableName string) ([]string, error) {
	if !db.Migrator().HasTable(tableName) {
		return nil, nil
	}

	types, err := db.Migrator().ColumnTypes(tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
	}

	names := make([]string, 0, len(types))
	for _, ct := range types {
		names = append(names, strings.ToLower(ct.Name()))
	}
	return names, nil
}

// MissingColumns reports which of the required columns tableName lacks.
func MissingColumns(db *gorm.DB, tableName string, required []string) ([]string, error) {
	names, err := ColumnNames(db, tableName)
	if err != nil {
		return nil, err
	}

	have := make(map[string]struct{}, len(names))
	for _, n := range names {
		have[n] = struct{}{}
	}

	var missing []string
	for _, col := range required {
		if _, ok := have[strings.ToLower(col)]; !ok {
			missing = append(missing, col)
		}
	}
	return missing, nil
}
