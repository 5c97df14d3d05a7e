package dbmigrator

import (
	"fmt"
	"strings"
)

// SQLite is the dialect for SQLite databases. SQLite has no schemas and no
// advisory locks, so it does not implement Locker.
var SQLite = sqliteDialect{}

type sqliteDialect struct{}

func (s sqliteDialect) Name() string {
	return "SQLite"
}

func (s sqliteDialect) Extensions() []string {
	return []string{".sql", ".sqlite"}
}

func (s sqliteDialect) DefaultSchemaName() string {
	return ""
}

func (s sqliteDialect) DefaultTableName() string {
	return "database_migrations"
}

func (s sqliteDialect) TableExistsSQL(_, tableName string) (string, []interface{}) {
	return "SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?", []interface{}{tableName}
}

// CreateSQL takes the name of the migration tracking table and
// returns the SQL statement needed to create it
func (s sqliteDialect) CreateSQL(tableName string) string {
	return fmt.Sprintf(`
		CREATE TABLE %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			script_name TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`, tableName)
}

// SelectSQL takes the name of the migration tracking table and
// returns the SQL statement to retrieve all records from it
func (s sqliteDialect) SelectSQL(tableName string) string {
	return fmt.Sprintf("SELECT script_name, applied_at FROM %s ORDER BY script_name ASC", tableName)
}

// InsertSQL takes the name of the migration tracking table and
// returns the SQL statement needed to insert a migration into it
func (s sqliteDialect) InsertSQL(tableName string) string {
	return fmt.Sprintf("INSERT INTO %s (script_name) VALUES (?)", tableName)
}

func (s sqliteDialect) DeleteSQL(tableName string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE script_name = ?", tableName)
}

// QuotedTableName returns the quoted name of the migration tracking table.
// Any schema name is ignored.
func (s sqliteDialect) QuotedTableName(_, tableName string) string {
	return `"` + strings.ReplaceAll(tableName, `"`, `""`) + `"`
}
