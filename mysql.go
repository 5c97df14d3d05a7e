package dbmigrator

import (
	"fmt"
	"hash/crc32"
	"strings"
)

const mysqlLockSalt uint32 = 271192482

// MySQL is the dialect which should be used for MySQL/MariaDB databases. The
// connection must allow multiple statements per batch (multiStatements=true)
// for scripts containing more than one statement.
var MySQL = mysqlDialect{}

type mysqlDialect struct{}

func (m mysqlDialect) Name() string {
	return "MySQL"
}

func (m mysqlDialect) Extensions() []string {
	return []string{".sql", ".mysql"}
}

// DefaultSchemaName is blank: the table lives in the connection's database.
func (m mysqlDialect) DefaultSchemaName() string {
	return ""
}

func (m mysqlDialect) DefaultTableName() string {
	return "database_migrations"
}

// LockSQL implements the Locker interface to obtain a global lock before the
// migrations are run. A negative timeout waits indefinitely.
func (m mysqlDialect) LockSQL(tableName string) string {
	return fmt.Sprintf(`SELECT GET_LOCK('%s', -1)`, m.advisoryLockID(tableName))
}

// UnlockSQL implements the Locker interface to release the global lock after
// the migrations are run.
func (m mysqlDialect) UnlockSQL(tableName string) string {
	return fmt.Sprintf(`SELECT RELEASE_LOCK('%s')`, m.advisoryLockID(tableName))
}

func (m mysqlDialect) TableExistsSQL(schemaName, tableName string) (string, []interface{}) {
	query := `
		SELECT 1 FROM information_schema.tables
		WHERE table_schema = COALESCE(NULLIF(?, ''), DATABASE())
		AND table_name = ?`
	return query, []interface{}{schemaName, tableName}
}

func (m mysqlDialect) CreateSQL(tableName string) string {
	return fmt.Sprintf(`
		CREATE TABLE %s (
			id INT AUTO_INCREMENT PRIMARY KEY,
			script_name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`, tableName)
}

func (m mysqlDialect) SelectSQL(tableName string) string {
	return fmt.Sprintf("SELECT script_name, applied_at FROM %s ORDER BY script_name ASC", tableName)
}

func (m mysqlDialect) InsertSQL(tableName string) string {
	return fmt.Sprintf("INSERT INTO %s (script_name) VALUES (?)", tableName)
}

func (m mysqlDialect) DeleteSQL(tableName string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE script_name = ?", tableName)
}

// QuotedTableName returns the string value of the name of the migration
// tracking table after it has been quoted for MySQL
func (m mysqlDialect) QuotedTableName(schemaName, tableName string) string {
	if schemaName == "" {
		return m.QuotedIdent(tableName)
	}
	return m.QuotedIdent(schemaName) + "." + m.QuotedIdent(tableName)
}

// QuotedIdent wraps the supplied string in the MySQL identifier
// quote character
func (m mysqlDialect) QuotedIdent(ident string) string {
	if ident == "" {
		return ""
	}
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

// advisoryLockID generates a table-specific lock name to use
func (m mysqlDialect) advisoryLockID(tableName string) string {
	sum := crc32.ChecksumIEEE([]byte(tableName))
	sum = sum * mysqlLockSalt
	return fmt.Sprint(sum)
}
