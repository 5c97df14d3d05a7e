package dbmigrator

import (
	"fmt"
	"hash/crc32"
	"strings"
	"unicode"
)

const postgresAdvisoryLockSalt uint32 = 542384964

// Postgres is the dialect for Postgres-compatible databases. The bookkeeping
// table defaults to public.database_migrations.
var Postgres = postgresDialect{}

type postgresDialect struct{}

func (p postgresDialect) Name() string {
	return "Postgres"
}

func (p postgresDialect) Extensions() []string {
	return []string{".sql", ".pgsql"}
}

func (p postgresDialect) DefaultSchemaName() string {
	return "public"
}

func (p postgresDialect) DefaultTableName() string {
	return "database_migrations"
}

// LockSQL implements the Locker interface to obtain a global lock before the
// migrations are run.
func (p postgresDialect) LockSQL(tableName string) string {
	return fmt.Sprintf("SELECT pg_advisory_lock(%s)", p.advisoryLockID(tableName))
}

// UnlockSQL implements the Locker interface to release the global lock after
// the migrations are run.
func (p postgresDialect) UnlockSQL(tableName string) string {
	return fmt.Sprintf("SELECT pg_advisory_unlock(%s)", p.advisoryLockID(tableName))
}

func (p postgresDialect) TableExistsSQL(schemaName, tableName string) (string, []interface{}) {
	query := `
		SELECT 1 FROM pg_catalog.pg_tables
		WHERE schemaname = COALESCE(NULLIF($1, ''), current_schema())
		AND tablename = $2`
	return query, []interface{}{schemaName, tableName}
}

// CreateSQL takes the name of the migration tracking table and
// returns the SQL statement needed to create it
func (p postgresDialect) CreateSQL(tableName string) string {
	return fmt.Sprintf(`
		CREATE TABLE %s (
			Id SERIAL PRIMARY KEY,
			ScriptName VARCHAR(255),
			Applied TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`, tableName)
}

// SelectSQL takes the name of the migration tracking table and
// returns the SQL statement to retrieve all records from it
func (p postgresDialect) SelectSQL(tableName string) string {
	return fmt.Sprintf("SELECT ScriptName, Applied FROM %s ORDER BY ScriptName ASC", tableName)
}

// InsertSQL takes the name of the migration tracking table and
// returns the SQL statement needed to insert a migration into it
func (p postgresDialect) InsertSQL(tableName string) string {
	return fmt.Sprintf("INSERT INTO %s (ScriptName) VALUES ($1)", tableName)
}

func (p postgresDialect) DeleteSQL(tableName string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE ScriptName = $1", tableName)
}

// QuotedTableName returns the string value of the name of the migration
// tracking table after it has been quoted for Postgres
func (p postgresDialect) QuotedTableName(schemaName, tableName string) string {
	if schemaName == "" {
		return p.QuotedIdent(tableName)
	}
	return p.QuotedIdent(schemaName) + "." + p.QuotedIdent(tableName)
}

// QuotedIdent wraps the supplied string in the Postgres identifier
// quote character
func (p postgresDialect) QuotedIdent(ident string) string {
	if ident == "" {
		return ""
	}

	var sb strings.Builder
	sb.WriteRune('"')
	for _, r := range ident {
		switch {
		case unicode.IsSpace(r):
			// Skip spaces
			continue
		case r == '"':
			// Escape double-quotes with repeated double-quotes
			sb.WriteString(`""`)
		case r == ';':
			// Ignore the command termination character
			continue
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteRune('"')
	return sb.String()
}

// advisoryLockID generates a table-specific lock name to use
func (p postgresDialect) advisoryLockID(tableName string) string {
	sum := crc32.ChecksumIEEE([]byte(tableName))
	sum = sum * postgresAdvisoryLockSalt
	return fmt.Sprint(sum)
}
