package dbmigrator

import (
	"sort"
	"strings"
)

// Dialect describes everything engine-specific about the bookkeeping table:
// where it lives, how to test for it, how to create it and how to add and
// remove records. The Migrator is written only against this interface.
//
// The *SQL methods which take a table name expect it already quoted (see
// QuotedTableName). InsertSQL and DeleteSQL take the script name as their
// single bind parameter.
type Dialect interface {
	Name() string
	Extensions() []string

	DefaultSchemaName() string
	DefaultTableName() string
	QuotedTableName(schemaName, tableName string) string

	TableExistsSQL(schemaName, tableName string) (query string, args []interface{})
	CreateSQL(tableName string) string
	SelectSQL(tableName string) string
	InsertSQL(tableName string) string
	DeleteSQL(tableName string) string
}

// Locker defines an optional Dialect extension for obtaining and releasing
// a global database lock during the running of migrations. This feature is
// supported by PostgreSQL, MySQL and SQL Server, but not SQLite. The lock is
// held by the session, so the Migrator must be given a single connection
// (a *sql.Conn) for it to be meaningful.
type Locker interface {
	LockSQL(tableName string) string
	UnlockSQL(tableName string) string
}

var dialects = map[string]Dialect{}

// RegisterDialect makes a dialect available to LookupDialect under its Name.
func RegisterDialect(d Dialect) {
	dialects[strings.ToLower(d.Name())] = d
}

// LookupDialect finds a registered dialect by name, ignoring case.
func LookupDialect(name string) (Dialect, error) {
	if d, ok := dialects[strings.ToLower(strings.TrimSpace(name))]; ok {
		return d, nil
	}
	return nil, Configurationf("engine '%s' is not supported (choose from %s)", name, strings.Join(DialectNames(), ", "))
}

// DialectNames lists the names of every registered dialect, sorted.
func DialectNames() []string {
	names := make([]string, 0, len(dialects))
	for _, d := range dialects {
		names = append(names, d.Name())
	}
	sort.Strings(names)
	return names
}

func init() {
	RegisterDialect(SQLServer)
	RegisterDialect(Postgres)
	RegisterDialect(MySQL)
	RegisterDialect(SQLite)
}
