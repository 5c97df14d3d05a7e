package dbmigrator

import (
	"fmt"
	"strings"
	"unicode"
)

// SQLServer is the dialect for MS SQL-compatible databases. Its bookkeeping
// table defaults to [dbo].[database_migrations] with PascalCase columns.
var SQLServer = mssqlDialect{}

type mssqlDialect struct{}

func (s mssqlDialect) Name() string {
	return "SqlServer"
}

func (s mssqlDialect) Extensions() []string {
	return []string{".sql"}
}

func (s mssqlDialect) DefaultSchemaName() string {
	return "dbo"
}

func (s mssqlDialect) DefaultTableName() string {
	return "database_migrations"
}

func (s mssqlDialect) QuotedTableName(schemaName, tableName string) string {
	if schemaName == "" {
		return s.QuotedIdent(tableName)
	}
	return fmt.Sprintf("%s.%s", s.QuotedIdent(schemaName), s.QuotedIdent(tableName))
}

func (s mssqlDialect) QuotedIdent(ident string) string {
	if ident == "" {
		return ""
	}

	var sb strings.Builder
	sb.WriteRune('[')
	for _, r := range ident {
		switch {
		case unicode.IsSpace(r):
			continue
		case r == ';':
			continue
		case r == ']':
			sb.WriteRune(r)
			sb.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteRune(']')

	return sb.String()
}

// LockSQL takes a session-owned application lock, waiting indefinitely.
// sp_getapplock reports failure through its return code, so it is turned
// into an error here.
func (s mssqlDialect) LockSQL(tableName string) string {
	return fmt.Sprintf(`
		DECLARE @result INT;
		EXEC @result = sp_getapplock @Resource = '%s', @LockMode = 'Exclusive', @LockOwner = 'Session', @LockTimeout = -1;
		IF @result < 0 THROW 50000, 'could not obtain migration lock', 1;`, s.lockResource(tableName))
}

func (s mssqlDialect) UnlockSQL(tableName string) string {
	return fmt.Sprintf(`EXEC sp_releaseapplock @Resource = '%s', @LockOwner = 'Session'`, s.lockResource(tableName))
}

func (s mssqlDialect) lockResource(tableName string) string {
	return "dbmigrator:" + strings.ReplaceAll(tableName, "'", "''")
}

func (s mssqlDialect) TableExistsSQL(schemaName, tableName string) (string, []interface{}) {
	query := `
		SELECT 1 FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2`
	if schemaName == "" {
		schemaName = s.DefaultSchemaName()
	}
	return query, []interface{}{schemaName, tableName}
}

func (s mssqlDialect) CreateSQL(tableName string) string {
	return fmt.Sprintf(`
		CREATE TABLE %s (
			Id INT IDENTITY PRIMARY KEY,
			ScriptName NVARCHAR(255),
			Applied DATETIME DEFAULT GETDATE()
		)`, tableName)
}

func (s mssqlDialect) SelectSQL(tableName string) string {
	return fmt.Sprintf("SELECT ScriptName, Applied FROM %s ORDER BY ScriptName ASC", tableName)
}

func (s mssqlDialect) InsertSQL(tableName string) string {
	return fmt.Sprintf("INSERT INTO %s (ScriptName) VALUES (@p1)", tableName)
}

func (s mssqlDialect) DeleteSQL(tableName string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE ScriptName = @p1", tableName)
}
