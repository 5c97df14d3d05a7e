package dbmigrator

import (
	"testing"
)

// Interface verification that MySQL is a valid Dialect
var (
	_ Dialect = MySQL
	_ Locker  = MySQL
)

func TestMySQLQuotedTableName(t *testing.T) {
	type qtnTest struct {
		schema, table string
		expected      string
	}

	table := []qtnTest{
		{"public", "users", "`public`.`users`"},
		{"", "database_migrations", "`database_migrations`"},
		{"schema.with.dot", "table.with.dot", "`schema.with.dot`.`table.with.dot`"},
		{"schema`with`tick", "table`with`tick", "`schema``with``tick`.`table``with``tick`"},
	}

	for _, test := range table {
		actual := MySQL.QuotedTableName(test.schema, test.table)
		if actual != test.expected {
			t.Errorf("Expected %s, got %s", test.expected, actual)
		}
	}
}

func TestMySQLQuotedIdent(t *testing.T) {
	table := map[string]string{
		"":                  "",
		"MY_TABLE":          "`MY_TABLE`",
		"users_roles":       "`users_roles`",
		"table.with.dot":    "`table.with.dot`",
		`table"with"quotes`: "`table\"with\"quotes`",
		"table`with`ticks":  "`table``with``ticks`",
	}

	for input, expected := range table {
		actual := MySQL.QuotedIdent(input)
		if actual != expected {
			t.Errorf("Expected %s, got %s", expected, actual)
		}
	}
}

func TestMySQLLockSQL(t *testing.T) {
	lock := MySQL.LockSQL("`database_migrations`")
	expected := "SELECT GET_LOCK('" + MySQL.advisoryLockID("`database_migrations`") + "', -1)"
	if lock != expected {
		t.Errorf("Expected %s, got %s", expected, lock)
	}
}
