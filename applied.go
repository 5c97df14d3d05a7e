package dbmigrator

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AppliedRecord is one row of the bookkeeping table: a script whose up
// section committed and has not been reverted since.
type AppliedRecord struct {
	ScriptName string
	AppliedAt  time.Time
}

// AppliedSet holds the applied records keyed by script name.
type AppliedSet map[string]*AppliedRecord

// Contains reports whether the named script is recorded as applied.
func (s AppliedSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// TableExists reports whether the bookkeeping table is present, using the
// dialect's introspection query.
func (m *Migrator) TableExists(ctx context.Context, db Queryer) (bool, error) {
	query, args := m.Dialect.TableExistsSQL(m.schemaName(), m.tableName())
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("check for table %s: %w", m.QuotedTableName(), err)
	}
	defer rows.Close()
	exists := rows.Next()
	return exists, rows.Err()
}

// EnsureTable creates the bookkeeping table unless it already exists. It is
// safe to call repeatedly.
func (m *Migrator) EnsureTable(ctx context.Context, db Queryer) error {
	exists, err := m.TableExists(ctx, db)
	if err != nil || exists {
		return err
	}
	if _, err = db.ExecContext(ctx, m.Dialect.CreateSQL(m.QuotedTableName())); err != nil {
		return fmt.Errorf("create table %s: %w", m.QuotedTableName(), err)
	}
	m.logger().InfoContext(ctx, "created bookkeeping table", "table", m.QuotedTableName())
	return nil
}

// GetAppliedScripts retrieves every applied record, keyed by script name. A
// missing bookkeeping table is not an error; it yields an empty set.
func (m *Migrator) GetAppliedScripts(ctx context.Context, db Queryer) (AppliedSet, error) {
	applied := make(AppliedSet)

	exists, err := m.TableExists(ctx, db)
	if err != nil || !exists {
		return applied, err
	}

	rows, err := db.QueryContext(ctx, m.Dialect.SelectSQL(m.QuotedTableName()))
	if err != nil {
		return applied, fmt.Errorf("read applied scripts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name sql.NullString
		var appliedAt appliedTime
		if err = rows.Scan(&name, &appliedAt); err != nil {
			return applied, fmt.Errorf("failed to read applied scripts. Did somebody change the structure of the %s table?: %w", m.QuotedTableName(), err)
		}
		if !name.Valid {
			continue
		}
		applied[name.String] = &AppliedRecord{ScriptName: name.String, AppliedAt: appliedAt.Value}
	}
	return applied, rows.Err()
}

func (m *Migrator) record(ctx context.Context, tx Queryer, name string) error {
	if _, err := tx.ExecContext(ctx, m.Dialect.InsertSQL(m.QuotedTableName()), name); err != nil {
		return fmt.Errorf("record script: %w", err)
	}
	return nil
}

func (m *Migrator) remove(ctx context.Context, tx Queryer, name string) error {
	if _, err := tx.ExecContext(ctx, m.Dialect.DeleteSQL(m.QuotedTableName()), name); err != nil {
		return fmt.Errorf("remove script record: %w", err)
	}
	return nil
}

var appliedTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

// appliedTime scans the applied timestamp whichever way the driver returns
// it: time.Time from most drivers, text from MySQL without parseTime.
type appliedTime struct {
	Value time.Time
}

func (t *appliedTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		t.Value = time.Time{}
		return nil
	case time.Time:
		t.Value = v.In(time.Local)
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	}
	return fmt.Errorf("unsupported applied timestamp type %T", src)
}

func (t *appliedTime) parse(src string) error {
	for _, layout := range appliedTimeLayouts {
		if v, err := time.ParseInLocation(layout, src, time.UTC); err == nil {
			t.Value = v.In(time.Local)
			return nil
		}
	}
	return fmt.Errorf("unrecognised applied timestamp '%s'", src)
}
