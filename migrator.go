package dbmigrator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Migrator is an instance customized to perform migrations on a particular
// database against a particular tracking table and with a particular dialect
// defined.
type Migrator struct {
	SchemaName  string
	TableName   string
	Dialect     Dialect
	Logger      *slog.Logger
	Target      string
	DisableLock bool
}

// Result describes what a run did.
type Result struct {
	Direction Direction
	Executed  []string
	Skipped   []string
}

// NewMigrator creates a new Migrator with the supplied options. Without
// options it targets SQL Server and the dialect's default table.
func NewMigrator(options ...Option) Migrator {
	m := Migrator{
		Dialect: SQLServer,
	}
	for _, opt := range options {
		m = opt(m)
	}
	return m
}

// Up applies every script in dirPath which is not yet recorded as applied.
func (m *Migrator) Up(ctx context.Context, db Connection, dirPath string) (*Result, error) {
	return m.Run(ctx, db, Up, dirPath)
}

// Down reverts every script in dirPath which is recorded as applied.
func (m *Migrator) Down(ctx context.Context, db Connection, dirPath string) (*Result, error) {
	return m.Run(ctx, db, Down, dirPath)
}

// Run loads the scripts in dirPath which the dialect accepts and applies or
// reverts them. Each script runs in its own transaction together with its
// bookkeeping; the first failure halts the run and earlier scripts stay
// committed.
//
// db is used for every statement of the run. Pass a *sql.Conn so that the
// advisory lock, the initial read and the transactions share one session.
func (m *Migrator) Run(ctx context.Context, db Connection, direction Direction, dirPath string) (*Result, error) {
	return m.run(ctx, db, direction, func() ([]*Script, error) {
		return ScriptsFromDirectoryPath(dirPath, m.Dialect.Extensions())
	})
}

// RunScripts is Run for scripts which have already been loaded, for example
// with FSScripts.
func (m *Migrator) RunScripts(ctx context.Context, db Connection, direction Direction, scripts []*Script) (*Result, error) {
	return m.run(ctx, db, direction, func() ([]*Script, error) {
		return scripts, nil
	})
}

// QuotedTableName returns the dialect-quoted fully-qualified name for the
// bookkeeping table
func (m *Migrator) QuotedTableName() string {
	return m.Dialect.QuotedTableName(m.schemaName(), m.tableName())
}

func (m *Migrator) schemaName() string {
	if m.SchemaName != "" {
		return m.SchemaName
	}
	return m.Dialect.DefaultSchemaName()
}

func (m *Migrator) tableName() string {
	if m.TableName != "" {
		return m.TableName
	}
	return m.Dialect.DefaultTableName()
}

func (m *Migrator) run(ctx context.Context, db Connection, direction Direction, load func() ([]*Script, error)) (result *Result, err error) {
	if db == nil {
		return nil, ErrNilDB
	}
	if m.Dialect == nil {
		return nil, Configurationf("no dialect configured")
	}
	if direction != Up && direction != Down {
		return nil, Configurationf("unknown direction '%s'", direction)
	}

	log := m.logger().With("engine", m.Dialect.Name(), "direction", string(direction))

	// Scripts and the target are resolved before the database is touched.
	scripts, err := load()
	if err != nil {
		return nil, err
	}
	plan, err := m.plan(scripts, direction)
	if err != nil {
		return nil, err
	}
	log.InfoContext(ctx, "scripts found", "count", len(plan))

	result = &Result{Direction: direction}
	err = m.withLock(ctx, db, func() error {
		applied, err := m.GetAppliedScripts(ctx, db)
		if err != nil {
			return err
		}
		log.DebugContext(ctx, "loaded applied set", "count", len(applied))

		if len(applied) == 0 {
			if err = m.EnsureTable(ctx, db); err != nil {
				return err
			}
		}

		for _, script := range plan {
			if err := ctx.Err(); err != nil {
				log.WarnContext(ctx, "run cancelled", "next", script.Name)
				return err
			}
			if !eligible(applied, direction, script.Name) {
				log.DebugContext(ctx, "script skipped", "script", script.Name)
				result.Skipped = append(result.Skipped, script.Name)
				continue
			}

			// A cancelled context must never abort a script half way through.
			if err := m.applyOne(context.WithoutCancel(ctx), db, direction, script, log); err != nil {
				return err
			}
			if direction == Up {
				applied[script.Name] = &AppliedRecord{ScriptName: script.Name, AppliedAt: time.Now()}
			} else {
				delete(applied, script.Name)
			}
			result.Executed = append(result.Executed, script.Name)
		}
		return nil
	})
	if err != nil {
		return result, err
	}

	log.InfoContext(ctx, "run complete", "executed", len(result.Executed), "skipped", len(result.Skipped))
	return result, nil
}

// plan orders a copy of scripts for the direction and cuts it after the target
// script, if one is set.
func (m *Migrator) plan(scripts []*Script, direction Direction) ([]*Script, error) {
	plan := make([]*Script, len(scripts))
	copy(plan, scripts)
	SortScripts(plan, direction)

	if m.Target == "" {
		return plan, nil
	}
	cut := -1
	var matches []string
	for i, script := range plan {
		if script.Name == m.Target {
			return plan[:i+1], nil
		}
		if script.matchesTarget(m.Target) {
			cut = i
			matches = append(matches, script.Name)
		}
	}
	switch len(matches) {
	case 0:
		return nil, Configurationf("target script '%s' was not found", m.Target)
	case 1:
		return plan[:cut+1], nil
	}
	return nil, Configurationf("target script '%s' is ambiguous (matches %s)", m.Target, strings.Join(matches, ", "))
}

// eligible is true for unapplied scripts going Up and applied scripts going
// Down.
func eligible(applied AppliedSet, direction Direction, name string) bool {
	if direction == Up {
		return !applied.Contains(name)
	}
	return applied.Contains(name)
}

func (m *Migrator) applyOne(ctx context.Context, db Connection, direction Direction, script *Script, log *slog.Logger) error {
	log.InfoContext(ctx, "executing script", "script", script.Name)
	startedAt := time.Now()

	err := transaction(ctx, db, func(tx Queryer) error {
		if body := script.Body(direction); body != "" {
			if _, err := tx.ExecContext(ctx, body); err != nil {
				return err
			}
		}
		if direction == Up {
			return m.record(ctx, tx, script.Name)
		}
		return m.remove(ctx, tx, script.Name)
	})
	if err != nil {
		log.ErrorContext(ctx, "script failed", "script", script.Name, "error", err)
		return &ExecutionError{Script: script.Name, Direction: direction, Err: err}
	}

	log.InfoContext(ctx, "script executed", "script", script.Name, "duration", time.Since(startedAt))
	return nil
}

func (m *Migrator) withLock(ctx context.Context, db Queryer, f func() error) (err error) {
	locker, ok := m.Dialect.(Locker)
	if !ok || m.DisableLock {
		return f()
	}

	lockName := m.QuotedTableName()
	if _, err = db.ExecContext(ctx, locker.LockSQL(lockName)); err != nil {
		return fmt.Errorf("obtain migration lock: %w", err)
	}
	m.logger().DebugContext(ctx, "locked", "at", time.Now().Format(time.RFC3339Nano))

	defer func() {
		_, unlockErr := db.ExecContext(context.WithoutCancel(ctx), locker.UnlockSQL(lockName))
		if unlockErr == nil {
			m.logger().DebugContext(ctx, "unlocked", "at", time.Now().Format(time.RFC3339Nano))
			return
		}
		// Only report the unlock failure if we're not overwriting an
		// earlier error
		if err == nil {
			err = fmt.Errorf("release migration lock: %w", unlockErr)
		}
	}()

	return f()
}

func (m *Migrator) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return discardLogger
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
