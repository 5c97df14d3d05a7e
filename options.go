package dbmigrator

import "log/slog"

// Option supports option chaining when creating a Migrator.
// An Option is a function which takes a Migrator and
// returns a Migrator with an Option modified.
type Option func(m Migrator) Migrator

// WithDialect builds an Option which will set the supplied
// dialect on a Migrator. Usage: NewMigrator(WithDialect(Postgres))
func WithDialect(dialect Dialect) Option {
	return func(m Migrator) Migrator {
		m.Dialect = dialect
		return m
	}
}

// WithTableName is an option which customizes the name of the bookkeeping
// table. It can be called with either 1 or 2 string arguments. If called with
// 2 arguments, the first argument is assumed to be a schema qualifier (for
// example, WithTableName("public", "database_migrations")). Names left blank
// fall back to the dialect's defaults.
func WithTableName(names ...string) Option {
	return func(m Migrator) Migrator {
		switch len(names) {
		case 0:
			// No-op if no customization was provided
		case 1:
			m.TableName = names[0]
		default:
			m.SchemaName = names[0]
			m.TableName = names[1]
		}
		return m
	}
}

// WithTarget limits a run to the scripts up to and including target, in the
// direction's order. The target may be given with or without its extension;
// an extensionless target matching more than one script is rejected.
func WithTarget(target string) Option {
	return func(m Migrator) Migrator {
		m.Target = target
		return m
	}
}

// WithoutLock disables the advisory lock which Locker dialects take for the
// duration of a run.
func WithoutLock() Option {
	return func(m Migrator) Migrator {
		m.DisableLock = true
		return m
	}
}

// WithLogger builds an Option which will set the supplied structured logger
// on a Migrator. By default the migrator operates silently.
func WithLogger(logger *slog.Logger) Option {
	return func(m Migrator) Migrator {
		m.Logger = logger
		return m
	}
}
