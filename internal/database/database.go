// Package database opens database/sql handles for the supported engines.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-sql-driver/mysql"

	// Database drivers
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/adlio/dbmigrator"
)

// Names under which the bundled drivers register with database/sql.
const (
	MSSQLDriverName    = "sqlserver"
	PostgresDriverName = "postgres"
	PgxDriverName      = "pgx"
	MySQLDriverName    = "mysql"
	SQLiteDriverName   = "sqlite3"
)

var defaultDrivers = map[string]string{
	dbmigrator.SQLServer.Name(): MSSQLDriverName,
	dbmigrator.Postgres.Name():  PostgresDriverName,
	dbmigrator.MySQL.Name():     MySQLDriverName,
	dbmigrator.SQLite.Name():    SQLiteDriverName,
}

// Options describe the database to open.
type Options struct {
	Dialect dbmigrator.Dialect

	// Driver overrides the dialect's default database/sql driver, for
	// example "pgx" instead of "postgres".
	Driver string
	DSN    string

	// Wait is how long to keep retrying the first ping. Zero means a single
	// attempt.
	Wait time.Duration
}

// DriverName returns the database/sql driver used for a dialect unless
// overridden.
func DriverName(d dbmigrator.Dialect) (string, error) {
	if name, ok := defaultDrivers[d.Name()]; ok {
		return name, nil
	}
	return "", dbmigrator.Configurationf("no driver known for engine '%s'", d.Name())
}

// Open opens the database and waits until it answers a ping. Failures are
// returned as *dbmigrator.ConnectivityError.
func Open(ctx context.Context, opts Options) (*sql.DB, error) {
	driver := opts.Driver
	if driver == "" {
		var err error
		if driver, err = DriverName(opts.Dialect); err != nil {
			return nil, err
		}
	}

	dsn, err := NormalizeDSN(driver, opts.DSN)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, &dbmigrator.ConnectivityError{Err: err}
	}
	if err = ping(ctx, db, opts.Wait); err != nil {
		_ = db.Close()
		return nil, &dbmigrator.ConnectivityError{Err: err}
	}
	return db, nil
}

// NormalizeDSN adjusts a connection string so that scripts can run as a single
// batch. Only MySQL needs this: multiStatements and parseTime are switched on.
func NormalizeDSN(driver, dsn string) (string, error) {
	if driver != MySQLDriverName {
		return dsn, nil
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", dbmigrator.Configurationf("invalid MySQL connection string: %s", err)
	}
	cfg.MultiStatements = true
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

func ping(ctx context.Context, db *sql.DB, wait time.Duration) error {
	var policy backoff.BackOff = &backoff.StopBackOff{}
	if wait > 0 {
		exp := backoff.NewExponentialBackOff()
		exp.MaxElapsedTime = wait
		policy = exp
	}
	err := backoff.Retry(func() error {
		return db.PingContext(ctx)
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}
