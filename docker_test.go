//go:build integration

package dbmigrator

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDBs holds all of the database containers against which the integration
// tests run. withEachTestDB runs a test against every entry.
var TestDBs = map[string]*TestDB{
	"postgres:16 (pq)": {
		Dialect:    Postgres,
		Driver:     "postgres",
		DockerRepo: "postgres",
		DockerTag:  "16-alpine",
	},
	"postgres:16 (pgx)": {
		Dialect:    Postgres,
		Driver:     "pgx",
		DockerRepo: "postgres",
		DockerTag:  "16-alpine",
	},
	"mysql:8": {
		Dialect:    MySQL,
		Driver:     "mysql",
		DockerRepo: "mysql",
		DockerTag:  "8",
	},
	"mssql:2022": {
		Dialect:    SQLServer,
		Driver:     "sqlserver",
		DockerRepo: "mcr.microsoft.com/mssql/server",
		DockerTag:  "2022-latest",
	},
}

// TestDB is one containerised database instance.
type TestDB struct {
	Dialect    Dialect
	Driver     string
	DockerRepo string
	DockerTag  string
	Resource   *dockertest.Resource
}

func (c *TestDB) Username() string {
	if c.Driver == "sqlserver" {
		return "sa"
	}
	return "dbmigrator"
}

func (c *TestDB) Password() string {
	return "Dbmigrator-s3cret"
}

func (c *TestDB) DatabaseName() string {
	return "dbmigrator_tests"
}

func (c *TestDB) Port() string {
	switch c.Driver {
	case "mysql":
		return c.Resource.GetPort("3306/tcp")
	case "postgres", "pgx":
		return c.Resource.GetPort("5432/tcp")
	case "sqlserver":
		return c.Resource.GetPort("1433/tcp")
	}
	return ""
}

func (c *TestDB) DockerEnvars() []string {
	switch c.Driver {
	case "postgres", "pgx":
		return []string{
			fmt.Sprintf("POSTGRES_USER=%s", c.Username()),
			fmt.Sprintf("POSTGRES_PASSWORD=%s", c.Password()),
			fmt.Sprintf("POSTGRES_DB=%s", c.DatabaseName()),
		}
	case "mysql":
		return []string{
			"MYSQL_RANDOM_ROOT_PASSWORD=true",
			fmt.Sprintf("MYSQL_USER=%s", c.Username()),
			fmt.Sprintf("MYSQL_PASSWORD=%s", c.Password()),
			fmt.Sprintf("MYSQL_DATABASE=%s", c.DatabaseName()),
		}
	case "sqlserver":
		return []string{
			"ACCEPT_EULA=Y",
			fmt.Sprintf("MSSQL_SA_PASSWORD=%s", c.Password()),
		}
	}
	return nil
}

func (c *TestDB) DSN() string {
	switch c.Driver {
	case "postgres", "pgx":
		return fmt.Sprintf("postgres://%s:%s@localhost:%s/%s?sslmode=disable", c.Username(), c.Password(), c.Port(), c.DatabaseName())
	case "mysql":
		return fmt.Sprintf("%s:%s@(localhost:%s)/%s?parseTime=true&multiStatements=true", c.Username(), c.Password(), c.Port(), c.DatabaseName())
	case "sqlserver":
		return fmt.Sprintf("sqlserver://%s:%s@localhost:%s?database=master", c.Username(), c.Password(), c.Port())
	}
	return ""
}

func (c *TestDB) Init(pool *dockertest.Pool) error {
	log.Printf("Starting docker container %s:%s\n", c.DockerRepo, c.DockerTag)
	if c.Driver == "mysql" {
		// Silence the driver while the container is still starting up
		_ = mysql.SetLogger(log.New(nopWriter{}, "", 0))
	}

	var err error
	c.Resource, err = pool.RunWithOptions(&dockertest.RunOptions{
		Repository: c.DockerRepo,
		Tag:        c.DockerTag,
		Env:        c.DockerEnvars(),
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return fmt.Errorf("could not start container %s:%s: %w", c.DockerRepo, c.DockerTag, err)
	}
	_ = c.Resource.Expire(300)

	err = pool.Retry(func() error {
		db, err := sql.Open(c.Driver, c.DSN())
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		return db.Ping()
	})
	if c.Driver == "mysql" {
		_ = mysql.SetLogger(log.New(os.Stderr, "[mysql] ", log.Ldate|log.Ltime|log.Lshortfile))
	}
	if err != nil {
		return fmt.Errorf("could not connect to %s: %w", c.DSN(), err)
	}
	return nil
}

func (c *TestDB) Connect(t *testing.T) *sql.Conn {
	t.Helper()
	db, err := sql.Open(c.Driver, c.DSN())
	require.NoError(t, err)
	conn, err := db.Conn(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
		_ = db.Close()
	})
	return conn
}

func (c *TestDB) Cleanup(pool *dockertest.Pool) error {
	if c.Resource == nil {
		return nil
	}
	return pool.Purge(c.Resource)
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Could not connect to Docker: %s", err)
	}
	pool.MaxWait = 3 * time.Minute

	for name, tdb := range TestDBs {
		if err = tdb.Init(pool); err != nil {
			log.Printf("%s: %s", name, err)
			break
		}
	}

	code := 1
	if err == nil {
		code = m.Run()
	}

	for name, tdb := range TestDBs {
		if err := tdb.Cleanup(pool); err != nil {
			log.Printf("Could not clean up %s: %s", name, err)
		}
	}
	os.Exit(code)
}

func withEachTestDB(t *testing.T, f func(t *testing.T, tdb *TestDB)) {
	for name, tdb := range TestDBs {
		t.Run(name, func(t *testing.T) {
			f(t, tdb)
		})
	}
}

func TestIntegrationRoundTrip(t *testing.T) {
	withEachTestDB(t, func(t *testing.T, tdb *TestDB) {
		ctx := context.Background()
		conn := tdb.Connect(t)
		table := fmt.Sprintf("migrations_%s", tdb.Driver)
		dir := writeScripts(t, map[string]string{
			"001_init.sql": fmt.Sprintf("-- Up\nCREATE TABLE it_%[1]s (id INT);\n-- Down\nDROP TABLE it_%[1]s;", tdb.Driver),
			"002_seed.sql": fmt.Sprintf("INSERT INTO it_%[1]s (id) VALUES (1);\n-- Down\nDELETE FROM it_%[1]s;", tdb.Driver),
		})
		m := NewMigrator(WithDialect(tdb.Dialect), WithTableName(table))

		result, err := m.Up(ctx, conn, dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"001_init.sql", "002_seed.sql"}, result.Executed)

		result, err = m.Up(ctx, conn, dir)
		require.NoError(t, err)
		assert.Empty(t, result.Executed)

		applied, err := m.GetAppliedScripts(ctx, conn)
		require.NoError(t, err)
		assert.Len(t, applied, 2)
		assert.False(t, applied["001_init.sql"].AppliedAt.IsZero())

		result, err = m.Down(ctx, conn, dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"002_seed.sql", "001_init.sql"}, result.Executed)

		applied, err = m.GetAppliedScripts(ctx, conn)
		require.NoError(t, err)
		assert.Empty(t, applied)
	})
}

func TestIntegrationLockAndUnlock(t *testing.T) {
	withEachTestDB(t, func(t *testing.T, tdb *TestDB) {
		ctx := context.Background()
		conn := tdb.Connect(t)
		locker, ok := tdb.Dialect.(Locker)
		require.True(t, ok)

		m := NewMigrator(WithDialect(tdb.Dialect))
		_, err := conn.ExecContext(ctx, locker.LockSQL(m.QuotedTableName()))
		require.NoError(t, err)
		_, err = conn.ExecContext(ctx, locker.UnlockSQL(m.QuotedTableName()))
		require.NoError(t, err)
	})
}
