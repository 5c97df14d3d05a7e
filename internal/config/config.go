// Package config resolves the command-line configuration from flags,
// DBMIGRATOR_* environment variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/adlio/dbmigrator"
)

// EnvPrefix is prepended to every key to form its environment variable, for
// example DBMIGRATOR_CONNSTRING.
const EnvPrefix = "DBMIGRATOR"

// DefaultEngine is used when neither --engine nor DBMIGRATOR_ENGINE is set.
const DefaultEngine = "SqlServer"

// DefaultEnvFile is loaded when present and no --env-file is given.
const DefaultEnvFile = ".env"

// Config is everything a run needs. Keys match the long flag names.
type Config struct {
	Directory  string        `mapstructure:"directory"`
	Engine     string        `mapstructure:"engine"`
	ConnString string        `mapstructure:"connstring"`
	To         string        `mapstructure:"to"`
	Schema     string        `mapstructure:"schema"`
	Table      string        `mapstructure:"table"`
	Driver     string        `mapstructure:"driver"`
	NoLock     bool          `mapstructure:"no-lock"`
	Wait       time.Duration `mapstructure:"wait"`
	LogLevel   string        `mapstructure:"log-level"`
	LogFormat  string        `mapstructure:"log-format"`
	EnvFile    string        `mapstructure:"env-file"`

	dialect dbmigrator.Dialect
	level   slog.Level
}

// AddFlags defines the flags shared by every command on flags. Their names are
// the configuration keys.
func AddFlags(flags *pflag.FlagSet) {
	flags.StringP("directory", "d", "", "The directory to run migrations from (default: current directory, or DBMIGRATOR_DIRECTORY)")
	flags.StringP("engine", "e", "", "The database engine to use: SqlServer, Postgres, MySQL or SQLite (or DBMIGRATOR_ENGINE, default SqlServer)")
	flags.StringP("connstring", "c", "", "The connection string to the database (or DBMIGRATOR_CONNSTRING)")
	flags.String("schema", "", "Schema of the bookkeeping table (default depends on the engine)")
	flags.String("table", "", "Name of the bookkeeping table (default database_migrations)")
	flags.String("driver", "", "database/sql driver to use instead of the engine's default, e.g. pgx")
	flags.Bool("no-lock", false, "Do not take an advisory lock for the duration of the run")
	flags.Duration("wait", 0, "Keep retrying the initial connection for this long")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("log-format", "text", "Log format: text, json")
	flags.String("env-file", "", "Load environment variables from this file (default .env if present)")
}

// Load reads the configuration for the command whose flags are given and
// validates it. Flags win over environment variables, which win over the .env
// file, which wins over defaults.
func Load(flags *pflag.FlagSet) (*Config, error) {
	if err := loadEnvFile(flags); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault("engine", DefaultEngine)
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "text")
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, dbmigrator.Configurationf("invalid configuration: %s", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFile(flags *pflag.FlagSet) error {
	path, _ := flags.GetString("env-file")
	if path == "" {
		err := godotenv.Load(DefaultEnvFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return dbmigrator.Configurationf("read %s: %s", DefaultEnvFile, err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return dbmigrator.Configurationf("read env file '%s': %s", path, err)
	}
	return nil
}

// Validate checks the configuration and resolves the engine, log level and
// script directory. It never touches the database.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ConnString) == "" {
		return dbmigrator.Configurationf("connection string is required (--connstring or %s_CONNSTRING)", EnvPrefix)
	}

	dialect, err := dbmigrator.LookupDialect(c.Engine)
	if err != nil {
		return err
	}
	c.dialect = dialect

	if err := c.level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return dbmigrator.Configurationf("invalid log level '%s'", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return dbmigrator.Configurationf("invalid log format '%s' (choose from text, json)", c.LogFormat)
	}
	if c.Wait < 0 {
		return dbmigrator.Configurationf("wait must not be negative")
	}

	if c.Directory == "" {
		if c.Directory, err = os.Getwd(); err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
	}
	if c.Directory, err = filepath.Abs(c.Directory); err != nil {
		return dbmigrator.Configurationf("resolve directory '%s': %s", c.Directory, err)
	}
	info, err := os.Stat(c.Directory)
	if err != nil {
		return dbmigrator.Configurationf("directory '%s' is not readable: %s", c.Directory, err)
	}
	if !info.IsDir() {
		return dbmigrator.Configurationf("'%s' is not a directory", c.Directory)
	}
	return nil
}

// Dialect returns the dialect resolved by Validate.
func (c *Config) Dialect() dbmigrator.Dialect {
	return c.dialect
}

// Level returns the log level resolved by Validate.
func (c *Config) Level() slog.Level {
	return c.level
}

// MigratorOptions translates the configuration into Migrator options.
func (c *Config) MigratorOptions(logger *slog.Logger) []dbmigrator.Option {
	opts := []dbmigrator.Option{
		dbmigrator.WithDialect(c.dialect),
		dbmigrator.WithTableName(c.Schema, c.Table),
		dbmigrator.WithLogger(logger),
	}
	if c.To != "" {
		opts = append(opts, dbmigrator.WithTarget(c.To))
	}
	if c.NoLock {
		opts = append(opts, dbmigrator.WithoutLock())
	}
	return opts
}
