package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/adlio/dbmigrator"
	"github.com/adlio/dbmigrator/internal/config"
	"github.com/adlio/dbmigrator/internal/database"
	"github.com/adlio/dbmigrator/internal/logging"
)

func newMigrateCmd(use, short string, direction dbmigrator.Direction) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd, direction)
		},
	}
	cmd.Flags().StringP("to", "t", "", "Specific script to migrate to (inclusive)")
	return cmd
}

func runMigrations(cmd *cobra.Command, direction dbmigrator.Direction) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	migrator := dbmigrator.NewMigrator(s.cfg.MigratorOptions(s.logger)...)
	result, err := migrator.Run(cmd.Context(), s.conn, direction, s.cfg.Directory)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(result.Executed) == 0 {
		fmt.Fprintln(out, "No scripts to run.")
	} else {
		fmt.Fprintf(out, "Ran %d script(s) %s: %s\n", len(result.Executed), direction, strings.Join(result.Executed, ", "))
	}
	fmt.Fprintln(out, "Migrated successfully")
	return nil
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which scripts are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			migrator := dbmigrator.NewMigrator(s.cfg.MigratorOptions(s.logger)...)
			statuses, err := migrator.Status(cmd.Context(), s.conn, s.cfg.Directory)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "SCRIPT\tSTATUS\tAPPLIED AT")
			for _, status := range statuses {
				state, appliedAt := "pending", "-"
				if status.Applied {
					state = "applied"
					if !status.AppliedAt.IsZero() {
						appliedAt = status.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				if status.Missing {
					state = "applied (file missing)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", status.Name, state, appliedAt)
			}
			return w.Flush()
		},
	}
}

func newEnginesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "List the supported database engines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ENGINE\tDRIVER\tEXTENSIONS\tTABLE")
			for _, name := range dbmigrator.DialectNames() {
				dialect, err := dbmigrator.LookupDialect(name)
				if err != nil {
					return err
				}
				driver, err := database.DriverName(dialect)
				if err != nil {
					return err
				}
				table := dialect.QuotedTableName(dialect.DefaultSchemaName(), dialect.DefaultTableName())
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, driver, strings.Join(dialect.Extensions(), " "), table)
			}
			return w.Flush()
		},
	}
}

// session is one pinned connection plus the configuration it was opened with.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *sql.DB
	conn   *sql.Conn
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger := logging.New(cmd.ErrOrStderr(), cfg.Level(), cfg.LogFormat)
	logger.Debug("configuration loaded", "engine", cfg.Dialect().Name(), "directory", cfg.Directory)

	ctx := cmd.Context()
	db, err := database.Open(ctx, database.Options{
		Dialect: cfg.Dialect(),
		Driver:  cfg.Driver,
		DSN:     cfg.ConnString,
		Wait:    cfg.Wait,
	})
	if err != nil {
		return nil, err
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, &dbmigrator.ConnectivityError{Err: err}
	}
	return &session{cfg: cfg, logger: logger, db: db, conn: conn}, nil
}

func (s *session) Close() {
	_ = s.conn.Close()
	_ = s.db.Close()
}
