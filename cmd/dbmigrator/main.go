// Package main is the dbmigrator command-line tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/adlio/dbmigrator"
	"github.com/adlio/dbmigrator/internal/config"
)

var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dbmigrator",
		Short:         "Database Migration CLI Tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	config.AddFlags(root.PersistentFlags())

	root.AddCommand(newMigrateCmd("up", "Apply migrations", dbmigrator.Up))
	root.AddCommand(newMigrateCmd("down", "Revert migrations", dbmigrator.Down))
	root.AddCommand(newStatusCmd())
	root.AddCommand(newEnginesCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dbmigrator version %s\n", version)
		},
	}
}
