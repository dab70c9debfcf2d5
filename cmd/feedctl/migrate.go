package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sgxfeed/internal/config"
	"sgxfeed/internal/database"
	"sgxfeed/internal/database/migration"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the version catalog schema if it is missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			db, err := database.Open(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			dialect := migration.Postgres
			if cfg.Database.Driver == database.DriverSQLite {
				dialect = migration.SQLite
			}
			if err := migration.EnsureMigrated(cmd.Context(), db, dialect, cliLogger(cfg)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "catalog schema is up to date")
			return nil
		},
	}
}
