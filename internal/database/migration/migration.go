package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Dialect selects the SQL flavour of the schema.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

type migrationStep struct {
	Name string
	SQL  string
}

// file_versions rows are closed by setting is_current false and effective_to.
// effective_to may precede effective_from when a file is re-delivered for the same business day.
var postgresSteps = []migrationStep{
	{
		Name: "create_table_file_versions",
		SQL: `CREATE TABLE IF NOT EXISTS file_versions (
  file_name      TEXT        NOT NULL,
  version_number INTEGER     NOT NULL CHECK (version_number > 0),
  content_digest TEXT        NOT NULL,
  effective_from DATE        NOT NULL,
  effective_to   DATE,
  is_current     BOOLEAN     NOT NULL DEFAULT TRUE,
  storage_path   TEXT        NOT NULL,
  created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
  PRIMARY KEY (file_name, version_number),
  CHECK ((is_current AND effective_to IS NULL) OR (NOT is_current AND effective_to IS NOT NULL))
);`,
	},
	{
		Name: "create_index_file_versions_current",
		SQL:  `CREATE UNIQUE INDEX IF NOT EXISTS uq_file_versions_current ON file_versions (file_name) WHERE is_current;`,
	},
	{
		Name: "create_index_file_versions_effective_from",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_file_versions_effective_from ON file_versions (file_name, effective_from);`,
	},
}

var sqliteSteps = []migrationStep{
	{
		Name: "create_table_file_versions",
		SQL: `CREATE TABLE IF NOT EXISTS file_versions (
  file_name      TEXT    NOT NULL,
  version_number INTEGER NOT NULL CHECK (version_number > 0),
  content_digest TEXT    NOT NULL,
  effective_from TEXT    NOT NULL,
  effective_to   TEXT,
  is_current     INTEGER NOT NULL DEFAULT 1 CHECK (is_current IN (0, 1)),
  storage_path   TEXT    NOT NULL,
  created_at     TEXT    NOT NULL,
  PRIMARY KEY (file_name, version_number),
  CHECK ((is_current = 1 AND effective_to IS NULL) OR (is_current = 0 AND effective_to IS NOT NULL))
);`,
	},
	{
		Name: "create_index_file_versions_current",
		SQL:  `CREATE UNIQUE INDEX IF NOT EXISTS uq_file_versions_current ON file_versions (file_name) WHERE is_current = 1;`,
	},
	{
		Name: "create_index_file_versions_effective_from",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_file_versions_effective_from ON file_versions (file_name, effective_from);`,
	},
}

func (d Dialect) steps() ([]migrationStep, error) {
	switch d {
	case Postgres:
		return postgresSteps, nil
	case SQLite:
		return sqliteSteps, nil
	}
	return nil, fmt.Errorf("unknown migration dialect %q", d)
}

func (d Dialect) sentinelQuery() string {
	if d == SQLite {
		return "SELECT EXISTS (SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = 'file_versions')"
	}
	return "SELECT to_regclass('public.file_versions') IS NOT NULL"
}

// EnsureMigrated checks if the 'file_versions' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, dialect Dialect, logger *slog.Logger) error {
	start := time.Now()
	logger = logger.With("component", "database", "dialect", string(dialect))

	steps, err := dialect.steps()
	if err != nil {
		return err
	}

	logger.Info("db_migration_check", "status", "starting")

	var exists bool
	if err := db.QueryRowContext(ctx, dialect.sentinelQuery()).Scan(&exists); err != nil {
		logger.Error("db_migration_failed",
			"status", "error",
			"error_message", fmt.Sprintf("failed to check sentinel table: %v", err),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		logger.Info("db_migration_skip",
			"status", "success",
			"detail", "schema already exists, skipping migration",
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}

	logger.Info("db_migration_start", "status", "in_progress")

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			logger.Error("db_migration_failed",
				"status", "error",
				"migration_step", step.Name,
				"error_message", err.Error(),
				"duration_ms", time.Since(start).Milliseconds(),
				"step_duration_ms", time.Since(stepStart).Milliseconds(),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		logger.Info("db_migration_step",
			"status", "success",
			"migration_step", step.Name,
			"step_duration_ms", time.Since(stepStart).Milliseconds(),
		)
	}

	logger.Info("db_migration_success",
		"status", "success",
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
