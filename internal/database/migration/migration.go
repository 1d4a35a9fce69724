// Package migration creates the upload catalogue schema on first start.
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

// sentinelQuery reports whether the schema has been applied. The uploads
// table is created in the same run as its indexes, so its presence stands
// for the whole set.
const sentinelQuery = "SELECT to_regclass('public.uploads') IS NOT NULL"

var steps = []migrationStep{
	{
		Name: "create_table_uploads",
		SQL: `CREATE TABLE IF NOT EXISTS uploads (
  id           UUID        PRIMARY KEY,
  client_guid  TEXT        NOT NULL UNIQUE,
  filename     TEXT        NOT NULL,
  storage_path TEXT        NOT NULL UNIQUE,
  size         BIGINT      NOT NULL CHECK (size >= 0),
  content_type TEXT        NOT NULL,
  width        INTEGER     NOT NULL DEFAULT 0 CHECK (width >= 0),
  height       INTEGER     NOT NULL DEFAULT 0 CHECK (height >= 0),
  hash         TEXT        NOT NULL,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_uploads_content_type",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_uploads_content_type ON uploads (content_type);`,
	},
	{
		Name: "create_index_uploads_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_uploads_created_at ON uploads (created_at DESC);`,
	},
	{
		Name: "create_index_uploads_hash",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_uploads_hash ON uploads (hash);`,
	},
}

// EnsureMigrated applies the schema unless the uploads table already
// exists. Steps are idempotent, so a run interrupted halfway is finished by
// the next start.
func EnsureMigrated(ctx context.Context, db *sql.DB, logger *slog.Logger, dbHost string) error {
	start := time.Now()
	log := logger.With(
		slog.String("component", "database"),
		slog.String("db_host", dbHost),
	)

	var exists bool
	if err := db.QueryRowContext(ctx, sentinelQuery).Scan(&exists); err != nil {
		log.Error("db_migration_failed",
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return fmt.Errorf("check sentinel table: %w", err)
	}
	if exists {
		log.Info("db_migration_skip",
			slog.String("msg", "schema already exists"),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil
	}

	log.Info("db_migration_start", slog.Int("steps", len(steps)))
	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed",
				slog.String("migration_step", step.Name),
				slog.String("error", err.Error()),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		log.Debug("db_migration_step",
			slog.String("migration_step", step.Name),
			slog.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
		)
	}

	log.Info("db_migration_success", slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return nil
}
