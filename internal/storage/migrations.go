package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations holds all database migrations in order.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: `
			-- Analysis runs table
			CREATE TABLE IF NOT EXISTS runs (
				id TEXT PRIMARY KEY,
				scenario_id TEXT NOT NULL,
				source TEXT NOT NULL,
				status TEXT NOT NULL,
				message TEXT,
				error TEXT,
				started_at DATETIME NOT NULL,
				duration_ns INTEGER NOT NULL,
				records INTEGER NOT NULL DEFAULT 0,
				correlations INTEGER NOT NULL DEFAULT 0,
				incidents INTEGER NOT NULL DEFAULT 0,
				predictive INTEGER NOT NULL DEFAULT 0,
				novel INTEGER NOT NULL DEFAULT 0
			);

			-- Report artifacts produced by a run
			CREATE TABLE IF NOT EXISTS artifacts (
				run_id TEXT NOT NULL,
				name TEXT NOT NULL,
				path TEXT NOT NULL,
				PRIMARY KEY (run_id, name),
				FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
			);

			-- Indexes
			CREATE INDEX IF NOT EXISTS idx_runs_scenario ON runs(scenario_id);
			CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
		`,
	},
}

// runMigrations applies all pending migrations.
func runMigrations(db *sql.DB) error {
	// Create migrations table if not exists
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	// Apply pending migrations
	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		// Run migration in transaction
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction for migration %d: %w", m.Version, err)
		}

		_, err = tx.Exec(m.Up)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d (%s): %w", m.Version, m.Name, err)
		}

		_, err = tx.Exec(
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Name, time.Now(),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}
