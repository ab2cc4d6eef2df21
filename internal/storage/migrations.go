package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

const (
	// CurrentSchemaVersion tracks the database schema version
	CurrentSchemaVersion = "1.0.0"
)

// Migration represents a database schema migration
type Migration struct {
	Version string
	Up      string
	Down    string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Up:      migrationV1Up,
		Down:    migrationV1Down,
	},
}

const migrationV1Up = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Investigations table. tags_text is the space-joined sorted tag set,
-- denormalized so the FTS triggers can index it.
CREATE TABLE IF NOT EXISTS investigations (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    type TEXT NOT NULL,
    codebase TEXT NOT NULL,
    start_time TIMESTAMP NOT NULL,
    end_time TIMESTAMP,
    duration_ms INTEGER,
    status TEXT NOT NULL,
    tokens_used INTEGER NOT NULL DEFAULT 0,
    quality_score REAL,
    findings INTEGER,
    tags_text TEXT NOT NULL DEFAULT '',
    metadata TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_investigations_type ON investigations(type);
CREATE INDEX IF NOT EXISTS idx_investigations_codebase ON investigations(codebase);
CREATE INDEX IF NOT EXISTS idx_investigations_status ON investigations(status);
CREATE INDEX IF NOT EXISTS idx_investigations_start_time ON investigations(start_time);
CREATE INDEX IF NOT EXISTS idx_investigations_quality ON investigations(quality_score);

-- Tag join rows
CREATE TABLE IF NOT EXISTS investigation_tags (
    investigation_id TEXT NOT NULL,
    tag TEXT NOT NULL,
    PRIMARY KEY (investigation_id, tag),
    FOREIGN KEY (investigation_id) REFERENCES investigations(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_investigation_tags_tag ON investigation_tags(tag);

-- Agent join rows
CREATE TABLE IF NOT EXISTS investigation_agents (
    investigation_id TEXT NOT NULL,
    agent TEXT NOT NULL,
    PRIMARY KEY (investigation_id, agent),
    FOREIGN KEY (investigation_id) REFERENCES investigations(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_investigation_agents_agent ON investigation_agents(agent);

-- Full-text search over the searchable record fields
CREATE VIRTUAL TABLE IF NOT EXISTS investigations_fts USING fts5(
    id, name, type, codebase, tags_text,
    content='investigations'
);

-- Triggers to keep FTS in sync. External-content FTS5 tables are maintained
-- with the 'delete' command form; a plain DELETE cannot see the removed row.
CREATE TRIGGER IF NOT EXISTS investigations_ai AFTER INSERT ON investigations BEGIN
    INSERT INTO investigations_fts(rowid, id, name, type, codebase, tags_text)
    VALUES (new.rowid, new.id, new.name, new.type, new.codebase, new.tags_text);
END;

CREATE TRIGGER IF NOT EXISTS investigations_ad AFTER DELETE ON investigations BEGIN
    INSERT INTO investigations_fts(investigations_fts, rowid, id, name, type, codebase, tags_text)
    VALUES ('delete', old.rowid, old.id, old.name, old.type, old.codebase, old.tags_text);
END;

CREATE TRIGGER IF NOT EXISTS investigations_au AFTER UPDATE ON investigations BEGIN
    INSERT INTO investigations_fts(investigations_fts, rowid, id, name, type, codebase, tags_text)
    VALUES ('delete', old.rowid, old.id, old.name, old.type, old.codebase, old.tags_text);
    INSERT INTO investigations_fts(rowid, id, name, type, codebase, tags_text)
    VALUES (new.rowid, new.id, new.name, new.type, new.codebase, new.tags_text);
END;
`

const migrationV1Down = `
-- Drop all tables in reverse order of dependencies. schema_version stays;
-- RollbackMigration removes the version row itself.
DROP TRIGGER IF EXISTS investigations_au;
DROP TRIGGER IF EXISTS investigations_ad;
DROP TRIGGER IF EXISTS investigations_ai;

DROP TABLE IF EXISTS investigations_fts;
DROP TABLE IF EXISTS investigation_agents;
DROP TABLE IF EXISTS investigation_tags;
DROP TABLE IF EXISTS investigations;
`

// ApplyMigrations runs all pending migrations
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	// Check if schema_version table exists
	var tableName string
	err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)

	// Parse current version (default to 0.0.0 if no migrations applied or table doesn't exist)
	var currentVersion *semver.Version
	if err == sql.ErrNoRows {
		currentVersion = semver.MustParse("0.0.0")
	} else if err != nil {
		return fmt.Errorf("failed to check schema_version table: %w", err)
	} else {
		var currentVersionStr string
		err = db.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&currentVersionStr)
		if err == sql.ErrNoRows || currentVersionStr == "" {
			currentVersion = semver.MustParse("0.0.0")
		} else if err != nil {
			return fmt.Errorf("failed to read schema_version: %w", err)
		} else {
			currentVersion, err = semver.NewVersion(currentVersionStr)
			if err != nil {
				return fmt.Errorf("invalid current schema version %s: %w", currentVersionStr, err)
			}
		}
	}

	// Run migrations in order
	for _, migration := range AllMigrations {
		migrationVersion, err := semver.NewVersion(migration.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", migration.Version, err)
		}

		if !currentVersion.LessThan(migrationVersion) {
			continue // Already applied
		}

		_, err = db.ExecContext(ctx, migration.Up)
		if err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}

		_, err = db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", migration.Version)
		if err != nil {
			return fmt.Errorf("failed to record migration %s: %w", migration.Version, err)
		}

		currentVersion = migrationVersion
	}

	return nil
}

// RollbackMigration rolls back the most recent migration
func RollbackMigration(ctx context.Context, db *sql.DB) error {
	// Get current version
	var currentVersion string
	err := db.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("no migrations to rollback: %w", err)
	}

	// Find migration
	var migration *Migration
	for i := range AllMigrations {
		if AllMigrations[i].Version == currentVersion {
			migration = &AllMigrations[i]
			break
		}
	}

	if migration == nil {
		return fmt.Errorf("migration %s not found", currentVersion)
	}

	// Execute rollback
	_, err = db.ExecContext(ctx, migration.Down)
	if err != nil {
		return fmt.Errorf("failed to rollback migration %s: %w", currentVersion, err)
	}

	// Remove version record
	_, err = db.ExecContext(ctx, "DELETE FROM schema_version WHERE version = ?", currentVersion)
	if err != nil {
		return fmt.Errorf("failed to remove migration record %s: %w", currentVersion, err)
	}

	return nil
}
