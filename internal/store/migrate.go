package store

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations[v] upgrades the schema from v-1 to v.
var migrations = [][]string{
	1: {
		`CREATE TABLE IF NOT EXISTS site (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			elevation REAL NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS cycles (
			idx INTEGER PRIMARY KEY,
			enabled INTEGER NOT NULL,
			scope TEXT NOT NULL,
			anchor TEXT NOT NULL,
			on_time INTEGER NOT NULL,
			off_time INTEGER NOT NULL,
			solar_offset INTEGER NOT NULL,
			jitter INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
	},
	// The site always comes from the daemon configuration; only the fact
	// that the store was seeded is kept.
	2: {
		`INSERT OR IGNORE INTO settings (key, value, updated_at)
			SELECT '` + keySeededAt + `', CAST(updated_at AS TEXT), updated_at FROM site`,
		`DROP TABLE site`,
	},
}

// schemaVersion is the latest schema version supported by migrate.
var schemaVersion = len(migrations) - 1

// migrate creates the schema or upgrades it to schemaVersion.
func migrate(ctx context.Context, db *sql.DB) error {
	return migrateTo(ctx, db, schemaVersion)
}

func migrateTo(ctx context.Context, db *sql.DB, target int) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for v := current + 1; v <= target; v++ {
		if err := apply(ctx, db, v); err != nil {
			return err
		}
	}
	return nil
}

func apply(ctx context.Context, db *sql.DB, version int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", version, err)
	}
	defer tx.Rollback()

	for _, stmt := range migrations[version] {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration %d: %w", version, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
		return fmt.Errorf("record migration %d: %w", version, err)
	}
	return tx.Commit()
}
