// Package store persists the schedule rules and the global switch in SQLite
// so changes made over HTTP or MQTT survive a restart. The observer site is
// not stored; it always comes from the daemon configuration.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sweeney/wifi-outlet/internal/schedule"
)

// ErrNotFound is returned by Load when no configuration has been saved.
var ErrNotFound = errors.New("store: no saved configuration")

const (
	keyScheduleEnabled = "schedule_enabled"
	keySeededAt        = "seeded_at" // set by Save; absent until first seeding
)

// Store is a SQLite-backed configuration store. Safe for concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path and migrates the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer; avoids SQLITE_BUSY between the loop and CLI reads.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the saved rules and switch, or ErrNotFound before the first
// Save. Site is left zero for the caller to fill in. Cycle slots missing from
// the table are filled with disabled rules.
func (s *Store) Load(ctx context.Context) (schedule.Config, error) {
	var cfg schedule.Config

	seeded, err := s.setting(ctx, keySeededAt)
	if err != nil {
		return schedule.Config{}, err
	}
	if seeded == "" {
		return schedule.Config{}, ErrNotFound
	}

	enabled, err := s.setting(ctx, keyScheduleEnabled)
	if err != nil {
		return schedule.Config{}, err
	}
	cfg.Enabled = enabled != "false"

	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, enabled, scope, anchor, on_time, off_time, solar_offset, jitter
		FROM cycles WHERE idx < ? ORDER BY idx`, schedule.MaxCycles)
	if err != nil {
		return schedule.Config{}, fmt.Errorf("load cycles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			idx           int
			r             schedule.Rule
			scope, anchor string
		)
		if err := rows.Scan(&idx, &r.Enabled, &scope, &anchor, &r.OnTime, &r.OffTime, &r.SolarOffset, &r.Jitter); err != nil {
			return schedule.Config{}, fmt.Errorf("scan cycle: %w", err)
		}
		if r.Scope, err = schedule.ParseScope(scope); err != nil {
			return schedule.Config{}, fmt.Errorf("cycle %d: %w", idx, err)
		}
		if r.Anchor, err = schedule.ParseAnchor(anchor); err != nil {
			return schedule.Config{}, fmt.Errorf("cycle %d: %w", idx, err)
		}
		for len(cfg.Cycles) < idx {
			cfg.Cycles = append(cfg.Cycles, schedule.Rule{})
		}
		cfg.Cycles = append(cfg.Cycles, r)
	}
	if err := rows.Err(); err != nil {
		return schedule.Config{}, fmt.Errorf("load cycles: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return schedule.Config{}, fmt.Errorf("stored configuration: %w", err)
	}
	return cfg, nil
}

// Save replaces the stored rules and switch. cfg.Site is validated but not
// stored.
func (s *Store) Save(ctx context.Context, cfg schedule.Config) error {
	cfg = cfg.Clone()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	now := s.now().Unix()
	if err := saveSetting(ctx, tx, keySeededAt, strconv.FormatInt(now, 10), now); err != nil {
		return err
	}
	if err := saveSetting(ctx, tx, keyScheduleEnabled, strconv.FormatBool(cfg.Enabled), now); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cycles`); err != nil {
		return fmt.Errorf("clear cycles: %w", err)
	}
	for i, r := range cfg.Cycles {
		if err := saveCycle(ctx, tx, i, r, now); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// SaveCycle stores one rule.
func (s *Store) SaveCycle(ctx context.Context, index int, r schedule.Rule) error {
	if index < 0 || index >= schedule.MaxCycles {
		return fmt.Errorf("save cycle: index %d out of range", index)
	}
	r = r.Normalize()
	if err := r.Validate(); err != nil {
		return fmt.Errorf("save cycle %d: %w", index, err)
	}
	_, err := s.db.ExecContext(ctx, upsertCycle, cycleArgs(index, r, s.now().Unix())...)
	if err != nil {
		return fmt.Errorf("save cycle %d: %w", index, err)
	}
	return nil
}

// SetEnabled stores the global schedule switch.
func (s *Store) SetEnabled(ctx context.Context, enabled bool) error {
	_, err := s.db.ExecContext(ctx, upsertSetting, keyScheduleEnabled, strconv.FormatBool(enabled), s.now().Unix())
	if err != nil {
		return fmt.Errorf("save schedule switch: %w", err)
	}
	return nil
}

func (s *Store) setting(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load setting %s: %w", key, err)
	}
	return v, nil
}

const (
	upsertSetting = `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	upsertCycle = `
		INSERT INTO cycles (idx, enabled, scope, anchor, on_time, off_time, solar_offset, jitter, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(idx) DO UPDATE SET
			enabled = excluded.enabled,
			scope = excluded.scope,
			anchor = excluded.anchor,
			on_time = excluded.on_time,
			off_time = excluded.off_time,
			solar_offset = excluded.solar_offset,
			jitter = excluded.jitter,
			updated_at = excluded.updated_at`
)

func cycleArgs(index int, r schedule.Rule, now int64) []any {
	return []any{index, r.Enabled, r.Scope.String(), r.Anchor.String(), r.OnTime, r.OffTime, r.SolarOffset, r.Jitter, now}
}

func saveCycle(ctx context.Context, tx *sql.Tx, index int, r schedule.Rule, now int64) error {
	if _, err := tx.ExecContext(ctx, upsertCycle, cycleArgs(index, r, now)...); err != nil {
		return fmt.Errorf("save cycle %d: %w", index, err)
	}
	return nil
}

func saveSetting(ctx context.Context, tx *sql.Tx, key, value string, now int64) error {
	if _, err := tx.ExecContext(ctx, upsertSetting, key, value, now); err != nil {
		return fmt.Errorf("save setting %s: %w", key, err)
	}
	return nil
}
