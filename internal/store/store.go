// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists jobs, enchantments, locations, villagers, and
// librarian trade observations in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/pdiddy/mc-trading/pkg/types"
)

// Table names.
const (
	TableJobs         = "jobs"
	TableEnchantments = "enchantments"
	TableLocations    = "locations"
	TableVillagers    = "villagers"
	TableTrades       = "librarian_trades"
)

// Tables lists every table in dependency order.
var Tables = []string{TableJobs, TableEnchantments, TableLocations, TableVillagers, TableTrades}

// schemaDDL creates each table if absent. Existing tables are never
// dropped or altered, so rows entered by hand survive every ETL run.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		job TEXT PRIMARY KEY
	)`,
	`CREATE TABLE IF NOT EXISTS enchantments (
		enchantment TEXT PRIMARY KEY,
		max_level INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS locations (
		location TEXT PRIMARY KEY,
		x_coord INTEGER,
		z_coord INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS villagers (
		villager_id TEXT PRIMARY KEY,
		location TEXT REFERENCES locations(location),
		job TEXT REFERENCES jobs(job)
	)`,
	`CREATE TABLE IF NOT EXISTS librarian_trades (
		trade_id INTEGER PRIMARY KEY AUTOINCREMENT,
		villager_id TEXT REFERENCES villagers(villager_id),
		enchantment TEXT REFERENCES enchantments(enchantment),
		enchantment_level INTEGER,
		cost_emeralds INTEGER
	)`,
}

// Store wraps the single database connection used by a process.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens the database at cfg.Path with foreign keys enforced. The
// parent directory is created if needed. The pool is limited to one
// connection; callers must not run statements on the Store while a
// transaction it started is open.
func Open(cfg types.StoreConfig, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Path == "" {
		cfg.Path = types.DefaultDBPath
	}
	if cfg.Driver == "" {
		cfg.Driver = types.DriverMattn
	}

	var dsn string
	switch cfg.Driver {
	case types.DriverMattn:
		dsn = cfg.Path + "?_foreign_keys=on"
	case types.DriverModernc:
		dsn = cfg.Path + "?_pragma=foreign_keys(1)"
	default:
		return nil, fmt.Errorf("unsupported database driver %q: use %s or %s", cfg.Driver, types.DriverMattn, types.DriverModernc)
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	logger.Debug("database opened", zap.String("path", cfg.Path), zap.String("driver", cfg.Driver))
	return &Store{db: db, logger: logger}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates any missing table. It is safe on a populated
// database. All tables are created in one transaction, so a failure
// leaves the database as it was.
func (s *Store) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &types.PersistenceError{Op: "begin schema", Err: err}
	}
	defer tx.Rollback()

	for _, stmt := range schemaDDL {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return &types.PersistenceError{Op: "create schema", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &types.PersistenceError{Op: "commit schema", Err: err}
	}
	return nil
}

// Counts returns the number of rows in each table.
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(Tables))
	for _, table := range Tables {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM `+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("counting %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// Jobs returns all jobs ordered by name.
func (s *Store) Jobs(ctx context.Context) ([]types.Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT job FROM jobs ORDER BY job`)
	if err != nil {
		return nil, fmt.Errorf("querying jobs: %w", err)
	}
	defer rows.Close()

	var jobs []types.Job
	for rows.Next() {
		var j types.Job
		if err := rows.Scan(&j.Name); err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// Enchantments returns all enchantments ordered by name.
func (s *Store) Enchantments(ctx context.Context) ([]types.Enchantment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT enchantment, coalesce(max_level, 0) FROM enchantments ORDER BY enchantment`)
	if err != nil {
		return nil, fmt.Errorf("querying enchantments: %w", err)
	}
	defer rows.Close()

	var out []types.Enchantment
	for rows.Next() {
		var e types.Enchantment
		if err := rows.Scan(&e.Name, &e.MaxLevel); err != nil {
			return nil, fmt.Errorf("scanning enchantment: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
