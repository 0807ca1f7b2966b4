package projection

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aevon-lab/stockpile/internal/core/inventory"
	_ "github.com/mattn/go-sqlite3" // Register sqlite3 driver
	"github.com/shopspring/decimal"
)

//go:embed schema.sql
var schemaSQL string

// Cache is the local SQLite copy of the latest month, week and quarter.
// Each refresh replaces every table in one transaction.
type Cache struct {
	db *sql.DB
}

// OpenCache opens or creates the cache database at path.
func OpenCache(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping cache: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize cache schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// DB exposes the connection for health checks.
func (c *Cache) DB() *sql.DB { return c.db }

// Close closes the cache database.
func (c *Cache) Close() error { return c.db.Close() }

// Replace swaps in every given snapshot atomically.
func (c *Cache) Replace(ctx context.Context, snapshots []Snapshot, refreshedAt time.Time) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cache replace: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, snap := range snapshots {
		table := snap.Period.table()
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("cache replace: clear %s: %w", table, err)
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+table+` (
			brand, category, size, mrp, color, week, month, sales_qty, purchase_qty, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("cache replace: prepare %s: %w", table, err)
		}
		for _, r := range snap.Rows {
			if _, err := stmt.ExecContext(ctx,
				r.Brand, r.Category, r.Size, r.MRP.InexactFloat64(), r.Color,
				r.Week, r.Month, r.SalesQty, r.PurchaseQty, r.Date.UTC(),
			); err != nil {
				stmt.Close()
				return fmt.Errorf("cache replace: insert into %s: %w", table, err)
			}
		}
		stmt.Close()

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO snapshot_meta (period, period_key, row_count, refreshed_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(period) DO UPDATE SET
				period_key = excluded.period_key,
				row_count = excluded.row_count,
				refreshed_at = excluded.refreshed_at`,
			string(snap.Period), snap.Key, len(snap.Rows), refreshedAt.UTC(),
		); err != nil {
			return fmt.Errorf("cache replace: meta %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("cache replace: commit: %w", err)
	}
	slog.Debug("[RollupCache] Snapshots replaced", "count", len(snapshots))
	return nil
}

// Load reads one snapshot.
func (c *Cache) Load(ctx context.Context, period Period) (Snapshot, error) {
	snap := Snapshot{Period: period}

	var rowCount int
	err := c.db.QueryRowContext(ctx,
		`SELECT period_key, row_count, refreshed_at FROM snapshot_meta WHERE period = ?`,
		string(period),
	).Scan(&snap.Key, &rowCount, &snap.RefreshedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrSnapshotUnavailable
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("cache load %s meta: %w", period, err)
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT brand, category, size, mrp, color, week, month, sales_qty, purchase_qty, created_at
		FROM `+period.table()+`
		ORDER BY rowid ASC`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("cache load %s: %w", period, err)
	}
	defer rows.Close()

	snap.Rows = make([]inventory.Record, 0, rowCount)
	for rows.Next() {
		var r inventory.Record
		var mrp float64
		if err := rows.Scan(
			&r.Brand, &r.Category, &r.Size, &mrp, &r.Color,
			&r.Week, &r.Month, &r.SalesQty, &r.PurchaseQty, &r.Date,
		); err != nil {
			return Snapshot{}, fmt.Errorf("cache load %s: scan: %w", period, err)
		}
		r.MRP = decimal.NewFromFloat(mrp)
		snap.Rows = append(snap.Rows, r)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("cache load %s: %w", period, err)
	}
	return snap, nil
}
