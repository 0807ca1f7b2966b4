package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/aevon-lab/stockpile/internal/core/inventory"
	"github.com/aevon-lab/stockpile/internal/core/storage"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

var _ storage.CanonicalStore = (*SalesAdapter)(nil)

// SalesAdapter implements storage.CanonicalStore on the sales_data table.
// Every write runs in its own transaction so a failed upload leaves the
// table unchanged.
type SalesAdapter struct {
	db *sql.DB
}

// NewSalesAdapter creates a SalesAdapter sharing the given connection.
func NewSalesAdapter(db *sql.DB) *SalesAdapter {
	return &SalesAdapter{db: db}
}

func (a *SalesAdapter) CountFacts(ctx context.Context) (int64, error) {
	var n int64
	if err := a.db.QueryRowContext(ctx, queryCountFacts).Scan(&n); err != nil {
		return 0, fmt.Errorf("sales count: %w", err)
	}
	return n, nil
}

func (a *SalesAdapter) MonthHasFacts(ctx context.Context, month string) (bool, error) {
	var exists bool
	if err := a.db.QueryRowContext(ctx, queryMonthHasFacts, month).Scan(&exists); err != nil {
		return false, fmt.Errorf("sales month lookup %s: %w", month, err)
	}
	return exists, nil
}

// BulkInsert appends records with COPY in a single transaction.
func (a *SalesAdapter) BulkInsert(ctx context.Context, records []inventory.Record, createdAt time.Time) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sales bulk insert: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	n, err := copyFacts(ctx, tx, salesTable, records, createdAt)
	if err != nil {
		return 0, fmt.Errorf("sales bulk insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sales bulk insert: commit: %w", err)
	}

	slog.Info("[SalesAdapter] Bulk inserted", "rows", n)
	return n, nil
}

// MergeMonth stages records in a temp table, then updates matching rows and
// inserts the rest, all in one transaction.
func (a *SalesAdapter) MergeMonth(ctx context.Context, month string, records []inventory.Record, createdAt time.Time) (int64, int64, error) {
	if len(records) == 0 {
		return 0, 0, nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("sales merge: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, queryCreateStage); err != nil {
		return 0, 0, fmt.Errorf("sales merge: create stage: %w", err)
	}

	if _, err := copyFacts(ctx, tx, stageTable, records, createdAt); err != nil {
		return 0, 0, fmt.Errorf("sales merge: %w", err)
	}

	res, err := tx.ExecContext(ctx, queryMergeUpdate, month)
	if err != nil {
		return 0, 0, fmt.Errorf("sales merge: update existing: %w", err)
	}
	updated, err := res.RowsAffected()
	if err != nil {
		return 0, 0, fmt.Errorf("sales merge: count updated: %w", err)
	}

	res, err = tx.ExecContext(ctx, queryMergeInsert)
	if err != nil {
		return 0, 0, fmt.Errorf("sales merge: insert new: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return 0, 0, fmt.Errorf("sales merge: count inserted: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("sales merge: commit: %w", err)
	}

	slog.Info("[SalesAdapter] Merged month",
		"month", month,
		"updated", updated,
		"inserted", inserted)
	return inserted, updated, nil
}

// RefreshGrandTotal deletes the existing total row and inserts a recomputed one.
func (a *SalesAdapter) RefreshGrandTotal(ctx context.Context, at time.Time) (inventory.Record, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return inventory.Record{}, fmt.Errorf("grand total: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, queryDeleteGrandTotal); err != nil {
		return inventory.Record{}, fmt.Errorf("grand total: delete: %w", err)
	}

	total := inventory.Record{
		Brand: inventory.GrandTotalBrand,
		MRP:   decimal.Zero,
		Date:  at,
		Week:  inventory.WeekKey(at),
		Month: inventory.MonthKey(at),
	}
	if err := tx.QueryRowContext(ctx, querySumFacts).Scan(&total.SalesQty, &total.PurchaseQty); err != nil {
		return inventory.Record{}, fmt.Errorf("grand total: sum: %w", err)
	}

	if _, err := tx.ExecContext(ctx, queryInsertGrandTotal,
		total.Week,
		total.Month,
		total.SalesQty,
		total.PurchaseQty,
		at,
	); err != nil {
		return inventory.Record{}, fmt.Errorf("grand total: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return inventory.Record{}, fmt.Errorf("grand total: commit: %w", err)
	}
	return total, nil
}

func (a *SalesAdapter) GrandTotal(ctx context.Context) (inventory.Record, bool, error) {
	rec, err := scanFactRow(a.db.QueryRowContext(ctx, querySelectGrandTotal))
	if err != nil {
		if isNoRows(err) {
			return inventory.Record{}, false, nil
		}
		return inventory.Record{}, false, fmt.Errorf("grand total: read: %w", err)
	}
	return rec, true, nil
}

func (a *SalesAdapter) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := a.db.ExecContext(ctx, queryPurgeBefore, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sales purge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sales purge: count deleted: %w", err)
	}
	return n, nil
}

func (a *SalesAdapter) LatestKeys(ctx context.Context) (string, string, error) {
	var month, week string
	if err := a.db.QueryRowContext(ctx, queryLatestKeys).Scan(&month, &week); err != nil {
		return "", "", fmt.Errorf("sales latest keys: %w", err)
	}
	return month, week, nil
}

func (a *SalesAdapter) FactsByMonths(ctx context.Context, months ...string) ([]inventory.Record, error) {
	if len(months) == 0 {
		return nil, nil
	}
	rows, err := a.db.QueryContext(ctx, queryFactsByMonths, pq.Array(months))
	if err != nil {
		return nil, fmt.Errorf("sales facts by months: %w", err)
	}
	return collectFacts(rows)
}

func (a *SalesAdapter) FactsByWeek(ctx context.Context, week string) ([]inventory.Record, error) {
	rows, err := a.db.QueryContext(ctx, queryFactsByWeek, week)
	if err != nil {
		return nil, fmt.Errorf("sales facts by week: %w", err)
	}
	return collectFacts(rows)
}
