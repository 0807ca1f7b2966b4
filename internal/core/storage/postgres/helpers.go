package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aevon-lab/stockpile/internal/core/inventory"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanFactRow scans one sales_data row into a Record.
// Compatible with both sql.Row (single) and sql.Rows (multiple).
func scanFactRow(row scanner) (inventory.Record, error) {
	var rec inventory.Record
	var mrp float64

	err := row.Scan(
		&rec.Brand,
		&rec.Category,
		&rec.Size,
		&mrp,
		&rec.Color,
		&rec.Week,
		&rec.Month,
		&rec.SalesQty,
		&rec.PurchaseQty,
		&rec.Date,
	)
	if err != nil {
		return inventory.Record{}, fmt.Errorf("failed to scan fact row: %w", err)
	}
	rec.MRP = decimal.NewFromFloat(mrp)
	return rec, nil
}

func collectFacts(rows *sql.Rows) ([]inventory.Record, error) {
	defer rows.Close()

	var facts []inventory.Record
	for rows.Next() {
		rec, err := scanFactRow(rows)
		if err != nil {
			return nil, err
		}
		facts = append(facts, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating facts: %w", err)
	}
	return facts, nil
}

// copyFacts streams records into table through COPY FROM STDIN inside tx.
func copyFacts(ctx context.Context, tx *sql.Tx, table string, records []inventory.Record, createdAt time.Time) (int64, error) {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, factColumns...))
	if err != nil {
		return 0, fmt.Errorf("prepare copy into %s: %w", table, err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.Brand,
			r.Category,
			r.Size,
			r.MRP.InexactFloat64(),
			r.Color,
			r.Week,
			r.Month,
			r.SalesQty,
			r.PurchaseQty,
			createdAt,
		); err != nil {
			return 0, fmt.Errorf("copy %s into %s: %w", r.RecordID(), table, err)
		}
	}

	// An argument-less Exec flushes the buffered COPY data.
	if _, err := stmt.ExecContext(ctx); err != nil {
		return 0, fmt.Errorf("flush copy into %s: %w", table, err)
	}
	return int64(len(records)), nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
