package storage

import (
	"context"
	"time"

	"github.com/aevon-lab/stockpile/internal/core/inventory"
)

// FactReader exposes read access to the canonical sales table.
// Every method excludes the grand-total row unless stated otherwise.
type FactReader interface {
	// LatestKeys returns the greatest month and week present. Both are empty
	// when the table holds no facts.
	LatestKeys(ctx context.Context) (month, week string, err error)

	// FactsByMonths returns every fact whose month is in months, in insertion order.
	FactsByMonths(ctx context.Context, months ...string) ([]inventory.Record, error)

	// FactsByWeek returns every fact for one week key, in insertion order.
	FactsByWeek(ctx context.Context, week string) ([]inventory.Record, error)

	// GrandTotal returns the stored grand-total row. ok is false when none exists.
	GrandTotal(ctx context.Context) (total inventory.Record, ok bool, err error)
}

// CanonicalStore is the long-term relational store of cleaned sales facts.
type CanonicalStore interface {
	FactReader

	// CountFacts returns the number of non-total rows.
	CountFacts(ctx context.Context) (int64, error)

	// MonthHasFacts reports whether any non-total row exists for month.
	MonthHasFacts(ctx context.Context, month string) (bool, error)

	// BulkInsert appends records as new rows stamped with createdAt.
	BulkInsert(ctx context.Context, records []inventory.Record, createdAt time.Time) (int64, error)

	// MergeMonth adds record quantities to existing rows of the same identity
	// within month and inserts records whose identity is new. Matched rows take
	// createdAt and the incoming week, month and mrp.
	MergeMonth(ctx context.Context, month string, records []inventory.Record, createdAt time.Time) (inserted, updated int64, err error)

	// RefreshGrandTotal replaces the grand-total row with one recomputed from
	// every remaining fact and returns it.
	RefreshGrandTotal(ctx context.Context, at time.Time) (inventory.Record, error)

	// PurgeBefore deletes facts created before cutoff. The grand-total row is kept.
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
