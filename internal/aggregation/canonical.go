package aggregation

import (
	"context"
	"log/slog"
	"sort"
	"time"

	coreerrors "github.com/aevon-lab/stockpile/internal/core/errors"
	"github.com/aevon-lab/stockpile/internal/core/inventory"
)

// MergeResult reports one canonical update.
type MergeResult struct {
	Inserted   int64            `json:"inserted"`
	Updated    int64            `json:"updated"`
	BulkMonths []string         `json:"bulk_months,omitempty"`
	GrandTotal inventory.Record `json:"-"`
	Purged     int64            `json:"purged"`
}

// ApplyCanonical writes batch to the canonical store.
//
// Each month in the batch is bulk inserted when the store holds no facts at
// all or none for that month; otherwise rows with a matching RecordID have
// their quantities increased and new identities are inserted. The grand-total
// row is recomputed afterwards and expired facts are purged at most once a day.
func (s *Store) ApplyCanonical(ctx context.Context, batch []inventory.Record, createdAt time.Time) (MergeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result MergeResult
	facts := inventory.WithoutTotals(batch)
	if len(facts) == 0 {
		return result, nil
	}

	total, err := s.canonical.CountFacts(ctx)
	if err != nil {
		return result, &coreerrors.PersistenceError{Op: "count facts", Err: err}
	}

	for _, month := range monthsOf(facts) {
		records := recordsInMonth(facts, month)

		bulk := total == 0
		if !bulk {
			has, err := s.canonical.MonthHasFacts(ctx, month)
			if err != nil {
				return result, &coreerrors.PersistenceError{Op: "month lookup", Err: err}
			}
			bulk = !has
		}

		if bulk {
			n, err := s.canonical.BulkInsert(ctx, records, createdAt)
			if err != nil {
				return result, &coreerrors.PersistenceError{Op: "bulk insert", Err: err}
			}
			result.Inserted += n
			result.BulkMonths = append(result.BulkMonths, month)
			continue
		}

		inserted, updated, err := s.canonical.MergeMonth(ctx, month, records, createdAt)
		if err != nil {
			return result, &coreerrors.PersistenceError{Op: "merge month", Err: err}
		}
		result.Inserted += inserted
		result.Updated += updated
	}

	grand, err := s.canonical.RefreshGrandTotal(ctx, s.nowFn())
	if err != nil {
		return result, &coreerrors.PersistenceError{Op: "refresh grand total", Err: err}
	}
	result.GrandTotal = grand

	if s.nowFn().Sub(s.lastPurge) >= purgeEvery {
		result.Purged = s.purgeLocked(ctx)
	}

	slog.Info("[AggregationStore] Canonical store updated",
		"inserted", result.Inserted,
		"updated", result.Updated,
		"bulk_months", result.BulkMonths,
		"grand_total_sales", grand.SalesQty,
		"grand_total_purchases", grand.PurchaseQty)
	return result, nil
}

// PurgeExpired deletes facts older than the retention horizon.
func (s *Store) PurgeExpired(ctx context.Context) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.purgeLocked(ctx)
}

// purgeLocked logs and swallows failures; the next write retries.
func (s *Store) purgeLocked(ctx context.Context) int64 {
	now := s.nowFn()
	cutoff := now.AddDate(-s.opts.RetentionYears, 0, 0)

	n, err := s.canonical.PurgeBefore(ctx, cutoff)
	if err != nil {
		slog.Warn("[AggregationStore] Retention purge failed", "cutoff", cutoff, "error", err)
		return 0
	}
	s.lastPurge = now
	if n > 0 {
		slog.Info("[AggregationStore] Purged expired facts", "rows", n, "cutoff", cutoff)
	}
	return n
}

func monthsOf(records []inventory.Record) []string {
	seen := make(map[string]struct{})
	var months []string
	for _, r := range records {
		if _, ok := seen[r.Month]; !ok {
			seen[r.Month] = struct{}{}
			months = append(months, r.Month)
		}
	}
	sort.Strings(months)
	return months
}

func recordsInMonth(records []inventory.Record, month string) []inventory.Record {
	out := make([]inventory.Record, 0, len(records))
	for _, r := range records {
		if r.Month == month {
			out = append(out, r)
		}
	}
	return out
}
