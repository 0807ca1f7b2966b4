package aggregation

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aevon-lab/stockpile/internal/artifact"
	"github.com/aevon-lab/stockpile/internal/core/inventory"
)

// SummaryResult reports one master summary update.
type SummaryResult struct {
	Rows           int    `json:"rows"`
	Dropped        int    `json:"dropped"`
	ArchivedTo     string `json:"archived_to,omitempty"`
	TotalSales     int64  `json:"total_sales"`
	TotalPurchases int64  `json:"total_purchases"`
}

// ArchiveName returns the archive file name for a summary whose records
// start in month.
func ArchiveName(month string) string {
	return fmt.Sprintf("master_summary_%s.xlsx", month)
}

// UpdateSummary folds batch into the master summary workbook.
//
// When the oldest record already in the summary belongs to an earlier month
// than now, the workbook is archived under its month and a new one started.
// Records older than the summary window are dropped, records sharing a
// RecordID are merged keeping the latest date, and the result is written
// newest first under a fresh grand-total row.
func (s *Store) UpdateSummary(batch []inventory.Record, now time.Time) (SummaryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result SummaryResult
	path := s.SummaryPath()

	existing, err := artifact.ReadWorkbook(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return result, fmt.Errorf("load summary: %w", err)
	}
	existing = inventory.WithoutTotals(existing)

	if len(existing) > 0 {
		oldest := existing[0].Date
		for _, r := range existing[1:] {
			if r.Date.Before(oldest) {
				oldest = r.Date
			}
		}
		if month := inventory.MonthKey(oldest); month != inventory.MonthKey(now) {
			archived, err := s.archiveSummary(month, now)
			if err != nil {
				return result, err
			}
			result.ArchivedTo = archived
			existing = nil
		}
	}

	cutoff := now.Add(-s.opts.SummaryWindow)
	combined := make([]inventory.Record, 0, len(existing)+len(batch))
	for _, r := range append(existing, inventory.WithoutTotals(batch)...) {
		if r.Date.Before(cutoff) {
			result.Dropped++
			continue
		}
		combined = append(combined, r)
	}

	grouped, _ := inventory.GroupByRecordID(combined, inventory.KeepMaxDate)
	inventory.SortByDateDesc(grouped)
	rows := inventory.WithTotal(grouped, now)

	if err := os.MkdirAll(s.opts.Dir, 0o755); err != nil {
		return result, fmt.Errorf("create summary dir: %w", err)
	}
	if err := artifact.WriteWorkbook(path, rows); err != nil {
		return result, fmt.Errorf("write summary: %w", err)
	}

	result.Rows = len(grouped)
	result.TotalSales = rows[0].SalesQty
	result.TotalPurchases = rows[0].PurchaseQty

	slog.Info("[AggregationStore] Master summary updated",
		"rows", result.Rows,
		"dropped", result.Dropped,
		"archived_to", result.ArchivedTo,
		"total_sales", result.TotalSales)
	return result, nil
}

// archiveSummary moves the live workbook aside. An existing archive for the
// same month is not overwritten; the new one gets a time suffix.
func (s *Store) archiveSummary(month string, now time.Time) (string, error) {
	name := ArchiveName(month)
	if _, err := os.Stat(filepath.Join(s.opts.Dir, name)); err == nil {
		name = fmt.Sprintf("master_summary_%s_%s.xlsx", month, now.Format("20060102150405"))
	}
	if err := os.Rename(s.SummaryPath(), filepath.Join(s.opts.Dir, name)); err != nil {
		return "", fmt.Errorf("archive summary: %w", err)
	}
	slog.Info("[AggregationStore] Archived master summary", "month", month, "file", name)
	return name, nil
}
