package projection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aevon-lab/stockpile/internal/core/inventory"
	"github.com/aevon-lab/stockpile/internal/core/storage"
)

// Service rebuilds the rollup cache from the canonical store and serves
// the cached snapshots.
type Service struct {
	reader storage.FactReader
	cache  *Cache
	nowFn  func() time.Time
}

// NewService creates a rollup Service.
func NewService(reader storage.FactReader, cache *Cache) *Service {
	return &Service{
		reader: reader,
		cache:  cache,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// Refresh recomputes the latest month, week and quarter snapshots and
// replaces the cache. An empty canonical store leaves the cache untouched.
func (s *Service) Refresh(ctx context.Context) (RefreshResult, error) {
	var result RefreshResult

	month, week, err := s.reader.LatestKeys(ctx)
	if err != nil {
		return result, fmt.Errorf("rollup refresh: latest keys: %w", err)
	}
	if month == "" {
		slog.Warn("[RollupCache] Canonical store is empty, skipping refresh")
		result.Skipped = true
		return result, nil
	}

	quarterMonths, err := inventory.QuarterMonths(month)
	if err != nil {
		return result, fmt.Errorf("rollup refresh: %w", err)
	}

	quarterFacts, err := s.reader.FactsByMonths(ctx, quarterMonths...)
	if err != nil {
		return result, fmt.Errorf("rollup refresh: quarter facts: %w", err)
	}
	weekFacts, err := s.reader.FactsByWeek(ctx, week)
	if err != nil {
		return result, fmt.Errorf("rollup refresh: week facts: %w", err)
	}

	monthFacts := make([]inventory.Record, 0, len(quarterFacts))
	for _, r := range quarterFacts {
		if r.Month == month {
			monthFacts = append(monthFacts, r)
		}
	}

	monthSnap, err := buildMonth(month, monthFacts)
	if err != nil {
		return result, fmt.Errorf("rollup refresh: %w", err)
	}
	quarterSnap, err := buildQuarter(month, quarterFacts)
	if err != nil {
		return result, fmt.Errorf("rollup refresh: %w", err)
	}
	weekSnap := buildWeek(week, weekFacts)

	if err := s.cache.Replace(ctx, []Snapshot{monthSnap, weekSnap, quarterSnap}, s.nowFn()); err != nil {
		return result, err
	}

	result = RefreshResult{
		Month:       month,
		Week:        week,
		Quarter:     quarterSnap.Key,
		MonthRows:   len(monthFacts),
		WeekRows:    len(weekFacts),
		QuarterRows: len(quarterFacts),
	}
	slog.Info("[RollupCache] Refreshed",
		"month", month,
		"week", week,
		"quarter", quarterSnap.Key,
		"month_rows", result.MonthRows,
		"week_rows", result.WeekRows,
		"quarter_rows", result.QuarterRows)
	return result, nil
}

// Snapshot returns the cached snapshot for period.
func (s *Service) Snapshot(ctx context.Context, period Period) (Snapshot, error) {
	return s.cache.Load(ctx, period)
}

// GrandTotal returns the canonical grand-total row.
func (s *Service) GrandTotal(ctx context.Context) (inventory.Record, bool, error) {
	return s.reader.GrandTotal(ctx)
}
