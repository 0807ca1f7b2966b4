package aggregation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aevon-lab/stockpile/internal/core/inventory"
	"github.com/aevon-lab/stockpile/internal/core/storage"
)

var _ storage.CanonicalStore = (*memCanonical)(nil)

// memCanonical mirrors the sales_data semantics in memory.
type memCanonical struct {
	mu       sync.Mutex
	rows     []inventory.Record
	total    *inventory.Record
	bulkCall int
	mergeErr error
	purged   []time.Time
}

func (m *memCanonical) CountFacts(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.rows)), nil
}

func (m *memCanonical) MonthHasFacts(_ context.Context, month string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.Month == month {
			return true, nil
		}
	}
	return false, nil
}

func (m *memCanonical) BulkInsert(_ context.Context, records []inventory.Record, createdAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bulkCall++
	for _, r := range records {
		r.Date = createdAt
		m.rows = append(m.rows, r)
	}
	return int64(len(records)), nil
}

func (m *memCanonical) MergeMonth(_ context.Context, month string, records []inventory.Record, createdAt time.Time) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mergeErr != nil {
		return 0, 0, m.mergeErr
	}
	var inserted, updated int64
	for _, r := range records {
		found := false
		for i := range m.rows {
			if m.rows[i].Month == month && m.rows[i].RecordID() == r.RecordID() {
				m.rows[i].SalesQty += r.SalesQty
				m.rows[i].PurchaseQty += r.PurchaseQty
				m.rows[i].Date = createdAt
				m.rows[i].Week = r.Week
				m.rows[i].MRP = r.MRP
				found = true
				updated++
			}
		}
		if !found {
			r.Date = createdAt
			m.rows = append(m.rows, r)
			inserted++
		}
	}
	return inserted, updated, nil
}

func (m *memCanonical) RefreshGrandTotal(_ context.Context, at time.Time) (inventory.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := inventory.NewTotal(m.rows, at)
	m.total = &total
	return total, nil
}

func (m *memCanonical) GrandTotal(context.Context) (inventory.Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.total == nil {
		return inventory.Record{}, false, nil
	}
	return *m.total, true, nil
}

func (m *memCanonical) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purged = append(m.purged, cutoff)
	kept := m.rows[:0]
	var n int64
	for _, r := range m.rows {
		if r.Date.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.rows = kept
	return n, nil
}

func (m *memCanonical) LatestKeys(context.Context) (string, string, error) {
	return "", "", errors.New("not used")
}

func (m *memCanonical) FactsByMonths(context.Context, ...string) ([]inventory.Record, error) {
	return nil, errors.New("not used")
}

func (m *memCanonical) FactsByWeek(context.Context, string) ([]inventory.Record, error) {
	return nil, errors.New("not used")
}
