package projection

import (
	"context"
	"sync"

	"github.com/aevon-lab/stockpile/internal/core/inventory"
	"github.com/aevon-lab/stockpile/internal/core/storage"
)

var _ storage.FactReader = (*memReader)(nil)

// memReader answers FactReader queries over a fixed slice, in slice order.
type memReader struct {
	mu    sync.Mutex
	facts []inventory.Record
	total *inventory.Record
	err   error
}

func (m *memReader) LatestKeys(context.Context) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", "", m.err
	}
	var month, week string
	for _, r := range m.facts {
		if r.Month > month {
			month = r.Month
		}
		if r.Week > week {
			week = r.Week
		}
	}
	return month, week, nil
}

func (m *memReader) FactsByMonths(_ context.Context, months ...string) ([]inventory.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[string]bool{}
	for _, mo := range months {
		want[mo] = true
	}
	var out []inventory.Record
	for _, r := range m.facts {
		if want[r.Month] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memReader) FactsByWeek(_ context.Context, week string) ([]inventory.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []inventory.Record
	for _, r := range m.facts {
		if r.Week == week {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memReader) GrandTotal(context.Context) (inventory.Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.total == nil {
		return inventory.Record{}, false, nil
	}
	return *m.total, true, nil
}
