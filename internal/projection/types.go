package projection

import (
	"errors"
	"fmt"
	"time"

	"github.com/aevon-lab/stockpile/internal/core/inventory"
)

// Period names one rollup snapshot.
type Period string

const (
	PeriodMonth   Period = "month"
	PeriodWeek    Period = "week"
	PeriodQuarter Period = "quarter"
)

// Periods lists every snapshot kept in the cache.
var Periods = []Period{PeriodMonth, PeriodWeek, PeriodQuarter}

var (
	// ErrInvalidPeriod marks an unknown period name.
	ErrInvalidPeriod = errors.New("invalid rollup period")

	// ErrSnapshotUnavailable is returned before the first successful refresh.
	ErrSnapshotUnavailable = errors.New("rollup snapshot not available")
)

// ParsePeriod validates a period name.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case PeriodMonth, PeriodWeek, PeriodQuarter:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
}

func (p Period) table() string {
	return "latest_" + string(p)
}

// Snapshot is the full content of one cache table. Rows[0] is the total row
// whenever Rows is non-empty.
type Snapshot struct {
	Period      Period
	Key         string
	Rows        []inventory.Record
	RefreshedAt time.Time
}

// Total returns the snapshot total row.
func (s Snapshot) Total() (inventory.Record, bool) {
	if len(s.Rows) == 0 || !s.Rows[0].IsTotal() {
		return inventory.Record{}, false
	}
	return s.Rows[0], true
}

// Facts returns the rows after the total.
func (s Snapshot) Facts() []inventory.Record {
	return inventory.WithoutTotals(s.Rows)
}

// RefreshResult reports one cache refresh.
type RefreshResult struct {
	Month       string `json:"month"`
	Week        string `json:"week"`
	Quarter     string `json:"quarter"`
	MonthRows   int    `json:"month_rows"`
	WeekRows    int    `json:"week_rows"`
	QuarterRows int    `json:"quarter_rows"`
	Skipped     bool   `json:"skipped"`
}
