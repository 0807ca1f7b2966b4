package projection

import (
	"fmt"
	"time"

	"github.com/aevon-lab/stockpile/internal/core/inventory"
	"github.com/shopspring/decimal"
)

// QuarterKey formats the quarter containing month as "YYYY-Qn".
func QuarterKey(month string) (string, error) {
	t, err := inventory.ParseMonth(month)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d-Q%d", t.Year(), (int(t.Month())-1)/3+1), nil
}

func snapshotTotal(facts []inventory.Record, week, month string, createdAt time.Time) inventory.Record {
	sales, purchases := inventory.Totals(facts)
	return inventory.Record{
		Brand:       inventory.GrandTotalBrand,
		MRP:         decimal.Zero,
		SalesQty:    sales,
		PurchaseQty: purchases,
		Date:        createdAt,
		Week:        week,
		Month:       month,
	}
}

func prependTotal(total inventory.Record, facts []inventory.Record) []inventory.Record {
	rows := make([]inventory.Record, 0, len(facts)+1)
	rows = append(rows, total)
	return append(rows, facts...)
}

// buildMonth wraps the facts of the latest month. The total takes the first
// fact's week and the first day of the month as its date.
func buildMonth(month string, facts []inventory.Record) (Snapshot, error) {
	start, err := inventory.ParseMonth(month)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Period: PeriodMonth, Key: month}
	if len(facts) > 0 {
		snap.Rows = prependTotal(snapshotTotal(facts, facts[0].Week, month, start), facts)
	}
	return snap, nil
}

// buildWeek wraps the facts of the latest week. The total takes the first
// fact's month and date.
func buildWeek(week string, facts []inventory.Record) Snapshot {
	snap := Snapshot{Period: PeriodWeek, Key: week}
	if len(facts) > 0 {
		snap.Rows = prependTotal(snapshotTotal(facts, week, facts[0].Month, facts[0].Date), facts)
	}
	return snap
}

// buildQuarter wraps the facts of the quarter containing the latest month.
// The total takes the last fact's week, the latest month and the first day
// of that month.
func buildQuarter(latestMonth string, facts []inventory.Record) (Snapshot, error) {
	key, err := QuarterKey(latestMonth)
	if err != nil {
		return Snapshot{}, err
	}
	start, err := inventory.ParseMonth(latestMonth)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Period: PeriodQuarter, Key: key}
	if len(facts) > 0 {
		snap.Rows = prependTotal(snapshotTotal(facts, facts[len(facts)-1].Week, latestMonth, start), facts)
	}
	return snap, nil
}
