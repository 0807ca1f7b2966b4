package inventory

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(brand, color string, sales, purchases int64, at time.Time) Record {
	r := Record{
		Brand:       brand,
		Category:    "shirt",
		Size:        "m",
		MRP:         decimal.RequireFromString("499.5"),
		Color:       color,
		SalesQty:    sales,
		PurchaseQty: purchases,
	}
	r.Stamp(at)
	return r
}

func TestRecordID(t *testing.T) {
	r := rec("acme", "red", 1, 2, time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))
	require.Equal(t, "acme|shirt|m|red|2025-06", r.RecordID())
}

func TestWeekKey(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{name: "before first monday", at: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), want: "2025-00"},
		{name: "first monday", at: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), want: "2025-01"},
		{name: "sunday stays in week", at: time.Date(2025, 1, 12, 23, 0, 0, 0, time.UTC), want: "2025-01"},
		{name: "mid year", at: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC), want: "2025-22"},
		{name: "year starting monday", at: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), want: "2024-01"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, WeekKey(tc.at))
		})
	}
}

func TestQuarterMonths(t *testing.T) {
	months, err := QuarterMonths("2025-05")
	require.NoError(t, err)
	require.Equal(t, []string{"2025-04", "2025-05", "2025-06"}, months)

	months, err = QuarterMonths("2024-12")
	require.NoError(t, err)
	require.Equal(t, []string{"2024-10", "2024-11", "2024-12"}, months)

	_, err = QuarterMonths("2024-13")
	require.Error(t, err)
}

func TestGroupByRecordID_SumsQuantitiesKeepsFirstScalars(t *testing.T) {
	day := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	first := rec("acme", "red", 3, 1, day)
	second := rec("acme", "red", 2, 4, day)
	second.MRP = decimal.NewFromInt(999)
	other := rec("acme", "blue", 1, 1, day)

	grouped, merged := GroupByRecordID([]Record{first, other, second}, KeepFirstDate)

	require.Equal(t, 1, merged)
	require.Len(t, grouped, 2)
	assert.Equal(t, "red", grouped[0].Color)
	assert.Equal(t, int64(5), grouped[0].SalesQty)
	assert.Equal(t, int64(5), grouped[0].PurchaseQty)
	assert.True(t, decimal.RequireFromString("499.5").Equal(grouped[0].MRP))
	assert.Equal(t, "blue", grouped[1].Color)
}

func TestGroupByRecordID_MaxDateAndTotalsDropped(t *testing.T) {
	early := rec("acme", "red", 1, 0, time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC))
	late := rec("acme", "red", 1, 0, time.Date(2025, 6, 20, 8, 0, 0, 0, time.UTC))
	total := NewTotal([]Record{early, late}, late.Date)

	grouped, _ := GroupByRecordID([]Record{total, early, late}, KeepMaxDate)
	require.Len(t, grouped, 1)
	require.Equal(t, late.Date, grouped[0].Date)
	require.Equal(t, int64(2), grouped[0].SalesQty)

	grouped, _ = GroupByRecordID([]Record{early, late}, KeepFirstDate)
	require.Equal(t, early.Date, grouped[0].Date)
}

func TestWithTotal(t *testing.T) {
	at := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	stale := Record{Brand: GrandTotalBrand, SalesQty: 1000}
	rows := WithTotal([]Record{stale, rec("a", "red", 5, 3, at), rec("b", "red", 7, 1, at)}, at)

	require.Len(t, rows, 3)
	require.True(t, rows[0].IsTotal())
	require.Equal(t, int64(12), rows[0].SalesQty)
	require.Equal(t, int64(4), rows[0].PurchaseQty)
	require.Equal(t, "2025-06", rows[0].Month)
	require.True(t, rows[0].MRP.IsZero())
}

func TestSortByDateDesc_Stable(t *testing.T) {
	d1 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)
	rows := []Record{rec("a", "x", 1, 0, d1), rec("b", "x", 1, 0, d2), rec("c", "x", 1, 0, d2)}
	SortByDateDesc(rows)
	require.Equal(t, []string{"b", "c", "a"}, []string{rows[0].Brand, rows[1].Brand, rows[2].Brand})
}
