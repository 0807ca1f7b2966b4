package artifact

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aevon-lab/stockpile/internal/core/inventory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func batch(at time.Time) []inventory.Record {
	a := inventory.Record{Brand: "acme", Category: "shirt", Size: "m", Color: "red", MRP: decimal.RequireFromString("499.5"), SalesQty: 3, PurchaseQty: 5}
	b := inventory.Record{Brand: "zen", Category: "jeans", Size: "32", Color: "unknown", MRP: decimal.Zero, SalesQty: 0, PurchaseQty: 2}
	a.Stamp(at)
	b.Stamp(at)
	return inventory.WithTotal([]inventory.Record{a, b}, at)
}

func TestWorkbookRoundTrip(t *testing.T) {
	at := time.Date(2025, 6, 2, 10, 15, 30, 0, time.UTC)
	path := filepath.Join(t.TempDir(), "out.xlsx")
	records := batch(at)

	require.NoError(t, WriteWorkbook(path, records))

	got, err := ReadWorkbook(path)
	require.NoError(t, err)
	require.Len(t, got, 3)

	require.True(t, got[0].IsTotal())
	require.Equal(t, int64(3), got[0].SalesQty)
	require.Equal(t, int64(7), got[0].PurchaseQty)
	require.Equal(t, records[1].RecordID(), got[1].RecordID())
	require.True(t, records[1].MRP.Equal(got[1].MRP))
	require.Equal(t, at, got[1].Date)
	require.Equal(t, "2025-22", got[2].Week)
}

func TestFileName(t *testing.T) {
	at := time.Date(2025, 6, 2, 10, 15, 30, 0, time.UTC)
	require.Equal(t, "salesninventory_250602_101530.xlsx", FileName(at, 1))
	require.Equal(t, "salesninventory_250602_101530_2.xlsx", FileName(at, 2))

	parsed, seq, ok := ParseFileName("salesninventory_250602_101530_2.xlsx")
	require.True(t, ok)
	require.Equal(t, 2, seq)
	require.Equal(t, at, parsed)

	_, _, ok = ParseFileName("salesninventory_final.xlsx")
	require.False(t, ok)
}

func TestStore_SaveTracksManifest(t *testing.T) {
	store, err := NewStore(t.TempDir(), 7)
	require.NoError(t, err)
	at := time.Date(2025, 6, 2, 10, 15, 30, 0, time.UTC)

	first, err := store.Save(batch(at), at, "june.xlsx")
	require.NoError(t, err)
	second, err := store.Save(batch(at), at, "june-again.xlsx")
	require.NoError(t, err)

	assert.Equal(t, "salesninventory_250602_101530.xlsx", first.FileName)
	assert.Equal(t, "salesninventory_250602_101530_2.xlsx", second.FileName)
	assert.Equal(t, 2, second.Seq)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, int64(3), first.TotalSales)

	list, err := store.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.FileName, list[0].FileName)

	meta, records, err := store.Load(first.FileName)
	require.NoError(t, err)
	assert.Equal(t, "june.xlsx", meta.Source)
	assert.Len(t, records, 3)

	_, _, err = store.Load("salesninventory_990101_000000.xlsx")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_EnforceKeepsSevenMostRecent(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, 7)
	require.NoError(t, err)

	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	var names []string
	// Saved out of chronological order; retention must go by encoded date.
	for _, day := range []int{5, 1, 9, 3, 7, 2, 8, 4, 6} {
		at := base.AddDate(0, 0, day-1)
		meta, err := store.Save(batch(at), at, "")
		require.NoError(t, err)
		names = append(names, meta.FileName)
	}

	result, err := store.Enforce()
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		FileName(base, 1),
		FileName(base.AddDate(0, 0, 1), 1),
	}, result.Deleted)
	assert.Len(t, result.Kept, 7)

	for d := 1; d <= 9; d++ {
		_, statErr := os.Stat(filepath.Join(dir, FileName(base.AddDate(0, 0, d-1), 1)))
		if d <= 2 {
			assert.True(t, os.IsNotExist(statErr), "day %d should be deleted", d)
		} else {
			assert.NoError(t, statErr, "day %d should be kept", d)
		}
	}

	list, err := store.List()
	require.NoError(t, err)
	require.Len(t, list, 7)
}

func TestStore_EnforceAdoptsLegacyAndSkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, 2)
	require.NoError(t, err)

	for _, name := range []string{
		"salesninventory_240101_000000.xlsx",
		"salesninventory_240102_000000.xlsx",
		"salesninventory_final.xlsx",
		"master_summary.xlsx",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = store.Save(batch(at), at, "")
	require.NoError(t, err)

	result, err := store.Enforce()
	require.NoError(t, err)

	assert.Equal(t, []string{"salesninventory_240101_000000.xlsx"}, result.Deleted)
	assert.Equal(t, []string{"salesninventory_final.xlsx"}, result.Skipped)
	assert.Equal(t, []string{"salesninventory_240102_000000.xlsx", "salesninventory_250101_000000.xlsx"}, result.Kept)

	_, err = os.Stat(filepath.Join(dir, "master_summary.xlsx"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "salesninventory_final.xlsx"))
	require.NoError(t, err)
}
