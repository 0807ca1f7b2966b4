package aggregation

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aevon-lab/stockpile/internal/artifact"
	"github.com/aevon-lab/stockpile/internal/core/inventory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateSummary_CreatesWorkbookWithTotalFirst(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	store := newTestStore(t, &memCanonical{}, now)

	result, err := store.UpdateSummary(makeRecords(3, now, 2, 1), now)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Rows)
	assert.Empty(t, result.ArchivedTo)

	rows, err := artifact.ReadWorkbook(store.SummaryPath())
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.True(t, rows[0].IsTotal())
	assert.Equal(t, int64(6), rows[0].SalesQty)
	assert.Equal(t, int64(3), rows[0].PurchaseQty)
}

func TestUpdateSummary_MergesWithinMonthKeepingLatestDate(t *testing.T) {
	first := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)
	second := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	store := newTestStore(t, &memCanonical{}, second)

	_, err := store.UpdateSummary(makeRecords(2, first, 1, 1), first)
	require.NoError(t, err)

	other := makeRecords(3, second, 4, 0)[2:] // brand-002, new identity
	again := makeRecords(1, second, 4, 0)     // brand-000, same identity
	_, err = store.UpdateSummary(append(other, again...), second)
	require.NoError(t, err)

	rows, err := artifact.ReadWorkbook(store.SummaryPath())
	require.NoError(t, err)
	require.Len(t, rows, 4)

	require.True(t, rows[0].IsTotal())
	assert.Equal(t, int64(10), rows[0].SalesQty)

	byBrand := map[string]inventory.Record{}
	for _, r := range rows[1:] {
		byBrand[r.Brand] = r
	}
	assert.Equal(t, int64(5), byBrand["brand-000"].SalesQty)
	assert.Equal(t, second, byBrand["brand-000"].Date)
	assert.Equal(t, first, byBrand["brand-001"].Date)

	// Newest first after the total row.
	assert.Equal(t, "brand-001", rows[3].Brand)
}

func TestUpdateSummary_ArchivesWhenMonthRollsOver(t *testing.T) {
	may := time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)
	june := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	store := newTestStore(t, &memCanonical{}, june)

	_, err := store.UpdateSummary(makeRecords(2, may, 1, 1), may)
	require.NoError(t, err)

	result, err := store.UpdateSummary(makeRecords(1, june, 7, 7)[0:1], june)
	require.NoError(t, err)
	assert.Equal(t, "master_summary_2025-05.xlsx", result.ArchivedTo)

	archived, err := artifact.ReadWorkbook(filepath.Join(store.opts.Dir, "master_summary_2025-05.xlsx"))
	require.NoError(t, err)
	require.Len(t, archived, 3)

	rows, err := artifact.ReadWorkbook(store.SummaryPath())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(7), rows[0].SalesQty)
	assert.Equal(t, "2025-06", rows[1].Month)
}

func TestUpdateSummary_DropsRecordsOutsideWindow(t *testing.T) {
	now := time.Date(2025, 6, 30, 9, 0, 0, 0, time.UTC)
	store := newTestStore(t, &memCanonical{}, now)

	stale := makeRecords(1, time.Date(2025, 5, 25, 9, 0, 0, 0, time.UTC), 1, 1)
	result, err := store.UpdateSummary(append(stale, makeRecords(2, now, 1, 1)[1:]...), now)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Dropped)
	assert.Equal(t, 1, result.Rows)
}

func TestUpdateSummary_ArchiveNameCollision(t *testing.T) {
	may := time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)
	june := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	store := newTestStore(t, &memCanonical{}, june)

	require.NoError(t, os.WriteFile(filepath.Join(store.opts.Dir, ArchiveName("2025-05")), []byte("old"), 0o644))
	_, err := store.UpdateSummary(makeRecords(1, may, 1, 1), may)
	require.NoError(t, err)

	result, err := store.UpdateSummary(makeRecords(1, june, 1, 1), june)
	require.NoError(t, err)
	assert.Equal(t, "master_summary_2025-05_20250602090000.xlsx", result.ArchivedTo)

	body, err := os.ReadFile(filepath.Join(store.opts.Dir, ArchiveName("2025-05")))
	require.NoError(t, err)
	assert.Equal(t, "old", string(body))
}
