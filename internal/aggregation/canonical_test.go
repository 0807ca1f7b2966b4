package aggregation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	coreerrors "github.com/aevon-lab/stockpile/internal/core/errors"
	"github.com/aevon-lab/stockpile/internal/core/inventory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRecords(n int, at time.Time, sales, purchases int64) []inventory.Record {
	out := make([]inventory.Record, 0, n)
	for i := 0; i < n; i++ {
		r := inventory.Record{
			Brand:       fmt.Sprintf("brand-%03d", i),
			Category:    "shirt",
			Size:        "m",
			Color:       "red",
			MRP:         decimal.NewFromInt(100),
			SalesQty:    sales,
			PurchaseQty: purchases,
		}
		r.Stamp(at)
		out = append(out, r)
	}
	return out
}

func newTestStore(t *testing.T, canonical *memCanonical, now time.Time) *Store {
	t.Helper()
	s := NewStore(canonical, Options{Dir: t.TempDir()})
	s.nowFn = func() time.Time { return now }
	return s
}

func TestApplyCanonical_EmptyStoreBulkInserts(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	canonical := &memCanonical{}
	store := newTestStore(t, canonical, now)

	batch := inventory.WithTotal(makeRecords(100, now, 2, 3), now)
	result, err := store.ApplyCanonical(context.Background(), batch, now)
	require.NoError(t, err)

	assert.Equal(t, int64(100), result.Inserted)
	assert.Zero(t, result.Updated)
	assert.Equal(t, []string{"2025-06"}, result.BulkMonths)
	assert.Equal(t, 1, canonical.bulkCall)
	assert.Len(t, canonical.rows, 100)
	assert.Equal(t, int64(200), result.GrandTotal.SalesQty)
	assert.Equal(t, int64(300), result.GrandTotal.PurchaseQty)
}

func TestApplyCanonical_ExistingMonthMerges(t *testing.T) {
	now := time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC)
	canonical := &memCanonical{}
	existing := makeRecords(50, time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC), 1, 1)
	canonical.rows = append(canonical.rows, existing...)
	store := newTestStore(t, canonical, now)

	// 40 identities already stored, 10 new ones.
	batch := makeRecords(60, now, 5, 2)[10:]
	result, err := store.ApplyCanonical(context.Background(), batch, now)
	require.NoError(t, err)

	assert.Equal(t, int64(40), result.Updated)
	assert.Equal(t, int64(10), result.Inserted)
	assert.Empty(t, result.BulkMonths)
	assert.Len(t, canonical.rows, 60)

	byID := map[string]inventory.Record{}
	for _, r := range canonical.rows {
		byID[r.RecordID()] = r
	}
	assert.Equal(t, int64(6), byID["brand-010|shirt|m|red|2025-06"].SalesQty)
	assert.Equal(t, int64(1), byID["brand-000|shirt|m|red|2025-06"].SalesQty)
	assert.Equal(t, int64(5), byID["brand-055|shirt|m|red|2025-06"].SalesQty)

	// 50*1 + 50*5 sales; 50*1 + 50*2 purchases.
	assert.Equal(t, int64(300), result.GrandTotal.SalesQty)
	assert.Equal(t, int64(150), result.GrandTotal.PurchaseQty)
}

func TestApplyCanonical_NewMonthBulkInsertsEvenWhenStoreHasData(t *testing.T) {
	now := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	canonical := &memCanonical{rows: makeRecords(5, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), 1, 1)}
	store := newTestStore(t, canonical, now)

	result, err := store.ApplyCanonical(context.Background(), makeRecords(5, now, 1, 1), now)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-07"}, result.BulkMonths)
	assert.Len(t, canonical.rows, 10)
}

func TestApplyCanonical_FailureIsPersistenceError(t *testing.T) {
	now := time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC)
	canonical := &memCanonical{
		rows:     makeRecords(1, now, 1, 1),
		mergeErr: errors.New("connection reset"),
	}
	store := newTestStore(t, canonical, now)

	_, err := store.ApplyCanonical(context.Background(), makeRecords(1, now, 1, 1), now)
	var pe *coreerrors.PersistenceError
	require.True(t, errors.As(err, &pe))
	require.Equal(t, "merge month", pe.Op)
	require.Nil(t, canonical.total)
}

func TestApplyCanonical_PurgesAtMostDaily(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	ancient := makeRecords(3, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), 1, 1)
	for i := range ancient {
		ancient[i].Brand = fmt.Sprintf("old-%d", i)
	}
	canonical := &memCanonical{rows: ancient}
	store := newTestStore(t, canonical, now)

	result, err := store.ApplyCanonical(context.Background(), makeRecords(2, now, 1, 1), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Purged)
	require.Len(t, canonical.purged, 1)
	assert.Equal(t, time.Date(2022, 6, 2, 10, 0, 0, 0, time.UTC), canonical.purged[0])

	_, err = store.ApplyCanonical(context.Background(), makeRecords(2, now, 1, 1), now)
	require.NoError(t, err)
	assert.Len(t, canonical.purged, 1)
}

func TestApplyCanonical_TotalsOnlyBatchIsNoop(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	canonical := &memCanonical{}
	store := newTestStore(t, canonical, now)

	result, err := store.ApplyCanonical(context.Background(), []inventory.Record{inventory.NewTotal(nil, now)}, now)
	require.NoError(t, err)
	assert.Zero(t, result.Inserted)
	assert.Nil(t, canonical.total)
}
