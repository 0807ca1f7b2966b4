package ingestion

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aevon-lab/stockpile/internal/aggregation"
	"github.com/aevon-lab/stockpile/internal/core/inventory"
	"github.com/aevon-lab/stockpile/internal/projection"
	"github.com/stretchr/testify/mock"
)

// mockSource is a testify mock of Source. Download copies the fixture
// registered for the name into destDir.
type mockSource struct {
	mock.Mock
	fixtures map[string]string
}

func (m *mockSource) Download(ctx context.Context, name, destDir string) (string, error) {
	args := m.Called(ctx, name, destDir)
	if err := args.Error(0); err != nil {
		return "", err
	}

	src, err := os.Open(m.fixtures[name])
	if err != nil {
		return "", err
	}
	defer src.Close()

	local := filepath.Join(destDir, name)
	dst, err := os.Create(local)
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return local, nil
}

func (m *mockSource) MoveToProcessed(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

// fakeAggregator records the batches it receives.
type fakeAggregator struct {
	mu           sync.Mutex
	summaryBatch []inventory.Record
	canonBatch   []inventory.Record
	canonCalls   int
	summaryErr   error
	canonErr     error
}

func (f *fakeAggregator) UpdateSummary(batch []inventory.Record, _ time.Time) (aggregation.SummaryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.summaryErr != nil {
		return aggregation.SummaryResult{}, f.summaryErr
	}
	f.summaryBatch = append([]inventory.Record(nil), batch...)
	sales, purchases := inventory.Totals(batch)
	return aggregation.SummaryResult{Rows: len(batch) + 1, TotalSales: sales, TotalPurchases: purchases}, nil
}

func (f *fakeAggregator) ApplyCanonical(_ context.Context, batch []inventory.Record, _ time.Time) (aggregation.MergeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.canonCalls++
	if f.canonErr != nil {
		return aggregation.MergeResult{}, f.canonErr
	}
	f.canonBatch = append([]inventory.Record(nil), batch...)
	return aggregation.MergeResult{Inserted: int64(len(inventory.WithoutTotals(batch)))}, nil
}

type fakeRollups struct {
	calls int
	err   error
}

func (f *fakeRollups) Refresh(context.Context) (projection.RefreshResult, error) {
	f.calls++
	if f.err != nil {
		return projection.RefreshResult{}, f.err
	}
	return projection.RefreshResult{Month: "2025-06", MonthRows: 1}, nil
}
