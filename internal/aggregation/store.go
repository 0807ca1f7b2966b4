package aggregation

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/aevon-lab/stockpile/internal/core/inventory"
	"github.com/aevon-lab/stockpile/internal/core/storage"
)

const (
	// SummaryFile is the rolling workbook of recent records.
	SummaryFile = "master_summary.xlsx"

	defaultSummaryWindow  = 30 * 24 * time.Hour
	defaultRetentionYears = 3
	purgeEvery            = 24 * time.Hour
)

// Options configures a Store.
type Options struct {
	// Dir holds the summary workbook and its monthly archives.
	Dir            string
	SummaryWindow  time.Duration
	RetentionYears int
}

// Store maintains the two long-lived aggregates: the rolling master summary
// workbook and the canonical relational table. Writes are serialized.
type Store struct {
	canonical storage.CanonicalStore
	opts      Options
	nowFn     func() time.Time

	mu        sync.Mutex
	lastPurge time.Time
}

// NewStore creates a Store writing the summary under opts.Dir.
func NewStore(canonical storage.CanonicalStore, opts Options) *Store {
	if opts.SummaryWindow <= 0 {
		opts.SummaryWindow = defaultSummaryWindow
	}
	if opts.RetentionYears <= 0 {
		opts.RetentionYears = defaultRetentionYears
	}
	return &Store{
		canonical: canonical,
		opts:      opts,
		nowFn:     func() time.Time { return time.Now().UTC() },
	}
}

// SummaryPath returns the location of the live summary workbook.
func (s *Store) SummaryPath() string {
	return filepath.Join(s.opts.Dir, SummaryFile)
}

// GrandTotal returns the canonical grand-total row.
func (s *Store) GrandTotal(ctx context.Context) (inventory.Record, bool, error) {
	if s.canonical == nil {
		return inventory.Record{}, false, errors.New("canonical store not configured")
	}
	return s.canonical.GrandTotal(ctx)
}
