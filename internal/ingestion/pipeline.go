package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aevon-lab/stockpile/internal/aggregation"
	"github.com/aevon-lab/stockpile/internal/artifact"
	coreerrors "github.com/aevon-lab/stockpile/internal/core/errors"
	"github.com/aevon-lab/stockpile/internal/core/inventory"
	"github.com/aevon-lab/stockpile/internal/projection"
)

// Source fetches input files and retires them once ingested.
type Source interface {
	Download(ctx context.Context, name, destDir string) (string, error)
	MoveToProcessed(ctx context.Context, name string) (bool, error)
}

// ArtifactStore persists cleaned batches and applies retention.
type ArtifactStore interface {
	Save(records []inventory.Record, at time.Time, source string) (artifact.Meta, error)
	Enforce() (artifact.RetentionResult, error)
	List() ([]artifact.Meta, error)
	Load(name string) (artifact.Meta, []inventory.Record, error)
}

// Aggregator folds a cleaned batch into the master summary and the canonical store.
type Aggregator interface {
	UpdateSummary(batch []inventory.Record, now time.Time) (aggregation.SummaryResult, error)
	ApplyCanonical(ctx context.Context, batch []inventory.Record, createdAt time.Time) (aggregation.MergeResult, error)
}

// RollupRefresher rebuilds the rollup snapshots after a canonical write.
type RollupRefresher interface {
	Refresh(ctx context.Context) (projection.RefreshResult, error)
}

// Options tunes the pipeline.
type Options struct {
	HeaderRows int
	WorkDir    string
}

// Result describes one processed file.
type Result struct {
	FileName       string                    `json:"file_name"`
	Artifact       artifact.Meta             `json:"artifact"`
	Stats          CleanStats                `json:"stats"`
	UniqueRecords  int                       `json:"unique_records"`
	Merged         int                       `json:"merged"`
	TotalSales     int64                     `json:"total_sales"`
	TotalPurchases int64                     `json:"total_purchases"`
	Summary        aggregation.SummaryResult `json:"summary"`
	Retention      artifact.RetentionResult  `json:"retention"`
	Canonical      aggregation.MergeResult   `json:"canonical"`
	Rollup         projection.RefreshResult  `json:"rollup"`
	Moved          bool                      `json:"moved"`
	Warnings       []string                  `json:"warnings,omitempty"`
}

func (r *Result) warn(msg string, err error) {
	r.Warnings = append(r.Warnings, fmt.Sprintf("%s: %v", msg, err))
}

// Pipeline turns one input workbook into an artifact, a master summary
// update, a canonical merge and a rollup refresh.
type Pipeline struct {
	source    Source
	artifacts ArtifactStore
	agg       Aggregator
	rollups   RollupRefresher
	opts      Options
	nowFn     func() time.Time
}

// NewPipeline creates a Pipeline. rollups may be nil when no cache is configured.
func NewPipeline(source Source, artifacts ArtifactStore, agg Aggregator, rollups RollupRefresher, opts Options) *Pipeline {
	if artifacts == nil {
		panic("ingestion: artifact store must not be nil")
	}
	if agg == nil {
		panic("ingestion: aggregator must not be nil")
	}
	if opts.HeaderRows < 0 {
		opts.HeaderRows = DefaultHeaderRows
	}
	if opts.WorkDir == "" {
		opts.WorkDir = os.TempDir()
	}
	return &Pipeline{
		source:    source,
		artifacts: artifacts,
		agg:       agg,
		rollups:   rollups,
		opts:      opts,
		nowFn:     func() time.Time { return time.Now().UTC() },
	}
}

// ProcessRemote downloads name from the source, processes it and moves it
// to the processed area. The file stays in the source on any error so the
// next scan retries it.
func (p *Pipeline) ProcessRemote(ctx context.Context, name string) (Result, error) {
	if p.source == nil {
		return Result{FileName: name}, fmt.Errorf("process %s: no source configured", name)
	}
	at := p.nowFn()

	if err := os.MkdirAll(p.opts.WorkDir, 0o755); err != nil {
		return Result{FileName: name}, &coreerrors.PersistenceError{Op: "create work dir", Err: err}
	}
	tmp, err := os.MkdirTemp(p.opts.WorkDir, "ingest-*")
	if err != nil {
		return Result{FileName: name}, &coreerrors.PersistenceError{Op: "create work dir", Err: err}
	}
	defer os.RemoveAll(tmp) //nolint:errcheck

	local, err := p.source.Download(ctx, name, tmp)
	if err != nil {
		slog.Error("[Pipeline] Download failed", "file", name, "error", err)
		return Result{FileName: name}, err
	}

	result, err := p.Process(ctx, local, name, at)
	if err != nil {
		return result, err
	}

	moved, err := p.source.MoveToProcessed(ctx, name)
	result.Moved = moved
	if err != nil {
		slog.Error("[Pipeline] Failed to move file to processed", "file", name, "error", err)
		return result, err
	}

	slog.Info("[Pipeline] File processed",
		"file", name,
		"artifact", result.Artifact.FileName,
		"records", result.UniqueRecords,
		"warnings", len(result.Warnings))
	return result, nil
}

// Process runs the pipeline over a local workbook using at as the
// effective date of every record.
//
// Parse and validation failures return before anything is written. A failed
// artifact save returns before the canonical store is touched. Master summary,
// rollup and retention failures are reported as warnings. A canonical store
// failure is returned after the artifact has been kept.
func (p *Pipeline) Process(ctx context.Context, localPath, source string, at time.Time) (Result, error) {
	result := Result{FileName: source}

	rows, err := ParseWorkbook(localPath, p.opts.HeaderRows)
	if err != nil {
		slog.Warn("[Pipeline] Rejected input file", "file", source, "error", err)
		return result, err
	}
	if len(rows) == 0 {
		err := &coreerrors.ValidationError{File: source, Reason: "no data rows"}
		slog.Warn("[Pipeline] Rejected input file", "file", source, "error", err)
		return result, err
	}

	records, stats := Clean(rows, at)
	result.Stats = stats
	slog.Info("[Pipeline] Cleaned rows",
		"file", source,
		"rows", stats.Rows,
		"raw_sales", stats.RawSales,
		"raw_purchases", stats.RawPurchases,
		"non_zero_sales", stats.NonZeroSales,
		"non_zero_purchases", stats.NonZeroPurchases,
		"clean_sales", stats.CleanSales,
		"clean_purchases", stats.CleanPurchases,
		"non_numeric", stats.NonNumeric,
		"negative", stats.Negative)

	grouped, merged := inventory.GroupByRecordID(records, inventory.KeepFirstDate)
	result.UniqueRecords = len(grouped)
	result.Merged = merged
	result.TotalSales, result.TotalPurchases = inventory.Totals(grouped)
	if merged > 0 {
		slog.Info("[Pipeline] Collapsed duplicate records", "file", source, "merged", merged, "unique", len(grouped))
	}

	meta, err := p.artifacts.Save(inventory.WithTotal(grouped, at), at, source)
	if err != nil {
		slog.Error("[Pipeline] Failed to save artifact", "file", source, "error", err)
		return result, &coreerrors.PersistenceError{Op: "save artifact", Err: err}
	}
	result.Artifact = meta

	if summary, err := p.agg.UpdateSummary(grouped, at); err != nil {
		slog.Warn("[Pipeline] Master summary update failed", "file", source, "error", err)
		result.warn("master summary", err)
	} else {
		result.Summary = summary
	}

	if retention, err := p.artifacts.Enforce(); err != nil {
		slog.Warn("[Pipeline] Retention failed", "file", source, "error", err)
		result.warn("retention", err)
	} else {
		result.Retention = retention
	}

	merge, err := p.agg.ApplyCanonical(ctx, grouped, at)
	if err != nil {
		slog.Error("[Pipeline] Canonical update failed, artifact kept",
			"file", source,
			"artifact", meta.FileName,
			"error", err)
		return result, err
	}
	result.Canonical = merge

	if p.rollups != nil {
		rollup, err := p.rollups.Refresh(ctx)
		if err != nil {
			slog.Warn("[Pipeline] Rollup refresh failed", "file", source, "error", err)
			result.warn("rollup refresh", err)
		} else {
			result.Rollup = rollup
		}
	}

	return result, nil
}
