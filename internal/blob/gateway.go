package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	coreerrors "github.com/aevon-lab/stockpile/internal/core/errors"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultCopyTimeout  = 300 * time.Second

	// processedStampLayout is appended to processed copies: name_YYYYMMDDHHMMSS.ext
	processedStampLayout = "20060102150405"

	recentProcessedLimit = 5
)

var processedNamePattern = regexp.MustCompile(`^(.+)_(\d{14})(\.[^.]+)$`)

// Options configures a Gateway.
type Options struct {
	SourceContainer    string
	ProcessedContainer string
	PollInterval       time.Duration
	CopyTimeout        time.Duration
}

// Status is a read-only snapshot of both containers.
type Status struct {
	SourceContainer    string    `json:"source_container"`
	ProcessedContainer string    `json:"processed_container"`
	SourceCount        int       `json:"source_count"`
	Unprocessed        []string  `json:"unprocessed"`
	ProcessedCount     int       `json:"processed_count"`
	RecentProcessed    []string  `json:"recent_processed"`
	CheckedAt          time.Time `json:"checked_at"`
}

// Gateway discovers unprocessed spreadsheets in the source container and
// moves them to the processed container once ingested.
type Gateway struct {
	store ObjectStore
	opts  Options
	nowFn func() time.Time
	sleep func(time.Duration)
}

// NewGateway creates a Gateway over store.
func NewGateway(store ObjectStore, opts Options) *Gateway {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.CopyTimeout <= 0 {
		opts.CopyTimeout = defaultCopyTimeout
	}
	return &Gateway{
		store: store,
		opts:  opts,
		nowFn: func() time.Time { return time.Now().UTC() },
		sleep: time.Sleep,
	}
}

// EnsureContainers creates the source and processed containers if missing.
func (g *Gateway) EnsureContainers(ctx context.Context) error {
	for _, c := range []string{g.opts.SourceContainer, g.opts.ProcessedContainer} {
		if err := g.store.EnsureContainer(ctx, c); err != nil {
			return &coreerrors.TransferError{Op: "ensure", Container: c, Err: err}
		}
	}
	return nil
}

// IsSpreadsheet reports whether name has a supported spreadsheet extension.
func IsSpreadsheet(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".xlsx", ".xls":
		return true
	}
	return false
}

// OriginalName strips the trailing _YYYYMMDDHHMMSS stamp a processed copy
// carries. Names without the stamp are returned unchanged.
func OriginalName(processed string) string {
	m := processedNamePattern.FindStringSubmatch(processed)
	if m == nil {
		return processed
	}
	return m[1] + m[3]
}

// ProcessedName returns the destination name for name moved at at.
func ProcessedName(name string, at time.Time) string {
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext) + "_" + at.Format(processedStampLayout) + ext
}

// ListUnprocessed returns spreadsheets in the source container that have no
// counterpart in the processed container, oldest first.
func (g *Gateway) ListUnprocessed(ctx context.Context) ([]Object, error) {
	source, err := g.spreadsheets(ctx, g.opts.SourceContainer, true)
	if err != nil {
		return nil, err
	}
	processed, err := g.spreadsheets(ctx, g.opts.ProcessedContainer, false)
	if err != nil {
		return nil, err
	}

	out := unprocessed(source, processed)
	slog.Debug("[BlobGateway] Listed unprocessed",
		"source", g.opts.SourceContainer,
		"count", len(out))
	return out, nil
}

// spreadsheets lists the spreadsheet objects of container. A missing
// container is an error only when required is set.
func (g *Gateway) spreadsheets(ctx context.Context, container string, required bool) ([]Object, error) {
	objects, err := g.store.List(ctx, container)
	if err != nil {
		if !required && errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, &coreerrors.TransferError{Op: "list", Container: container, Err: err}
	}

	var out []Object
	for _, obj := range objects {
		if IsSpreadsheet(obj.Name) {
			out = append(out, obj)
		}
	}
	return out, nil
}

// unprocessed drops every source object whose processed copy exists, matched
// through the copy's original name, and orders the rest oldest first.
func unprocessed(source, processed []Object) []Object {
	done := make(map[string]struct{}, len(processed)*2)
	for _, obj := range processed {
		done[obj.Name] = struct{}{}
		done[OriginalName(obj.Name)] = struct{}{}
	}

	var out []Object
	for _, obj := range source {
		if _, ok := done[obj.Name]; !ok {
			out = append(out, obj)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].LastModified.Equal(out[j].LastModified) {
			return out[i].LastModified.Before(out[j].LastModified)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Download writes the source object to destDir and returns the local path.
// A partial file is removed on failure.
func (g *Gateway) Download(ctx context.Context, name, destDir string) (string, error) {
	transferErr := func(err error) error {
		return &coreerrors.TransferError{Op: "download", Container: g.opts.SourceContainer, Name: name, Err: err}
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", transferErr(err)
	}

	body, err := g.store.Get(ctx, g.opts.SourceContainer, name)
	if err != nil {
		return "", transferErr(err)
	}
	defer body.Close()

	local := filepath.Join(destDir, path.Base(name))
	f, err := os.Create(local)
	if err != nil {
		return "", transferErr(err)
	}

	n, err := io.Copy(f, body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(local) //nolint:errcheck
		return "", transferErr(err)
	}

	slog.Info("[BlobGateway] Downloaded", "name", name, "bytes", n, "path", local)
	return local, nil
}

// MoveToProcessed copies name into the processed container under a
// timestamped name, waits for the copy to succeed and then deletes the
// source. A source that is already gone counts as moved, so the call is safe
// to repeat. On copy failure or timeout the source is left in place.
func (g *Gateway) MoveToProcessed(ctx context.Context, name string) (bool, error) {
	src, dst := g.opts.SourceContainer, g.opts.ProcessedContainer

	exists, err := g.store.Exists(ctx, src, name)
	if err != nil {
		return false, &coreerrors.TransferError{Op: "stat", Container: src, Name: name, Err: err}
	}
	if !exists {
		slog.Info("[BlobGateway] Source already moved", "name", name)
		return true, nil
	}

	target := ProcessedName(name, g.nowFn())
	copyID, err := g.store.StartCopy(ctx, src, name, dst, target)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			slog.Info("[BlobGateway] Source vanished before copy", "name", name)
			return true, nil
		}
		return false, &coreerrors.TransferError{Op: "copy", Container: dst, Name: target, Err: err}
	}

	if err := g.awaitCopy(ctx, name, target); err != nil {
		g.discardCopy(ctx, target, copyID)
		return false, err
	}

	if err := g.store.Delete(ctx, src, name); err != nil && !errors.Is(err, ErrNotFound) {
		// The copy is durable, so listings skip this source from now on.
		// Nothing retries the delete; the stale source stays until removed
		// by hand.
		slog.Error("[BlobGateway] Copied but could not delete source",
			"name", name,
			"processed_name", target,
			"error", err)
		return false, &coreerrors.TransferError{Op: "delete", Container: src, Name: name, Err: err}
	}

	slog.Info("[BlobGateway] Moved to processed",
		"name", name,
		"processed_name", target)
	return true, nil
}

// awaitCopy polls the destination until the copy succeeds, fails or the
// timeout elapses. The first status check happens immediately.
func (g *Gateway) awaitCopy(ctx context.Context, name, target string) error {
	var waited time.Duration
	for {
		status, err := g.store.CopyStatus(ctx, g.opts.ProcessedContainer, target)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return &coreerrors.TransferError{Op: "copy status", Container: g.opts.ProcessedContainer, Name: target, Err: err}
		}

		switch status {
		case CopySuccess:
			return nil
		case CopyFailed, CopyAborted:
			return &coreerrors.TransferError{
				Op:        "copy",
				Container: g.opts.ProcessedContainer,
				Name:      target,
				Err:       fmt.Errorf("copy ended with status %s", status),
			}
		}

		if waited >= g.opts.CopyTimeout {
			return &coreerrors.CopyTimeoutError{Name: name, Waited: waited}
		}
		g.sleep(g.opts.PollInterval)
		waited += g.opts.PollInterval
	}
}

// discardCopy aborts a copy that did not succeed and deletes its
// destination. A leftover destination would hide the source from listings,
// so failures are logged at error level.
func (g *Gateway) discardCopy(ctx context.Context, target, copyID string) {
	if err := g.store.AbortCopy(ctx, g.opts.ProcessedContainer, target, copyID); err != nil {
		slog.Warn("[BlobGateway] Failed to abort copy",
			"processed_name", target,
			"copy_id", copyID,
			"error", err)
	}
	if err := g.store.Delete(ctx, g.opts.ProcessedContainer, target); err != nil && !errors.Is(err, ErrNotFound) {
		slog.Error("[BlobGateway] Failed to discard incomplete copy",
			"processed_name", target,
			"error", err)
	}
}

// Status reports spreadsheet counts for both containers, the unprocessed
// backlog and the most recently processed files.
func (g *Gateway) Status(ctx context.Context) (Status, error) {
	source, err := g.spreadsheets(ctx, g.opts.SourceContainer, true)
	if err != nil {
		return Status{}, err
	}
	processed, err := g.spreadsheets(ctx, g.opts.ProcessedContainer, false)
	if err != nil {
		return Status{}, err
	}
	pending := unprocessed(source, processed)

	sort.SliceStable(processed, func(i, j int) bool {
		return processed[i].LastModified.After(processed[j].LastModified)
	})

	st := Status{
		SourceContainer:    g.opts.SourceContainer,
		ProcessedContainer: g.opts.ProcessedContainer,
		SourceCount:        len(source),
		Unprocessed:        make([]string, 0, len(pending)),
		ProcessedCount:     len(processed),
		RecentProcessed:    []string{},
		CheckedAt:          g.nowFn(),
	}
	for _, obj := range pending {
		st.Unprocessed = append(st.Unprocessed, obj.Name)
	}
	for i := 0; i < len(processed) && i < recentProcessedLimit; i++ {
		st.RecentProcessed = append(st.RecentProcessed, processed[i].Name)
	}
	return st, nil
}
