package v1

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// ProcessFileRequest names one source file for manual processing.
type ProcessFileRequest struct {
	Name string `uri:"name" binding:"required"`
}

// Validate rejects names that could escape the source container or are not spreadsheets.
func (r *ProcessFileRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if strings.Contains(r.Name, "..") || strings.HasPrefix(r.Name, "/") {
		return fmt.Errorf("invalid file name %q", r.Name)
	}
	switch strings.ToLower(path.Ext(r.Name)) {
	case ".xlsx", ".xls":
		return nil
	}
	return fmt.Errorf("unsupported file type %q: expected .xlsx or .xls", path.Ext(r.Name))
}

// FileOutcome is the per-file result reported by scans and manual runs.
type FileOutcome struct {
	Name        string    `json:"name"`
	State       string    `json:"state"`
	Artifact    string    `json:"artifact,omitempty"`
	Rows        int       `json:"rows"`
	Moved       bool      `json:"moved"`
	Warnings    []string  `json:"warnings,omitempty"`
	Error       string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// ScanResponse is the body of POST /v1/ingest/scan.
type ScanResponse struct {
	Found     int           `json:"found"`
	Processed int           `json:"processed"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Shared    bool          `json:"shared"`
	Files     []FileOutcome `json:"files"`
}

// FileStatus describes one tracked file in the scheduler.
type FileStatus struct {
	Name      string    `json:"name"`
	State     string    `json:"state"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IngestStatusResponse is the body of GET /v1/ingest/status.
type IngestStatusResponse struct {
	Mode               string       `json:"mode"`
	Running            bool         `json:"running"`
	LastScan           *time.Time   `json:"last_scan,omitempty"`
	NextRun            *time.Time   `json:"next_run,omitempty"`
	InFlight           []string     `json:"in_flight"`
	Files              []FileStatus `json:"files"`
	SourceContainer    string       `json:"source_container"`
	ProcessedContainer string       `json:"processed_container"`
	SourceCount        int          `json:"source_count"`
	Unprocessed        []string     `json:"unprocessed"`
	ProcessedCount     int          `json:"processed_count"`
	RecentProcessed    []string     `json:"recent_processed"`
	BlobError          string       `json:"blob_error,omitempty"`
}

// ArtifactSummary is one entry of GET /v1/artifacts.
type ArtifactSummary struct {
	FileName       string    `json:"file_name"`
	ID             string    `json:"id"`
	Date           time.Time `json:"date"`
	Rows           int       `json:"rows"`
	TotalSales     int64     `json:"total_sales"`
	TotalPurchases int64     `json:"total_purchases"`
	Source         string    `json:"source,omitempty"`
}

// ArtifactListResponse is the body of GET /v1/artifacts.
type ArtifactListResponse struct {
	Artifacts []ArtifactSummary `json:"artifacts"`
}

// ArtifactResponse is the body of GET /v1/artifacts/:name.
type ArtifactResponse struct {
	ArtifactSummary
	UniqueBrands     []string `json:"unique_brands"`
	UniqueCategories []string `json:"unique_categories"`
	Total            *Record  `json:"total,omitempty"`
	Preview          []Record `json:"preview"`
}
