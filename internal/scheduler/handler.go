package scheduler

import (
	"context"
	"errors"
	"net/http"
	"time"

	v1 "github.com/aevon-lab/stockpile/internal/api/v1"
	"github.com/aevon-lab/stockpile/internal/blob"
	httperr "github.com/aevon-lab/stockpile/internal/core/errors"
	"github.com/gin-gonic/gin"
)

// BlobStatus reports the source and processed containers.
type BlobStatus interface {
	Status(ctx context.Context) (blob.Status, error)
}

// Handler serves the ingestion operations API.
type Handler struct {
	scheduler *Scheduler
	blob      BlobStatus
}

// NewHandler creates the operations handler. blob may be nil.
func NewHandler(s *Scheduler, b BlobStatus) *Handler {
	return &Handler{scheduler: s, blob: b}
}

// RegisterRoutes registers the ingestion operations routes.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/ingest/status", h.HandleStatus)
	r.POST("/v1/ingest/scan", h.HandleScan)
	r.POST("/v1/ingest/files/:name", h.HandleProcessFile)
}

// HandleStatus handles GET /v1/ingest/status
func (h *Handler) HandleStatus(c *gin.Context) {
	st := h.scheduler.Status()
	resp := v1.IngestStatusResponse{
		Mode:            string(st.Mode),
		Running:         st.Running,
		LastScan:        timePtr(st.LastScan),
		NextRun:         timePtr(st.NextRun),
		InFlight:        st.InFlight,
		Files:           make([]v1.FileStatus, 0, len(st.Files)),
		Unprocessed:     []string{},
		RecentProcessed: []string{},
	}
	for _, f := range st.Files {
		resp.Files = append(resp.Files, v1.FileStatus{
			Name:      f.Name,
			State:     string(f.State),
			Attempts:  f.Attempts,
			LastError: f.LastError,
			UpdatedAt: f.UpdatedAt,
		})
	}

	if h.blob != nil {
		bs, err := h.blob.Status(c.Request.Context())
		if err != nil {
			resp.BlobError = err.Error()
		} else {
			resp.SourceContainer = bs.SourceContainer
			resp.ProcessedContainer = bs.ProcessedContainer
			resp.SourceCount = bs.SourceCount
			resp.Unprocessed = bs.Unprocessed
			resp.ProcessedCount = bs.ProcessedCount
			resp.RecentProcessed = bs.RecentProcessed
		}
	}
	c.JSON(http.StatusOK, resp)
}

// HandleScan handles POST /v1/ingest/scan
// The scan runs synchronously; a request that arrives during a running scan
// waits for it and receives its report.
func (h *Handler) HandleScan(c *gin.Context) {
	report, shared, err := h.scheduler.Scan(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, httperr.ErrorResponse{
			ErrorType: httperr.HttpTransferError,
			Message:   "Failed to list source files",
			Details:   err.Error(),
		})
		return
	}

	resp := v1.ScanResponse{
		Found:     report.Found,
		Processed: report.Processed,
		Failed:    report.Failed,
		Skipped:   report.Skipped,
		Shared:    shared,
		Files:     make([]v1.FileOutcome, 0, len(report.Outcomes)),
	}
	for _, out := range report.Outcomes {
		resp.Files = append(resp.Files, toFileOutcome(out))
	}
	c.JSON(http.StatusOK, resp)
}

// HandleProcessFile handles POST /v1/ingest/files/:name
func (h *Handler) HandleProcessFile(c *gin.Context) {
	var req v1.ProcessFileRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequestError,
			Message:   "Invalid file name",
			Details:   err.Error(),
		})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequestError,
			Message:   err.Error(),
		})
		return
	}

	out, err := h.scheduler.ProcessFile(c.Request.Context(), req.Name)
	if err == nil {
		c.JSON(http.StatusOK, toFileOutcome(out))
		return
	}

	status, errorType := http.StatusInternalServerError, httperr.HttpInternalError
	switch {
	case errors.Is(err, httperr.ErrConcurrencyConflict):
		status, errorType = http.StatusConflict, httperr.HttpConcurrencyConflict
	case httperr.IsValidation(err):
		status, errorType = http.StatusUnprocessableEntity, httperr.HttpValidationError
	case httperr.IsTransfer(err):
		status, errorType = http.StatusBadGateway, httperr.HttpTransferError
	}
	c.JSON(status, httperr.ErrorResponse{
		ErrorType: errorType,
		Message:   err.Error(),
		Details:   toFileOutcome(out),
	})
}

func toFileOutcome(out Outcome) v1.FileOutcome {
	fo := v1.FileOutcome{
		Name:        out.Name,
		State:       string(out.State),
		Artifact:    out.Result.Artifact.FileName,
		Rows:        out.Result.UniqueRecords,
		Moved:       out.Result.Moved,
		Warnings:    out.Result.Warnings,
		CompletedAt: out.CompletedAt,
	}
	if out.Err != nil {
		fo.Error = out.Err.Error()
	}
	return fo
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
