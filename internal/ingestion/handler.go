package ingestion

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	v1 "github.com/aevon-lab/stockpile/internal/api/v1"
	"github.com/aevon-lab/stockpile/internal/artifact"
	httperr "github.com/aevon-lab/stockpile/internal/core/errors"
	"github.com/aevon-lab/stockpile/internal/core/inventory"
	"github.com/gin-gonic/gin"
)

const (
	defaultPreviewRows = 20
	maxPreviewRows     = 500
)

// RegisterRoutes registers the artifact read routes.
func (p *Pipeline) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/artifacts", p.HandleListArtifacts)
	r.GET("/v1/artifacts/:name", p.HandlePreviewArtifact)
}

// HandleListArtifacts handles GET /v1/artifacts
func (p *Pipeline) HandleListArtifacts(c *gin.Context) {
	metas, err := p.artifacts.List()
	if err != nil {
		slog.Error("[Pipeline] Failed to list artifacts", "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to list artifacts",
		})
		return
	}

	resp := v1.ArtifactListResponse{Artifacts: make([]v1.ArtifactSummary, 0, len(metas))}
	for _, m := range metas {
		resp.Artifacts = append(resp.Artifacts, summaryOf(m))
	}
	c.JSON(http.StatusOK, resp)
}

// HandlePreviewArtifact handles GET /v1/artifacts/:name?limit=N
// The preview lists the first N records after the grand-total row.
func (p *Pipeline) HandlePreviewArtifact(c *gin.Context) {
	name := c.Param("name")
	if _, _, ok := artifact.ParseFileName(name); !ok {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequestError,
			Message:   "Invalid artifact name",
			Details:   map[string]string{"name": name},
		})
		return
	}

	limit := defaultPreviewRows
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxPreviewRows {
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidRequestError,
				Message:   "limit must be between 1 and 500",
			})
			return
		}
		limit = n
	}

	meta, records, err := p.artifacts.Load(name)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			c.JSON(http.StatusNotFound, httperr.ErrorResponse{
				ErrorType: httperr.HttpNotFoundError,
				Message:   "Artifact not found",
			})
			return
		}
		slog.Error("[Pipeline] Failed to load artifact", "file", name, "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to load artifact",
		})
		return
	}

	facts := inventory.WithoutTotals(records)
	resp := v1.ArtifactResponse{
		ArtifactSummary:  summaryOf(meta),
		UniqueBrands:     distinct(facts, func(r inventory.Record) string { return r.Brand }),
		UniqueCategories: distinct(facts, func(r inventory.Record) string { return r.Category }),
	}
	for _, r := range records {
		if r.IsTotal() {
			wire := v1.FromRecord(r)
			resp.Total = &wire
			break
		}
	}
	if len(facts) > limit {
		facts = facts[:limit]
	}
	resp.Preview = v1.FromRecords(facts)
	c.JSON(http.StatusOK, resp)
}

func summaryOf(m artifact.Meta) v1.ArtifactSummary {
	return v1.ArtifactSummary{
		FileName:       m.FileName,
		ID:             m.ID,
		Date:           m.Date,
		Rows:           m.Rows,
		TotalSales:     m.TotalSales,
		TotalPurchases: m.TotalPurchases,
		Source:         m.Source,
	}
}

func distinct(records []inventory.Record, field func(inventory.Record) string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, r := range records {
		v := field(r)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
