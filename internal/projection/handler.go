package projection

import (
	"errors"
	"net/http"

	v1 "github.com/aevon-lab/stockpile/internal/api/v1"
	httperr "github.com/aevon-lab/stockpile/internal/core/errors"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the read API on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/rollups/:period", s.HandleSnapshot)
	r.GET("/v1/summary/grand-total", s.HandleGrandTotal)
}

// HandleSnapshot handles GET /v1/rollups/:period
// period is one of month, week or quarter.
func (s *Service) HandleSnapshot(c *gin.Context) {
	period, err := ParsePeriod(c.Param("period"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequestError,
			Message:   "Invalid rollup period",
			Details:   err.Error(),
		})
		return
	}

	snap, err := s.Snapshot(c.Request.Context(), period)
	if err != nil {
		if errors.Is(err, ErrSnapshotUnavailable) {
			c.JSON(http.StatusNotFound, httperr.ErrorResponse{
				ErrorType: httperr.HttpNotFoundError,
				Message:   "Rollup not computed yet",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to read rollup",
			Details:   err.Error(),
		})
		return
	}

	resp := v1.SnapshotResponse{
		Period:      string(snap.Period),
		Key:         snap.Key,
		RefreshedAt: snap.RefreshedAt,
		Rows:        v1.FromRecords(snap.Facts()),
	}
	resp.RowCount = len(resp.Rows)
	if total, ok := snap.Total(); ok {
		wire := v1.FromRecord(total)
		resp.Total = &wire
	}
	c.JSON(http.StatusOK, resp)
}

// HandleGrandTotal handles GET /v1/summary/grand-total
func (s *Service) HandleGrandTotal(c *gin.Context) {
	total, ok, err := s.GrandTotal(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to read grand total",
			Details:   err.Error(),
		})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpNotFoundError,
			Message:   "No grand total recorded yet",
		})
		return
	}
	c.JSON(http.StatusOK, v1.GrandTotalResponse{
		SalesQty:    total.SalesQty,
		PurchaseQty: total.PurchaseQty,
		Week:        total.Week,
		Month:       total.Month,
		ComputedAt:  total.Date,
	})
}
