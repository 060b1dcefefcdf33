package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/irfndi/arbscan/internal/middleware"
	"github.com/irfndi/arbscan/internal/models"
	"github.com/irfndi/arbscan/internal/utils"
)

// ResultProvider is satisfied by services.ScannerService.
type ResultProvider interface {
	LatestResult() (models.CycleResult, bool)
}

type OpportunitiesResponse struct {
	CycleID       uuid.UUID    `json:"cycle_id"`
	GeneratedAt   time.Time    `json:"generated_at"`
	Count         int          `json:"count"`
	Opportunities []models.Hit `json:"opportunities"`
}

type OpportunityHandler struct {
	results ResultProvider
}

func NewOpportunityHandler(results ResultProvider) *OpportunityHandler {
	return &OpportunityHandler{results: results}
}

// GetOpportunities serves the latest ranked durable opportunities.
// An optional ?limit=N truncates the list.
func (h *OpportunityHandler) GetOpportunities(c *gin.Context) {
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		middleware.RecordError(c, err, "invalid limit")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp := OpportunitiesResponse{Opportunities: []models.Hit{}}
	if result, ok := h.results.LatestResult(); ok {
		resp.CycleID = result.Stats.CycleID
		resp.GeneratedAt = result.Stats.StartedAt
		if result.Ranked != nil {
			resp.Opportunities = result.Ranked
		}
	}
	if limit > 0 && len(resp.Opportunities) > limit {
		resp.Opportunities = resp.Opportunities[:limit]
	}
	resp.Count = len(resp.Opportunities)
	middleware.AddSpanAttribute(c, "opportunities.count", resp.Count)

	c.JSON(http.StatusOK, resp)
}

// GetCycle serves the statistics of the most recent cycle.
func (h *OpportunityHandler) GetCycle(c *gin.Context) {
	result, ok := h.results.LatestResult()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no cycle has completed yet"})
		return
	}
	c.JSON(http.StatusOK, result.Stats)
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, utils.NewValidationError("limit", "must be a positive integer")
	}
	return n, nil
}
