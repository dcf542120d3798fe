package handler

import (
	"github.com/docintake/backend/internal/infrastructure/breaker"
	"github.com/gin-gonic/gin"
)

// SourceStatsProvider exposes per-source circuit breaker state
type SourceStatsProvider interface {
	Stats(sourceID string) breaker.SourceStats
	AllStats() []breaker.SourceStats
}

// SourceHandler handles per-source health endpoints
type SourceHandler struct {
	BaseHandler
	stats SourceStatsProvider
}

// NewSourceHandler creates a new SourceHandler
func NewSourceHandler(stats SourceStatsProvider) *SourceHandler {
	return &SourceHandler{
		stats: stats,
	}
}

// ListStats godoc
// @ID           listSourceStats
// @Summary      List circuit breaker state for all known sources
// @Tags         sources
// @Produce      json
// @Success      200 {object} APIResponse[[]breaker.SourceStats]
// @Router       /intake/sources/stats [get]
func (h *SourceHandler) ListStats(c *gin.Context) {
	h.Success(c, h.stats.AllStats())
}

// GetStats godoc
// @ID           getSourceStats
// @Summary      Get circuit breaker state for one source
// @Tags         sources
// @Produce      json
// @Param        id path string true "Source ID"
// @Success      200 {object} APIResponse[breaker.SourceStats]
// @Router       /intake/sources/{id}/stats [get]
func (h *SourceHandler) GetStats(c *gin.Context) {
	sourceID := c.Param("id")
	if sourceID == "" {
		h.BadRequest(c, "Missing source ID")
		return
	}

	h.Success(c, h.stats.Stats(sourceID))
}
