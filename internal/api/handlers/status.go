package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// version is stamped at build time in a full release pipeline; fixed
// here since this module has none.
const version = "0.1.0"

// Health is the liveness probe from specification §4.4.
// GET /health
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"version":   version,
	})
}

// Status is the readiness and configuration-summary endpoint from
// specification §4.4.
// GET /api/status
func (h *Handlers) Status(c *gin.Context) {
	stats, err := h.Store.TokenStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read token stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "ready",
		"token_stats":  stats,
		"config": gin.H{
			"assignments_per_student": h.Config.Assignment.AssignmentsPerStudent,
			"balance_mode":            h.Config.Assignment.BalanceMode,
			"max_score_per_question":  h.Config.Data.MaxScorePerQuestion,
			"r_max":                   h.Config.Vancouver.RMax,
			"alpha":                   h.Config.Vancouver.Alpha,
		},
	})
}
