package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tsblive/callpulse/internal/models"
	"github.com/tsblive/callpulse/pkg/response"
)

// GetStatus reports the agent's live state for dashboards and probes.
// GET /api/status
func (h *Handlers) GetStatus(c *gin.Context) {
	pending, err := models.CountPendingDeliveries(h.db)
	if err != nil {
		response.Fail(c, "Failed to query delivery state", nil)
		return
	}
	backlog, err := models.CountFailedDeliveries(h.db)
	if err != nil {
		response.Fail(c, "Failed to query delivery state", nil)
		return
	}

	streamConnected := false
	if h.stream != nil {
		streamConnected = h.stream.IsConnected()
	}

	response.Success(c, gin.H{
		"agentCode":         h.agentCode,
		"callState":         h.tracker.State().String(),
		"streamConnected":   streamConnected,
		"pendingDeliveries": pending,
		"failedDeliveries":  backlog,
	})
}
