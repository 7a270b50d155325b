package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tsblive/callpulse/internal/models"
	"github.com/tsblive/callpulse/pkg/response"
)

// ListFailedDeliveries returns the webhook retry backlog in store order.
// GET /api/delivery/failed
func (h *Handlers) ListFailedDeliveries(c *gin.Context) {
	failed, err := models.ListFailedDeliveries(h.db)
	if err != nil {
		response.Fail(c, "Failed to query delivery backlog", nil)
		return
	}
	response.Success(c, gin.H{"failed": failed, "count": len(failed)})
}

// RetryFailedDeliveries replays the whole backlog against the webhook.
// POST /api/delivery/retry
func (h *Handlers) RetryFailedDeliveries(c *gin.Context) {
	succeeded, remaining, err := h.webhook.RetryFailed(c.Request.Context())
	if err != nil {
		response.Fail(c, "Retry sweep aborted", gin.H{
			"succeeded": succeeded,
			"remaining": remaining,
		})
		return
	}
	response.Success(c, gin.H{
		"succeeded": succeeded,
		"remaining": remaining,
	})
}

// TriggerReconcile runs a reconcile sweep on demand.
// POST /api/reconcile
func (h *Handlers) TriggerReconcile(c *gin.Context) {
	created, err := h.reconciler.Run(c.Request.Context())
	if err != nil {
		response.Fail(c, "Reconcile sweep failed", gin.H{"created": created})
		return
	}
	response.Success(c, gin.H{"created": created})
}
