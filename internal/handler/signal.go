package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tsblive/callpulse/internal/tracker"
	"github.com/tsblive/callpulse/pkg/response"
)

// PostSignal accepts one raw telephony state transition from the bridge.
// POST /api/signal
func (h *Handlers) PostSignal(c *gin.Context) {
	var sig tracker.Signal
	if err := c.ShouldBindJSON(&sig); err != nil {
		response.Fail(c, "Invalid signal payload", nil)
		return
	}

	switch sig.State {
	case tracker.SignalRinging, tracker.SignalConnected, tracker.SignalIdle:
	default:
		response.Fail(c, "Unknown signal state", gin.H{"state": sig.State})
		return
	}

	h.tracker.Process(sig)
	response.Success(c, gin.H{"state": h.tracker.State().String()})
}
