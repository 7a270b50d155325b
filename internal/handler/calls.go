package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tsblive/callpulse/internal/models"
	"github.com/tsblive/callpulse/pkg/response"
)

// GetCalls lists this agent's call records for one day, newest first.
// GET /api/calls?date=2026-08-31 (defaults to today)
func (h *Handlers) GetCalls(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		response.Fail(c, "Invalid date, expected YYYY-MM-DD", nil)
		return
	}

	recs, err := models.GetCallsByDate(h.db, h.agentCode, date)
	if err != nil {
		response.Fail(c, "Failed to query call records", nil)
		return
	}
	response.Success(c, gin.H{"date": date, "calls": recs, "count": len(recs)})
}

// GetCall returns one call record by id.
// GET /api/calls/:id
func (h *Handlers) GetCall(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.Fail(c, "Invalid call record id", nil)
		return
	}

	rec, err := models.GetCallRecord(h.db, uint(id))
	if err != nil {
		response.Errorf(c, 404, "Call record not found")
		return
	}
	response.Success(c, rec)
}

// GetDailyAnalytics returns per-direction call counts and talk time for
// one day.
// GET /api/analytics/daily?date=2026-08-31 (defaults to today)
func (h *Handlers) GetDailyAnalytics(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		response.Fail(c, "Invalid date, expected YYYY-MM-DD", nil)
		return
	}

	stats, err := models.GetDailyAnalytics(h.db, h.agentCode, date)
	if err != nil {
		response.Fail(c, "Failed to compute analytics", nil)
		return
	}
	response.Success(c, stats)
}
