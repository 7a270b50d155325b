package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/tsblive/callpulse/internal/delivery"
	"github.com/tsblive/callpulse/internal/reconciler"
	"github.com/tsblive/callpulse/internal/stream"
	"github.com/tsblive/callpulse/internal/tracker"
)

type Handlers struct {
	db         *gorm.DB
	tracker    *tracker.Tracker
	webhook    *delivery.WebhookSender
	reconciler *reconciler.Reconciler
	stream     *stream.Client
	agentCode  string
}

func NewHandlers(db *gorm.DB, trk *tracker.Tracker, webhook *delivery.WebhookSender, rec *reconciler.Reconciler, streamClient *stream.Client, agentCode string) *Handlers {
	return &Handlers{
		db:         db,
		tracker:    trk,
		webhook:    webhook,
		reconciler: rec,
		stream:     streamClient,
		agentCode:  agentCode,
	}
}

func (h *Handlers) Register(engine *gin.Engine) {
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r := engine.Group("/api")
	r.POST("/signal", h.PostSignal)
	r.GET("/calls", h.GetCalls)
	r.GET("/calls/:id", h.GetCall)
	r.GET("/analytics/daily", h.GetDailyAnalytics)
	r.GET("/delivery/failed", h.ListFailedDeliveries)
	r.POST("/delivery/retry", h.RetryFailedDeliveries)
	r.POST("/reconcile", h.TriggerReconcile)
	r.GET("/status", h.GetStatus)
}
