package delivery

import (
	"context"
	"sync"

	"github.com/tsblive/callpulse/internal/models"
	"github.com/tsblive/callpulse/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StreamNotifier is the best-effort lane. Implementations drop events
// while disconnected; durability is the webhook lane's job.
type StreamNotifier interface {
	SendCallStarted(number, callType string)
	SendCallEnded(rec *models.CallRecord, todayTalkTime int64)
	SendCallUpdate(rec *models.CallRecord)
	SendTalkTimeUpdate(talkTime int64)
}

// Dispatcher pushes a freshly persisted record to the remote consumers.
type Dispatcher interface {
	Dispatch(ctx context.Context, rec *models.CallRecord)
}

// Pipeline fans one record out to both lanes: the durable webhook lane
// on its own goroutine (concurrent across records, sequential within
// one) and the best-effort stream lane inline.
type Pipeline struct {
	db      *gorm.DB
	webhook *WebhookSender
	stream  StreamNotifier
	wg      sync.WaitGroup
}

func NewPipeline(db *gorm.DB, webhook *WebhookSender, stream StreamNotifier) *Pipeline {
	return &Pipeline{db: db, webhook: webhook, stream: stream}
}

// Dispatch delivers rec to both lanes. Real-time records produce a
// call_ended event carrying the day's aggregate talk time; backfilled
// records produce an out-of-band call_update.
func (p *Pipeline) Dispatch(ctx context.Context, rec *models.CallRecord) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.webhook.Deliver(ctx, rec)
	}()

	if p.stream == nil {
		return
	}
	if rec.DataSource == models.SourceReconciled {
		p.stream.SendCallUpdate(rec)
		return
	}

	talk, err := models.GetTalkTimeForDate(p.db, rec.AgentCode, rec.CallDate)
	if err != nil {
		logger.Warn("talk time aggregate failed", zap.Error(err))
	}
	p.stream.SendCallEnded(rec, talk)
}

// Wait blocks until in-flight webhook deliveries have finished or been
// abandoned via their context.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}
