// Package reconciler backfills call records the real-time path missed by
// sweeping the device call log behind a persistent cursor.
package reconciler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tsblive/callpulse/internal/calllog"
	"github.com/tsblive/callpulse/internal/contacts"
	"github.com/tsblive/callpulse/internal/delivery"
	"github.com/tsblive/callpulse/internal/models"
	"github.com/tsblive/callpulse/pkg/logger"
	"github.com/tsblive/callpulse/pkg/metrics"
)

type Reconciler struct {
	db         *gorm.DB
	log        calllog.Source
	contacts   contacts.Resolver
	dispatcher delivery.Dispatcher
	stream     delivery.StreamNotifier
	agentCode  string
	agentName  string
	lookback   time.Duration
	now        func() time.Time

	mu sync.Mutex // one sweep at a time
}

func New(db *gorm.DB, log calllog.Source, resolver contacts.Resolver, dispatcher delivery.Dispatcher, stream delivery.StreamNotifier, agentCode, agentName string, lookback time.Duration) *Reconciler {
	return &Reconciler{
		db:         db,
		log:        log,
		contacts:   resolver,
		dispatcher: dispatcher,
		stream:     stream,
		agentCode:  agentCode,
		agentName:  agentName,
		lookback:   lookback,
		now:        time.Now,
	}
}

// Run sweeps the call log window since the last reconciled timestamp and
// inserts any entry not already covered by a real-time record. The cursor
// only advances after the whole window has been processed, so a failed
// sweep is retried from the same position.
func (r *Reconciler) Run(ctx context.Context) (created int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cursor, err := models.GetReconcileCursor(r.db)
	if err != nil {
		return 0, err
	}
	sweepEnd := r.now().UnixMilli()
	if cursor == 0 {
		cursor = sweepEnd - r.lookback.Milliseconds()
	}

	entries, err := r.log.QueryRange(ctx, cursor, sweepEnd)
	if err != nil {
		logger.Warn("reconcile sweep aborted, call log unavailable", zap.Error(err))
		return 0, err
	}

	for _, entry := range entries {
		rec := r.buildRecord(ctx, entry)
		inserted, err := models.InsertIfAbsent(r.db, rec)
		if err != nil {
			return created, err
		}
		if !inserted {
			metrics.ReconcileDuplicates.Inc()
			continue
		}
		created++
		metrics.RecordsFinalized.WithLabelValues(rec.DataSource).Inc()
		r.dispatcher.Dispatch(ctx, rec)
	}

	if err := models.AdvanceReconcileCursor(r.db, sweepEnd); err != nil {
		return created, err
	}

	if created > 0 {
		logger.Info("reconcile backfilled records",
			zap.Int("created", created),
			zap.Int("swept", len(entries)))
		if r.stream != nil {
			today := r.now().Format("2006-01-02")
			if talkTime, err := models.GetTalkTimeForDate(r.db, r.agentCode, today); err == nil {
				r.stream.SendTalkTimeUpdate(talkTime)
			}
		}
	}
	return created, nil
}

func (r *Reconciler) buildRecord(ctx context.Context, entry calllog.Entry) *models.CallRecord {
	start := time.UnixMilli(entry.Timestamp)
	talk := entry.Duration
	if entry.Type == models.CallMissed {
		talk = 0
	}
	name, _ := r.contacts.Lookup(ctx, entry.Number)

	rec := &models.CallRecord{
		PhoneNumber:     entry.Number,
		ContactName:     name,
		CallType:        entry.Type,
		TalkDuration:    talk,
		TotalDuration:   entry.Duration,
		CallDate:        start.Format("2006-01-02"),
		StartTime:       start.Format("15:04:05"),
		EndTime:         time.UnixMilli(entry.End()).Format("15:04:05"),
		AgentCode:       r.agentCode,
		AgentName:       r.agentName,
		OriginTimestamp: entry.Timestamp,
		DataSource:      models.SourceReconciled,
		DeliveryState:   models.DeliveryPending,
	}
	rec.ClampDurations()
	return rec
}
