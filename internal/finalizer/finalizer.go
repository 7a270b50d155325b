// Package finalizer turns a finished tracked call into a persisted,
// reconciled call record. The device call log is the authority on talk
// time when it has one; the tracker fills the gaps.
package finalizer

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
	"github.com/tsblive/callpulse/internal/tracker"
	"github.com/tsblive/callpulse/pkg/logger"
	"github.com/tsblive/callpulse/pkg/metrics"
)

type Finalizer struct {
	db          *gorm.DB
	log         calllog.Source
	contacts    contacts.Resolver
	dispatcher  delivery.Dispatcher
	agentCode   string
	agentName   string
	settleDelay time.Duration

	mu            sync.Mutex
	lastFinalized int64 // call log timestamp of the most recent finalized entry
}

func New(db *gorm.DB, log calllog.Source, resolver contacts.Resolver, dispatcher delivery.Dispatcher, agentCode, agentName string, settleDelay time.Duration) *Finalizer {
	return &Finalizer{
		db:          db,
		log:         log,
		contacts:    resolver,
		dispatcher:  dispatcher,
		agentCode:   agentCode,
		agentName:   agentName,
		settleDelay: settleDelay,
	}
}

// Finalize waits out the settle delay, consults the call log and persists
// exactly one record for the ended call. It is safe to call from the
// tracker's event goroutine.
func (f *Finalizer) Finalize(ctx context.Context, snap tracker.CallSnapshot) (*models.CallRecord, error) {
	if f.settleDelay > 0 {
		select {
		case <-time.After(f.settleDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	entry, stale := f.settledEntry(ctx, snap)
	if stale {
		logger.Warn("call log entry predates the last finalized call, rejecting",
			zap.String("number", snap.Number))
		return nil, nil
	}
	rec := f.buildRecord(ctx, snap, entry)

	created, err := models.InsertIfAbsent(f.db, rec)
	if err != nil {
		logger.Error("persist call record", zap.Error(err), zap.String("number", rec.PhoneNumber))
		return nil, err
	}
	if !created {
		// A reconcile sweep already backfilled this call.
		logger.Info("call already recorded, skipping",
			zap.String("number", rec.PhoneNumber),
			zap.Int64("timestamp", rec.OriginTimestamp))
		return nil, nil
	}
	metrics.RecordsFinalized.WithLabelValues(rec.DataSource).Inc()
	logger.Info("call finalized",
		zap.String("number", rec.PhoneNumber),
		zap.String("type", rec.CallType),
		zap.Int64("talkDuration", rec.TalkDuration),
		zap.Int64("totalDuration", rec.TotalDuration))

	f.dispatcher.Dispatch(ctx, rec)
	return rec, nil
}

// settledEntry fetches the newest call log entry and decides whether it
// describes the call that just ended. Entries for other numbers are
// ignored; an entry for this number that is not newer than the last
// finalized one means the log never recorded the call, and the ended
// call is rejected outright.
func (f *Finalizer) settledEntry(ctx context.Context, snap tracker.CallSnapshot) (entry *calllog.Entry, stale bool) {
	entry, err := f.log.Latest(ctx)
	if err != nil {
		logger.Warn("call log unavailable, using tracker timings", zap.Error(err))
		return nil, false
	}
	if entry == nil {
		return nil, false
	}
	if contacts.CleanNumber(entry.Number) != contacts.CleanNumber(snap.Number) {
		return nil, false
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if entry.Timestamp <= f.lastFinalized {
		return nil, true
	}
	f.lastFinalized = entry.Timestamp
	return entry, false
}

func (f *Finalizer) buildRecord(ctx context.Context, snap tracker.CallSnapshot, entry *calllog.Entry) *models.CallRecord {
	var talk, total int64

	if !snap.StartedAt.IsZero() && !snap.EndedAt.IsZero() {
		total = int64(snap.EndedAt.Sub(snap.StartedAt) / time.Second)
	} else if entry != nil {
		total = entry.Duration
	}

	callType := snap.Direction
	switch {
	case !snap.Answered():
		callType = models.CallMissed
		talk = 0
	case entry != nil && entry.Duration > 0:
		talk = entry.Duration
	default:
		talk = int64(snap.EndedAt.Sub(snap.AnsweredAt) / time.Second)
	}

	origin := snap.StartedAt
	if origin.IsZero() && entry != nil {
		origin = time.UnixMilli(entry.Timestamp)
	}

	name, _ := f.contacts.Lookup(ctx, snap.Number)

	rec := &models.CallRecord{
		PhoneNumber:     snap.Number,
		ContactName:     name,
		CallType:        callType,
		TalkDuration:    talk,
		TotalDuration:   total,
		CallDate:        origin.Format("2006-01-02"),
		StartTime:       origin.Format("15:04:05"),
		EndTime:         snap.EndedAt.Format("15:04:05"),
		AgentCode:       f.agentCode,
		AgentName:       f.agentName,
		OriginTimestamp: origin.UnixMilli(),
		DataSource:      models.SourceRealTime,
		DeliveryState:   models.DeliveryPending,
	}
	rec.ClampDurations()
	return rec
}
