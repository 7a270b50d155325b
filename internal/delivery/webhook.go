package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/tsblive/callpulse/internal/models"
	"github.com/tsblive/callpulse/pkg/logger"
	"github.com/tsblive/callpulse/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WebhookSender is the durable delivery lane. Per record the attempt
// sequence runs strictly: attempt, fixed backoff, one automatic retry,
// then escalate to a durable FailedDelivery for manual retry. Distinct
// records may be in flight concurrently.
type WebhookSender struct {
	db            *gorm.DB
	client        *resty.Client
	url           string
	retryDelay    time.Duration
	manualSpacing time.Duration
}

func NewWebhookSender(db *gorm.DB, url string, timeout, retryDelay, manualSpacing time.Duration) *WebhookSender {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "CallPulse/1.0")
	return &WebhookSender{
		db:            db,
		client:        client,
		url:           url,
		retryDelay:    retryDelay,
		manualSpacing: manualSpacing,
	}
}

// Deliver runs the full attempt sequence for one record. If ctx is
// cancelled mid-backoff the record stays pending; it is never marked
// delivered without an actual 2xx.
func (s *WebhookSender) Deliver(ctx context.Context, rec *models.CallRecord) {
	payload, err := BuildWebhookPayload(rec)
	if err != nil {
		logger.Error("webhook payload build failed",
			zap.Uint("recordId", rec.ID), zap.Error(err))
		return
	}

	if err := s.send(ctx, payload); err == nil {
		s.markDelivered(rec, 1)
		return
	} else {
		logger.Warn("webhook failed, auto-retrying",
			zap.Uint("recordId", rec.ID),
			zap.Duration("delay", s.retryDelay),
			zap.Error(err))
		metrics.WebhookDeliveries.WithLabelValues("retried").Inc()
	}

	select {
	case <-ctx.Done():
		logger.Warn("webhook retry abandoned on shutdown", zap.Uint("recordId", rec.ID))
		return
	case <-time.After(s.retryDelay):
	}

	if err := s.send(ctx, payload); err == nil {
		s.markDelivered(rec, 2)
		return
	} else {
		logger.Error("webhook failed permanently",
			zap.Uint("recordId", rec.ID), zap.Error(err))
	}

	fd := &models.FailedDelivery{
		RecordID:   rec.ID,
		Payload:    string(payload),
		RetryCount: 1,
	}
	if err := models.CreateFailedDelivery(s.db, fd); err != nil {
		logger.Error("failed to persist failed delivery",
			zap.Uint("recordId", rec.ID), zap.Error(err))
	}
	if err := models.MarkDeliveryFailed(s.db, rec.ID, 2); err != nil {
		logger.Error("failed to mark delivery failed",
			zap.Uint("recordId", rec.ID), zap.Error(err))
	}
	rec.DeliveryState = models.DeliveryFailed
	rec.DeliveryAttempts = 2
	metrics.WebhookDeliveries.WithLabelValues("failed").Inc()
}

func (s *WebhookSender) markDelivered(rec *models.CallRecord, attempts int) {
	if err := models.MarkDelivered(s.db, rec.ID, attempts); err != nil {
		logger.Error("failed to mark delivered",
			zap.Uint("recordId", rec.ID), zap.Error(err))
		return
	}
	rec.DeliveryState = models.DeliveryDelivered
	rec.DeliveryAttempts = attempts
	metrics.WebhookDeliveries.WithLabelValues("delivered").Inc()
	logger.Info("webhook delivered",
		zap.Uint("recordId", rec.ID), zap.Int("attempts", attempts))
}

// RetryFailed re-sends every stored FailedDelivery in store order with
// a short spacing between attempts. Each success removes the entry and
// restores its source record's delivered state. Triggered externally.
func (s *WebhookSender) RetryFailed(ctx context.Context) (succeeded, remaining int, err error) {
	fds, err := models.ListFailedDeliveries(s.db)
	if err != nil {
		return 0, 0, err
	}
	logger.Info("retrying failed webhooks", zap.Int("count", len(fds)))

	for i, fd := range fds {
		select {
		case <-ctx.Done():
			return succeeded, len(fds) - succeeded, ctx.Err()
		default:
		}

		if sendErr := s.send(ctx, []byte(fd.Payload)); sendErr != nil {
			logger.Warn("manual retry failed",
				zap.Uint("failedDeliveryId", fd.ID), zap.Error(sendErr))
			if dbErr := models.IncrementFailedRetry(s.db, fd.ID); dbErr != nil {
				logger.Error("failed to bump retry count", zap.Error(dbErr))
			}
		} else {
			if dbErr := models.DeleteFailedDelivery(s.db, fd.ID); dbErr != nil {
				logger.Error("failed to remove failed delivery", zap.Error(dbErr))
			} else {
				succeeded++
			}
			s.restoreRecord(fd.RecordID)
		}

		if i < len(fds)-1 {
			select {
			case <-ctx.Done():
				return succeeded, len(fds) - succeeded, ctx.Err()
			case <-time.After(s.manualSpacing):
			}
		}
	}
	return succeeded, len(fds) - succeeded, nil
}

// restoreRecord flips the source record back to delivered after a
// successful manual retry.
func (s *WebhookSender) restoreRecord(recordID uint) {
	if recordID == 0 {
		return
	}
	rec, err := models.GetCallRecord(s.db, recordID)
	if err != nil {
		logger.Warn("source record for failed delivery not found",
			zap.Uint("recordId", recordID), zap.Error(err))
		return
	}
	if err := models.MarkDelivered(s.db, rec.ID, rec.DeliveryAttempts+1); err != nil {
		logger.Error("failed to restore delivered state",
			zap.Uint("recordId", recordID), zap.Error(err))
	}
}

func (s *WebhookSender) send(ctx context.Context, payload []byte) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", uuid.NewString()).
		SetBody(payload).
		Post(s.url)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook post: HTTP %d", resp.StatusCode())
	}
	return nil
}
