package task

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/tsblive/callpulse/internal/reconciler"
	"github.com/tsblive/callpulse/pkg/logger"
)

// StartReconcileScheduler runs a reconcile sweep immediately and then on
// the given cron schedule. The returned cron can be stopped on shutdown.
func StartReconcileScheduler(ctx context.Context, rec *reconciler.Reconciler, schedule string) (*cron.Cron, error) {
	// Catch up on anything missed while the agent was down.
	logger.Info("Executing reconcile sweep at startup")
	runSweep(ctx, rec)

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		runSweep(ctx, rec)
	})
	if err != nil {
		logger.Error("Failed to add reconcile cron job", zap.Error(err))
		return nil, err
	}

	c.Start()
	logger.Info("Reconcile scheduler started", zap.String("schedule", schedule))
	return c, nil
}

func runSweep(ctx context.Context, rec *reconciler.Reconciler) {
	created, err := rec.Run(ctx)
	if err != nil {
		logger.Error("Reconcile sweep failed", zap.Error(err))
		return
	}
	if created > 0 {
		logger.Info("Reconcile sweep completed", zap.Int("created", created))
	}
}
