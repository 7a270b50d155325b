package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tsblive/callpulse/cmd/bootstrap"
	"github.com/tsblive/callpulse/internal/calllog"
	"github.com/tsblive/callpulse/internal/contacts"
	"github.com/tsblive/callpulse/internal/delivery"
	"github.com/tsblive/callpulse/internal/finalizer"
	handlers "github.com/tsblive/callpulse/internal/handler"
	"github.com/tsblive/callpulse/internal/reconciler"
	"github.com/tsblive/callpulse/internal/stream"
	"github.com/tsblive/callpulse/internal/task"
	"github.com/tsblive/callpulse/internal/tracker"
	"github.com/tsblive/callpulse/pkg/config"
	"github.com/tsblive/callpulse/pkg/logger"
)

func main() {
	// 1. Parse Command Line Parameters
	mode := flag.String("mode", "", "running environment (development, test, production)")
	initSQL := flag.String("init-sql", "", "path to database init .sql script (optional)")
	flag.Parse()

	if *mode != "" {
		os.Setenv("APP_ENV", *mode)
	}

	// 2. Load Global Configuration
	if err := config.Load(); err != nil {
		panic("config load failed: " + err.Error())
	}
	cfg := config.GlobalConfig

	// 3. Load Log Configuration
	if err := logger.Init(&cfg.Log, cfg.Mode); err != nil {
		panic(err)
	}
	defer logger.Sync()

	// 4. Load Data Source
	db, err := bootstrap.SetupDatabase(os.Stdout, &bootstrap.Options{
		InitSQLPath: *initSQL,
		AutoMigrate: true,
	})
	if err != nil {
		logger.Error("database setup failed", zap.Error(err))
		return
	}

	logger.Info("agent starting",
		zap.String("agentCode", cfg.AgentCode),
		zap.String("addr", cfg.Addr),
		zap.String("mode", cfg.Mode))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 5. Device-local data sources
	callLog := calllog.NewHTTPSource(cfg.CallLogBaseURL, cfg.WebhookTimeout)
	resolver := contacts.NewCachedResolver(
		contacts.NewHTTPResolver(cfg.ContactsBaseURL, cfg.WebhookTimeout),
		time.Hour,
	)

	// 6. Live Stream (optional)
	var streamClient *stream.Client
	var streamNotifier delivery.StreamNotifier
	if cfg.StreamURL != "" {
		streamClient = stream.NewClient(cfg.StreamURL, cfg.AgentCode, cfg.AgentName, cfg.StreamReconnectDelay)
		streamNotifier = streamClient
		go streamClient.Run(ctx)
	}

	// 7. Delivery Pipeline
	webhook := delivery.NewWebhookSender(db, cfg.WebhookURL, cfg.WebhookTimeout, cfg.WebhookRetryDelay, cfg.ManualRetrySpacing)
	pipeline := delivery.NewPipeline(db, webhook, streamNotifier)

	// 8. Finalizer + Reconciliation
	fin := finalizer.New(db, callLog, resolver, pipeline, cfg.AgentCode, cfg.AgentName, cfg.SettleDelay)
	recon := reconciler.New(db, callLog, resolver, pipeline, streamNotifier, cfg.AgentCode, cfg.AgentName, cfg.ReconcileLookback)

	// 9. Tracker: every ended call is finalized and then swept, so a
	// signal missed during the call is caught right away.
	var finalizations sync.WaitGroup
	trk := tracker.New()
	trk.SetHandler(func(ev tracker.Event) {
		switch ev.Kind {
		case tracker.EventStarted:
			if streamClient != nil {
				streamClient.SendCallStarted(ev.Number, ev.Direction)
			}
		case tracker.EventEnded:
			snap := *ev.Snapshot
			finalizations.Add(1)
			go func() {
				defer finalizations.Done()
				if _, err := fin.Finalize(ctx, snap); err != nil {
					logger.Error("finalize failed", zap.Error(err), zap.String("number", snap.Number))
					return
				}
				if _, err := recon.Run(ctx); err != nil {
					logger.Warn("post-call reconcile failed", zap.Error(err))
				}
			}()
		}
	})

	cronJobs, err := task.StartReconcileScheduler(ctx, recon, cfg.ReconcileSchedule)
	if err != nil {
		logger.Error("reconcile scheduler failed to start", zap.Error(err))
		return
	}

	// 10. HTTP control surface
	if cfg.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	handlers.NewHandlers(db, trk, webhook, recon, streamClient, cfg.AgentCode).Register(engine)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", cfg.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server run failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown", zap.Error(err))
	}

	<-cronJobs.Stop().Done()
	finalizations.Wait()
	pipeline.Wait()
	if streamClient != nil {
		streamClient.Close()
	}
	logger.Info("agent stopped")
}
