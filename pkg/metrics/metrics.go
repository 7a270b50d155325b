package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookDeliveries counts durable-lane outcomes by result
	// (delivered, retried, failed).
	WebhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "callpulse",
		Name:      "webhook_deliveries_total",
		Help:      "Webhook delivery attempts grouped by outcome.",
	}, []string{"result"})

	// RecordsFinalized counts persisted call records by data source
	// (real_time, reconciled).
	RecordsFinalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "callpulse",
		Name:      "records_finalized_total",
		Help:      "Call records persisted to the local store by source.",
	}, []string{"source"})

	// ReconcileDuplicates counts authoritative-log entries skipped by
	// fingerprint dedup during reconciliation.
	ReconcileDuplicates = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "callpulse",
		Name:      "reconcile_duplicates_total",
		Help:      "Log entries already present in the local store.",
	})

	// StreamReconnects counts live-stream reconnect attempts.
	StreamReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "callpulse",
		Name:      "stream_reconnects_total",
		Help:      "Reconnect attempts on the live event stream.",
	})

	// StreamDrops counts events dropped because the stream was offline.
	StreamDrops = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "callpulse",
		Name:      "stream_dropped_events_total",
		Help:      "Best-effort events dropped while disconnected.",
	})
)
