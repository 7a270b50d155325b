package config

import (
	"log"
	"os"
	"time"

	"github.com/tsblive/callpulse/pkg/logger"
	"github.com/tsblive/callpulse/pkg/utils"
)

// Config holds the complete agent configuration. Every key has a
// default so the agent starts without a .env file.
type Config struct {
	// Agent identity
	AgentCode string `env:"AGENT_CODE"`
	AgentName string `env:"AGENT_NAME"`

	// Remote consumers
	WebhookURL string `env:"WEBHOOK_URL"`
	StreamURL  string `env:"STREAM_URL"`

	// Device-local data sources
	CallLogBaseURL  string `env:"CALL_LOG_BASE_URL"`
	ContactsBaseURL string `env:"CONTACTS_BASE_URL"`

	// Persistence
	DBDriver string `env:"DB_DRIVER"`
	DSN      string `env:"DSN"`

	// HTTP control surface
	Addr string `env:"ADDR"`
	Mode string `env:"MODE"`

	// Pipeline timing
	SettleDelay          time.Duration // CALL_LOG_SETTLE_DELAY_MS
	WebhookTimeout       time.Duration // WEBHOOK_TIMEOUT_MS
	WebhookRetryDelay    time.Duration // WEBHOOK_RETRY_DELAY_MS
	ManualRetrySpacing   time.Duration // MANUAL_RETRY_SPACING_MS
	StreamReconnectDelay time.Duration // STREAM_RECONNECT_DELAY_MS

	// Reconciliation
	ReconcileSchedule string        `env:"RECONCILE_SCHEDULE"`
	ReconcileLookback time.Duration // RECONCILE_LOOKBACK_HOURS

	Log logger.LogConfig
}

var GlobalConfig *Config

// Load reads the environment (and optional .env files) into GlobalConfig.
func Load() error {
	env := os.Getenv("APP_ENV")
	if err := utils.LoadEnv(env); err != nil {
		// A missing .env file is normal; the defaults below cover it.
		log.Printf("Note: .env file not found or failed to load: %v (using default values)", err)
	}

	GlobalConfig = &Config{
		AgentCode: utils.GetStringEnv("AGENT_CODE", "Agent1"),
		AgentName: utils.GetStringEnv("AGENT_NAME", "Unknown"),

		WebhookURL: utils.GetStringEnv("WEBHOOK_URL", ""),
		StreamURL:  utils.GetStringEnv("STREAM_URL", ""),

		CallLogBaseURL:  utils.GetStringEnv("CALL_LOG_BASE_URL", "http://127.0.0.1:7171"),
		ContactsBaseURL: utils.GetStringEnv("CONTACTS_BASE_URL", "http://127.0.0.1:7171"),

		DBDriver: utils.GetStringEnv("DB_DRIVER", "sqlite"),
		DSN:      utils.GetStringEnv("DSN", "./callpulse.db"),

		Addr: utils.GetStringEnv("ADDR", ":7072"),
		Mode: utils.GetStringEnv("MODE", "development"),

		SettleDelay:          millisEnv("CALL_LOG_SETTLE_DELAY_MS", 2000),
		WebhookTimeout:       millisEnv("WEBHOOK_TIMEOUT_MS", 15000),
		WebhookRetryDelay:    millisEnv("WEBHOOK_RETRY_DELAY_MS", 30000),
		ManualRetrySpacing:   millisEnv("MANUAL_RETRY_SPACING_MS", 1000),
		StreamReconnectDelay: millisEnv("STREAM_RECONNECT_DELAY_MS", 5000),

		ReconcileSchedule: utils.GetStringEnv("RECONCILE_SCHEDULE", "@every 15m"),
		ReconcileLookback: time.Duration(utils.GetIntEnvDefault("RECONCILE_LOOKBACK_HOURS", 24)) * time.Hour,

		Log: logger.LogConfig{
			Level:      utils.GetStringEnv("LOG_LEVEL", "info"),
			Filename:   utils.GetStringEnv("LOG_FILENAME", "./logs/callpulse.log"),
			MaxSize:    utils.GetIntEnvDefault("LOG_MAX_SIZE", 100),
			MaxAge:     utils.GetIntEnvDefault("LOG_MAX_AGE", 30),
			MaxBackups: utils.GetIntEnvDefault("LOG_MAX_BACKUPS", 5),
			Daily:      utils.GetBoolEnv("LOG_DAILY", true),
		},
	}
	return nil
}

func millisEnv(key string, def int) time.Duration {
	return time.Duration(utils.GetIntEnvDefault(key, def)) * time.Millisecond
}
