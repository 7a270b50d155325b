package utils

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// LoadEnv loads the .env file for the given environment.
// Load order: .env.{env} first, then .env as the shared fallback.
// Missing files are not an error for the fallback, only when an
// environment-specific file was explicitly requested.
func LoadEnv(env string) error {
	if env != "" {
		envFile := fmt.Sprintf(".env.%s", env)
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
		}
	}
	if _, err := os.Stat(".env"); err != nil {
		return fmt.Errorf(".env not found: %w", err)
	}
	return godotenv.Load(".env")
}

// GetEnv returns the raw value of an environment variable.
func GetEnv(key string) string {
	return os.Getenv(key)
}

// GetStringEnv returns the value of key, or def when unset or empty.
func GetStringEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// GetIntEnv returns the integer value of key, 0 when unset or unparsable.
func GetIntEnv(key string) int64 {
	return cast.ToInt64(os.Getenv(key))
}

// GetIntEnvDefault returns the integer value of key, or def when unset
// or unparsable.
func GetIntEnvDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return def
	}
	return n
}

// GetBoolEnv returns the boolean value of key, or def when unset.
func GetBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return def
	}
	return b
}
