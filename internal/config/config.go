package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// AMQP (ledger-changed invalidation events; optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Auth: per-account passwords for the two household members
	FelipePassword string
	CarolPassword  string
	SessionTTL     time.Duration

	// Ledger worker
	WorkerSchedule string // cron expression

	// Summary cache
	CacheTTL time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finances.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "persona_finances"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_changed"),

		FelipePassword: getEnv("FELIPE_PASSWORD", ""),
		CarolPassword:  getEnv("CAROL_PASSWORD", ""),
		SessionTTL:     getEnvDuration("SESSION_TTL", 12*time.Hour),

		WorkerSchedule: getEnv("WORKER_SCHEDULE", "0 6 * * *"),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	}

	if c.FelipePassword == "" {
		errors = append(errors, "FELIPE_PASSWORD must be set")
	}
	if c.CarolPassword == "" {
		errors = append(errors, "CAROL_PASSWORD must be set")
	}

	if c.SessionTTL <= 0 {
		errors = append(errors, "session TTL must be positive")
	}

	// AMQP is optional; validate only when configured
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.WorkerSchedule == "" {
		errors = append(errors, "worker schedule cannot be empty")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
