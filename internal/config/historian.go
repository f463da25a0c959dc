// internal/config/historian.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Historian is the configuration of the taboo-historian process.
type Historian struct {
	LogLevel logrus.Level

	DatabaseURL     string
	RedisAddr       string
	ActionQueueName string

	BatchSize  int
	FlushDelay time.Duration
	// MaxPending caps records kept in memory while Postgres is failing.
	MaxPending int
}

// LoadHistorian reads the historian environment. DATABASE_URL is required;
// everything else falls back to defaults, including non-positive numbers.
func LoadHistorian() (*Historian, error) {
	cfg := &Historian{
		LogLevel:        getEnvLevel(),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		ActionQueueName: getEnv("ACTION_QUEUE_NAME", "taboo_actions"),
		BatchSize:       getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		FlushDelay:      time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		MaxPending:      getEnvInt("HISTORIAN_MAX_PENDING", 1000),
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.MaxPending < cfg.BatchSize {
		cfg.MaxPending = cfg.BatchSize
	}
	return cfg, nil
}

// NewLogger builds the historian logger at the configured level.
func (h *Historian) NewLogger() *logrus.Logger {
	return newLogger(h.LogLevel)
}
