// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// Catalog sources understood by CARDS_SOURCE.
const (
	CardsFromFile     = "file"
	CardsFromPostgres = "postgres"
)

// Config is the process configuration, read once at startup.
type Config struct {
	Port     string
	LogLevel logrus.Level

	CardsSource string
	CardsFile   string
	DatabaseURL string

	// RedisAddr empty means no action log.
	RedisAddr       string
	ActionQueueName string

	RoundDuration     time.Duration
	TickInterval      time.Duration
	DefaultScoreLimit int

	RoomIdleTTL  time.Duration
	ReapInterval time.Duration

	RateLimitPerSec float64
	RateLimitBurst  int

	SeatTokenTTL time.Duration

	// Both paths set means seat tokens are signed with persisted keys.
	SeatPrivateKeyPath string
	SeatPublicKeyPath  string
}

// Load reads the environment. Unset or unparsable values fall back to their
// defaults; the only hard errors are an unknown CARDS_SOURCE and a postgres
// source with no DATABASE_URL.
func Load() (*Config, error) {
	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnvLevel(),

		CardsSource: getEnv("CARDS_SOURCE", CardsFromFile),
		CardsFile:   getEnv("CARDS_FILE", "data/words.en.json"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		RedisAddr:       os.Getenv("REDIS_ADDR"),
		ActionQueueName: getEnv("ACTION_QUEUE_NAME", "taboo_actions"),

		RoundDuration:     getEnvDuration("ROUND_DURATION", 60*time.Second),
		TickInterval:      getEnvDuration("TICK_INTERVAL", 200*time.Millisecond),
		DefaultScoreLimit: getEnvInt("DEFAULT_SCORE_LIMIT", 7),

		RoomIdleTTL:  getEnvDuration("ROOM_IDLE_TTL", 30*time.Minute),
		ReapInterval: getEnvDuration("REAP_INTERVAL", time.Minute),

		RateLimitPerSec: getEnvFloat("RATE_LIMIT_PER_SEC", 20),
		RateLimitBurst:  getEnvInt("RATE_LIMIT_BURST", 40),

		SeatTokenTTL:       getEnvDuration("SEAT_TOKEN_TTL", 12*time.Hour),
		SeatPrivateKeyPath: os.Getenv("SEAT_PRIVATE_KEY_PATH"),
		SeatPublicKeyPath:  os.Getenv("SEAT_PUBLIC_KEY_PATH"),
	}

	switch cfg.CardsSource {
	case CardsFromFile:
	case CardsFromPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("CARDS_SOURCE=postgres requires DATABASE_URL")
		}
	default:
		return nil, fmt.Errorf("unknown CARDS_SOURCE %q", cfg.CardsSource)
	}
	return cfg, nil
}

// Addr is the listen address derived from Port.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// NewLogger builds the process logger at the configured level.
func (c *Config) NewLogger() *logrus.Logger {
	return newLogger(c.LogLevel)
}

func newLogger(level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger
}

func getEnvLevel() logrus.Level {
	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getEnvFloat(key string, def float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// getEnvDuration accepts Go durations ("90s", "2m").
func getEnvDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
