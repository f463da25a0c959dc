// cmd/historian/main.go drains the room action queue from Redis into Postgres.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/taboo/internal/cache"
	"github.com/jason-s-yu/taboo/internal/config"
	"github.com/jason-s-yu/taboo/internal/database"
	"github.com/jason-s-yu/taboo/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.LoadHistorian()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatalf("postgres: %v", err)
	}

	rdb, err := cache.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	queue := cache.NewActionQueue(rdb, cfg.ActionQueueName)
	svc := historian.New(queue, database.NewActionStore(pool), historian.Options{
		BatchSize:  cfg.BatchSize,
		FlushDelay: cfg.FlushDelay,
		MaxPending: cfg.MaxPending,
	}, logger)

	logger.Infof("Draining %s", queue.Name())
	svc.Run(ctx)
}
