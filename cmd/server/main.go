// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/taboo/internal/auth"
	"github.com/jason-s-yu/taboo/internal/cache"
	"github.com/jason-s-yu/taboo/internal/catalog"
	"github.com/jason-s-yu/taboo/internal/config"
	"github.com/jason-s-yu/taboo/internal/database"
	"github.com/jason-s-yu/taboo/internal/game"
	"github.com/jason-s-yu/taboo/internal/handlers"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := loadCatalog(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("card catalog: %v", err)
	}
	logger.Infof("Loaded %d cards from %s", cat.Len(), cfg.CardsSource)

	var actions game.ActionLog
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		actions = cache.NewActionQueue(rdb, cfg.ActionQueueName)
		logger.Infof("Publishing room actions to %s/%s", cfg.RedisAddr, cfg.ActionQueueName)
	}

	seats, err := newSeatSigner(cfg)
	if err != nil {
		logger.Fatalf("seat tokens: %v", err)
	}

	hub := handlers.NewHub(logger)
	reg := game.NewRegistry(cat, game.Settings{
		RoundDuration:     cfg.RoundDuration,
		TickInterval:      cfg.TickInterval,
		DefaultScoreLimit: cfg.DefaultScoreLimit,
	}, hub, actions, logger)

	srv := handlers.NewServer(reg, hub, seats, handlers.RateLimit{
		PerSecond: cfg.RateLimitPerSec,
		Burst:     cfg.RateLimitBurst,
	}, logger)

	go reapLoop(ctx, reg, cfg.ReapInterval, cfg.RoomIdleTTL, logger)

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Infof("Running on %s", cfg.Addr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server exited: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	reg.Shutdown()
	hub.CloseAll()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	logger.Info("Shutdown complete")
}

// loadCatalog reads cards from the configured source. A postgres source with
// an empty cards table is seeded from CARDS_FILE.
func loadCatalog(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*catalog.Catalog, error) {
	if cfg.CardsSource != config.CardsFromPostgres {
		return catalog.LoadFile(cfg.CardsFile)
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		return nil, err
	}

	cat, err := database.LoadCatalog(ctx, pool)
	if !errors.Is(err, catalog.ErrEmptyCatalog) {
		return cat, err
	}
	logger.Infof("cards table empty, seeding from %s", cfg.CardsFile)
	seed, err := catalog.LoadFile(cfg.CardsFile)
	if err != nil {
		return nil, err
	}
	if err := database.SeedCards(ctx, pool, seed.Cards()); err != nil {
		return nil, err
	}
	return database.LoadCatalog(ctx, pool)
}

func newSeatSigner(cfg *config.Config) (*auth.SeatSigner, error) {
	if cfg.SeatPrivateKeyPath != "" && cfg.SeatPublicKeyPath != "" {
		return auth.NewSeatSignerFromPath(cfg.SeatPrivateKeyPath, cfg.SeatPublicKeyPath, cfg.SeatTokenTTL)
	}
	return auth.NewSeatSigner(cfg.SeatTokenTTL)
}

// reapLoop removes idle rooms until ctx is cancelled.
func reapLoop(ctx context.Context, reg *game.Registry, every, ttl time.Duration, logger *logrus.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := reg.ReapIdle(ttl); n > 0 {
				logger.Infof("Reaped %d idle rooms, %d remain", n, reg.Len())
			}
		}
	}
}
