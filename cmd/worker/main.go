package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/catalog-approvals/backend/internal/config"
	"github.com/catalog-approvals/backend/internal/db"
	"github.com/catalog-approvals/backend/internal/metrics"
	"github.com/catalog-approvals/backend/internal/repositories"
	"github.com/catalog-approvals/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 4}, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	spill := repositories.NewLedgerSpill(rdb, cfg.LedgerSpillKey)
	replayer := services.NewLedgerReplayer(repositories.NewAuditRepo(pool), spill, metrics.New(), log)
	if _, err := replayer.RecoverInFlight(ctx); err != nil {
		log.Error("failed to recover in-flight ledger entries", zap.Error(err))
	}

	// Health and metrics for the orchestrator
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/health", func(c *fiber.Ctx) error {
		pending, err := spill.Len(c.UserContext())
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "error": err.Error()})
		}
		dead, err := spill.DeadLen(c.UserContext())
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "ok", "spilled": pending, "dead": dead})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	go func() {
		if err := app.Listen(fmt.Sprintf(":%s", cfg.WorkerPort)); err != nil {
			log.Error("worker http server stopped", zap.Error(err))
		}
	}()
	defer app.Shutdown()

	log.Info("worker started",
		zap.Duration("replay_interval", cfg.LedgerReplayInterval),
		zap.Int("replay_batch", cfg.LedgerReplayBatch),
	)

	replayTicker := time.NewTicker(cfg.LedgerReplayInterval)
	defer replayTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-replayTicker.C:
			runLedgerReplay(ctx, replayer, cfg.LedgerReplayBatch, log)
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

// runLedgerReplay drains the spill list until it is empty or a batch fails.
func runLedgerReplay(ctx context.Context, replayer *services.LedgerReplayer, batch int, log *zap.Logger) {
	if batch <= 0 {
		batch = 100
	}
	total := 0
	for {
		n, err := replayer.Replay(ctx, batch)
		total += n
		if err != nil {
			log.Error("ledger replay failed", zap.Int("replayed", total), zap.Error(err))
			return
		}
		if n < batch {
			return
		}
	}
}
