package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/catalog-approvals/backend/internal/config"
	"github.com/catalog-approvals/backend/internal/db"
	"github.com/catalog-approvals/backend/internal/events"
	apphttp "github.com/catalog-approvals/backend/internal/http"
	"github.com/catalog-approvals/backend/internal/http/handlers"
	"github.com/catalog-approvals/backend/internal/metrics"
	"github.com/catalog-approvals/backend/internal/repositories"
	"github.com/catalog-approvals/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, db.PoolOptions{MaxConns: int32(cfg.PostgresMaxConn)}, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, cfg.MigrationsDir, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	productRepo := repositories.NewProductRepo(pool)
	categoryRepo := repositories.NewCategoryRepo(pool)
	changeRequestRepo := repositories.NewChangeRequestRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)
	profileRepo := repositories.NewProfileRepo(pool)
	spill := repositories.NewLedgerSpill(rdb, cfg.LedgerSpillKey)
	tx := db.NewTransactor(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Services
	m := metrics.New()
	paging := services.Paging{Default: cfg.DefaultPageSize, Max: cfg.MaxPageSize}
	ledger := services.NewAuditLedger(auditRepo, spill, paging, m, log)
	executor := services.NewMutationExecutor(productRepo, tx)
	changeRequestService := services.NewChangeRequestService(changeRequestRepo, productRepo, executor, ledger, tx, publisher, paging, m, log)
	bulkService := services.NewBulkService(productRepo, ledger, publisher, m, log)
	importService := services.NewImportService(productRepo, ledger, tx, m, log)
	categoryService := services.NewCategoryService(categoryRepo, ledger, tx, log)

	// Handlers
	wsHub := handlers.NewWSHub(subscriber, log)
	h := apphttp.Handlers{
		ChangeRequests: handlers.NewChangeRequestHandler(changeRequestService, log),
		Catalog:        handlers.NewCatalogHandler(bulkService, importService, log),
		Categories:     handlers.NewCategoryHandler(categoryService, log),
		Audit:          handlers.NewAuditHandler(ledger, log),
		Users:          handlers.NewUserHandler(profileRepo, log),
		Meta:           handlers.NewMetaHandler(),
		WSHub:          wsHub,
	}

	// Start WS hub
	if err := wsHub.Start(ctx); err != nil {
		log.Fatal("failed to subscribe to catalog events", zap.Error(err))
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, h)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
