package http

import (
	"strings"
	"time"

	"github.com/catalog-approvals/backend/internal/config"
	"github.com/catalog-approvals/backend/internal/http/handlers"
	"github.com/catalog-approvals/backend/internal/middleware"
	"github.com/catalog-approvals/backend/internal/rbac"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Handlers struct {
	ChangeRequests *handlers.ChangeRequestHandler
	Catalog        *handlers.CatalogHandler
	Categories     *handlers.CategoryHandler
	Audit          *handlers.AuditHandler
	Users          *handlers.UserHandler
	Meta           *handlers.MetaHandler
	WSHub          *handlers.WSHub
}

func SetupRouter(app *fiber.App, cfg *config.Config, log *zap.Logger, rdb *redis.Client, h Handlers) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.CORSOriginList(), ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api/v1")

	// Meta (public, no auth required)
	api.Get("/meta/enums", h.Meta.GetEnums)

	protected := api.Group("", middleware.AuthMiddleware(cfg.JWTSecret, log))
	protected.Use(middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMinute, time.Minute, log))

	// Caller
	protected.Get("/me", h.Users.GetMe)
	protected.Get("/permissions/check", h.Users.CheckPermission)

	// Role checks are attached per route: groups sharing the "/api/v1"
	// prefix would stack their middleware on every later route.
	editor := middleware.RequireRole(rbac.RoleEditor)
	approver := middleware.RequireRole(rbac.RoleApprover)

	// Change requests
	protected.Post("/change-requests", editor, h.ChangeRequests.Submit)
	protected.Get("/change-requests", editor, h.ChangeRequests.List)
	protected.Get("/change-requests/:id", editor, h.ChangeRequests.Get)
	protected.Post("/change-requests/:id/review", approver, h.ChangeRequests.Review)

	// Bulk and import
	protected.Post("/products/bulk", editor, h.Catalog.Bulk)
	protected.Post("/products/import", editor, h.Catalog.Import)

	// Categories
	protected.Get("/categories", h.Categories.List)
	protected.Post("/categories", approver, h.Categories.Create)
	protected.Put("/categories/:id", approver, h.Categories.Update)
	protected.Post("/categories/:id/toggle", approver, h.Categories.Toggle)
	protected.Delete("/categories/:id", approver, h.Categories.Delete)

	// Audit ledger
	protected.Get("/audit-log", editor, h.Audit.List)

	// Users
	protected.Put("/users/:id/role", approver, h.Users.SetRole)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware(),
		middleware.AuthMiddleware(cfg.JWTSecret, log),
		middleware.RequireRole(rbac.RoleEditor))
	app.Get("/ws", websocket.New(h.WSHub.HandleWS))
}
