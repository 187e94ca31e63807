package middleware

import (
	"strings"

	"github.com/catalog-approvals/backend/internal/auth"
	"github.com/catalog-approvals/backend/internal/models"
	"github.com/catalog-approvals/backend/internal/rbac"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	CtxActor = "actor"
	CtxRole  = "role"
)

// AuthMiddleware verifies the bearer token and stores the caller's identity
// and role in locals. The websocket upgrade passes the token as ?token=.
func AuthMiddleware(secret string, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := c.Query("token")
		if authHeader := c.Get("Authorization"); authHeader != "" {
			tokenStr = strings.TrimPrefix(authHeader, "Bearer ")
			if tokenStr == authHeader {
				return deny(c, fiber.StatusUnauthorized, "invalid authorization format")
			}
		}
		if tokenStr == "" {
			return deny(c, fiber.StatusUnauthorized, "missing authorization header")
		}

		claims, err := auth.ParseJWT(secret, tokenStr)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return deny(c, fiber.StatusUnauthorized, "invalid or expired token")
		}

		c.Locals(CtxActor, claims.Actor())
		c.Locals(CtxRole, claims.Role)

		return c.Next()
	}
}

// RequireRole rejects callers ranked below min.
func RequireRole(min rbac.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !rbac.HasPermission(GetRole(c), min) {
			return deny(c, fiber.StatusForbidden, min.String()+" role required")
		}
		return c.Next()
	}
}

func GetActor(c *fiber.Ctx) models.Actor {
	a, _ := c.Locals(CtxActor).(models.Actor)
	return a
}

func GetUserID(c *fiber.Ctx) uuid.UUID {
	return GetActor(c).ID
}

func GetRole(c *fiber.Ctx) rbac.Role {
	r, _ := c.Locals(CtxRole).(rbac.Role)
	return r
}

// OriginAddress returns the first X-Forwarded-For hop, falling back to the
// peer address.
func OriginAddress(c *fiber.Ctx) *string {
	addr := c.IP()
	if fwd := c.Get(fiber.HeaderXForwardedFor); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			addr = first
		}
	}
	if addr == "" {
		return nil
	}
	return &addr
}

func deny(c *fiber.Ctx, status int, msg string) error {
	reqID, _ := c.Locals(CtxRequestID).(string)
	return c.Status(status).JSON(fiber.Map{"error": msg, "request_id": reqID})
}
