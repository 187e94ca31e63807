package handlers

import (
	"strconv"
	"time"

	"github.com/catalog-approvals/backend/internal/http/dto"
	"github.com/catalog-approvals/backend/internal/models"
	"github.com/catalog-approvals/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuditHandler struct {
	ledger LedgerReader
	log    *zap.Logger
}

func NewAuditHandler(ledger LedgerReader, log *zap.Logger) *AuditHandler {
	return &AuditHandler{ledger: ledger, log: log}
}

func (h *AuditHandler) List(c *fiber.Ctx) error {
	q := services.AuditQuery{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 0),
	}

	if v := c.Query("action_type"); v != "" {
		if !models.IsValidAuditAction(v) {
			return badRequest(c, "invalid action_type")
		}
		q.Filters.ActionType = &v
	}
	if v := c.Query("actor_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return badRequest(c, "invalid actor_id")
		}
		q.Filters.ActorID = &id
	}
	if v := c.Query("target_collection"); v != "" {
		q.Filters.TargetCollection = &v
	}
	if v := c.Query("target_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return badRequest(c, "invalid target_id")
		}
		q.Filters.TargetEntityID = &id
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"from", &q.Filters.From}, {"to", &q.Filters.To}} {
		v := c.Query(p.name)
		if v == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return badRequest(c, "invalid "+p.name+", expected RFC3339")
		}
		*p.dst = &ts
	}

	page, err := h.ledger.Query(c.UserContext(), q)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: page})
}
