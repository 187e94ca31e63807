package handlers

import (
	"github.com/catalog-approvals/backend/internal/http/dto"
	"github.com/catalog-approvals/backend/internal/middleware"
	"github.com/catalog-approvals/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CatalogHandler serves the multi-product write paths that bypass review.
type CatalogHandler struct {
	bulk     BulkApplier
	importer Importer
	log      *zap.Logger
}

func NewCatalogHandler(bulk BulkApplier, importer Importer, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{bulk: bulk, importer: importer, log: log}
}

func (h *CatalogHandler) Bulk(c *fiber.Ctx) error {
	var req dto.BulkRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	res, err := h.bulk.ApplyBulk(c.UserContext(), services.BulkInput{
		ActorRole:     middleware.GetRole(c),
		Operation:     req.Operation,
		TargetIDs:     req.TargetIDs,
		Payload:       req.Payload,
		Actor:         middleware.GetActor(c),
		OriginAddress: middleware.OriginAddress(c),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: res})
}

func (h *CatalogHandler) Import(c *fiber.Ctx) error {
	var req dto.ImportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	res, err := h.importer.Import(c.UserContext(), services.ImportInput{
		ActorRole:     middleware.GetRole(c),
		Rows:          req.Rows,
		Actor:         middleware.GetActor(c),
		OriginAddress: middleware.OriginAddress(c),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: res})
}
