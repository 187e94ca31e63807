package handlers

import (
	"strconv"

	"github.com/catalog-approvals/backend/internal/http/dto"
	"github.com/catalog-approvals/backend/internal/middleware"
	"github.com/catalog-approvals/backend/internal/models"
	"github.com/catalog-approvals/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type CategoryHandler struct {
	categories CategoryManager
	log        *zap.Logger
}

func NewCategoryHandler(categories CategoryManager, log *zap.Logger) *CategoryHandler {
	return &CategoryHandler{categories: categories, log: log}
}

// List returns the tree. ?include_inactive=true is honored for approvers.
func (h *CategoryHandler) List(c *fiber.Ctx) error {
	list, err := h.categories.List(c.UserContext(), middleware.GetRole(c), c.QueryBool("include_inactive", false))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: list})
}

func (h *CategoryHandler) Create(c *fiber.Ctx) error {
	var req dto.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	cat, err := h.categories.Create(c.UserContext(), categoryCommand(c), categoryInput(req))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: cat})
}

func (h *CategoryHandler) Update(c *fiber.Ctx) error {
	id, ok := categoryID(c)
	if !ok {
		return badRequest(c, "invalid category id")
	}
	var req dto.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	cat, err := h.categories.Update(c.UserContext(), categoryCommand(c), id, categoryInput(req))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: cat})
}

func (h *CategoryHandler) Toggle(c *fiber.Ctx) error {
	id, ok := categoryID(c)
	if !ok {
		return badRequest(c, "invalid category id")
	}
	cat, err := h.categories.Toggle(c.UserContext(), categoryCommand(c), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: cat})
}

func (h *CategoryHandler) Delete(c *fiber.Ctx) error {
	id, ok := categoryID(c)
	if !ok {
		return badRequest(c, "invalid category id")
	}
	if err := h.categories.Delete(c.UserContext(), categoryCommand(c), id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func categoryCommand(c *fiber.Ctx) services.CategoryCommand {
	return services.CategoryCommand{
		ActorRole:     middleware.GetRole(c),
		Actor:         middleware.GetActor(c),
		OriginAddress: middleware.OriginAddress(c),
	}
}

func categoryID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	return id, err == nil && id > 0
}

func categoryInput(req dto.CategoryRequest) models.CategoryInput {
	return models.CategoryInput{
		Name:        req.Name,
		ParentID:    req.ParentID,
		Level:       req.Level,
		Description: req.Description,
		SortOrder:   req.SortOrder,
		IsActive:    req.IsActive,
	}
}
