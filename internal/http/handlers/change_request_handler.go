package handlers

import (
	"github.com/catalog-approvals/backend/internal/http/dto"
	"github.com/catalog-approvals/backend/internal/middleware"
	"github.com/catalog-approvals/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ChangeRequestHandler struct {
	pipeline ChangeRequestPipeline
	log      *zap.Logger
}

func NewChangeRequestHandler(pipeline ChangeRequestPipeline, log *zap.Logger) *ChangeRequestHandler {
	return &ChangeRequestHandler{pipeline: pipeline, log: log}
}

// Submit applies the change at once for approvers (200) and queues it for
// editors (202).
func (h *ChangeRequestHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	res, err := h.pipeline.Submit(c.UserContext(), services.SubmitInput{
		ActorRole:      middleware.GetRole(c),
		ChangeType:     req.ChangeType,
		TargetID:       req.TargetID,
		ProposedValues: req.ProposedValues,
		Requester:      middleware.GetActor(c),
		Description:    req.Description,
		OriginAddress:  middleware.OriginAddress(c),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}

	status := fiber.StatusOK
	if !res.Executed {
		status = fiber.StatusAccepted
	}
	return c.Status(status).JSON(dto.SuccessResponse{OK: true, Data: res})
}

func (h *ChangeRequestHandler) List(c *fiber.Ctx) error {
	in := services.ListInput{
		CallerRole: middleware.GetRole(c),
		CallerID:   middleware.GetUserID(c),
		Status:     c.Query("status"),
		Page:       c.QueryInt("page", 1),
		PageSize:   c.QueryInt("page_size", 0),
	}
	if v := c.Query("requester_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return badRequest(c, "invalid requester_id")
		}
		in.RequesterID = &id
	}

	page, err := h.pipeline.List(c.UserContext(), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: page})
}

func (h *ChangeRequestHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid change request id")
	}

	cr, err := h.pipeline.Get(c.UserContext(), id, middleware.GetRole(c), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: cr})
}

func (h *ChangeRequestHandler) Review(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid change request id")
	}

	var req dto.ReviewChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	res, err := h.pipeline.Review(c.UserContext(), services.ReviewInput{
		RequestID:     id,
		ReviewerRole:  middleware.GetRole(c),
		Reviewer:      middleware.GetActor(c),
		Decision:      req.Decision,
		Notes:         req.Notes,
		OriginAddress: middleware.OriginAddress(c),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: res})
}
