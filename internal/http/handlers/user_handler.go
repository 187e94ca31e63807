package handlers

import (
	"sort"

	"github.com/catalog-approvals/backend/internal/apperr"
	"github.com/catalog-approvals/backend/internal/http/dto"
	"github.com/catalog-approvals/backend/internal/middleware"
	"github.com/catalog-approvals/backend/internal/rbac"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserHandler struct {
	profiles ProfileStore
	log      *zap.Logger
}

func NewUserHandler(profiles ProfileStore, log *zap.Logger) *UserHandler {
	return &UserHandler{profiles: profiles, log: log}
}

// GetMe describes the caller and refreshes their stored profile. The role
// always comes from the token.
func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	role := middleware.GetRole(c)

	resp := dto.MeResponse{
		ID:       actor.ID.String(),
		Email:    actor.Email,
		FullName: actor.Name,
		Role:     role.String(),
		Actions:  allowedActions(role),
	}

	profile, err := h.profiles.Upsert(c.UserContext(), actor.ID, actor.Email, actor.Name)
	if err != nil {
		h.log.Warn("failed to refresh profile", zap.String("user_id", actor.ID.String()), zap.Error(err))
	} else if profile.FullName != nil {
		resp.FullName = profile.FullName
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: resp})
}

// CheckPermission answers whether the caller may perform ?action=.
func (h *UserHandler) CheckPermission(c *fiber.Ctx) error {
	action := c.Query("action")
	if _, ok := rbac.ActionRoles[action]; !ok {
		return badRequest(c, "unknown action")
	}
	role := middleware.GetRole(c)
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.PermissionResponse{
		Action:  action,
		Role:    role.String(),
		Allowed: rbac.Can(role, action),
	}})
}

// SetRole changes the stored role of another user. Takes effect on the
// user's next issued token.
func (h *UserHandler) SetRole(c *fiber.Ctx) error {
	if !rbac.Can(middleware.GetRole(c), rbac.ActionManageUsers) {
		return respondError(c, h.log, apperr.PermissionDenied("cannot manage users"))
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid user id")
	}
	if id == middleware.GetUserID(c) {
		return respondError(c, h.log, apperr.PermissionDenied("cannot change own role"))
	}

	var req dto.SetRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	if err := h.profiles.SetRole(c.UserContext(), id, rbac.ParseRole(req.Role)); err != nil {
		return respondError(c, h.log, err)
	}
	profile, err := h.profiles.GetByID(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}

	h.log.Info("profile role changed",
		zap.String("user_id", id.String()),
		zap.String("role", profile.Role.String()),
		zap.String("changed_by", middleware.GetUserID(c).String()),
	)
	return c.JSON(dto.SuccessResponse{OK: true, Data: profile})
}

func allowedActions(role rbac.Role) []string {
	actions := []string{}
	for action := range rbac.ActionRoles {
		if rbac.Can(role, action) {
			actions = append(actions, action)
		}
	}
	sort.Strings(actions)
	return actions
}
