package handlers

import (
	"context"
	"testing"

	"github.com/catalog-approvals/backend/internal/apperr"
	"github.com/catalog-approvals/backend/internal/models"
	"github.com/catalog-approvals/backend/internal/rbac"
	"github.com/catalog-approvals/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubCategories struct {
	listInactive bool
	cmd          services.CategoryCommand
	id           int64
	in           models.CategoryInput
	err          error
}

func (s *stubCategories) List(_ context.Context, _ rbac.Role, includeInactive bool) ([]models.Category, error) {
	s.listInactive = includeInactive
	return []models.Category{{ID: 1, Name: "Kitchen", Level: 1, IsActive: true}}, s.err
}

func (s *stubCategories) Create(_ context.Context, cmd services.CategoryCommand, in models.CategoryInput) (*models.Category, error) {
	s.cmd, s.in = cmd, in
	if s.err != nil {
		return nil, s.err
	}
	return &models.Category{ID: 2, Name: in.Name, Level: in.Level}, nil
}

func (s *stubCategories) Update(_ context.Context, cmd services.CategoryCommand, id int64, in models.CategoryInput) (*models.Category, error) {
	s.cmd, s.id, s.in = cmd, id, in
	if s.err != nil {
		return nil, s.err
	}
	return &models.Category{ID: id, Name: in.Name, Level: in.Level}, nil
}

func (s *stubCategories) Toggle(_ context.Context, cmd services.CategoryCommand, id int64) (*models.Category, error) {
	s.cmd, s.id = cmd, id
	if s.err != nil {
		return nil, s.err
	}
	return &models.Category{ID: id}, nil
}

func (s *stubCategories) Delete(_ context.Context, cmd services.CategoryCommand, id int64) error {
	s.cmd, s.id = cmd, id
	return s.err
}

func categoryApp(s *stubCategories) *fiber.App {
	h := NewCategoryHandler(s, zap.NewNop())
	app := fiber.New()
	app.Use(as(approverActor, rbac.RoleApprover))
	app.Get("/categories", h.List)
	app.Post("/categories", h.Create)
	app.Put("/categories/:id", h.Update)
	app.Post("/categories/:id/toggle", h.Toggle)
	app.Delete("/categories/:id", h.Delete)
	return app
}

func TestCategoryHandler(t *testing.T) {
	s := &stubCategories{}
	app := categoryApp(s)

	status, body := do(t, app, "GET", "/categories?include_inactive=true", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, s.listInactive)
	assert.Len(t, body["data"], 1)

	status, _ = do(t, app, "POST", "/categories", `{"name":"Mugs","level":2,"parent_id":1,"sort_order":4}`)
	assert.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "Mugs", s.in.Name)
	require.NotNil(t, s.in.ParentID)
	assert.Equal(t, int64(1), *s.in.ParentID)
	assert.Equal(t, 4, s.in.SortOrder)
	assert.Equal(t, approverActor, s.cmd.Actor)
	assert.Equal(t, rbac.RoleApprover, s.cmd.ActorRole)
	require.NotNil(t, s.cmd.OriginAddress)
	assert.Equal(t, "10.0.0.7", *s.cmd.OriginAddress)

	status, _ = do(t, app, "PUT", "/categories/9", `{"name":"Cups","level":2,"parent_id":1}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, int64(9), s.id)
	assert.Equal(t, "Cups", s.in.Name)

	status, _ = do(t, app, "POST", "/categories/9/toggle", "")
	assert.Equal(t, fiber.StatusOK, status)

	status, body = do(t, app, "DELETE", "/categories/9", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["ok"])
}

func TestCategoryHandler_Errors(t *testing.T) {
	app := categoryApp(&stubCategories{})
	for _, target := range []string{"/categories/0", "/categories/abc"} {
		status, _ := do(t, app, "DELETE", target, "")
		assert.Equal(t, fiber.StatusBadRequest, status, target)
	}
	status, _ := do(t, app, "POST", "/categories", `{bad`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	app = categoryApp(&stubCategories{err: apperr.Validation("id", `cannot delete category "Mugs": 3 products use it`)})
	status, body := do(t, app, "DELETE", "/categories/9", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body["error"], "3 products use it")
	assert.Equal(t, "id", body["field"])
}
