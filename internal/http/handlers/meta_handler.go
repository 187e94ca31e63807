package handlers

import (
	"github.com/catalog-approvals/backend/internal/http/dto"
	"github.com/catalog-approvals/backend/internal/models"
	"github.com/catalog-approvals/backend/internal/rbac"
	"github.com/catalog-approvals/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type MetaHandler struct{}

func NewMetaHandler() *MetaHandler {
	return &MetaHandler{}
}

type MetaEnums struct {
	Roles           []string `json:"roles"`
	ChangeTypes     []string `json:"change_types"`
	ChangeStatuses  []string `json:"change_statuses"`
	ProductStatuses []string `json:"product_statuses"`
	ProductFields   []string `json:"product_fields"`
	RequiredFields  []string `json:"required_fields"`
	AuditActions    []string `json:"audit_actions"`
	BulkOperations  []string `json:"bulk_operations"`
	PageSizes       []int    `json:"page_sizes"`
}

var enums = func() MetaEnums {
	roles := make([]string, 0, len(rbac.AllRoles))
	for _, r := range rbac.AllRoles {
		roles = append(roles, r.String())
	}
	return MetaEnums{
		Roles:           roles,
		ChangeTypes:     []string{models.ChangeTypeCreate, models.ChangeTypeUpdate, models.ChangeTypeDelete},
		ChangeStatuses:  models.AllChangeStatuses,
		ProductStatuses: models.AllProductStatuses,
		ProductFields:   models.ProductFields,
		RequiredFields:  models.RequiredProductFields,
		AuditActions:    models.AllAuditActions,
		BulkOperations:  services.AllBulkOperations,
		PageSizes:       []int{10, 20, 50, 100},
	}
}()

func (h *MetaHandler) GetEnums(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: enums})
}
