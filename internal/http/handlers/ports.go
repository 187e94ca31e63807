package handlers

import (
	"context"

	"github.com/catalog-approvals/backend/internal/models"
	"github.com/catalog-approvals/backend/internal/rbac"
	"github.com/catalog-approvals/backend/internal/services"
	"github.com/google/uuid"
)

type ChangeRequestPipeline interface {
	Submit(ctx context.Context, in services.SubmitInput) (services.SubmitResult, error)
	Review(ctx context.Context, in services.ReviewInput) (services.ReviewResult, error)
	List(ctx context.Context, in services.ListInput) (services.ChangeRequestPage, error)
	Get(ctx context.Context, id uuid.UUID, callerRole rbac.Role, callerID uuid.UUID) (*models.ChangeRequest, error)
}

type BulkApplier interface {
	ApplyBulk(ctx context.Context, in services.BulkInput) (services.BulkResult, error)
}

type Importer interface {
	Import(ctx context.Context, in services.ImportInput) (services.ImportResult, error)
}

type LedgerReader interface {
	Query(ctx context.Context, q services.AuditQuery) (services.AuditPage, error)
}

type CategoryManager interface {
	List(ctx context.Context, role rbac.Role, includeInactive bool) ([]models.Category, error)
	Create(ctx context.Context, cmd services.CategoryCommand, in models.CategoryInput) (*models.Category, error)
	Update(ctx context.Context, cmd services.CategoryCommand, id int64, in models.CategoryInput) (*models.Category, error)
	Toggle(ctx context.Context, cmd services.CategoryCommand, id int64) (*models.Category, error)
	Delete(ctx context.Context, cmd services.CategoryCommand, id int64) error
}

type ProfileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	Upsert(ctx context.Context, id uuid.UUID, email string, fullName *string) (*models.Profile, error)
	SetRole(ctx context.Context, id uuid.UUID, role rbac.Role) error
}

var (
	_ ChangeRequestPipeline = (*services.ChangeRequestService)(nil)
	_ BulkApplier           = (*services.BulkService)(nil)
	_ Importer              = (*services.ImportService)(nil)
	_ LedgerReader          = (*services.AuditLedger)(nil)
	_ CategoryManager       = (*services.CategoryService)(nil)
)
