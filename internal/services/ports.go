package services

import (
	"context"

	"github.com/catalog-approvals/backend/internal/models"
	"github.com/catalog-approvals/backend/internal/repositories"
	"github.com/google/uuid"
)

// ProductStore is the single-entity side of the catalog store.
type ProductStore interface {
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	GetForUpdate(ctx context.Context, id int64) (*models.Product, error)
	Create(ctx context.Context, values map[string]any) (*models.Product, error)
	Update(ctx context.Context, id int64, values map[string]any) (*models.Product, error)
	Delete(ctx context.Context, id int64) (*models.Product, error)
}

// BatchProductStore applies one statement to many products.
type BatchProductStore interface {
	UpdateMany(ctx context.Context, ids []int64, values map[string]any) ([]int64, error)
	DeleteMany(ctx context.Context, ids []int64) ([]int64, error)
	InsertMany(ctx context.Context, rows []map[string]any) ([]int64, error)
}

// CategoryStore keeps the category tree. CountProductsUsing looks at the
// product column matching level.
type CategoryStore interface {
	List(ctx context.Context, includeInactive bool) ([]models.Category, error)
	GetByID(ctx context.Context, id int64) (*models.Category, error)
	GetForUpdate(ctx context.Context, id int64) (*models.Category, error)
	Create(ctx context.Context, in models.CategoryInput) (*models.Category, error)
	Update(ctx context.Context, id int64, in models.CategoryInput) (*models.Category, error)
	SetActive(ctx context.Context, id int64, active bool) (*models.Category, error)
	Delete(ctx context.Context, id int64) (*models.Category, error)
	CountChildren(ctx context.Context, id int64) (int, error)
	CountProductsUsing(ctx context.Context, level int, name string) (int, error)
}

type ChangeRequestStore interface {
	Create(ctx context.Context, cr *models.ChangeRequest) (*models.ChangeRequest, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.ChangeRequest, error)
	TransitionFromPending(ctx context.Context, id uuid.UUID, status string, reviewer models.Actor, notes *string) (*models.ChangeRequest, error)
	List(ctx context.Context, f repositories.ChangeRequestFilter) ([]models.ChangeRequest, int, error)
	CountByStatus(ctx context.Context, status string) (int, error)
}

type AuditStore interface {
	Insert(ctx context.Context, e models.AuditLog) error
	Query(ctx context.Context, f models.AuditFilter, limit, offset int) ([]models.AuditLog, int, error)
}

// SpillQueue parks ledger entries whose insert failed.
type SpillQueue interface {
	Push(ctx context.Context, entries ...models.AuditLog) error
}

// SpillClaimer is the replay side of the spill queue. Claimed entries stay
// recoverable until acked, requeued or buried.
type SpillClaimer interface {
	SpillQueue
	Claim(ctx context.Context, n int) ([]repositories.SpilledEntry, []string, error)
	Ack(ctx context.Context, raws ...string) error
	Requeue(ctx context.Context, raws ...string) error
	Bury(ctx context.Context, raws ...string) error
	Recover(ctx context.Context) (int, error)
}

var (
	_ ProductStore       = (*repositories.ProductRepo)(nil)
	_ BatchProductStore  = (*repositories.ProductRepo)(nil)
	_ CategoryStore      = (*repositories.CategoryRepo)(nil)
	_ ChangeRequestStore = (*repositories.ChangeRequestRepo)(nil)
	_ AuditStore         = (*repositories.AuditRepo)(nil)
	_ SpillClaimer       = (*repositories.LedgerSpill)(nil)
)
