package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/catalog-approvals/backend/internal/apperr"
	"github.com/catalog-approvals/backend/internal/db"
	"github.com/catalog-approvals/backend/internal/models"
	"github.com/catalog-approvals/backend/internal/rbac"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// CategoryCommand identifies who is changing the category tree.
type CategoryCommand struct {
	ActorRole     rbac.Role
	Actor         models.Actor
	OriginAddress *string
}

// CategoryService maintains the category tree products are filed under.
// Writes are approver-only, run in one transaction and record one ledger
// entry against the categories collection.
type CategoryService struct {
	categories CategoryStore
	ledger     *AuditLedger
	tx         db.Transactor
	log        *zap.Logger
}

func NewCategoryService(categories CategoryStore, ledger *AuditLedger, tx db.Transactor, log *zap.Logger) *CategoryService {
	return &CategoryService{categories: categories, ledger: ledger, tx: tx, log: log}
}

// List returns the tree flattened by level and sort order. Only approvers
// may see inactive categories.
func (s *CategoryService) List(ctx context.Context, role rbac.Role, includeInactive bool) ([]models.Category, error) {
	if !rbac.HasPermission(role, rbac.RoleViewer) {
		return nil, apperr.PermissionDenied("role %s cannot list categories", role)
	}
	if includeInactive && !rbac.HasPermission(role, rbac.RoleApprover) {
		return nil, apperr.PermissionDenied("only approvers can list inactive categories")
	}
	return s.categories.List(ctx, includeInactive)
}

func (s *CategoryService) Create(ctx context.Context, cmd CategoryCommand, in models.CategoryInput) (cat *models.Category, err error) {
	ctx, span := tracer.Start(ctx, "CategoryService.Create")
	defer func() { endSpan(span, err) }()

	if err := requireApprover(cmd.ActorRole); err != nil {
		return nil, err
	}
	in, err = in.Normalize()
	if err != nil {
		return nil, err
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.checkParent(ctx, 0, in); err != nil {
			return err
		}
		created, err := s.categories.Create(ctx, in)
		if err != nil {
			return err
		}
		cat = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, cmd, models.ActionCreateCategory, cat.ID, nil, cat.Values(),
		fmt.Sprintf("created level %d category %q", cat.Level, cat.Name))
	return cat, nil
}

// Update rewrites a category. Renaming or moving a category that products
// still reference is refused, since products point at categories by name.
func (s *CategoryService) Update(ctx context.Context, cmd CategoryCommand, id int64, in models.CategoryInput) (cat *models.Category, err error) {
	ctx, span := tracer.Start(ctx, "CategoryService.Update", trace.WithAttributes(attribute.Int64("category_id", id)))
	defer func() { endSpan(span, err) }()

	if err := requireApprover(cmd.ActorRole); err != nil {
		return nil, err
	}
	in, err = in.Normalize()
	if err != nil {
		return nil, err
	}

	var prior *models.Category
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		current, err := s.categories.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		prior = current

		if err := s.checkParent(ctx, id, in); err != nil {
			return err
		}
		if current.Name != in.Name || current.Level != in.Level {
			if err := s.refuseIfUsed(ctx, current, "rename or move"); err != nil {
				return err
			}
		}
		if current.Level != in.Level {
			if err := s.refuseIfParent(ctx, current, "move"); err != nil {
				return err
			}
		}

		updated, err := s.categories.Update(ctx, id, in)
		if err != nil {
			return err
		}
		cat = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, cmd, models.ActionUpdateCategory, id, prior.Values(), cat.Values(),
		fmt.Sprintf("updated category %q", cat.Name))
	return cat, nil
}

// Toggle flips is_active. Inactive categories stay referenced by existing
// products; they are only hidden from non-approver listings.
func (s *CategoryService) Toggle(ctx context.Context, cmd CategoryCommand, id int64) (cat *models.Category, err error) {
	ctx, span := tracer.Start(ctx, "CategoryService.Toggle", trace.WithAttributes(attribute.Int64("category_id", id)))
	defer func() { endSpan(span, err) }()

	if err := requireApprover(cmd.ActorRole); err != nil {
		return nil, err
	}

	var prior *models.Category
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		current, err := s.categories.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		prior = current
		updated, err := s.categories.SetActive(ctx, id, !current.IsActive)
		if err != nil {
			return err
		}
		cat = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	state := "deactivated"
	if cat.IsActive {
		state = "activated"
	}
	s.record(ctx, cmd, models.ActionToggleCategoryStatus, id,
		map[string]any{"is_active": prior.IsActive}, map[string]any{"is_active": cat.IsActive},
		fmt.Sprintf("%s category %q", state, cat.Name))
	return cat, nil
}

// Delete removes a category that has no children and no products filed
// under it.
func (s *CategoryService) Delete(ctx context.Context, cmd CategoryCommand, id int64) (err error) {
	ctx, span := tracer.Start(ctx, "CategoryService.Delete", trace.WithAttributes(attribute.Int64("category_id", id)))
	defer func() { endSpan(span, err) }()

	if err := requireApprover(cmd.ActorRole); err != nil {
		return err
	}

	var deleted *models.Category
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		current, err := s.categories.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.refuseIfParent(ctx, current, "delete"); err != nil {
			return err
		}
		if err := s.refuseIfUsed(ctx, current, "delete"); err != nil {
			return err
		}
		deleted, err = s.categories.Delete(ctx, id)
		return err
	})
	if err != nil {
		return err
	}

	s.record(ctx, cmd, models.ActionDeleteCategory, id, deleted.Values(), nil,
		fmt.Sprintf("deleted level %d category %q", deleted.Level, deleted.Name))
	return nil
}

// checkParent verifies the parent exists, is not self and sits one level up.
func (s *CategoryService) checkParent(ctx context.Context, self int64, in models.CategoryInput) error {
	if in.ParentID == nil {
		return nil
	}
	if *in.ParentID == self {
		return apperr.Validation("parent_id", "a category cannot be its own parent")
	}
	parent, err := s.categories.GetByID(ctx, *in.ParentID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.Validation("parent_id", "parent category %d does not exist", *in.ParentID)
		}
		return err
	}
	if parent.Level != in.Level-1 {
		return apperr.Validation("parent_id", "level %d categories need a level %d parent, category %d is level %d",
			in.Level, in.Level-1, parent.ID, parent.Level)
	}
	return nil
}

func (s *CategoryService) refuseIfParent(ctx context.Context, c *models.Category, verb string) error {
	n, err := s.categories.CountChildren(ctx, c.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Validation("id", "cannot %s category %q: it has %d child categories", verb, c.Name, n)
	}
	return nil
}

func (s *CategoryService) refuseIfUsed(ctx context.Context, c *models.Category, verb string) error {
	n, err := s.categories.CountProductsUsing(ctx, c.Level, c.Name)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Validation("id", "cannot %s category %q: %d products use it", verb, c.Name, n)
	}
	return nil
}

func (s *CategoryService) record(ctx context.Context, cmd CategoryCommand, action string, id int64, prior, next map[string]any, details string) {
	s.ledger.Record(ctx, AuditEntryInput{
		Actor:            cmd.Actor,
		ActionType:       action,
		TargetCollection: models.CollectionCategories,
		TargetEntityID:   &id,
		PriorValues:      prior,
		NewValues:        next,
		AffectedCount:    1,
		Details:          details,
		OriginAddress:    cmd.OriginAddress,
	})
	s.log.Info("category changed",
		zap.String("action_type", action),
		zap.Int64("category_id", id),
		zap.String("actor_id", cmd.Actor.ID.String()),
	)
}

func requireApprover(role rbac.Role) error {
	if !rbac.HasPermission(role, rbac.RoleApprover) {
		return apperr.PermissionDenied("role %s cannot manage categories", role)
	}
	return nil
}
