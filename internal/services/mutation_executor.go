package services

import (
	"context"
	"strings"

	"github.com/catalog-approvals/backend/internal/apperr"
	"github.com/catalog-approvals/backend/internal/db"
	"github.com/catalog-approvals/backend/internal/models"
)

// ApplyResult is the outcome of a single applied change. Result is nil for
// deletes; PriorState is nil for creates.
type ApplyResult struct {
	Result     *models.Product `json:"result,omitempty"`
	PriorState map[string]any  `json:"prior_state,omitempty"`
}

// MutationExecutor applies one validated change to one product. It does not
// write to the ledger; callers record the operation exactly once.
type MutationExecutor struct {
	products ProductStore
	tx       db.Transactor
}

func NewMutationExecutor(products ProductStore, tx db.Transactor) *MutationExecutor {
	return &MutationExecutor{products: products, tx: tx}
}

func (e *MutationExecutor) Apply(ctx context.Context, changeType string, targetID *int64, values map[string]any) (ApplyResult, error) {
	switch changeType {
	case models.ChangeTypeCreate:
		return e.create(ctx, values)
	case models.ChangeTypeUpdate:
		if targetID == nil {
			return ApplyResult{}, apperr.Validation("target_id", "required for update")
		}
		return e.update(ctx, *targetID, values)
	case models.ChangeTypeDelete:
		if targetID == nil {
			return ApplyResult{}, apperr.Validation("target_id", "required for delete")
		}
		return e.delete(ctx, *targetID)
	}
	return ApplyResult{}, apperr.Validation("change_type", "unknown change type %q", changeType)
}

func (e *MutationExecutor) create(ctx context.Context, values map[string]any) (ApplyResult, error) {
	vals, err := prepareCreate(values)
	if err != nil {
		return ApplyResult{}, err
	}
	p, err := e.products.Create(ctx, vals)
	if err != nil {
		return ApplyResult{}, err
	}
	return ApplyResult{Result: p}, nil
}

func (e *MutationExecutor) update(ctx context.Context, id int64, values map[string]any) (ApplyResult, error) {
	vals, err := models.NormalizeProductValues(values)
	if err != nil {
		return ApplyResult{}, err
	}
	if len(vals) == 0 {
		return ApplyResult{}, apperr.Validation("values", "no fields to update")
	}

	var res ApplyResult
	err = e.tx.InTx(ctx, func(ctx context.Context) error {
		prior, err := e.products.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		updated, err := e.products.Update(ctx, id, vals)
		if err != nil {
			return err
		}
		res = ApplyResult{Result: updated, PriorState: prior.Values()}
		return nil
	})
	if err != nil {
		return ApplyResult{}, err
	}
	return res, nil
}

func (e *MutationExecutor) delete(ctx context.Context, id int64) (ApplyResult, error) {
	var res ApplyResult
	err := e.tx.InTx(ctx, func(ctx context.Context) error {
		prior, err := e.products.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if _, err := e.products.Delete(ctx, id); err != nil {
			return err
		}
		res = ApplyResult{PriorState: prior.Values()}
		return nil
	})
	if err != nil {
		return ApplyResult{}, err
	}
	return res, nil
}

// prepareCreate normalizes a new product, checks required fields and fills
// the default status.
func prepareCreate(values map[string]any) (map[string]any, error) {
	vals, err := models.NormalizeProductValues(values)
	if err != nil {
		return nil, err
	}
	if missing := models.MissingRequiredFields(vals); len(missing) > 0 {
		return nil, apperr.Validation(missing[0], "missing required fields: %s", strings.Join(missing, ", "))
	}
	if s, _ := vals[models.FieldStatus].(string); s == "" {
		vals[models.FieldStatus] = models.ProductStatusActive
	}
	return vals, nil
}
