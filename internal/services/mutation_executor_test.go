package services

import (
	"context"
	"testing"

	"github.com/catalog-approvals/backend/internal/apperr"
	"github.com/catalog-approvals/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutationExecutor_Create(t *testing.T) {
	h := newHarness()

	res, err := h.executor.Apply(context.Background(), models.ChangeTypeCreate, nil, newProductValues("M-1"))
	require.NoError(t, err)
	require.NotNil(t, res.Result)
	assert.Nil(t, res.PriorState)
	assert.Equal(t, "M-1", res.Result.ProductCode)
	assert.Equal(t, models.ProductStatusActive, res.Result.Status, "status defaults to active")
	assert.Equal(t, 1, h.products.count())
}

func TestMutationExecutor_CreateMissingRequired(t *testing.T) {
	h := newHarness()

	_, err := h.executor.Apply(context.Background(), models.ChangeTypeCreate, nil, map[string]any{
		models.FieldProductName: "Mug",
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, 0, h.products.count())
}

func TestMutationExecutor_Update(t *testing.T) {
	h := newHarness(product(42, "P-42", models.ProductStatusActive))

	res, err := h.executor.Apply(context.Background(), models.ChangeTypeUpdate, ptr(int64(42)), map[string]any{
		models.FieldStatus: models.ProductStatusInactive,
		models.FieldColor:  "blue",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ProductStatusActive, res.PriorState[models.FieldStatus])
	assert.Equal(t, models.ProductStatusInactive, res.Result.Status)
	require.NotNil(t, res.Result.Color)
	assert.Equal(t, "blue", *res.Result.Color)
	assert.Equal(t, "P-42", res.Result.ProductCode, "unmentioned fields are kept")
	assert.Equal(t, 1, h.tx.commits)
}

func TestMutationExecutor_UpdateMissingTarget(t *testing.T) {
	h := newHarness()

	_, err := h.executor.Apply(context.Background(), models.ChangeTypeUpdate, ptr(int64(7)), map[string]any{
		models.FieldStatus: models.ProductStatusDraft,
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMutationExecutor_Delete(t *testing.T) {
	h := newHarness(product(5, "P-5", models.ProductStatusDraft))

	res, err := h.executor.Apply(context.Background(), models.ChangeTypeDelete, ptr(int64(5)), nil)
	require.NoError(t, err)
	assert.Nil(t, res.Result)
	assert.Equal(t, "P-5", res.PriorState[models.FieldProductCode])
	assert.Equal(t, 0, h.products.count())

	_, err = h.executor.Apply(context.Background(), models.ChangeTypeDelete, ptr(int64(5)), nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMutationExecutor_RejectsBadInput(t *testing.T) {
	h := newHarness(product(1, "P-1", models.ProductStatusActive))
	ctx := context.Background()

	tests := []struct {
		name       string
		changeType string
		targetID   *int64
		values     map[string]any
	}{
		{"unknown change type", "upsert", nil, nil},
		{"update without target", models.ChangeTypeUpdate, nil, map[string]any{models.FieldColor: "red"}},
		{"delete without target", models.ChangeTypeDelete, nil, nil},
		{"update with no fields", models.ChangeTypeUpdate, ptr(int64(1)), map[string]any{}},
		{"unknown field", models.ChangeTypeUpdate, ptr(int64(1)), map[string]any{"price": 3.0}},
		{"invalid status", models.ChangeTypeUpdate, ptr(int64(1)), map[string]any{models.FieldStatus: "archived"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.executor.Apply(ctx, tt.changeType, tt.targetID, tt.values)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}

	p, _ := h.products.get(1)
	assert.Equal(t, models.ProductStatusActive, p.Status)
}
