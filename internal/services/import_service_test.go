package services

import (
	"context"
	"testing"

	"github.com/catalog-approvals/backend/internal/apperr"
	"github.com/catalog-approvals/backend/internal/models"
	"github.com/catalog-approvals/backend/internal/rbac"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImport_MixedRows(t *testing.T) {
	h := newHarness()

	rows := []map[string]any{
		newProductValues("A-1"),
		{models.FieldProductName: "No code", models.FieldLevel1Category: "Kitchen"},
		newProductValues("A-2"),
		newProductValues("A-1"),
		{models.FieldProductCode: "A-3", models.FieldProductName: "Bad", models.FieldLevel1Category: "Kitchen", models.FieldStatus: "gone"},
	}

	res, err := h.importer.Import(context.Background(), ImportInput{ActorRole: rbac.RoleEditor, Rows: rows, Actor: editor})
	require.NoError(t, err)
	assert.Equal(t, 5, res.TotalRows)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 3, res.ErrorCount)
	require.Len(t, res.Errors, 3)
	assert.Equal(t, 2, res.Errors[0].Row)
	assert.Contains(t, res.Errors[0].Message, models.FieldProductCode)
	assert.Equal(t, 4, res.Errors[1].Row)
	assert.Contains(t, res.Errors[1].Message, "duplicate")
	assert.Equal(t, 5, res.Errors[2].Row)

	assert.Equal(t, 2, h.products.count())
	p, _ := h.products.get(res.ProductIDs[0])
	assert.Equal(t, models.ProductStatusActive, p.Status)

	entries := h.audit.all()
	require.Len(t, entries, 1)
	assert.Equal(t, models.ActionImport, entries[0].ActionType)
	assert.Equal(t, 2, entries[0].AffectedCount)
}

func TestImport_AllRowsInvalid(t *testing.T) {
	h := newHarness()

	res, err := h.importer.Import(context.Background(), ImportInput{
		ActorRole: rbac.RoleEditor,
		Rows:      []map[string]any{{"price": 3.0}},
		Actor:     editor,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.SuccessCount)
	assert.Equal(t, 1, res.ErrorCount)
	assert.Equal(t, 0, h.products.count())
	assert.Len(t, h.audit.all(), 1)
}

func TestImport_ConflictRollsBack(t *testing.T) {
	h := newHarness(product(1, "TAKEN", models.ProductStatusActive))

	_, err := h.importer.Import(context.Background(), ImportInput{
		ActorRole: rbac.RoleEditor,
		Rows:      []map[string]any{newProductValues("FREE"), newProductValues("TAKEN")},
		Actor:     editor,
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, 1, h.products.count(), "batch is all or nothing")
	assert.Empty(t, h.audit.all())
}

func TestImport_Rejects(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	_, err := h.importer.Import(ctx, ImportInput{ActorRole: rbac.RoleViewer, Rows: []map[string]any{newProductValues("X")}})
	assert.ErrorIs(t, err, apperr.ErrPermissionDenied)

	_, err = h.importer.Import(ctx, ImportInput{ActorRole: rbac.RoleEditor})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = h.importer.Import(ctx, ImportInput{ActorRole: rbac.RoleEditor, Rows: make([]map[string]any, MaxImportRows+1)})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
