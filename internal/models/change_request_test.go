package models

import (
	"testing"

	"github.com/catalog-approvals/backend/internal/apperr"
	"github.com/stretchr/testify/assert"
)

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		{ChangeStatusPending, ChangeStatusApproved, true},
		{ChangeStatusPending, ChangeStatusRejected, true},

		{ChangeStatusApproved, ChangeStatusRejected, false},
		{ChangeStatusRejected, ChangeStatusApproved, false},
		{ChangeStatusApproved, ChangeStatusPending, false},
		{ChangeStatusRejected, ChangeStatusPending, false},
		{ChangeStatusPending, ChangeStatusPending, false},
		{"nonexistent", ChangeStatusApproved, false},
		{ChangeStatusPending, "nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsValidTransition(tt.from, tt.to))
		})
	}
}

func TestAllStatusesHaveTransitionEntry(t *testing.T) {
	for _, status := range AllChangeStatuses {
		_, ok := ValidChangeTransitions[status]
		assert.True(t, ok, "status %q missing from ValidChangeTransitions map", status)
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, IsTerminalStatus(ChangeStatusApproved))
	assert.True(t, IsTerminalStatus(ChangeStatusRejected))
	assert.False(t, IsTerminalStatus(ChangeStatusPending))
	assert.False(t, IsTerminalStatus("nonexistent"))
}

func TestActionForChange(t *testing.T) {
	assert.Equal(t, ActionCreate, ActionForChange(ChangeTypeCreate))
	assert.Equal(t, ActionUpdate, ActionForChange(ChangeTypeUpdate))
	assert.Equal(t, ActionDelete, ActionForChange(ChangeTypeDelete))
	assert.Equal(t, "", ActionForChange("upsert"))

	for _, ct := range []string{ChangeTypeCreate, ChangeTypeUpdate, ChangeTypeDelete} {
		assert.True(t, IsValidAuditAction(ActionForChange(ct)))
	}
}

func TestProductFields(t *testing.T) {
	for _, f := range RequiredProductFields {
		assert.True(t, IsProductField(f), f)
	}
	assert.False(t, IsProductField("id"))
	assert.False(t, IsProductField("created_at"))
	assert.True(t, IsValidProductStatus(ProductStatusDraft))
	assert.False(t, IsValidProductStatus("archived"))
}

func TestNormalizeProductValues(t *testing.T) {
	out, err := NormalizeProductValues(map[string]any{
		FieldProductName: "  Mug ",
		FieldStatus:      ProductStatusInactive,
		FieldTaxRate:     13,
		FieldColor:       nil,
	})
	assert.NoError(t, err)
	assert.Equal(t, "Mug", out[FieldProductName])
	assert.Equal(t, float64(13), out[FieldTaxRate])
	assert.Nil(t, out[FieldColor])

	tests := []struct {
		name   string
		values map[string]any
	}{
		{"unknown field", map[string]any{"id": 5}},
		{"bad status", map[string]any{FieldStatus: "archived"}},
		{"non-string text", map[string]any{FieldProductName: 12.0}},
		{"non-number tax", map[string]any{FieldTaxRate: "13%"}},
		{"blank required", map[string]any{FieldProductCode: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeProductValues(tt.values)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestMissingRequiredFields(t *testing.T) {
	assert.Equal(t,
		[]string{FieldProductCode, FieldLevel1Category},
		MissingRequiredFields(map[string]any{FieldProductName: "Mug", FieldLevel1Category: ""}),
	)
	assert.Empty(t, MissingRequiredFields(map[string]any{
		FieldProductName: "Mug", FieldProductCode: "M-1", FieldLevel1Category: "Kitchen",
	}))
}
