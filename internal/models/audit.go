package models

import (
	"time"

	"github.com/google/uuid"
)

// Ledger action types
const (
	ActionCreate       = "CREATE"
	ActionUpdate       = "UPDATE"
	ActionDelete       = "DELETE"
	ActionBulkUpdate   = "BULK_UPDATE"
	ActionBulkDelete   = "BULK_DELETE"
	ActionImport       = "IMPORT"
	ActionSubmitChange = "SUBMIT_CHANGE"

	ActionCreateCategory       = "CREATE_CATEGORY"
	ActionUpdateCategory       = "UPDATE_CATEGORY"
	ActionDeleteCategory       = "DELETE_CATEGORY"
	ActionToggleCategoryStatus = "TOGGLE_CATEGORY_STATUS"
)

var AllAuditActions = []string{
	ActionCreate, ActionUpdate, ActionDelete,
	ActionBulkUpdate, ActionBulkDelete, ActionImport, ActionSubmitChange,
	ActionCreateCategory, ActionUpdateCategory, ActionDeleteCategory, ActionToggleCategoryStatus,
}

func IsValidAuditAction(a string) bool {
	for _, act := range AllAuditActions {
		if act == a {
			return true
		}
	}
	return false
}

// ActionForChange maps a change type onto the ledger action recording it.
func ActionForChange(changeType string) string {
	switch changeType {
	case ChangeTypeCreate:
		return ActionCreate
	case ChangeTypeUpdate:
		return ActionUpdate
	case ChangeTypeDelete:
		return ActionDelete
	}
	return ""
}

type AuditLog struct {
	ID               uuid.UUID      `json:"id"`
	ActorID          *uuid.UUID     `json:"actor_id,omitempty"`
	ActorEmail       string         `json:"actor_email"`
	ActorName        *string        `json:"actor_name,omitempty"`
	ActionType       string         `json:"action_type"`
	TargetCollection string         `json:"target_collection"`
	TargetEntityID   *int64         `json:"target_entity_id,omitempty"`
	PriorValues      map[string]any `json:"prior_values,omitempty"`
	NewValues        map[string]any `json:"new_values,omitempty"`
	AffectedCount    int            `json:"affected_count"`
	Details          string         `json:"details"`
	OriginAddress    *string        `json:"origin_address,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// AuditFilter narrows a ledger query. Nil fields are ignored.
type AuditFilter struct {
	ActionType       *string
	ActorID          *uuid.UUID
	TargetCollection *string
	TargetEntityID   *int64
	From             *time.Time
	To               *time.Time
}
