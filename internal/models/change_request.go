package models

import (
	"time"

	"github.com/google/uuid"
)

// Change types
const (
	ChangeTypeCreate = "create"
	ChangeTypeUpdate = "update"
	ChangeTypeDelete = "delete"
)

func IsValidChangeType(t string) bool {
	return t == ChangeTypeCreate || t == ChangeTypeUpdate || t == ChangeTypeDelete
}

// Change request statuses
const (
	ChangeStatusPending  = "pending"
	ChangeStatusApproved = "approved"
	ChangeStatusRejected = "rejected"
)

var AllChangeStatuses = []string{ChangeStatusPending, ChangeStatusApproved, ChangeStatusRejected}

// Valid state transitions: from -> []to
var ValidChangeTransitions = map[string][]string{
	ChangeStatusPending:  {ChangeStatusApproved, ChangeStatusRejected},
	ChangeStatusApproved: {},
	ChangeStatusRejected: {},
}

func IsValidTransition(from, to string) bool {
	allowed, ok := ValidChangeTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

func IsTerminalStatus(status string) bool {
	allowed, ok := ValidChangeTransitions[status]
	return ok && len(allowed) == 0
}

// Actor identifies whoever performs or requests an action. Supplied by the
// authentication layer on every call.
type Actor struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  *string   `json:"name,omitempty"`
}

type ChangeRequest struct {
	ID               uuid.UUID      `json:"id"`
	TargetCollection string         `json:"target_collection"`
	TargetEntityID   *int64         `json:"target_entity_id,omitempty"`
	ChangeType       string         `json:"change_type"`
	ProposedValues   map[string]any `json:"proposed_values"`
	PriorValues      map[string]any `json:"prior_values,omitempty"`
	Description      *string        `json:"description,omitempty"`
	RequesterID      uuid.UUID      `json:"requester_id"`
	RequesterEmail   string         `json:"requester_email"`
	RequesterName    *string        `json:"requester_name,omitempty"`
	Status           string         `json:"status"`
	ReviewerID       *uuid.UUID     `json:"reviewer_id,omitempty"`
	ReviewerEmail    *string        `json:"reviewer_email,omitempty"`
	ReviewerName     *string        `json:"reviewer_name,omitempty"`
	ReviewNotes      *string        `json:"review_notes,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	ReviewedAt       *time.Time     `json:"reviewed_at,omitempty"`
}

func (cr *ChangeRequest) Requester() Actor {
	return Actor{ID: cr.RequesterID, Email: cr.RequesterEmail, Name: cr.RequesterName}
}

// ChangeRequestStats counts requests per status.
type ChangeRequestStats struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Total    int `json:"total"`
}
