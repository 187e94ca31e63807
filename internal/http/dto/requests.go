package dto

type SubmitChangeRequest struct {
	ChangeType     string         `json:"change_type"` // create / update / delete
	TargetID       *int64         `json:"target_id,omitempty"`
	ProposedValues map[string]any `json:"proposed_values"`
	Description    *string        `json:"description,omitempty"`
}

type ReviewChangeRequest struct {
	Decision string  `json:"decision"` // approved / rejected
	Notes    *string `json:"notes,omitempty"`
}

type BulkRequest struct {
	Operation string         `json:"operation"` // update_status / update_fields / delete
	TargetIDs []int64        `json:"target_ids"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// ImportRequest carries rows already parsed from the uploaded file.
type ImportRequest struct {
	Rows []map[string]any `json:"rows"`
}

type SetRoleRequest struct {
	Role string `json:"role"` // viewer / editor / approver
}

type CategoryRequest struct {
	Name        string  `json:"name"`
	ParentID    *int64  `json:"parent_id,omitempty"`
	Level       int     `json:"level"` // 1..3
	Description *string `json:"description,omitempty"`
	SortOrder   int     `json:"sort_order"`
	IsActive    *bool   `json:"is_active,omitempty"`
}
