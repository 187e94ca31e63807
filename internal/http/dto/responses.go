package dto

type ErrorResponse struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type PermissionResponse struct {
	Action  string `json:"action"`
	Role    string `json:"role"`
	Allowed bool   `json:"allowed"`
}

type MeResponse struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName *string  `json:"full_name,omitempty"`
	Role     string   `json:"role"`
	Actions  []string `json:"actions"`
}
