package rbac

import "strings"

// Role is a privilege tier. Tiers are totally ordered: a higher tier holds
// every permission of the lower ones.
type Role int

const (
	RoleUnknown Role = iota
	RoleViewer
	RoleEditor
	RoleApprover
)

// Action constants
const (
	ActionRead         = "read"
	ActionCreate       = "create"
	ActionUpdate       = "update"
	ActionDelete       = "delete"
	ActionApprove      = "approve"
	ActionAdminAccess  = "admin_access"
	ActionManageUsers  = "manage_users"
	ActionSystemConfig = "system_config"
)

// ActionRoles defines the minimum role for each action.
var ActionRoles = map[string]Role{
	ActionRead:         RoleViewer,
	ActionCreate:       RoleEditor,
	ActionUpdate:       RoleEditor,
	ActionDelete:       RoleEditor,
	ActionAdminAccess:  RoleEditor,
	ActionApprove:      RoleApprover,
	ActionManageUsers:  RoleApprover,
	ActionSystemConfig: RoleApprover,
}

var roleNames = map[Role]string{
	RoleViewer:   "viewer",
	RoleEditor:   "editor",
	RoleApprover: "approver",
}

// legacy profile role names map onto the same tiers
var roleAliases = map[string]Role{
	"viewer":     RoleViewer,
	"editor":     RoleEditor,
	"approver":   RoleApprover,
	"user":       RoleViewer,
	"admin":      RoleEditor,
	"superadmin": RoleApprover,
}

// AllRoles lists the known roles from lowest to highest.
var AllRoles = []Role{RoleViewer, RoleEditor, RoleApprover}

func ParseRole(s string) Role {
	return roleAliases[strings.ToLower(strings.TrimSpace(s))]
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

func (r Role) Valid() bool {
	return r >= RoleViewer && r <= RoleApprover
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	*r = ParseRole(string(b))
	return nil
}

// HasPermission reports whether actor ranks at least as high as required.
// Unknown roles never pass, not even against RoleUnknown.
func HasPermission(actor, required Role) bool {
	if !actor.Valid() {
		return false
	}
	return actor >= required
}

// Can checks if a role may perform the named action. Unknown actions are denied.
func Can(role Role, action string) bool {
	required, ok := ActionRoles[action]
	if !ok {
		return false
	}
	return HasPermission(role, required)
}
